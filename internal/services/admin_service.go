// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalUsers          int64           `json:"total_users"`
	NewUsersThisMonth   int64           `json:"new_users_this_month"`
	TotalProducts       int64           `json:"total_products"`
	TotalProjects       int64           `json:"total_projects"`
	TotalCategories     int64           `json:"total_categories"`
	TotalOrders         int64           `json:"total_orders"`
	OrdersThisMonth     int64           `json:"orders_this_month"`
	PendingPayments     int64           `json:"pending_payments"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue      decimal.Decimal `json:"monthly_revenue"`
	RevenueGrowth       float64         `json:"revenue_growth"`
	UnreadMessages      int64           `json:"unread_messages"`
	UnreadNotifications int64           `json:"unread_notifications"`
	LowStockProducts    int64           `json:"low_stock_products"`
}

// AuditEntry is one admin mutation to persist.
type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Values       map[string]interface{}
	IPAddress    string
	UserAgent    string
	StatusCode   int
}

const lowStockThreshold = 5

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&models.User{})},
		{&stats.NewUsersThisMonth, db.Model(&models.User{}).Where("created_at >= ?", monthStart)},
		{&stats.TotalProducts, db.Model(&models.Product{}).Where("is_project = ?", false)},
		{&stats.TotalProjects, db.Model(&models.Product{}).Where("is_project = ?", true)},
		{&stats.TotalCategories, db.Model(&models.Category{})},
		{&stats.TotalOrders, db.Model(&models.Order{})},
		{&stats.OrdersThisMonth, db.Model(&models.Order{}).Where("created_at >= ?", monthStart)},
		{&stats.PendingPayments, db.Model(&models.Order{}).Where("payment_status IN ?",
			[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusSubmitted})},
		{&stats.UnreadMessages, db.Model(&models.ContactMessage{}).Where("is_read = ?", false)},
		{&stats.UnreadNotifications, db.Model(&models.AdminNotification{}).Where("status = ?", models.NotificationUnread)},
		{&stats.LowStockProducts, db.Model(&models.Product{}).Where("is_active = ? AND stock < ?", true, lowStockThreshold)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
		}
	}

	var err error
	if stats.TotalRevenue, err = s.revenue(db, time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	if stats.MonthlyRevenue, err = s.revenue(db, monthStart, time.Time{}); err != nil {
		return nil, err
	}
	lastMonth, err := s.revenue(db, lastMonthStart, monthStart)
	if err != nil {
		return nil, err
	}

	if lastMonth.IsPositive() {
		growth := stats.MonthlyRevenue.Sub(lastMonth).Div(lastMonth).Mul(decimal.NewFromInt(100))
		stats.RevenueGrowth = growth.Round(2).InexactFloat64()
	}

	return stats, nil
}

// revenue sums order totals created in [from, to); zero bounds are open.
func (s *AdminService) revenue(db *gorm.DB, from, to time.Time) (decimal.Decimal, error) {
	query := db.Model(&models.Order{}).Where("payment_status <> ?", models.PaymentStatusFailed)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", to)
	}

	var totals []decimal.Decimal
	if err := query.Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

// Contact messages

func (s *AdminService) ListContactMessages(ctx context.Context, params utils.PaginationParams, unreadOnly bool) ([]models.ContactMessage, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ContactMessage{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if params.Search != "" {
		like := "%" + escapeLike(params.Search) + "%"
		query = query.Where(`(name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' OR subject LIKE ? ESCAPE '\')`, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contact messages: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "name", "email"})
	query = utils.ApplyPagination(query, params)

	var messages []models.ContactMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch contact messages: %w", err)
	}
	return messages, total, nil
}

func (s *AdminService) MarkContactMessageRead(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.ContactMessage{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to update contact message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("contact_message")
	}
	return nil
}

// Notifications

func (s *AdminService) ListNotifications(ctx context.Context, params utils.PaginationParams, status models.NotificationStatus) ([]models.AdminNotification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AdminNotification{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "priority"})
	query = utils.ApplyPagination(query, params)

	var notifications []models.AdminNotification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *AdminService) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.AdminNotification{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.NotificationRead, "read_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to update notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("notification")
	}
	return nil
}

// Audit log

func (s *AdminService) RecordAudit(ctx context.Context, entry AuditEntry) error {
	auditLog := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		NewValues:    models.JSONB(entry.Values),
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		StatusCode:   entry.StatusCode,
	}
	return s.db.WithContext(ctx).Create(auditLog).Error
}

func (s *AdminService) ListAuditLogs(ctx context.Context, params utils.PaginationParams) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	query = utils.ApplyPagination(utils.ApplySort(query, params, []string{"created_at", "action"}), params)
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
