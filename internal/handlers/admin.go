// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	orderService *services.OrderService
	userService  *services.UserService
}

func NewAdminHandler(adminService *services.AdminService, orderService *services.OrderService, userService *services.UserService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		orderService: orderService,
		userService:  userService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.UserStatus `json:"status" validate:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.UpdateUserStatus(c.Request.Context(), userID, req.Status); err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserStatusUpdated),
	})
}

// GET /admin/orders
func (h *AdminHandler) GetOrders(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /admin/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.SuccessResponse(c, order)
}

// PUT /admin/orders/:id/payment-status
func (h *AdminHandler) UpdatePaymentStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.PaymentStatus `json:"payment_status" validate:"required,oneof=unpaid pending slip_submitted paid failed"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.orderService.UpdatePaymentStatus(c.Request.Context(), orderID, req.Status); err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderStatusUpdated),
	})
}

// GET /admin/messages?unread=true
func (h *AdminHandler) GetContactMessages(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	messages, total, err := h.adminService.ListContactMessages(c.Request.Context(), params, c.Query("unread") == "true")
	if err != nil {
		respondError(c, err, "contact_message")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(messages, total, params))
}

// PUT /admin/messages/:id/read
func (h *AdminHandler) MarkContactMessageRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.MarkContactMessageRead(c.Request.Context(), id); err != nil {
		respondError(c, err, "contact_message")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminMarkedRead),
	})
}

// GET /admin/notifications?status=unread
func (h *AdminHandler) GetNotifications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	notifications, total, err := h.adminService.ListNotifications(c.Request.Context(), params, models.NotificationStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(notifications, total, params))
}

// PUT /admin/notifications/:id/read
func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.MarkNotificationRead(c.Request.Context(), id); err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminMarkedRead),
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	logs, total, err := h.adminService.ListAuditLogs(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
