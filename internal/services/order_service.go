// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

var (
	ErrCartEmpty           = fmt.Errorf("%w: your cart is empty", ErrValidation)
	ErrPaymentSlipRequired = fmt.Errorf("%w: payment slip required", ErrValidation)
)

type OrderService struct {
	db        *gorm.DB
	storage   *StorageService
	publisher events.Publisher
}

type PlaceOrderRequest struct {
	Email         string `json:"email" form:"email" validate:"required,email"`
	PaymentMethod string `json:"payment_method" form:"payment_method" validate:"required,payment_method"`
	Country       string `json:"country" form:"country" validate:"required,max=100"`
	FirstName     string `json:"first_name" form:"first_name" validate:"max=100"`
	LastName      string `json:"last_name" form:"last_name" validate:"required,max=100"`
	Address       string `json:"address" form:"address" validate:"required"`
	Apartment     string `json:"apartment" form:"apartment" validate:"max=100"`
	City          string `json:"city" form:"city" validate:"required,max=100"`
	State         string `json:"state" form:"state" validate:"required,max=100"`
	ZipCode       string `json:"zip_code" form:"zip_code" validate:"required,max=20"`
	Phone         string `json:"phone" form:"phone" validate:"required,max=20"`
	SaveInfo      bool   `json:"save_info" form:"save_info"`
	TextOffers    bool   `json:"text_offers" form:"text_offers"`
}

func NewOrderService(db *gorm.DB, storage *StorageService, publisher events.Publisher) *OrderService {
	return &OrderService{
		db:        db,
		storage:   storage,
		publisher: publisher,
	}
}

// PlaceOrder turns the owner's cart into an order. The slip (required for
// online payment) is stored before the transaction; the order, its items
// and the cart cleanup commit together. Notifications are published after
// the commit and never fail the call.
func (s *OrderService) PlaceOrder(ctx context.Context, owner models.Owner, req *PlaceOrderRequest, slip *multipart.FileHeader) (*models.Order, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("%w: order owner is required", ErrUnauthorized)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if method == models.PaymentMethodOnline && slip == nil {
		return nil, ErrPaymentSlipRequired
	}

	db := s.db.WithContext(ctx)

	// Reject an empty cart before anything is written.
	if n, err := s.countLines(db, owner); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrCartEmpty
	}

	var slipKey string
	if slip != nil && method == models.PaymentMethodOnline {
		uploaded, err := s.storage.UploadFile(ctx, slip, s.storage.GetDefaultUploadOptions("payment_slips"))
		if err != nil {
			return nil, err
		}
		slipKey = uploaded.Key
	}

	order := &models.Order{
		Email:         req.Email,
		PaymentMethod: method,
		PaymentSlip:   slipKey,
		PaymentStatus: initialPaymentStatus(method),
		Country:       req.Country,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Address:       req.Address,
		Apartment:     req.Apartment,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		Phone:         req.Phone,
		SaveInfo:      req.SaveInfo,
		TextOffers:    req.TextOffers,
	}
	order.SetOwner(owner)

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		cart, err := findCart(tx, owner)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartEmpty
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cart.ID).Order("created_at").Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load cart items: %w", err)
		}
		if len(items) == 0 {
			return ErrCartEmpty
		}

		total := decimal.Zero
		for i := range items {
			total = total.Add(items[i].LineTotal())
		}
		order.Total = total

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			productID := item.ProductID
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: &productID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
			if item.Product != nil {
				oi.ProductName = item.Product.Name
			}
			orderItems = append(orderItems, oi)
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		order.Items = orderItems

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		if owner.IsAnonymous() {
			if err := tx.Delete(&models.Cart{}, "id = ?", cart.ID).Error; err != nil {
				return fmt.Errorf("failed to delete cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if slipKey != "" {
			logStorageError(s.storage.Delete(context.Background(), slipKey), slipKey)
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"owner":    ownerTag(owner),
		"total":    order.Total.StringFixed(2),
		"items":    len(order.Items),
	}).Info("Order placed")

	s.publishOrderPlaced(ctx, order.ID)
	return order, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, orderID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.TypeOrderPlaced, events.OrderPlaced{OrderID: orderID})
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("Failed to publish order notification")
	}
}

func initialPaymentStatus(method models.PaymentMethod) models.PaymentStatus {
	switch method {
	case models.PaymentMethodOnline:
		return models.PaymentStatusSubmitted
	case models.PaymentMethodCard:
		return models.PaymentStatusPending
	default:
		return models.PaymentStatusUnpaid
	}
}

func (s *OrderService) countLines(db *gorm.DB, owner models.Owner) (int64, error) {
	var count int64
	err := db.Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Scopes(ownerScopeOn("carts", owner)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}

// LatestOrder is the most recent order of the owner.
func (s *OrderService) LatestOrder(ctx context.Context, owner models.Owner) (*models.Order, error) {
	if !owner.Valid() {
		return nil, notFound("order")
	}
	var order models.Order
	err := s.db.WithContext(ctx).Scopes(owner.Scope()).
		Preload("Items").Preload("Items.Product").Preload("Items.Variant").
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

// History lists a user's orders, newest first.
func (s *OrderService) History(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Preload("Items").Preload("Items.Product").Preload("Items.Variant").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

// GetOwnedOrder loads an order only if it belongs to owner.
func (s *OrderService) GetOwnedOrder(ctx context.Context, owner models.Owner, orderID uuid.UUID) (*models.Order, error) {
	if !owner.Valid() {
		return nil, notFound("order")
	}
	var order models.Order
	err := s.db.WithContext(ctx).Scopes(owner.Scope()).Preload("Items").
		Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

// GetOrder loads an order with everything the notifications need.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").Preload("Items.Product").Preload("Items.Variant").
		Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

// ListOrders is the admin view over all orders.
func (s *OrderService) ListOrders(ctx context.Context, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if params.Search != "" {
		like := "%" + escapeLike(params.Search) + "%"
		query = query.Where(`(email LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\')`, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total"})
	if err := utils.ApplyPagination(query, params).Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, total, nil
}

// UpdatePaymentStatus is used by the admin and by card payment confirmation.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("payment_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("order")
	}
	return nil
}

// IsCartEmpty reports whether err is the empty-cart validation failure.
func IsCartEmpty(err error) bool {
	return errors.Is(err, ErrCartEmpty)
}
