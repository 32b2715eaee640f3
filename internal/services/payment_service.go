// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/models"
)

// IntentGateway creates and reads Stripe PaymentIntents.
type IntentGateway interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeGateway struct{}

func (stripeGateway) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (stripeGateway) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, params)
}

// PaymentService handles card payments for orders placed with
// payment_method=card.
type PaymentService struct {
	db      *gorm.DB
	config  *config.Config
	gateway IntentGateway
}

type PaymentIntentResponse struct {
	OrderID        uuid.UUID `json:"order_id"`
	ClientSecret   string    `json:"client_secret"`
	PaymentID      string    `json:"payment_id"`
	Status         string    `json:"status"`
	PublishableKey string    `json:"publishable_key,omitempty"`
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:      db,
		config:  config,
		gateway: stripeGateway{},
	}
}

// WithGateway replaces the Stripe client.
func (s *PaymentService) WithGateway(gateway IntentGateway) *PaymentService {
	s.gateway = gateway
	return s
}

func (s *PaymentService) Enabled() bool {
	return s.config.Payment.StripeSecretKey != ""
}

// CreatePaymentIntent starts (or resumes) the card payment of an order
// owned by owner.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, owner models.Owner, orderID uuid.UUID) (*PaymentIntentResponse, error) {
	order, err := s.cardOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentIntentID != "" {
		pi, err := s.gateway.Get(order.PaymentIntentID, nil)
		if err == nil && pi.Status != stripe.PaymentIntentStatusCanceled {
			return s.response(order.ID, pi), nil
		}
	}

	// Convert amount to the smallest currency unit for Stripe
	amount := order.Total.Shift(2).Round(0).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(strings.ToLower(s.config.Payment.Currency)),
		Description: stripe.String(fmt.Sprintf("ProjectStore order #%s", shortID(order.ID))),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("owner", ownerTag(owner))
	if order.Email != "" {
		params.ReceiptEmail = stripe.String(order.Email)
	}

	pi, err := s.gateway.New(params)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to create payment intent")
		return nil, fmt.Errorf("%w: payment provider error", ErrUnavailable)
	}

	err = s.db.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"payment_intent_id": pi.ID,
		"payment_status":    models.PaymentStatusPending,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	return s.response(order.ID, pi), nil
}

// ConfirmPayment reads the intent back from Stripe and records the
// outcome on the order.
func (s *PaymentService) ConfirmPayment(ctx context.Context, owner models.Owner, orderID uuid.UUID) (models.PaymentStatus, error) {
	order, err := s.cardOrder(ctx, owner, orderID)
	if err != nil {
		return "", err
	}
	if order.PaymentIntentID == "" {
		return "", validationError("no payment has been started for this order")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.gateway.Get(order.PaymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("%w: payment provider error", ErrUnavailable)
	}

	// Update order based on payment status
	var status models.PaymentStatus
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = models.PaymentStatusPaid
	case stripe.PaymentIntentStatusCanceled:
		status = models.PaymentStatusFailed
	default:
		status = models.PaymentStatusPending
	}

	if err := s.db.WithContext(ctx).Model(order).Update("payment_status", status).Error; err != nil {
		return "", fmt.Errorf("failed to update order: %w", err)
	}

	logrus.WithFields(logrus.Fields{"order_id": order.ID, "payment_status": status}).Info("Card payment confirmed")
	return status, nil
}

func (s *PaymentService) cardOrder(ctx context.Context, owner models.Owner, orderID uuid.UUID) (*models.Order, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("%w: card payments are not configured", ErrUnavailable)
	}
	if !owner.Valid() {
		return nil, notFound("order")
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Scopes(owner.Scope()).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, notFoundOr(err, "order")
	}
	if order.PaymentMethod != models.PaymentMethodCard {
		return nil, validationError("order is not a card payment order")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order is already paid", ErrConflict)
	}
	return &order, nil
}

func (s *PaymentService) response(orderID uuid.UUID, pi *stripe.PaymentIntent) *PaymentIntentResponse {
	return &PaymentIntentResponse{
		OrderID:        orderID,
		ClientSecret:   pi.ClientSecret,
		PaymentID:      pi.ID,
		Status:         string(pi.Status),
		PublishableKey: s.config.Payment.StripePublishableKey,
	}
}
