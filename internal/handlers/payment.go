// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/middleware"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

type paymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// GET /payments/config
func (h *PaymentHandler) GetConfig(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"card_enabled": h.paymentService.Enabled(),
	})
}

// POST /payments/intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if !h.paymentService.Enabled() {
		utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyPaymentDisabled))
		return
	}

	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.paymentService.CreatePaymentIntent(c.Request.Context(), middleware.GetOwner(c), req.OrderID)
	if err != nil {
		respondErrorWith(c, err, "order", i18n.KeyPaymentFailed)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentIntentReady),
		"payment": response,
	})
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}

	status, err := h.paymentService.ConfirmPayment(c.Request.Context(), middleware.GetOwner(c), req.OrderID)
	if err != nil {
		respondErrorWith(c, err, "order", i18n.KeyPaymentFailed)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyPaymentConfirmed),
		"order_id":       req.OrderID,
		"payment_status": status,
	})
}
