// internal/handlers/order.go
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/middleware"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

const orderConfirmationPath = "/order-confirmation/"

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders (multipart/form-data)
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.PlaceOrderRequest
	if !bindForm(c, &req) {
		return
	}

	var slip *multipart.FileHeader
	if file, err := c.FormFile("payment_slip"); err == nil {
		slip = file
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "payment_slip"), nil)
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), middleware.GetOwner(c), &req, slip)
	if err != nil {
		respondErrorWith(c, err, "product", i18n.KeyOrderFailed)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyOrderPlaced),
		"order_id":     order.ID,
		"total":        order.Total,
		"redirect_url": orderConfirmationPath,
	})
}

// GET /orders/confirmation
func (h *OrderHandler) Confirmation(c *gin.Context) {
	order, err := h.orderService.LatestOrder(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.SuccessResponse(c, order)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOwnedOrder(c.Request.Context(), middleware.GetOwner(c), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.SuccessResponse(c, order)
}

// GET /orders/history
func (h *OrderHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orders, err := h.orderService.History(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.SuccessResponse(c, gin.H{"orders": orders})
}
