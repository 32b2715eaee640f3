// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/middleware"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.cartService.GetCart(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		respondError(c, err, "cart_item")
		return
	}
	utils.SuccessResponse(c, cart)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cartService.AddItem(c.Request.Context(), middleware.GetOwner(c), &req)
	if err != nil {
		resource := "product"
		if req.VariantID != nil {
			resource = "variant"
		}
		respondError(c, err, resource)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":             i18n.T(lang, i18n.KeyCartItemAdded),
		"item":                result.Item,
		"created":             result.Created,
		"final_price":         result.FinalPrice,
		"discount_percentage": result.DiscountPercentage,
	})
}

// PUT /cart/items
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.UpdateCartRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cartService.UpdateQuantity(c.Request.Context(), middleware.GetOwner(c), req.ItemID, req.Change)
	if err != nil {
		respondError(c, err, "cart_item")
		return
	}

	message := i18n.T(lang, i18n.KeyCartUpdated)
	if result.Removed {
		message = i18n.T(lang, i18n.KeyCartItemRemoved)
	}
	utils.SuccessResponse(c, gin.H{
		"message":          message,
		"removed":          result.Removed,
		"item":             result.Item,
		"final_price":      result.FinalPrice,
		"total_item_price": result.TotalItemPrice,
	})
}

// DELETE /cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), middleware.GetOwner(c), itemID); err != nil {
		respondError(c, err, "cart_item")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCartItemRemoved),
	})
}

// GET /cart/count
func (h *CartHandler) Count(c *gin.Context) {
	count, err := h.cartService.Count(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		respondError(c, err, "cart_item")
		return
	}
	utils.SuccessResponse(c, gin.H{"cart_count": count})
}
