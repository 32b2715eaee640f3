// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	catalogService *services.CatalogService
}

func NewProductHandler(catalogService *services.CatalogService) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	h.grouped(c, false)
}

// GET /projects
func (h *ProductHandler) GetProjects(c *gin.Context) {
	h.grouped(c, true)
}

func (h *ProductHandler) grouped(c *gin.Context, projects bool) {
	groups, err := h.catalogService.ListGrouped(c.Request.Context(), projects)
	if err != nil {
		respondError(c, err, "category")
		return
	}
	utils.SuccessResponse(c, gin.H{"categories": groups})
}

// GET /search?q=
func (h *ProductHandler) Search(c *gin.Context) {
	params := utils.GetCatalogPageParams(c)
	result, err := h.catalogService.Search(c.Request.Context(), c.Query("q"), params)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.PaginatedResponse(c, result)
}

// GET /categories/:slug
func (h *ProductHandler) GetCategory(c *gin.Context) {
	params := utils.GetCatalogPageParams(c)
	category, result, err := h.catalogService.CategoryPage(c.Request.Context(), c.Param("slug"), params)
	if err != nil {
		respondError(c, err, "category")
		return
	}

	utils.SetPaginationHeaders(c, result)
	utils.SuccessResponseWithMeta(c, gin.H{
		"category": category,
		"products": result.Data,
	}, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// GET /detail/:slug
func (h *ProductHandler) GetProduct(c *gin.Context) {
	var viewer *uuid.UUID
	if userIDStr, ok := utils.GetUserIDFromContext(c); ok {
		if id, err := uuid.Parse(userIDStr); err == nil {
			viewer = &id
		}
	}

	detail, err := h.catalogService.ProductDetail(c.Request.Context(), c.Param("slug"), viewer)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, detail)
}

// POST /products/:id/like
func (h *ProductHandler) ToggleLike(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	result, err := h.catalogService.ToggleLike(c.Request.Context(), productID, userID)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, result)
}

// POST /products/:id/reviews
func (h *ProductHandler) SubmitReview(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.catalogService.SubmitReview(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReviewSubmitted),
		"review":  review,
	})
}

// POST /products/:id/share
func (h *ProductHandler) Share(c *gin.Context) {
	h.track(c, "share", i18n.KeyProductShared)
}

// POST /products/:id/whatsapp
func (h *ProductHandler) WhatsAppOrder(c *gin.Context) {
	h.track(c, "whatsapp", i18n.KeyWhatsAppTracked)
}

func (h *ProductHandler) track(c *gin.Context, channel, messageKey string) {
	lang := utils.GetLangFromContext(c)

	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.TrackEngagement(c.Request.Context(), productID, channel); err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, messageKey),
	})
}
