// internal/handlers/admin_catalog.go
package handlers

import (
	"context"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

// CatalogAdminHandler manages categories, products and their children.
// Images are uploaded through separate multipart endpoints.
type CatalogAdminHandler struct {
	productService *services.ProductService
}

func NewCatalogAdminHandler(productService *services.ProductService) *CatalogAdminHandler {
	return &CatalogAdminHandler{productService: productService}
}

func imageUpload(c *gin.Context) (*multipart.FileHeader, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.ValidationErrorResponse(c, []utils.ValidationError{
			{Field: "image", Tag: "required", Message: "image is required"},
		})
		return nil, false
	}
	return file, true
}

// GET /admin/categories
func (h *CatalogAdminHandler) ListCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err, "category")
		return
	}
	utils.SuccessResponse(c, gin.H{"categories": categories})
}

// POST /admin/categories
func (h *CatalogAdminHandler) CreateCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.productService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "category")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCategoryCreated),
		"category": category,
	})
}

// PUT /admin/categories/:id
func (h *CatalogAdminHandler) UpdateCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.productService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "category")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCategoryUpdated),
		"category": category,
	})
}

// DELETE /admin/categories/:id
func (h *CatalogAdminHandler) DeleteCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err, "category")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCategoryDeleted),
	})
}

// GET /admin/products
func (h *CatalogAdminHandler) ListProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	products, total, err := h.productService.ListProducts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// GET /admin/products/:id
func (h *CatalogAdminHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, product)
}

// POST /admin/products
func (h *CatalogAdminHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "category")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /admin/products/:id
func (h *CatalogAdminHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// PUT /admin/products/:id/image (multipart/form-data)
func (h *CatalogAdminHandler) SetProductImage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, ok := imageUpload(c)
	if !ok {
		return
	}

	product, err := h.productService.SetProductImage(c.Request.Context(), id, file)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /admin/products/:id
func (h *CatalogAdminHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}

// POST /admin/products/:id/variants
func (h *CatalogAdminHandler) CreateVariant(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.VariantRequest
	if !bindJSON(c, &req) {
		return
	}

	variant, err := h.productService.CreateVariant(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.CreatedResponse(c, variant)
}

// PUT /admin/variants/:id
func (h *CatalogAdminHandler) UpdateVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.VariantRequest
	if !bindJSON(c, &req) {
		return
	}

	variant, err := h.productService.UpdateVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "variant")
		return
	}
	utils.SuccessResponse(c, variant)
}

// PUT /admin/variants/:id/image (multipart/form-data)
func (h *CatalogAdminHandler) SetVariantImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, ok := imageUpload(c)
	if !ok {
		return
	}

	variant, err := h.productService.SetVariantImage(c.Request.Context(), id, file)
	if err != nil {
		respondError(c, err, "variant")
		return
	}
	utils.SuccessResponse(c, variant)
}

// DELETE /admin/variants/:id
func (h *CatalogAdminHandler) DeleteVariant(c *gin.Context) {
	h.deleteChild(c, "variant", h.productService.DeleteVariant)
}

// POST /admin/products/:id/images (multipart/form-data)
func (h *CatalogAdminHandler) AddGalleryImage(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, ok := imageUpload(c)
	if !ok {
		return
	}

	image, err := h.productService.AddGalleryImage(c.Request.Context(), productID, file, c.PostForm("alt_text"))
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.CreatedResponse(c, image)
}

// DELETE /admin/images/:id
func (h *CatalogAdminHandler) DeleteGalleryImage(c *gin.Context) {
	h.deleteChild(c, "image", h.productService.DeleteGalleryImage)
}

// POST /admin/products/:id/specifications
func (h *CatalogAdminHandler) AddSpecification(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.SpecificationRequest
	if !bindJSON(c, &req) {
		return
	}

	spec, err := h.productService.AddSpecification(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.CreatedResponse(c, spec)
}

// DELETE /admin/specifications/:id
func (h *CatalogAdminHandler) DeleteSpecification(c *gin.Context) {
	h.deleteChild(c, "specification", h.productService.DeleteSpecification)
}

// POST /admin/products/:id/features
func (h *CatalogAdminHandler) AddFeature(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.FeatureRequest
	if !bindJSON(c, &req) {
		return
	}

	feature, err := h.productService.AddFeature(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.CreatedResponse(c, feature)
}

// DELETE /admin/features/:id
func (h *CatalogAdminHandler) DeleteFeature(c *gin.Context) {
	h.deleteChild(c, "feature", h.productService.DeleteFeature)
}

func (h *CatalogAdminHandler) deleteChild(c *gin.Context, resource string, del func(ctx context.Context, id uuid.UUID) error) {
	lang := utils.GetLangFromContext(c)

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := del(c.Request.Context(), id); err != nil {
		respondError(c, err, resource)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyItemDeleted),
	})
}
