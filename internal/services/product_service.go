// internal/services/product_service.go
package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

// ImageHook runs on every stored product-family image and returns the key
// the row should reference. Implementations must not fail the write.
type ImageHook interface {
	ProcessImage(ctx context.Context, key string) string
}

// ProductService is the admin side of the catalog.
type ProductService struct {
	db      *gorm.DB
	storage *StorageService
	images  ImageHook
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug,omitempty" validate:"max=120"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type ProductRequest struct {
	Name               string          `json:"name" validate:"required,max=100"`
	CategoryID         uuid.UUID       `json:"category_id" validate:"required"`
	Slug               string          `json:"slug,omitempty" validate:"max=120"`
	SKU                string          `json:"sku" validate:"required,max=100"`
	ShortDescription   string          `json:"short_description,omitempty" validate:"max=255"`
	Description        string          `json:"description,omitempty"`
	AltText            string          `json:"alt_text,omitempty" validate:"max=255"`
	YoutubeVideoURL    string          `json:"youtube_video_url,omitempty" validate:"omitempty,url"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage int             `json:"discount_percentage" validate:"min=0,max=100"`
	Stock              int             `json:"stock" validate:"min=0"`
	Availability       *bool           `json:"availability,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"`
	IsProject          bool            `json:"is_project"`
	MetaDescription    string          `json:"meta_description,omitempty" validate:"max=160"`
	MetaKeywords       string          `json:"meta_keywords,omitempty" validate:"max=255"`
}

type VariantRequest struct {
	Title    string          `json:"title" validate:"required,max=100"`
	Price    decimal.Decimal `json:"price"`
	AltText  string          `json:"alt_text,omitempty" validate:"max=255"`
	IsActive *bool           `json:"is_active,omitempty"`
}

type SpecificationRequest struct {
	Key   string `json:"key" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=255"`
}

type FeatureRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Feature string `json:"feature" validate:"required"`
}

// ImageRef points at one stored product-family image.
type ImageRef struct {
	Role    models.ImageRole
	ID      uuid.UUID
	Product string
	Key     string
}

func NewProductService(db *gorm.DB, storage *StorageService, images ImageHook) *ProductService {
	return &ProductService{
		db:      db,
		storage: storage,
		images:  images,
	}
}

// Categories

func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categories, nil
}

func (s *ProductService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	category := &models.Category{IsActive: true}
	applyCategory(category, req)

	// Select all columns so an explicit false is not replaced by the column default.
	if err := s.db.WithContext(ctx).Select("*").Create(category).Error; err != nil {
		return nil, duplicateOr(err, "category name or slug already exists", "failed to create category")
	}
	return category, nil
}

func (s *ProductService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, notFoundOr(err, "category")
	}
	applyCategory(&category, req)

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, duplicateOr(err, "category name or slug already exists", "failed to update category")
	}
	return &category, nil
}

// DeleteCategory removes the category with its products and their files.
func (s *ProductService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Variants").Preload("Images").
		Where("category_id = ?", id).Find(&products).Error; err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := clearLikes(tx, productIDs(products)...); err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("category")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range products {
		s.deleteFiles(ctx, productFiles(&products[i])...)
	}
	return nil
}

func applyCategory(category *models.Category, req *CategoryRequest) {
	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if req.Slug != "" {
		category.Slug = req.Slug
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
}

// Products

func (s *ProductService) ListProducts(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if params.Search != "" {
		like := "%" + escapeLike(strings.ToLower(params.Search)) + "%"
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "name", "price", "stock"})
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Preload("Category").Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("Variants").Preload("Images").
		Preload("Features").Preload("Specifications").
		Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	return &product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{Availability: true, IsActive: true}
	applyProduct(product, req)

	if err := s.db.WithContext(ctx).Select("*").Create(product).Error; err != nil {
		return nil, duplicateOr(err, "slug or SKU already exists", "failed to create product")
	}

	logrus.WithFields(logrus.Fields{"product_id": product.ID, "sku": product.SKU}).Info("Product created")
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, notFoundOr(err, "product")
	}
	if req.CategoryID != product.CategoryID {
		if err := s.requireCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
	}
	applyProduct(&product, req)

	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, duplicateOr(err, "slug or SKU already exists", "failed to update product")
	}
	return &product, nil
}

// SetProductImage stores a new main image and drops the previous file.
func (s *ProductService) SetProductImage(ctx context.Context, id uuid.UUID, upload *multipart.FileHeader) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, notFoundOr(err, "product")
	}

	key, err := s.storeImage(ctx, upload, models.ImageRoleMain)
	if err != nil {
		return nil, err
	}
	previous := product.MainImage
	if err := s.db.WithContext(ctx).Model(&product).UpdateColumn("main_image", key).Error; err != nil {
		s.deleteFiles(ctx, key)
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}
	product.MainImage = key
	if previous != key {
		s.deleteFiles(ctx, previous)
	}
	return &product, nil
}

// DeleteProduct removes the product, its children and their files. Order
// lines keep their copied name and price.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Variants").Preload("Images").
		Where("id = ?", id).First(&product).Error; err != nil {
		return notFoundOr(err, "product")
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := clearLikes(tx, product.ID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Product{}, "id = ?", product.ID).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.deleteFiles(ctx, productFiles(&product)...)
	logrus.WithField("product_id", product.ID).Info("Product deleted")
	return nil
}

func validateProduct(req *ProductRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if !req.Price.IsPositive() {
		return NewFieldError("price", "Price must be greater than zero")
	}
	return nil
}

func applyProduct(product *models.Product, req *ProductRequest) {
	product.Name = strings.TrimSpace(req.Name)
	product.CategoryID = req.CategoryID
	if req.Slug != "" {
		product.Slug = req.Slug
	}
	product.SKU = strings.TrimSpace(req.SKU)
	product.ShortDescription = req.ShortDescription
	product.Description = req.Description
	product.AltText = req.AltText
	product.YoutubeVideoURL = req.YoutubeVideoURL
	product.Price = req.Price.Round(2)
	product.DiscountPercentage = req.DiscountPercentage
	product.Stock = req.Stock
	if req.Availability != nil {
		product.Availability = *req.Availability
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.IsProject = req.IsProject
	product.MetaDescription = req.MetaDescription
	product.MetaKeywords = req.MetaKeywords
}

func (s *ProductService) requireCategory(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if count == 0 {
		return NewFieldError("category_id", "Category does not exist")
	}
	return nil
}

// Variants

func (s *ProductService) CreateVariant(ctx context.Context, productID uuid.UUID, req *VariantRequest) (*models.ProductVariant, error) {
	if err := validateVariant(req); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{ProductID: productID, IsActive: true}
	applyVariant(variant, req)
	if err := s.db.WithContext(ctx).Select("*").Create(variant).Error; err != nil {
		return nil, duplicateOr(err, "variant title already exists for this product", "failed to create variant")
	}
	return variant, nil
}

func (s *ProductService) UpdateVariant(ctx context.Context, id uuid.UUID, req *VariantRequest) (*models.ProductVariant, error) {
	if err := validateVariant(req); err != nil {
		return nil, err
	}
	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		return nil, notFoundOr(err, "variant")
	}
	applyVariant(&variant, req)
	if err := s.db.WithContext(ctx).Save(&variant).Error; err != nil {
		return nil, duplicateOr(err, "variant title already exists for this product", "failed to update variant")
	}
	return &variant, nil
}

func (s *ProductService) SetVariantImage(ctx context.Context, id uuid.UUID, upload *multipart.FileHeader) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		return nil, notFoundOr(err, "variant")
	}

	key, err := s.storeImage(ctx, upload, models.ImageRoleVariant)
	if err != nil {
		return nil, err
	}
	previous := variant.Image
	if err := s.db.WithContext(ctx).Model(&variant).UpdateColumn("image", key).Error; err != nil {
		s.deleteFiles(ctx, key)
		return nil, fmt.Errorf("failed to update variant image: %w", err)
	}
	variant.Image = key
	if previous != key {
		s.deleteFiles(ctx, previous)
	}
	return &variant, nil
}

func (s *ProductService) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		return notFoundOr(err, "variant")
	}
	if err := s.db.WithContext(ctx).Delete(&variant).Error; err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	s.deleteFiles(ctx, variant.Image)
	return nil
}

func validateVariant(req *VariantRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if !req.Price.IsPositive() {
		return NewFieldError("price", "Price must be greater than zero")
	}
	return nil
}

func applyVariant(variant *models.ProductVariant, req *VariantRequest) {
	variant.Title = strings.TrimSpace(req.Title)
	variant.Price = req.Price.Round(2)
	variant.AltText = req.AltText
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}
}

// Gallery

func (s *ProductService) AddGalleryImage(ctx context.Context, productID uuid.UUID, upload *multipart.FileHeader, altText string) (*models.ProductImage, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, NewFieldError("image", "This field is required")
	}

	key, err := s.storeImage(ctx, upload, models.ImageRoleGallery)
	if err != nil {
		return nil, err
	}
	image := &models.ProductImage{ProductID: productID, Image: key, AltText: altText}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		s.deleteFiles(ctx, key)
		return nil, fmt.Errorf("failed to create gallery image: %w", err)
	}
	return image, nil
}

func (s *ProductService) DeleteGalleryImage(ctx context.Context, id uuid.UUID) error {
	var image models.ProductImage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		return notFoundOr(err, "image")
	}
	if err := s.db.WithContext(ctx).Delete(&image).Error; err != nil {
		return fmt.Errorf("failed to delete gallery image: %w", err)
	}
	s.deleteFiles(ctx, image.Image)
	return nil
}

// Specifications and features

func (s *ProductService) AddSpecification(ctx context.Context, productID uuid.UUID, req *SpecificationRequest) (*models.ProductSpecification, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	spec := &models.ProductSpecification{ProductID: productID, Key: strings.TrimSpace(req.Key), Value: req.Value}
	if err := s.db.WithContext(ctx).Create(spec).Error; err != nil {
		return nil, duplicateOr(err, "specification key already exists for this product", "failed to create specification")
	}
	return spec, nil
}

func (s *ProductService) DeleteSpecification(ctx context.Context, id uuid.UUID) error {
	return deleteByID(s.db.WithContext(ctx), &models.ProductSpecification{}, id, "specification")
}

func (s *ProductService) AddFeature(ctx context.Context, productID uuid.UUID, req *FeatureRequest) (*models.ProductFeature, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	feature := &models.ProductFeature{ProductID: productID, Title: strings.TrimSpace(req.Title), Feature: req.Feature}
	if err := s.db.WithContext(ctx).Create(feature).Error; err != nil {
		return nil, fmt.Errorf("failed to create feature: %w", err)
	}
	return feature, nil
}

func (s *ProductService) DeleteFeature(ctx context.Context, id uuid.UUID) error {
	return deleteByID(s.db.WithContext(ctx), &models.ProductFeature{}, id, "feature")
}

// Image maintenance

// ImageRefs lists every stored product, variant and gallery image.
// nameFilter limits the result to products whose name contains it.
func (s *ProductService) ImageRefs(ctx context.Context, nameFilter string) ([]ImageRef, error) {
	query := s.db.WithContext(ctx).Preload("Variants").Preload("Images").Order("name")
	if nameFilter != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(nameFilter))+"%")
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	var refs []ImageRef
	for _, p := range products {
		if p.MainImage != "" {
			refs = append(refs, ImageRef{Role: models.ImageRoleMain, ID: p.ID, Product: p.Name, Key: p.MainImage})
		}
		for _, v := range p.Variants {
			if v.Image != "" {
				refs = append(refs, ImageRef{Role: models.ImageRoleVariant, ID: v.ID, Product: p.Name, Key: v.Image})
			}
		}
		for _, img := range p.Images {
			refs = append(refs, ImageRef{Role: models.ImageRoleGallery, ID: img.ID, Product: p.Name, Key: img.Image})
		}
	}
	return refs, nil
}

// SetImageKey points ref's row at key without running the image hook.
func (s *ProductService) SetImageKey(ctx context.Context, ref ImageRef, key string) error {
	var model interface{}
	column := "image"
	switch ref.Role {
	case models.ImageRoleMain:
		model, column = &models.Product{}, "main_image"
	case models.ImageRoleVariant:
		model = &models.ProductVariant{}
	case models.ImageRoleGallery:
		model = &models.ProductImage{}
	default:
		return fmt.Errorf("unknown image role %q", ref.Role)
	}
	return s.db.WithContext(ctx).Model(model).Where("id = ?", ref.ID).UpdateColumn(column, key).Error
}

// storeImage uploads into the role's folder and runs the image hook.
func (s *ProductService) storeImage(ctx context.Context, upload *multipart.FileHeader, role models.ImageRole) (string, error) {
	if upload == nil {
		return "", NewFieldError("image", "This field is required")
	}
	result, err := s.storage.UploadFile(ctx, upload, s.storage.GetDefaultUploadOptions(ImageFolder(role)))
	if err != nil {
		return "", err
	}
	if s.images == nil {
		return result.Key, nil
	}
	return s.images.ProcessImage(ctx, result.Key), nil
}

func (s *ProductService) deleteFiles(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key != "" {
			logStorageError(s.storage.Delete(ctx, key), key)
		}
	}
}

func (s *ProductService) requireProduct(ctx context.Context, productID uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if count == 0 {
		return notFound("product")
	}
	return nil
}

// ImageFolder is the storage folder of an image role.
func ImageFolder(role models.ImageRole) string {
	return "products/" + string(role)
}

func productFiles(p *models.Product) []string {
	keys := []string{p.MainImage}
	for _, v := range p.Variants {
		keys = append(keys, v.Image)
	}
	for _, img := range p.Images {
		keys = append(keys, img.Image)
	}
	return keys
}

func productIDs(products []models.Product) []uuid.UUID {
	ids := make([]uuid.UUID, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	return ids
}

// clearLikes drops like rows, which have no cascading foreign key.
func clearLikes(tx *gorm.DB, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM product_likes WHERE product_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to clear likes: %w", err)
	}
	return nil
}

func deleteByID(db *gorm.DB, model interface{}, id uuid.UUID, resource string) error {
	res := db.Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(resource)
	}
	return nil
}

func duplicateOr(err error, conflict, wrap string) error {
	if database.IsDuplicate(err) {
		return fmt.Errorf("%w: %s", ErrConflict, conflict)
	}
	return fmt.Errorf("%s: %w", wrap, err)
}
