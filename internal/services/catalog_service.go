// internal/services/catalog_service.go
package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

// CatalogService serves the storefront: listings, search, product pages,
// likes and reviews.
type CatalogService struct {
	db *gorm.DB
}

type CategoryGroup struct {
	Category models.Category  `json:"category"`
	Products []models.Product `json:"products"`
}

type ProductDetail struct {
	Product    *models.Product `json:"product"`
	AltText    string          `json:"alt_text"`
	FinalPrice string          `json:"final_price"`
	AvgRating  float64         `json:"avg_rating"`
	FullStars  int             `json:"full_stars"`
	HalfStar   bool            `json:"half_star"`
	EmptyStars int             `json:"empty_stars"`
	LikeCount  int64           `json:"like_count"`
	IsLiked    bool            `json:"is_liked"`
}

type ReviewRequest struct {
	ReviewerName string `json:"reviewer_name" form:"reviewer_name" validate:"required,max=100"`
	Rating       int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Review       string `json:"review" form:"review" validate:"required"`
}

type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListGrouped returns active categories with their active products, or
// projects when projects is set. Categories with nothing to show are left
// out.
func (s *CatalogService) ListGrouped(ctx context.Context, projects bool) ([]CategoryGroup, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_project = ? AND is_active = ?", projects, true).Order("name")
		}).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	groups := make([]CategoryGroup, 0, len(categories))
	for _, category := range categories {
		if len(category.Products) == 0 {
			continue
		}
		products := category.Products
		category.Products = nil
		groups = append(groups, CategoryGroup{Category: category, Products: products})
	}
	return groups, nil
}

// Search matches active products containing every whitespace-separated
// term of query in the name or either description.
func (s *CatalogService) Search(ctx context.Context, query string, params utils.PaginationParams) (utils.PaginationResult, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return utils.CreatePaginationResult([]models.Product{}, 0, params), nil
	}

	base := s.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	for _, term := range terms {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		base = base.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(short_description) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
			like, like, like,
		)
	}
	return s.page(base, params)
}

// CategoryPage lists the active products and projects of one category.
func (s *CatalogService) CategoryPage(ctx context.Context, slug string, params utils.PaginationParams) (*models.Category, utils.PaginationResult, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, utils.PaginationResult{}, notFoundOr(err, "category")
	}

	base := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ? AND is_active = ?", category.ID, true)
	result, err := s.page(base, params)
	return &category, result, err
}

// page counts, clamps the page to the last one and loads it.
func (s *CatalogService) page(query *gorm.DB, params utils.PaginationParams) (utils.PaginationResult, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return utils.PaginationResult{}, fmt.Errorf("failed to count products: %w", err)
	}
	params.Clamp(total)

	var products []models.Product
	err := utils.ApplyPagination(query.Session(&gorm.Session{}), params).
		Preload("Category").
		Order("name").
		Find(&products).Error
	if err != nil {
		return utils.PaginationResult{}, fmt.Errorf("failed to load products: %w", err)
	}
	return utils.CreatePaginationResult(products, total, params), nil
}

// ProductDetail loads a product page. viewer is nil for anonymous visitors.
func (s *CatalogService) ProductDetail(ctx context.Context, slug string, viewer *uuid.UUID) (*ProductDetail, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	err := db.Where("slug = ? AND is_active = ?", slug, true).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Where("is_active = ?", true).Order("title") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Features", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Preload("Specifications", func(db *gorm.DB) *gorm.DB { return db.Order("key") }).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&product).Error
	if err != nil {
		return nil, notFoundOr(err, "product")
	}

	detail := &ProductDetail{
		Product:    &product,
		AltText:    product.GetAltText(),
		FinalPrice: product.FinalPrice().StringFixed(2),
	}
	detail.AvgRating, detail.FullStars, detail.HalfStar, detail.EmptyStars = ratingSummary(product.Reviews)

	if err := db.Table("product_likes").Where("product_id = ?", product.ID).Count(&detail.LikeCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	if viewer != nil {
		var n int64
		if err := db.Table("product_likes").Where("product_id = ? AND user_id = ?", product.ID, *viewer).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to load like: %w", err)
		}
		detail.IsLiked = n > 0
	}
	return detail, nil
}

// ratingSummary is the average rounded to one decimal and its star split.
func ratingSummary(reviews []models.ProductReview) (avg float64, full int, half bool, empty int) {
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		avg = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}
	full = int(avg)
	half = avg-float64(full) >= 0.5
	empty = 5 - full
	if half {
		empty--
	}
	return avg, full, half, empty
}

// ToggleLike adds the user to the product's likes or removes them.
func (s *CatalogService) ToggleLike(ctx context.Context, productID, userID uuid.UUID) (*LikeResult, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, notFoundOr(err, "product")
	}
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}

	likes := db.Model(&product).Association("LikedBy")

	var existing int64
	if err := db.Table("product_likes").Where("product_id = ? AND user_id = ?", productID, userID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load like: %w", err)
	}

	result := &LikeResult{Liked: existing == 0}
	var err error
	if result.Liked {
		err = likes.Append(&user)
	} else {
		err = likes.Delete(&user)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update like: %w", err)
	}

	result.Count = db.Model(&product).Association("LikedBy").Count()
	return result, nil
}

// SubmitReview stores a review for an existing product.
func (s *CatalogService) SubmitReview(ctx context.Context, productID uuid.UUID, req *ReviewRequest) (*models.ProductReview, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	review := &models.ProductReview{
		ProductID:    productID,
		ReviewerName: strings.TrimSpace(req.ReviewerName),
		Rating:       req.Rating,
		Review:       strings.TrimSpace(req.Review),
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// TrackEngagement records a share or WhatsApp order click for a product.
func (s *CatalogService) TrackEngagement(ctx context.Context, productID uuid.UUID, channel string) error {
	var product models.Product
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id = ?", productID).First(&product).Error; err != nil {
		return notFoundOr(err, "product")
	}
	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"product":    product.Name,
		"channel":    channel,
	}).Info("Product engagement tracked")
	return nil
}

func (s *CatalogService) requireProduct(ctx context.Context, productID uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if count == 0 {
		return notFound("product")
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
