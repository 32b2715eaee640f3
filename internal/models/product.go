// internal/models/product.go
package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const altTextSuffix = "Professional Engineering Grade Hardware"

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;size:120;not null"`
	Description string `json:"description" gorm:"type:text"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	return nil
}

type Product struct {
	BaseModel
	Name               string          `json:"name" gorm:"size:100;not null"`
	CategoryID         uuid.UUID       `json:"category_id" gorm:"type:uuid;not null;index"`
	Slug               string          `json:"slug" gorm:"uniqueIndex;size:120;not null"`
	SKU                string          `json:"sku" gorm:"uniqueIndex;size:100;not null"`
	ShortDescription   string          `json:"short_description" gorm:"size:255"`
	Description        string          `json:"description" gorm:"type:text"`
	MainImage          string          `json:"main_image" gorm:"size:500"`
	AltText            string          `json:"alt_text,omitempty" gorm:"size:255"`
	YoutubeVideoURL    string          `json:"youtube_video_url,omitempty" gorm:"size:500"`
	Price              decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	DiscountPercentage int             `json:"discount_percentage" gorm:"not null;default:0"`
	Stock              int             `json:"stock" gorm:"not null;default:0"`
	Availability       bool            `json:"availability" gorm:"default:true"`
	IsActive           bool            `json:"is_active" gorm:"default:true;index"`
	IsProject          bool            `json:"is_project" gorm:"default:false;index"`
	MetaDescription    string          `json:"meta_description,omitempty" gorm:"size:160"`
	MetaKeywords       string          `json:"meta_keywords,omitempty" gorm:"size:255"`

	// Relationships
	Category       *Category              `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Variants       []ProductVariant       `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images         []ProductImage         `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Features       []ProductFeature       `json:"features,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Specifications []ProductSpecification `json:"specifications,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Reviews        []ProductReview        `json:"reviews,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	LikedBy        []User                 `json:"-" gorm:"many2many:product_likes;"`
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		return fmt.Errorf("discount percentage %d out of range", p.DiscountPercentage)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock cannot be negative")
	}
	return nil
}

// FinalPrice is the price after the stored percentage discount.
func (p *Product) FinalPrice() decimal.Decimal {
	if p.DiscountPercentage <= 0 {
		return p.Price
	}
	discount := p.Price.Mul(decimal.NewFromInt(int64(p.DiscountPercentage))).Div(decimal.NewFromInt(100))
	return p.Price.Sub(discount).Round(2)
}

func (p *Product) GetAltText() string {
	if p.AltText != "" {
		return p.AltText
	}
	return fmt.Sprintf("%s - %s", p.Name, altTextSuffix)
}

type ProductVariant struct {
	BaseModel
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_variant_title"`
	Title     string          `json:"title" gorm:"size:100;not null;uniqueIndex:idx_product_variant_title"`
	Image     string          `json:"image" gorm:"size:500"`
	AltText   string          `json:"alt_text,omitempty" gorm:"size:255"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	IsActive  bool            `json:"is_active" gorm:"default:true"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// GetAltText needs the parent product name; productName is used when the
// relation was not preloaded.
func (v *ProductVariant) GetAltText(productName string) string {
	if v.AltText != "" {
		return v.AltText
	}
	if v.Product != nil {
		productName = v.Product.Name
	}
	return fmt.Sprintf("%s - %s - %s", productName, v.Title, altTextSuffix)
}

type ProductImage struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Image     string    `json:"image" gorm:"size:500;not null"`
	AltText   string    `json:"alt_text,omitempty" gorm:"size:255"`
}

func (i *ProductImage) GetAltText(productName string) string {
	if i.AltText != "" {
		return i.AltText
	}
	return fmt.Sprintf("%s - %s", productName, altTextSuffix)
}

type ProductFeature struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"size:100;not null"`
	Feature   string    `json:"feature" gorm:"type:text;not null"`
}

type ProductSpecification struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_spec_key"`
	Key       string    `json:"key" gorm:"size:100;not null;uniqueIndex:idx_product_spec_key"`
	Value     string    `json:"value" gorm:"size:255;not null"`
}

type ProductReview struct {
	BaseModel
	ProductID    uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	ReviewerName string    `json:"reviewer_name" gorm:"size:100;not null"`
	Rating       int       `json:"rating" gorm:"not null;check:chk_review_rating,rating BETWEEN 1 AND 5"`
	Review       string    `json:"review" gorm:"type:text;not null"`
}
