// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is owned by exactly one of a user or an anonymous session key. The
// check constraint keeps the two columns mutually exclusive.
type Cart struct {
	BaseModel
	UserID     *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;uniqueIndex;check:chk_cart_owner,(user_id IS NULL) <> (session_key IS NULL)"`
	SessionKey *string    `json:"-" gorm:"size:64;uniqueIndex"`

	User  *User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Items []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func NewCart(owner Owner) *Cart {
	c := &Cart{}
	c.UserID, c.SessionKey = owner.columns()
	return c
}

func (c *Cart) Owner() (Owner, error) {
	return ownerFromColumns(c.UserID, c.SessionKey)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].LineTotal())
	}
	return total
}

// CartItem rows are unique per (cart, product, variant). VariantKey mirrors
// VariantID with uuid.Nil for "no variant" so the unique index also covers
// variantless lines.
type CartItem struct {
	BaseModel
	CartID     uuid.UUID       `json:"cart_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_line"`
	ProductID  uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_line"`
	VariantKey uuid.UUID       `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_line"`
	VariantID  *uuid.UUID      `json:"variant_id,omitempty" gorm:"type:uuid;index"`
	Quantity   int             `json:"quantity" gorm:"not null;check:chk_cart_item_quantity,quantity >= 1"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`

	Product *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variant *ProductVariant `json:"variant,omitempty" gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
}

func (ci *CartItem) BeforeSave(tx *gorm.DB) error {
	ci.VariantKey = VariantKey(ci.VariantID)
	return nil
}

func (ci *CartItem) LineTotal() decimal.Decimal {
	return ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// VariantKey maps an optional variant id onto the non-null key column.
func VariantKey(variantID *uuid.UUID) uuid.UUID {
	if variantID == nil {
		return uuid.Nil
	}
	return *variantID
}
