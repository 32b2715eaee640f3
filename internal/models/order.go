// internal/models/order.go
package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is written once at checkout. UserID is nulled if the user is later
// deleted, so the owner columns are not constrained the way Cart's are.
type Order struct {
	BaseModel
	UserID          *uuid.UUID      `json:"user_id,omitempty" gorm:"type:uuid;index"`
	SessionKey      *string         `json:"-" gorm:"size:64;index"`
	Email           string          `json:"email" gorm:"size:254;not null"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:varchar(50);not null"`
	PaymentSlip     string          `json:"payment_slip,omitempty" gorm:"size:500"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null;default:'unpaid'"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty" gorm:"size:255;index"`
	Country         string          `json:"country" gorm:"size:100;not null"`
	FirstName       string          `json:"first_name" gorm:"size:100"`
	LastName        string          `json:"last_name" gorm:"size:100;not null"`
	Address         string          `json:"address" gorm:"type:text;not null"`
	Apartment       string          `json:"apartment" gorm:"size:100"`
	City            string          `json:"city" gorm:"size:100;not null"`
	State           string          `json:"state" gorm:"size:100;not null"`
	ZipCode         string          `json:"zip_code" gorm:"size:20;not null"`
	Phone           string          `json:"phone" gorm:"size:20;not null"`
	SaveInfo        bool            `json:"save_info"`
	TextOffers      bool            `json:"text_offers"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`

	User  *User       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) SetOwner(owner Owner) {
	o.UserID, o.SessionKey = owner.columns()
}

func (o *Order) CustomerName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// OrderItem is a frozen copy of a cart line. Catalog references go NULL when
// the product or variant is deleted.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID   *uuid.UUID      `json:"product_id" gorm:"type:uuid;index"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty" gorm:"type:uuid;index"`
	ProductName string          `json:"product_name" gorm:"size:100"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`

	Product *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	Variant *ProductVariant `json:"variant,omitempty" gorm:"foreignKey:VariantID;constraint:OnDelete:SET NULL"`
}

func (oi *OrderItem) TotalPrice() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}
