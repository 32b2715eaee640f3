// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

type CartService struct {
	db *gorm.DB
}

type AddToCartRequest struct {
	ProductID uuid.UUID  `json:"product_id" form:"product_id" validate:"required"`
	Quantity  int        `json:"quantity" form:"quantity" validate:"omitempty,min=1"`
	VariantID *uuid.UUID `json:"variant_id,omitempty" form:"variant_id"`
}

type UpdateCartRequest struct {
	ItemID uuid.UUID `json:"item_id" form:"item_id" validate:"required"`
	Change int       `json:"change" form:"change"`
}

type AddToCartResult struct {
	Item               *models.CartItem `json:"item"`
	FinalPrice         decimal.Decimal  `json:"final_price"`
	DiscountPercentage *int             `json:"discount_percentage"`
	Created            bool             `json:"created"`
}

type UpdateCartResult struct {
	Removed        bool             `json:"removed"`
	Item           *models.CartItem `json:"item,omitempty"`
	FinalPrice     decimal.Decimal  `json:"final_price"`
	TotalItemPrice decimal.Decimal  `json:"total_item_price"`
}

type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Variant   string          `json:"variant,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Image     string          `json:"image"`
}

type CartView struct {
	ID    uuid.UUID       `json:"id"`
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// ResolveCart returns the owner's cart, creating it on first use.
func (s *CartService) ResolveCart(ctx context.Context, owner models.Owner) (*models.Cart, error) {
	return resolveCart(s.db.WithContext(ctx), owner)
}

func resolveCart(db *gorm.DB, owner models.Owner) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("%w: cart owner is required", ErrUnauthorized)
	}

	cart, err := findCart(db, owner)
	if err != nil || cart != nil {
		return cart, err
	}

	cart = models.NewCart(owner)
	if err := database.CreateIsolated(db, cart); err != nil {
		if !database.IsDuplicate(err) {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
		// Created concurrently by another request.
		existing, err := findCart(db, owner)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("cart for %s vanished after conflict", owner)
		}
		return existing, nil
	}

	logrus.WithFields(logrus.Fields{"cart_id": cart.ID, "owner": ownerTag(owner)}).Debug("Cart created")
	return cart, nil
}

// findCart returns nil, nil when the owner has no cart yet.
func findCart(db *gorm.DB, owner models.Owner) (*models.Cart, error) {
	var cart models.Cart
	err := db.Scopes(owner.Scope()).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// GetCart returns the cart with its lines and total.
func (s *CartService) GetCart(ctx context.Context, owner models.Owner) (*CartView, error) {
	db := s.db.WithContext(ctx)
	cart, err := resolveCart(db, owner)
	if err != nil {
		return nil, err
	}

	var items []models.CartItem
	if err := db.Preload("Product").Preload("Variant").
		Where("cart_id = ?", cart.ID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	cart.Items = items

	view := &CartView{ID: cart.ID, Items: make([]CartLine, 0, len(items)), Total: cart.Total()}
	for i := range items {
		view.Items = append(view.Items, cartLine(&items[i]))
	}
	return view, nil
}

func cartLine(item *models.CartItem) CartLine {
	line := CartLine{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Price:     item.Price,
		Quantity:  item.Quantity,
		LineTotal: item.LineTotal(),
	}
	if item.Product != nil {
		line.Name = item.Product.Name
		line.Image = item.Product.MainImage
	}
	if item.Variant != nil {
		line.Variant = item.Variant.Title
		line.Image = item.Variant.Image
	}
	return line
}

// AddItem adds quantity of a product (or one of its variants) to the cart.
// An existing line for the same pair is incremented and keeps the price it
// was first added at.
func (s *CartService) AddItem(ctx context.Context, owner models.Owner, req *AddToCartRequest) (*AddToCartResult, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		return nil, NewFieldError("quantity", "quantity must be at least 1")
	}

	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.Where("id = ? AND is_active = ?", req.ProductID, true).First(&product).Error; err != nil {
		return nil, notFoundOr(err, "product")
	}

	result := &AddToCartResult{}
	if req.VariantID != nil {
		var variant models.ProductVariant
		if err := db.Where("id = ? AND product_id = ? AND is_active = ?", *req.VariantID, product.ID, true).First(&variant).Error; err != nil {
			return nil, notFoundOr(err, "variant")
		}
		result.FinalPrice = variant.Price
	} else {
		result.FinalPrice = product.FinalPrice()
		discount := product.DiscountPercentage
		result.DiscountPercentage = &discount
	}

	cart, err := resolveCart(db, owner)
	if err != nil {
		return nil, err
	}

	item, created, err := upsertCartItem(db, cart.ID, product.ID, req.VariantID, req.Quantity, result.FinalPrice)
	if err != nil {
		return nil, err
	}
	result.Item = item
	result.Created = created

	logrus.WithFields(logrus.Fields{
		"cart_id":    cart.ID,
		"product_id": product.ID,
		"quantity":   req.Quantity,
		"created":    created,
	}).Info("Item added to cart")

	return result, nil
}

// upsertCartItem inserts a line or increments the existing one. A unique
// violation on insert means a concurrent add won, so it retries as an
// increment. The insert runs under a savepoint so this also works inside
// MergeAnonymous's transaction.
func upsertCartItem(db *gorm.DB, cartID, productID uuid.UUID, variantID *uuid.UUID, quantity int, price decimal.Decimal) (*models.CartItem, bool, error) {
	lineKey := func(tx *gorm.DB) *gorm.DB {
		return tx.Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, models.VariantKey(variantID))
	}

	increment := func() (*models.CartItem, error) {
		res := db.Model(&models.CartItem{}).Scopes(lineKey).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		var item models.CartItem
		if err := db.Scopes(lineKey).First(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to reload cart item: %w", err)
		}
		return &item, nil
	}

	if item, err := increment(); err != nil || item != nil {
		return item, false, err
	}

	item := &models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		Price:     price,
	}
	err := database.CreateIsolated(db, item)
	if err == nil {
		return item, true, nil
	}
	if !database.IsDuplicate(err) {
		return nil, false, fmt.Errorf("failed to create cart item: %w", err)
	}

	existing, err := increment()
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("%w: cart item changed concurrently", ErrConflict)
	}
	return existing, false, nil
}

// UpdateQuantity applies a signed delta to a line. Lines that would drop
// below one are deleted.
func (s *CartService) UpdateQuantity(ctx context.Context, owner models.Owner, itemID uuid.UUID, delta int) (*UpdateCartResult, error) {
	var result *UpdateCartResult
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		item, err := ownedCartItem(tx, owner, itemID)
		if err != nil {
			return err
		}

		newQuantity := item.Quantity + delta
		if newQuantity < 1 {
			if err := tx.Delete(&models.CartItem{}, "id = ?", item.ID).Error; err != nil {
				return fmt.Errorf("failed to delete cart item: %w", err)
			}
			result = &UpdateCartResult{Removed: true}
			return nil
		}

		if err := tx.Model(item).UpdateColumn("quantity", newQuantity).Error; err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		item.Quantity = newQuantity
		result = &UpdateCartResult{Item: item, FinalPrice: item.Price, TotalItemPrice: item.LineTotal()}
		return nil
	})
	return result, err
}

// RemoveItem deletes a line of the owner's cart.
func (s *CartService) RemoveItem(ctx context.Context, owner models.Owner, itemID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	item, err := ownedCartItem(db, owner, itemID)
	if err != nil {
		return err
	}
	res := db.Delete(&models.CartItem{}, "id = ?", item.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("cart item")
	}
	return nil
}

// Count is the number of lines in the owner's cart. It never creates a cart.
func (s *CartService) Count(ctx context.Context, owner models.Owner) (int64, error) {
	if !owner.Valid() {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Scopes(ownerScopeOn("carts", owner)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}

// MergeAnonymous moves the lines of a session cart into the user's cart and
// deletes the session cart. Quantities of matching lines are summed and the
// user's line keeps its price.
func (s *CartService) MergeAnonymous(ctx context.Context, sessionKey string, userID uuid.UUID) error {
	if sessionKey == "" {
		return nil
	}
	anon := models.AnonymousOwner(sessionKey)
	user := models.AuthenticatedOwner(userID)

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		source, err := findCart(tx, anon)
		if err != nil || source == nil {
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", source.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load session cart: %w", err)
		}

		if len(items) > 0 {
			target, err := resolveCart(tx, user)
			if err != nil {
				return err
			}
			for _, item := range items {
				if _, _, err := upsertCartItem(tx, target.ID, item.ProductID, item.VariantID, item.Quantity, item.Price); err != nil {
					return err
				}
			}
		}

		if err := tx.Delete(&models.Cart{}, "id = ?", source.ID).Error; err != nil {
			return fmt.Errorf("failed to delete session cart: %w", err)
		}

		logrus.WithFields(logrus.Fields{"user_id": userID, "lines": len(items)}).Info("Session cart merged")
		return nil
	})
}

func ownedCartItem(db *gorm.DB, owner models.Owner, itemID uuid.UUID) (*models.CartItem, error) {
	if !owner.Valid() {
		return nil, notFound("cart item")
	}
	var item models.CartItem
	err := db.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Scopes(ownerScopeOn("carts", owner)).
		Where("cart_items.id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, notFoundOr(err, "cart item")
	}
	return &item, nil
}

// ownerScopeOn is Owner.Scope qualified with a table name for joins.
func ownerScopeOn(table string, owner models.Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner.IsAuthenticated() {
			return db.Where(table+".user_id = ?", owner.UserID())
		}
		return db.Where(table+".user_id IS NULL AND "+table+".session_key = ?", owner.SessionKey())
	}
}

// ownerTag identifies an owner in logs and provider metadata without
// exposing the session key.
func ownerTag(owner models.Owner) string {
	if owner.IsAuthenticated() {
		return owner.String()
	}
	return "session:" + utils.HashString(owner.SessionKey())[:12]
}
