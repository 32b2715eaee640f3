package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/models"
)

const testSession = "abcdefghijklmnopqrstuvwxyz0123456789ABCD"

func TestAddItemTwiceIncrementsLine(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	category := seedCategory(t, db, "Sensors")
	product := seedProduct(t, db, category, "Ultrasonic Sensor", "200", 10)
	owner := models.AnonymousOwner(testSession)

	first, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, first.Created)
	decimalEqual(t, "180", first.FinalPrice)
	require.NotNil(t, first.DiscountPercentage)
	assert.Equal(t, 10, *first.DiscountPercentage)

	second, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Item.ID, second.Item.ID)
	assert.Equal(t, 2, second.Item.Quantity)

	view, err := carts.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "Ultrasonic Sensor", view.Items[0].Name)
	decimalEqual(t, "180", view.Items[0].Price)
	decimalEqual(t, "360", view.Total)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Kits"), "Starter Kit", "50", 0)

	res, err := carts.AddItem(ctx, models.AnonymousOwner(testSession), &AddToCartRequest{ProductID: product.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Item.Quantity)
}

func TestAddItemUsesVariantPrice(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Boards"), "Dev Board", "1000", 20)
	variant := &models.ProductVariant{ProductID: product.ID, Title: "Blue", Price: decimal.NewFromInt(1250), IsActive: true}
	require.NoError(t, db.Create(variant).Error)
	owner := models.AnonymousOwner(testSession)

	res, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2})
	require.NoError(t, err)
	decimalEqual(t, "1250", res.FinalPrice)
	assert.Nil(t, res.DiscountPercentage)

	// The plain product is a separate line.
	_, err = carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	count, err := carts.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	view, err := carts.GetCart(ctx, owner)
	require.NoError(t, err)
	decimalEqual(t, "3300", view.Total)
}

func TestAddItemRejectsUnknownOrInactiveProduct(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Motors"), "Servo", "300", 0)
	deactivate(t, db, product)
	owner := models.AnonymousOwner(testSession)

	_, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)

	other := uuid.New()
	active := seedProduct(t, db, seedCategory(t, db, "Relays"), "Relay", "80", 0)
	_, err = carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: active.ID, VariantID: &other})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemRejectsInactiveVariant(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Boards"), "Nano Board", "900", 0)
	variant := &models.ProductVariant{ProductID: product.ID, Title: "Old Revision", Price: decimal.NewFromInt(850), IsActive: true}
	require.NoError(t, db.Create(variant).Error)
	require.NoError(t, db.Model(variant).UpdateColumn("is_active", false).Error)

	_, err := carts.AddItem(ctx, models.AnonymousOwner(testSession), &AddToCartRequest{ProductID: product.ID, VariantID: &variant.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemRejectsNegativeQuantity(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Wires"), "Jumper Wires", "40", 0)

	_, err := carts.AddItem(context.Background(), models.AnonymousOwner(testSession), &AddToCartRequest{ProductID: product.ID, Quantity: -2})
	var fields *FieldError
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields.Fields, "quantity")
}

func TestUpdateQuantityRemovesLineBelowOne(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Sensors"), "IR Sensor", "120", 0)
	owner := models.AnonymousOwner(testSession)

	added, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	res, err := carts.UpdateQuantity(ctx, owner, added.Item.ID, 3)
	require.NoError(t, err)
	assert.False(t, res.Removed)
	assert.Equal(t, 5, res.Item.Quantity)
	decimalEqual(t, "600", res.TotalItemPrice)

	res, err = carts.UpdateQuantity(ctx, owner, added.Item.ID, -5)
	require.NoError(t, err)
	assert.True(t, res.Removed)

	count, err := carts.Count(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCartLinesAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Sensors"), "Gas Sensor", "220", 0)
	owner := models.AnonymousOwner(testSession)
	stranger := models.AnonymousOwner("ZYXWVUTSRQPONMLKJIHGFEDCBA9876543210zyxw")

	added, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID})
	require.NoError(t, err)

	_, err = carts.UpdateQuantity(ctx, stranger, added.Item.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, carts.RemoveItem(ctx, stranger, added.Item.ID), ErrNotFound)

	require.NoError(t, carts.RemoveItem(ctx, owner, added.Item.ID))
	assert.ErrorIs(t, carts.RemoveItem(ctx, owner, added.Item.ID), ErrNotFound)
}

func TestCountWithoutOwnerDoesNotCreateCart(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)

	count, err := carts.Count(ctx, models.Owner{})
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = carts.Count(ctx, models.AnonymousOwner(testSession))
	require.NoError(t, err)
	assert.Zero(t, count)

	var carts64 int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&carts64).Error)
	assert.Zero(t, carts64)

	_, err = carts.ResolveCart(ctx, models.Owner{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveCartReturnsSameCart(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	user := seedUser(t, db, "alice", "alice@example.com", "Secret#123")

	first, err := carts.ResolveCart(ctx, models.AuthenticatedOwner(user.ID))
	require.NoError(t, err)
	second, err := carts.ResolveCart(ctx, models.AuthenticatedOwner(user.ID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.UserID)
	assert.Nil(t, second.SessionKey)
}

func TestMergeAnonymousSumsMatchingLines(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	category := seedCategory(t, db, "Sensors")
	shared := seedProduct(t, db, category, "Flame Sensor", "100", 0)
	onlyAnon := seedProduct(t, db, category, "Sound Sensor", "90", 0)
	user := seedUser(t, db, "bob", "bob@example.com", "Secret#123")
	userOwner := models.AuthenticatedOwner(user.ID)
	anon := models.AnonymousOwner(testSession)

	_, err := carts.AddItem(ctx, userOwner, &AddToCartRequest{ProductID: shared.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, anon, &AddToCartRequest{ProductID: shared.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, anon, &AddToCartRequest{ProductID: onlyAnon.ID, Quantity: 4})
	require.NoError(t, err)

	require.NoError(t, carts.MergeAnonymous(ctx, testSession, user.ID))

	view, err := carts.GetCart(ctx, userOwner)
	require.NoError(t, err)
	quantities := map[uuid.UUID]int{}
	for _, line := range view.Items {
		quantities[line.ProductID] = line.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{shared.ID: 3, onlyAnon.ID: 4}, quantities)

	var remaining int64
	require.NoError(t, db.Model(&models.Cart{}).Where("session_key = ?", testSession).Count(&remaining).Error)
	assert.Zero(t, remaining)

	// Nothing left to merge.
	require.NoError(t, carts.MergeAnonymous(ctx, testSession, user.ID))
}

// insertLineAfterMissedIncrement stores line right after the first cart
// item increment that matched no row, as a concurrent add would.
func insertLineAfterMissedIncrement(t *testing.T, db *gorm.DB, line *models.CartItem) {
	t.Helper()
	fired := false
	err := db.Callback().Update().After("gorm:update").Register("test:concurrent_cart_line", func(tx *gorm.DB) {
		if fired || tx.Error != nil || tx.Statement.Table != "cart_items" || tx.RowsAffected != 0 {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(line).Error; err != nil {
			tx.AddError(err)
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.True(t, fired, "concurrent line was never inserted")
	})
}

func TestAddItemIncrementsLineCreatedConcurrently(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Drivers"), "Motor Driver", "400", 0)
	owner := models.AnonymousOwner(testSession)
	cart, err := carts.ResolveCart(ctx, owner)
	require.NoError(t, err)

	insertLineAfterMissedIncrement(t, db, &models.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 3, Price: decimal.NewFromInt(400),
	})

	res, err := carts.AddItem(ctx, owner, &AddToCartRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 5, res.Item.Quantity)

	count, err := carts.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMergeAnonymousSurvivesConcurrentLine(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	carts := NewCartService(db)
	product := seedProduct(t, db, seedCategory(t, db, "Sensors"), "Rain Sensor", "120", 0)
	user := seedUser(t, db, "carol", "carol@example.com", "Secret#123")
	userOwner := models.AuthenticatedOwner(user.ID)

	_, err := carts.AddItem(ctx, models.AnonymousOwner(testSession), &AddToCartRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	target, err := carts.ResolveCart(ctx, userOwner)
	require.NoError(t, err)

	// The duplicate insert fails inside the merge transaction; the merge
	// must still commit with the quantities summed.
	insertLineAfterMissedIncrement(t, db, &models.CartItem{
		CartID: target.ID, ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(120),
	})
	require.NoError(t, carts.MergeAnonymous(ctx, testSession, user.ID))

	view, err := carts.GetCart(ctx, userOwner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)

	var remaining int64
	require.NoError(t, db.Model(&models.Cart{}).Where("session_key = ?", testSession).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		price    string
		discount int
		want     string
	}{
		{"100", 25, "75"},
		{"200", 10, "180"},
		{"99.99", 0, "99.99"},
		{"10", 100, "0"},
		{"19.99", 15, "16.99"},
	}
	for _, tt := range tests {
		p := models.Product{Price: decimal.RequireFromString(tt.price), DiscountPercentage: tt.discount}
		assert.Truef(t, decimal.RequireFromString(tt.want).Equal(p.FinalPrice()), "%s at %d%%: got %s", tt.price, tt.discount, p.FinalPrice())
	}
}

func TestOwnerTagHidesSessionKey(t *testing.T) {
	tag := ownerTag(models.AnonymousOwner(testSession))
	assert.NotContains(t, tag, testSession)
	assert.Len(t, tag, len("session:")+12)

	id := uuid.New()
	assert.Equal(t, "user:"+id.String(), ownerTag(models.AuthenticatedOwner(id)))
}
