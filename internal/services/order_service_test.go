package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

type orderFixture struct {
	db        *gorm.DB
	storage   *StorageService
	carts     *CartService
	orders    *OrderService
	publisher *recordingPublisher
	product   *models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig(t)
	storage := newTestStorage(t, cfg)
	publisher := &recordingPublisher{}
	return &orderFixture{
		db:        db,
		storage:   storage,
		carts:     NewCartService(db),
		orders:    NewOrderService(db, storage, publisher),
		publisher: publisher,
		product:   seedProduct(t, db, seedCategory(t, db, "Robotics"), "Line Follower", "200", 10),
	}
}

func (f *orderFixture) fill(t *testing.T, owner models.Owner, quantity int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), owner, &AddToCartRequest{ProductID: f.product.ID, Quantity: quantity})
	require.NoError(t, err)
}

func checkoutRequest(method models.PaymentMethod) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		Email:         "buyer@example.com",
		PaymentMethod: string(method),
		Country:       "Pakistan",
		FirstName:     "Ali",
		LastName:      "Khan",
		Address:       "12 Mall Road",
		City:          "Lahore",
		State:         "Punjab",
		ZipCode:       "54000",
		Phone:         "+92 300 1234567",
	}
}

func TestPlaceOrderCashOnDelivery(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 2)

	order, err := f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodCashOnDelivery), nil)
	require.NoError(t, err)

	decimalEqual(t, "360", order.Total)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Empty(t, order.PaymentSlip)
	require.NotNil(t, order.SessionKey)
	assert.Equal(t, testSession, *order.SessionKey)
	assert.Nil(t, order.UserID)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Line Follower", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[0].Quantity)
	decimalEqual(t, "180", order.Items[0].Price)

	// The session cart is gone.
	var carts int64
	require.NoError(t, f.db.Model(&models.Cart{}).Count(&carts).Error)
	assert.Zero(t, carts)

	assert.Equal(t, []string{events.TypeOrderPlaced}, f.publisher.types())

	latest, err := f.orders.LatestOrder(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, order.ID, latest.ID)
	require.Len(t, latest.Items, 1)
}

func TestPlaceOrderKeepsUserCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	user := seedUser(t, f.db, "carol", "carol@example.com", "Secret#123")
	owner := models.AuthenticatedOwner(user.ID)
	f.fill(t, owner, 1)

	order, err := f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodCard), nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.NotNil(t, order.UserID)
	assert.Equal(t, user.ID, *order.UserID)

	var carts int64
	require.NoError(t, f.db.Model(&models.Cart{}).Where("user_id = ?", user.ID).Count(&carts).Error)
	assert.Equal(t, int64(1), carts)

	count, err := f.carts.Count(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)

	history, err := f.orders.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)
}

func TestPlaceOrderRollsBackOnItemFailure(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)

	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_order_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodCashOnDelivery), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	count, err := f.carts.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, f.publisher.types())
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.PlaceOrder(context.Background(), models.AnonymousOwner(testSession), checkoutRequest(models.PaymentMethodCashOnDelivery), nil)
	require.ErrorIs(t, err, ErrCartEmpty)
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, IsCartEmpty(err))

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Empty(t, f.publisher.types())
}

func TestPlaceOrderOnlinePaymentNeedsSlip(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)

	_, err := f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodOnline), nil)
	require.ErrorIs(t, err, ErrPaymentSlipRequired)

	// The cart is untouched.
	count, err := f.carts.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPlaceOrderStoresSlip(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)

	slip := fileHeader(t, "payment_slip", "Bank Receipt.png", []byte("\x89PNG\r\n\x1a\nreceipt"))
	order, err := f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodOnline), slip)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSubmitted, order.PaymentStatus)
	assert.Equal(t, "payment_slips/bank-receipt.png", order.PaymentSlip)
	_, err = os.Stat(filepath.Join(f.storage.config.Media.Root, "payment_slips", "bank-receipt.png"))
	assert.NoError(t, err)
}

func TestPlaceOrderValidatesForm(t *testing.T) {
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)

	req := checkoutRequest(models.PaymentMethodCashOnDelivery)
	req.Email = "not-an-email"
	req.City = ""
	_, err := f.orders.PlaceOrder(context.Background(), owner, req, nil)
	require.Error(t, err)

	fields := map[string]string{}
	for _, e := range utils.GetValidationErrors(err) {
		fields[e.Field] = e.Tag
	}
	assert.Equal(t, map[string]string{"email": "email", "city": "required"}, fields)
}

func TestPlaceOrderRequiresOwner(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.orders.PlaceOrder(context.Background(), models.Owner{}, checkoutRequest(models.PaymentMethodCashOnDelivery), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestOrdersAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)
	order, err := f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodCashOnDelivery), nil)
	require.NoError(t, err)

	stranger := models.AnonymousOwner("ZYXWVUTSRQPONMLKJIHGFEDCBA9876543210zyxw")
	_, err = f.orders.GetOwnedOrder(ctx, stranger, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.orders.LatestOrder(ctx, stranger)
	assert.ErrorIs(t, err, ErrNotFound)

	owned, err := f.orders.GetOwnedOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, owned.ID)
}

func TestAdminOrderListAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)
	order, err := f.orders.PlaceOrder(ctx, owner, checkoutRequest(models.PaymentMethodCashOnDelivery), nil)
	require.NoError(t, err)

	list, total, err := f.orders.ListOrders(ctx, utils.PaginationParams{Page: 1, Limit: 10, Search: "buyer@"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)

	_, total, err = f.orders.ListOrders(ctx, utils.PaginationParams{Page: 1, Limit: 10, Search: "50%"})
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, f.orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusPaid))
	reloaded, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, reloaded.PaymentStatus)
}
