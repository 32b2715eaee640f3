package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/projectstore/internal/models"
)

type fakeGateway struct {
	created []*stripe.PaymentIntentParams
	intents map[string]*stripe.PaymentIntent
	failNew bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*stripe.PaymentIntent{}}
}

func (g *fakeGateway) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if g.failNew {
		return nil, errors.New("card_declined")
	}
	g.created = append(g.created, params)
	pi := &stripe.PaymentIntent{
		ID:           "pi_test_1",
		ClientSecret: "pi_test_1_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}
	g.intents[pi.ID] = pi
	return pi, nil
}

func (g *fakeGateway) Get(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	pi, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return pi, nil
}

func newPaymentFixture(t *testing.T, method models.PaymentMethod) (*PaymentService, *fakeGateway, *models.Order, models.Owner) {
	t.Helper()
	f := newOrderFixture(t)
	owner := models.AnonymousOwner(testSession)
	f.fill(t, owner, 1)
	order, err := f.orders.PlaceOrder(context.Background(), owner, checkoutRequest(method), nil)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Payment.StripeSecretKey = "sk_test_123"
	cfg.Payment.StripePublishableKey = "pk_test_123"
	gateway := newFakeGateway()
	return NewPaymentService(f.db, cfg).WithGateway(gateway), gateway, order, owner
}

func TestCardPaymentFlow(t *testing.T) {
	ctx := context.Background()
	payments, gateway, order, owner := newPaymentFixture(t, models.PaymentMethodCard)
	require.True(t, payments.Enabled())

	resp, err := payments.CreatePaymentIntent(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1_secret", resp.ClientSecret)
	assert.Equal(t, "pk_test_123", resp.PublishableKey)

	require.Len(t, gateway.created, 1)
	params := gateway.created[0]
	assert.Equal(t, int64(18000), *params.Amount)
	assert.Equal(t, "pkr", *params.Currency)
	assert.Equal(t, order.ID.String(), params.Metadata["order_id"])
	assert.Equal(t, "buyer@example.com", *params.ReceiptEmail)

	// A live intent is reused.
	again, err := payments.CreatePaymentIntent(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentID, again.PaymentID)
	assert.Len(t, gateway.created, 1)

	status, err := payments.ConfirmPayment(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, status)

	gateway.intents["pi_test_1"].Status = stripe.PaymentIntentStatusSucceeded
	status, err = payments.ConfirmPayment(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, status)

	_, err = payments.CreatePaymentIntent(ctx, owner, order.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCardPaymentRejectsOtherOrders(t *testing.T) {
	ctx := context.Background()
	payments, _, order, owner := newPaymentFixture(t, models.PaymentMethodCashOnDelivery)

	_, err := payments.CreatePaymentIntent(ctx, owner, order.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = payments.CreatePaymentIntent(ctx, models.AnonymousOwner("someoneelse0123456789"), order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = payments.ConfirmPayment(ctx, models.Owner{}, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCardPaymentConfirmBeforeStart(t *testing.T) {
	payments, _, order, owner := newPaymentFixture(t, models.PaymentMethodCard)
	_, err := payments.ConfirmPayment(context.Background(), owner, order.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCardPaymentProviderFailure(t *testing.T) {
	payments, gateway, order, owner := newPaymentFixture(t, models.PaymentMethodCard)
	gateway.failNew = true
	_, err := payments.CreatePaymentIntent(context.Background(), owner, order.ID)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCardPaymentDisabled(t *testing.T) {
	f := newOrderFixture(t)
	payments := NewPaymentService(f.db, testConfig(t))
	assert.False(t, payments.Enabled())

	_, err := payments.CreatePaymentIntent(context.Background(), models.AnonymousOwner(testSession), f.product.ID)
	assert.ErrorIs(t, err, ErrUnavailable)
}
