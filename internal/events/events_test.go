package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func TestRetryPolicyRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastRetry.Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("smtp down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("smtp down")
	err := fastRetry.Run(context.Background(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := RetryPolicy{MaxRetries: 5, InitialBackoff: time.Hour}
	err := policy.Run(ctx, func() error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventDecode(t *testing.T) {
	id := uuid.New()
	e, err := NewEvent(TypeOrderPlaced, OrderPlaced{OrderID: id})
	require.NoError(t, err)
	assert.Equal(t, TypeOrderPlaced, e.Type)

	var payload OrderPlaced
	require.NoError(t, e.Decode(&payload))
	assert.Equal(t, id, payload.OrderID)
}

func TestDispatcherDeliversAndRecovers(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	d := NewDispatcher(func(_ context.Context, e Event) error {
		if e.Type == "explode" {
			panic("handler bug")
		}
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
		return nil
	}, fastRetry)

	bad, err := NewEvent("explode", struct{}{})
	require.NoError(t, err)
	good, err := NewEvent(TypeContactReceived, ContactReceived{MessageID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, d.Publish(context.Background(), bad))
	require.NoError(t, d.Publish(context.Background(), good))
	d.Wait()
	require.NoError(t, d.Close())

	assert.Equal(t, []string{TypeContactReceived}, seen)
}

type recordingAcker struct {
	acks, nacks int32
}

func (a *recordingAcker) Ack(uint64, bool) error {
	atomic.AddInt32(&a.acks, 1)
	return nil
}

func (a *recordingAcker) Nack(uint64, bool, bool) error {
	atomic.AddInt32(&a.nacks, 1)
	return nil
}

func (a *recordingAcker) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	e, err := NewEvent(TypeOrderPlaced, OrderPlaced{OrderID: uuid.New()})
	require.NoError(t, err)
	body, err := json.Marshal(e)
	require.NoError(t, err)

	ok := func(context.Context, Event) error { return nil }
	failing := func(context.Context, Event) error { return errors.New("nope") }

	acker := &recordingAcker{}
	handleDelivery(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body}, ok, fastRetry)
	assert.Equal(t, int32(1), acker.acks)

	acker = &recordingAcker{}
	handleDelivery(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body}, failing, fastRetry)
	assert.Equal(t, int32(1), acker.nacks)

	acker = &recordingAcker{}
	handleDelivery(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("{not json")}, ok, fastRetry)
	assert.Equal(t, int32(1), acker.nacks)
	assert.Zero(t, acker.acks)
}
