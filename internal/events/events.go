// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	TypeOrderPlaced     = "order.placed"
	TypeContactReceived = "contact.received"
)

type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type OrderPlaced struct {
	OrderID uuid.UUID `json:"order_id"`
}

type ContactReceived struct {
	MessageID uuid.UUID `json:"message_id"`
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    data,
		OccurredAt: time.Now().UTC(),
	}, nil
}

func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Handler processes one event. A returned error triggers a retry.
type Handler func(ctx context.Context, e Event) error

// Publisher hands events to whatever delivers them. Publish must not block
// on the handler.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 10 * time.Second}
}

// Run calls fn until it succeeds, the retries are used up or ctx ends.
func (p RetryPolicy) Run(ctx context.Context, fn func() error) error {
	backoff := p.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

// Dispatcher delivers events to a handler on background goroutines.
type Dispatcher struct {
	handler Handler
	retry   RetryPolicy
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDispatcher(handler Handler, retry RetryPolicy) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{handler: handler, retry: retry, ctx: ctx, cancel: cancel}
}

// Publish ignores the caller's context; the delivery outlives the request.
func (d *Dispatcher) Publish(_ context.Context, e Event) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(e)
	}()
	return nil
}

func (d *Dispatcher) deliver(e Event) {
	log := logrus.WithFields(logrus.Fields{"event_id": e.ID, "event_type": e.Type})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Event handler panicked")
		}
	}()

	err := d.retry.Run(d.ctx, func() error {
		err := d.handler(d.ctx, e)
		if err != nil {
			log.WithError(err).Warn("Event handler failed")
		}
		return err
	})
	if err != nil {
		log.WithError(err).Error("Giving up on event")
	}
}

// Wait blocks until every published event has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Close() error {
	d.wg.Wait()
	d.cancel()
	return nil
}
