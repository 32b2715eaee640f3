// internal/events/amqp.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPPublisher publishes events to a durable topic exchange, routed by
// event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close AMQP channel")
	}
	return p.conn.Close()
}

// Consume binds queue to every event of exchange and hands deliveries to
// handler until ctx is cancelled. Messages that still fail after the retry
// policy are dropped.
func Consume(ctx context.Context, url, exchange, queue string, handler Handler, retry RetryPolicy) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	logrus.WithFields(logrus.Fields{"exchange": exchange, "queue": q.Name}).Info("Event consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			handleDelivery(ctx, d, handler, retry)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler, retry RetryPolicy) {
	log := logrus.WithField("message_id", d.MessageId)

	var e Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		log.WithError(err).Error("Dropping malformed event")
		d.Nack(false, false)
		return
	}

	if err := retry.Run(ctx, func() error { return handler(ctx, e) }); err != nil {
		log.WithError(err).WithField("event_type", e.Type).Error("Dropping event after retries")
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}
