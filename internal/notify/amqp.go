package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/order-capture/internal/domain/order"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ order.Notifier = (*AMQP)(nil)

// AMQP publishes summaries to a RabbitMQ exchange as persistent messages.
type AMQP struct {
	ch         Channel
	exchange   string
	routingKey string
	closer     func() error
}

// NewAMQP wraps a publishing channel.
func NewAMQP(ch Channel, exchange, routingKey string) *AMQP {
	return &AMQP{ch: ch, exchange: exchange, routingKey: routingKey}
}

// DialAMQP opens a channel on conn and declares a durable topic exchange.
// Close releases the channel; the connection stays owned by the caller.
func DialAMQP(conn *amqp.Connection, exchange, routingKey string) (*AMQP, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}

	n := NewAMQP(ch, exchange, routingKey)
	n.closer = ch.Close
	return n, nil
}

// Notify implements order.Notifier.
func (n *AMQP) Notify(ctx context.Context, s order.Summary) error {
	if err := n.ch.PublishWithContext(ctx, n.exchange, n.routingKey, false, false, amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         "order.summary",
		Headers:      amqp.Table{"order_id": s.OrderID},
		Body:         Encode(s),
	}); err != nil {
		return errors.Wrapf(err, "publish to %q", n.exchange)
	}
	return nil
}

// Close releases the channel opened by DialAMQP.
func (n *AMQP) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
