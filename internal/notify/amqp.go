package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/logging"
)

// BindingKeys are the routing patterns the notification queue listens on
var BindingKeys = []string{"booking.*", "message.*"}

// Publisher puts events on a topic exchange for the notifier worker. Once
// the connection drops, events go to the fallback notifier instead.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	fallback Notifier
	down     atomic.Bool
	logger   zerolog.Logger
}

// NewPublisher dials the broker and declares the exchange. fallback may be
// nil, in which case events published after a broker failure are dropped.
func NewPublisher(url, exchange string, fallback Notifier) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	p := &Publisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		fallback: fallback,
		logger:   logging.NewLogger("notify.amqp"),
	}
	go p.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return p, nil
}

// watch marks the publisher down when the connection closes
func (p *Publisher) watch(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	p.down.Store(true)
	if ok && amqpErr != nil {
		p.logger.Warn().
			Int("code", amqpErr.Code).
			Str("reason", amqpErr.Reason).
			Msg("RabbitMQ connection lost, delivering notifications directly")
	}
}

// Notify publishes the event. When the broker is gone or the publish fails
// the event is handed to the fallback notifier.
func (p *Publisher) Notify(ctx context.Context, event Event) {
	if !p.down.Load() {
		err := p.PublishJSON(ctx, string(event.Type), event)
		if err == nil {
			return
		}
		p.logger.Error().
			Err(err).
			Str("type", string(event.Type)).
			Msg("Failed to publish notification")
	}
	if p.fallback != nil {
		p.fallback.Notify(ctx, event)
	}
}

// PublishJSON marshals v and publishes it under key
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

// Close closes the channel and connection, then waits for the fallback
func (p *Publisher) Close() error {
	if c, ok := p.fallback.(interface{ Close() error }); ok {
		defer c.Close()
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Consumer reads notification events from a durable queue
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger zerolog.Logger
}

// NewConsumer declares exchange and queue and binds keys
func NewConsumer(url, exchange, queue string, keys []string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	return &Consumer{
		conn:   conn,
		ch:     ch,
		queue:  q.Name,
		logger: logging.NewLogger("notify.consumer"),
	}, nil
}

// Run delivers each event through mailer until ctx is cancelled or the
// channel closes. Every message is acked, failed or not.
func (c *Consumer) Run(ctx context.Context, mailer Mailer) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, mailer, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, mailer Mailer, d amqp.Delivery) {
	defer func() {
		if err := d.Ack(false); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to ack delivery")
		}
	}()

	event, err := DecodeEvent(d.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("Dropping malformed notification")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	Deliver(sendCtx, mailer, c.logger, event)
}

// DecodeEvent parses a published event body
func DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" || event.To == "" {
		return Event{}, fmt.Errorf("decode event: missing type or recipient")
	}
	return event, nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
