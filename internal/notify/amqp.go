package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"
)

const RoutingKey = "storefront.order.placed"

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher publishes each handoff as JSON to a RabbitMQ exchange for vendor-side
// consumers.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
	logger   *slog.Logger
}

// DialAMQP connects to RabbitMQ and declares a durable topic exchange.
func DialAMQP(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	p := NewAMQPPublisher(ch, exchange, logger)
	p.conn = conn
	p.logger.Info("amqp publisher connected", "exchange", exchange)
	return p, nil
}

func NewAMQPPublisher(ch publisher, exchange string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AMQPPublisher{channel: ch, exchange: exchange, logger: logger}
}

func (p *AMQPPublisher) Notify(ctx context.Context, h Handoff) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	body, err := json.Marshal(h)
	if err != nil {
		return Receipt{}, err
	}
	err = p.channel.Publish(p.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    h.OrderID,
		Headers:      amqp.Table{"vendor_id": h.VendorID},
		Body:         body,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("publish handoff: %w", err)
	}
	p.logger.Debug("handoff published", "order_id", h.OrderID, "exchange", p.exchange)
	return Receipt{Channel: "amqp"}, nil
}

// Close closes the channel and connection opened by DialAMQP.
func (p *AMQPPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if ch, ok := p.channel.(*amqp.Channel); ok {
		if err := ch.Close(); err != nil {
			return err
		}
	}
	return p.conn.Close()
}
