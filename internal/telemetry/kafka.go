package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront-cart/internal/domain"
)

type wireEvent struct {
	VendorID  string          `json:"vendorId"`
	Kind      string          `json:"kind"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

// KafkaBeacon publishes events with an async writer: Send returns once the message is
// buffered and delivery continues in the background.
type KafkaBeacon struct {
	writer *kafka.Writer
}

func NewKafkaBeacon(brokers []string, topic string, logger *slog.Logger) *KafkaBeacon {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &KafkaBeacon{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 50 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Debug("telemetry: beacon delivery failed", "count", len(messages), "err", err)
				}
			},
		},
	}
}

func (b *KafkaBeacon) Send(ctx context.Context, ev domain.AnalyticsEvent) error {
	value, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.VendorID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Kind())},
		},
	})
}

func (b *KafkaBeacon) Close() error {
	return b.writer.Close()
}

func encodeEvent(ev domain.AnalyticsEvent) ([]byte, error) {
	meta, err := ev.Metadata()
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{
		VendorID:  ev.VendorID,
		Kind:      string(ev.Kind()),
		Metadata:  meta,
		CreatedAt: ev.CreatedAt,
	})
}
