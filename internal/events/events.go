package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dairy-backend/internal/metrics"

	"github.com/IBM/sarama"
)

const (
	StockChanged    = "stock.changed"
	SaleCreated     = "sale.created"
	PaymentRecorded = "payment.recorded"
)

// Event is the envelope written to the topic.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher emits domain events after the change they describe has committed.
// Publishing is best effort: a failed send is logged and counted, never
// returned to the request that caused it.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, data any)
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) {}

func (NopPublisher) Close() error { return nil }

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger, metrics: m}
}

// Dial connects a synchronous producer that waits for all in-sync replicas.
func Dial(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return producer, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event", slog.String("event_type", eventType), slog.Any("error", err))
		p.metrics.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Headers:   []sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte(eventType)}},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "publish event",
			slog.String("event_type", eventType),
			slog.String("key", key),
			slog.Any("error", err))
		p.metrics.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}

	p.metrics.EventsPublished.WithLabelValues(eventType, "ok").Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("event_type", eventType),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset))
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
