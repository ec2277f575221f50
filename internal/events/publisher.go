package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/observability"
)

// Publisher delivers catalog events.
type Publisher interface {
	// Publish emits and delivers one event.
	Publish(ctx context.Context, params EmitParams) error
	// Close flushes pending messages and releases resources.
	Close() error
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes catalog events to a Kafka topic, keyed by aggregate id.
type KafkaPublisher struct {
	emitter *Emitter
	writer  MessageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// New returns a KafkaPublisher when events are enabled and a NopPublisher otherwise.
func New(cfg config.EventsConfig, metrics *observability.Metrics, logger zerolog.Logger) Publisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisher(writer, metrics, logger)
}

// NewKafkaPublisher creates a KafkaPublisher over writer.
func NewKafkaPublisher(writer MessageWriter, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		emitter: NewEmitter(""),
		writer:  writer,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish emits the event and writes it to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, params EmitParams) error {
	event, err := p.emitter.Emit(params)
	if err != nil {
		return fmt.Errorf("emit event: %w", err)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(p.emitter.Source())},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.RecordEventFailed(event.EventType)
		return fmt.Errorf("write event: %w", err)
	}

	p.metrics.RecordEventPublished(event.EventType)
	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("published catalog event")
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info().Msg("closing event publisher")
	return p.writer.Close()
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, EmitParams) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// PublishBestEffort publishes params and logs a failure instead of returning it.
func PublishBestEffort(ctx context.Context, p Publisher, params EmitParams, logger zerolog.Logger) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, params); err != nil {
		logger.Warn().Err(err).
			Str("event_type", params.EventType).
			Str("aggregate_id", params.AggregateID).
			Msg("failed to publish catalog event")
	}
}
