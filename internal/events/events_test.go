package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/observability"
)

// fakeWriter records written messages.
type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewEmitter(t *testing.T) {
	assert.Equal(t, "research-catalog", NewEmitter("").Source())
	assert.Equal(t, "custom", NewEmitter("custom").Source())
}

func TestEmitter_Emit(t *testing.T) {
	emitter := NewEmitter("test-service")

	t.Run("creates event with all fields", func(t *testing.T) {
		event, err := emitter.Emit(EmitParams{
			AggregateID:   "A1",
			AggregateType: AggregateTypeArticle,
			EventType:     domain.EventTypeArticleCreated,
			Payload:       domain.ArticleCreatedPayload{ArticleID: "A1", AuthorIDs: []string{"alice-smith"}},
			CorrelationID: "corr-abc",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, event.EventID)
		assert.Equal(t, 1, event.EventVersion)
		assert.Equal(t, "A1", event.AggregateID)
		assert.Equal(t, AggregateTypeArticle, event.AggregateType)
		assert.Equal(t, "corr-abc", event.CorrelationID)

		var decoded domain.ArticleCreatedPayload
		require.NoError(t, json.Unmarshal(event.Payload, &decoded))
		assert.Equal(t, []string{"alice-smith"}, decoded.AuthorIDs)
	})

	t.Run("defaults aggregate type", func(t *testing.T) {
		event, err := emitter.Emit(EmitParams{AggregateID: "run-1", EventType: domain.EventTypeReconcileCompleted})
		require.NoError(t, err)
		assert.Equal(t, AggregateTypeCatalog, event.AggregateType)
	})

	t.Run("requires aggregate id and event type", func(t *testing.T) {
		_, err := emitter.Emit(EmitParams{EventType: "x"})
		assert.EqualError(t, err, "aggregate_id is required")

		_, err = emitter.Emit(EmitParams{AggregateID: "x"})
		assert.EqualError(t, err, "event_type is required")
	})

	t.Run("rejects unmarshalable payload", func(t *testing.T) {
		_, err := emitter.Emit(EmitParams{AggregateID: "x", EventType: "y", Payload: make(chan int)})
		assert.Error(t, err)
	})
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Run("writes keyed message and records metric", func(t *testing.T) {
		writer := &fakeWriter{}
		metrics := observability.NewMetrics("events_test_ok")
		pub := NewKafkaPublisher(writer, metrics, zerolog.Nop())

		err := pub.Publish(context.Background(), EmitParams{
			AggregateID:   "import-1",
			AggregateType: AggregateTypeImport,
			EventType:     domain.EventTypeImportCompleted,
			Payload:       domain.ImportCompletedPayload{Outcome: "success", NewArticles: 2},
		})
		require.NoError(t, err)
		require.Len(t, writer.messages, 1)

		msg := writer.messages[0]
		assert.Equal(t, "import-1", string(msg.Key))
		assert.Equal(t, "event_type", msg.Headers[0].Key)
		assert.Equal(t, domain.EventTypeImportCompleted, string(msg.Headers[0].Value))

		var event domain.CatalogEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, domain.EventTypeImportCompleted, event.EventType)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypeImportCompleted)))
	})

	t.Run("returns write error and records failure", func(t *testing.T) {
		writer := &fakeWriter{err: errors.New("broker down")}
		metrics := observability.NewMetrics("events_test_fail")
		pub := NewKafkaPublisher(writer, metrics, zerolog.Nop())

		err := pub.Publish(context.Background(), EmitParams{AggregateID: "A1", EventType: domain.EventTypeArticleCreated})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsFailed.WithLabelValues(domain.EventTypeArticleCreated)))
	})

	t.Run("close closes writer", func(t *testing.T) {
		writer := &fakeWriter{}
		pub := NewKafkaPublisher(writer, nil, zerolog.Nop())
		require.NoError(t, pub.Close())
		assert.True(t, writer.closed)
	})
}

func TestNew(t *testing.T) {
	t.Run("disabled returns nop", func(t *testing.T) {
		pub := New(config.EventsConfig{Enabled: false}, nil, zerolog.Nop())
		assert.IsType(t, NopPublisher{}, pub)
		assert.NoError(t, pub.Publish(context.Background(), EmitParams{}))
		assert.NoError(t, pub.Close())
	})

	t.Run("enabled returns kafka publisher", func(t *testing.T) {
		pub := New(config.EventsConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "t"}, nil, zerolog.Nop())
		assert.IsType(t, &KafkaPublisher{}, pub)
	})
}

func TestPublishBestEffort(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	pub := NewKafkaPublisher(writer, nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		PublishBestEffort(context.Background(), pub, EmitParams{AggregateID: "A1", EventType: "x"}, zerolog.Nop())
		PublishBestEffort(context.Background(), nil, EmitParams{}, zerolog.Nop())
	})
}
