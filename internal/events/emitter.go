// Package events publishes catalog change notifications to Kafka.
package events

import (
	"fmt"

	"github.com/helixir/research-catalog/internal/domain"
)

// Aggregate types carried by catalog events.
const (
	AggregateTypeArticle = "article"
	AggregateTypeImport  = "import"
	AggregateTypeCatalog = "catalog"
)

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	// AggregateID identifies the entity the event is about.
	AggregateID string
	// AggregateType is one of the AggregateType constants.
	AggregateType string
	// EventType is the type of event (e.g., "catalog.import_completed").
	EventType string
	// Payload is the event payload that will be JSON-serialized.
	Payload interface{}
	// CorrelationID for request tracing (optional).
	CorrelationID string
}

// Emitter builds catalog events from emit parameters.
type Emitter struct {
	source string
}

// NewEmitter creates a new Emitter for the named service.
func NewEmitter(serviceName string) *Emitter {
	if serviceName == "" {
		serviceName = "research-catalog"
	}
	return &Emitter{source: serviceName}
}

// Source returns the service name recorded on every message.
func (e *Emitter) Source() string {
	return e.source
}

// Emit validates params and builds the event.
func (e *Emitter) Emit(params EmitParams) (*domain.CatalogEvent, error) {
	if params.AggregateID == "" {
		return nil, fmt.Errorf("aggregate_id is required")
	}
	if params.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}
	if params.AggregateType == "" {
		params.AggregateType = AggregateTypeCatalog
	}

	event, err := domain.NewCatalogEvent(params.EventType, params.AggregateID, params.AggregateType, params.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if params.CorrelationID != "" {
		event.WithCorrelationID(params.CorrelationID)
	}
	return event, nil
}
