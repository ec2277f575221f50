package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for catalog events.
const (
	EventTypeImportCompleted    = "catalog.import_completed"
	EventTypeArticleCreated     = "catalog.article_created"
	EventTypeReconcileCompleted = "catalog.reconcile_completed"
)

// CatalogEvent is a change notification published after a catalog mutation.
type CatalogEvent struct {
	EventID       string          `json:"event_id"`
	EventVersion  int             `json:"event_version"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewCatalogEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewCatalogEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*CatalogEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &CatalogEvent{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *CatalogEvent) WithCorrelationID(id string) *CatalogEvent {
	e.CorrelationID = id
	return e
}

// ImportCompletedPayload is the payload for catalog.import_completed events.
type ImportCompletedPayload struct {
	ImportID         uuid.UUID `json:"import_id"`
	Outcome          string    `json:"outcome"`
	NewArticles      int       `json:"new_articles"`
	ExistingArticles int       `json:"existing_articles"`
	FailedArticles   int       `json:"failed_articles"`
	JournalsCreated  int       `json:"journals_created"`
	AuthorsCreated   int       `json:"authors_created"`
}

// ArticleCreatedPayload is the payload for catalog.article_created events.
type ArticleCreatedPayload struct {
	ArticleID    string   `json:"article_id"`
	JournalID    string   `json:"journal_id,omitempty"`
	DisciplineID string   `json:"discipline_id,omitempty"`
	AuthorIDs    []string `json:"author_ids"`
}

// ReconcileCompletedPayload is the payload for catalog.reconcile_completed events.
type ReconcileCompletedPayload struct {
	AuthorDrift  int  `json:"author_drift"`
	JournalDrift int  `json:"journal_drift"`
	OrphanLinks  int  `json:"orphan_links"`
	Fixed        int  `json:"fixed"`
	Failed       int  `json:"failed"`
	Applied      bool `json:"applied"`
}
