package csvimport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/events"
	"github.com/helixir/research-catalog/internal/observability"
)

// DatasetLoader loads the current catalog contents.
type DatasetLoader interface {
	LoadDataset(ctx context.Context) (*domain.Dataset, error)
}

// Service runs complete CSV imports.
type Service struct {
	loader    DatasetLoader
	flusher   *Flusher
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewService creates an import Service.
func NewService(
	loader DatasetLoader,
	flusher *Flusher,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		loader:    loader,
		flusher:   flusher,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "csv_import").Logger(),
	}
}

// Import parses r, composes a plan against the stored ids and flushes it.
// An error is returned only when the file cannot be read, the catalog cannot
// be loaded or ctx ends; per-row failures are reported in the Result.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()

	table, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if table.Header == nil {
		return nil, domain.NewValidationError("file", "no header row found")
	}
	s.metrics.RecordRowsParsed(len(table.Rows), len(table.Warnings))

	ds, err := s.loader.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	plan := Compose(table, NewKnownIDs(ds))
	s.logger.Info().
		Int("rows", plan.Rows).
		Int("skipped", plan.Skipped).
		Int("articles", len(plan.Articles)).
		Int("journals", len(plan.Journals)).
		Int("authors", len(plan.Authors)).
		Msg("import plan composed")

	result, err := s.flusher.Flush(ctx, plan)
	if result != nil {
		result.Warnings = table.Warnings
		result.Duration = time.Since(start)
		result.DurationMS = result.Duration.Milliseconds()
		s.record(result)
	}
	if err != nil {
		return result, fmt.Errorf("import interrupted: %w", err)
	}

	events.PublishBestEffort(ctx, s.publisher, events.EmitParams{
		AggregateID:   result.ImportID.String(),
		AggregateType: events.AggregateTypeImport,
		EventType:     domain.EventTypeImportCompleted,
		Payload: domain.ImportCompletedPayload{
			ImportID:         result.ImportID,
			Outcome:          string(result.Outcome),
			NewArticles:      result.NewArticles,
			ExistingArticles: result.ExistingArticles,
			FailedArticles:   result.FailedArticles,
			JournalsCreated:  result.JournalsCreated,
			AuthorsCreated:   result.AuthorsCreated,
		},
		CorrelationID: observability.RequestIDFromContext(ctx),
	}, s.logger)

	return result, nil
}

func (s *Service) record(result *Result) {
	s.metrics.RecordImport(string(result.Outcome), result.Duration.Seconds())
	s.metrics.RecordArticles("new", result.NewArticles)
	s.metrics.RecordArticles("existing", result.ExistingArticles)
	s.metrics.RecordArticles("failed", result.FailedArticles)
	s.metrics.RecordEntitiesCreated(domain.EntityJournal, result.JournalsCreated)
	s.metrics.RecordEntitiesCreated(domain.EntityDiscipline, result.DisciplinesCreated)
	s.metrics.RecordEntitiesCreated(domain.EntityAuthor, result.AuthorsCreated)
}
