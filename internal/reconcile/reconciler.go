// Package reconcile detects and repairs author and journal rows whose primary
// key no longer matches the slug of their name.
//
// Ids are derived from names on insert (domain.AuthorID, domain.JournalID).
// Rows written by older clients, or renamed later, drift away from that
// convention and then miss upserts from the import pipeline.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/catalog"
	"github.com/helixir/research-catalog/internal/dedup"
	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/events"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/internal/repository"
)

// Run modes used in metrics and logs.
const (
	ModeCheck  = "check"
	ModeRepair = "repair"
)

// Issue kinds reported to metrics.
const (
	IssueAuthorDrift      = "author_drift"
	IssueJournalDrift     = "journal_drift"
	IssueOrphanLinks      = "orphan_links"
	IssueDuplicateAuthors = "duplicate_authors"
)

// OrphanFinder lists article-author links whose author row is missing.
type OrphanFinder interface {
	OrphanAuthorLinks(ctx context.Context) ([]*domain.ArticleAuthor, error)
}

// Rekeyer moves a row to a new primary key, merging into an existing row.
type Rekeyer interface {
	RekeyAuthor(ctx context.Context, oldID, newID string) (bool, error)
	RekeyJournal(ctx context.Context, oldID, newID string) (bool, error)
}

// RekeyerFactory binds a Rekeyer to a transaction.
type RekeyerFactory func(tx pgx.Tx) Rekeyer

// PgRekeyers binds the Postgres drift repository to each transaction.
func PgRekeyers(tx pgx.Tx) Rekeyer {
	return repository.NewPgDriftRepository(tx)
}

// Drift is a row whose id differs from the slug of its name.
type Drift struct {
	Entity     string `json:"entity"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExpectedID string `json:"expected_id"`
	// Merge is set when a row with ExpectedID already exists.
	Merge bool `json:"merge"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RunID            uuid.UUID               `json:"run_id"`
	CheckedAt        time.Time               `json:"checked_at"`
	Authors          []Drift                 `json:"authors"`
	Journals         []Drift                 `json:"journals"`
	OrphanLinks      []*domain.ArticleAuthor `json:"orphan_links"`
	DuplicateAuthors []dedup.AuthorPair      `json:"duplicate_authors"`
	Applied          bool                    `json:"applied"`
	Fixed            int                     `json:"fixed"`
	Failed           int                     `json:"failed"`
	Errors           []string                `json:"errors,omitempty"`
}

// Clean reports whether no drift or orphan was found. Duplicate authors are
// advisory and do not count.
func (r *Report) Clean() bool {
	return len(r.Authors) == 0 && len(r.Journals) == 0 && len(r.OrphanLinks) == 0
}

// Issues counts the findings per kind.
func (r *Report) Issues() map[string]int {
	return map[string]int{
		IssueAuthorDrift:      len(r.Authors),
		IssueJournalDrift:     len(r.Journals),
		IssueOrphanLinks:      len(r.OrphanLinks),
		IssueDuplicateAuthors: len(r.DuplicateAuthors),
	}
}

// Reconciler checks the catalog for id drift and repairs it.
type Reconciler struct {
	loader    catalog.Loader
	orphans   OrphanFinder
	tx        repository.TxRunner
	rekeyers  RekeyerFactory
	checker   *dedup.Checker
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// Config wires the dependencies of a Reconciler.
type Config struct {
	Loader    catalog.Loader
	Orphans   OrphanFinder
	Tx        repository.TxRunner
	Rekeyers  RekeyerFactory
	Checker   *dedup.Checker
	Publisher events.Publisher
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

// New creates a new Reconciler. Missing optional dependencies get defaults.
func New(cfg Config) *Reconciler {
	r := &Reconciler{
		loader:    cfg.Loader,
		orphans:   cfg.Orphans,
		tx:        cfg.Tx,
		rekeyers:  cfg.Rekeyers,
		checker:   cfg.Checker,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "reconciler").Logger(),
		now:       time.Now,
	}
	if r.rekeyers == nil {
		r.rekeyers = PgRekeyers
	}
	if r.checker == nil {
		r.checker = dedup.NewChecker(dedup.DefaultCheckerConfig())
	}
	if r.publisher == nil {
		r.publisher = events.NopPublisher{}
	}
	return r
}

// Check loads the catalog and reports drifted ids, orphaned links and likely
// duplicate authors. It changes nothing.
func (r *Reconciler) Check(ctx context.Context) (*Report, error) {
	ds, err := r.loader.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	report := &Report{
		RunID:     uuid.New(),
		CheckedAt: r.now().UTC(),
		Authors:   authorDrift(ds.Authors),
		Journals:  journalDrift(ds.Journals),
	}

	if r.orphans != nil {
		links, err := r.orphans.OrphanAuthorLinks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list orphaned links: %w", err)
		}
		report.OrphanLinks = links
	}
	if report.OrphanLinks == nil {
		report.OrphanLinks = []*domain.ArticleAuthor{}
	}

	report.DuplicateAuthors = r.checker.Authors(ds.Authors)
	if report.DuplicateAuthors == nil {
		report.DuplicateAuthors = []dedup.AuthorPair{}
	}
	return report, nil
}

// Repair rekeys every drifted row in report, each in its own transaction.
// A failed row is counted and logged; the others still run. It returns
// ctx.Err() when cancelled between rows.
func (r *Reconciler) Repair(ctx context.Context, report *Report) error {
	logger := observability.WithReconcileContext(observability.FromContext(ctx, r.logger), report.RunID.String(), true)
	report.Applied = true

	repair := func(d Drift, fn func(Rekeyer) (bool, error)) {
		var merged bool
		err := r.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
			var err error
			merged, err = fn(r.rekeyers(tx))
			return err
		})
		entityLog := observability.WithEntityContext(logger, d.Entity, d.ID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %v", d.Entity, d.ID, err))
			entityLog.Error().Err(err).Str("expected_id", d.ExpectedID).Msg("rekey failed")
			return
		}
		report.Fixed++
		entityLog.Info().Str("expected_id", d.ExpectedID).Bool("merged", merged).Msg("rekeyed")
	}

	for _, d := range report.Authors {
		if err := ctx.Err(); err != nil {
			return err
		}
		repair(d, func(rk Rekeyer) (bool, error) { return rk.RekeyAuthor(ctx, d.ID, d.ExpectedID) })
	}
	for _, d := range report.Journals {
		if err := ctx.Err(); err != nil {
			return err
		}
		repair(d, func(rk Rekeyer) (bool, error) { return rk.RekeyJournal(ctx, d.ID, d.ExpectedID) })
	}
	return nil
}

// Run checks the catalog and, when apply is set, repairs what it found. The
// outcome is recorded in metrics and published as an event.
func (r *Reconciler) Run(ctx context.Context, apply bool) (*Report, error) {
	report, err := r.Check(ctx)
	if err != nil {
		return nil, err
	}
	logger := observability.WithReconcileContext(observability.FromContext(ctx, r.logger), report.RunID.String(), apply)

	mode := ModeCheck
	if apply && !report.Clean() {
		mode = ModeRepair
		if err := r.Repair(ctx, report); err != nil {
			return report, fmt.Errorf("repair interrupted: %w", err)
		}
	}

	r.metrics.RecordReconcile(mode, report.Issues(), report.Fixed, report.Failed)
	logger.Info().
		Int("author_drift", len(report.Authors)).
		Int("journal_drift", len(report.Journals)).
		Int("orphan_links", len(report.OrphanLinks)).
		Int("duplicate_authors", len(report.DuplicateAuthors)).
		Int("fixed", report.Fixed).
		Int("failed", report.Failed).
		Msg("reconcile run completed")

	events.PublishBestEffort(ctx, r.publisher, events.EmitParams{
		AggregateID:   report.RunID.String(),
		AggregateType: events.AggregateTypeCatalog,
		EventType:     domain.EventTypeReconcileCompleted,
		CorrelationID: observability.RequestIDFromContext(ctx),
		Payload: domain.ReconcileCompletedPayload{
			AuthorDrift:  len(report.Authors),
			JournalDrift: len(report.Journals),
			OrphanLinks:  len(report.OrphanLinks),
			Fixed:        report.Fixed,
			Failed:       report.Failed,
			Applied:      report.Applied,
		},
	}, logger)

	return report, nil
}

// authorDrift lists authors whose id is not AuthorID(full_name). Names that
// slug to nothing cannot be rekeyed and are left alone.
func authorDrift(authors []*domain.Author) []Drift {
	existing := make(map[string]bool, len(authors))
	for _, a := range authors {
		existing[a.ID] = true
	}
	out := []Drift{}
	for _, a := range authors {
		want := domain.AuthorID(a.FullName)
		if want == "" || want == a.ID {
			continue
		}
		out = append(out, Drift{Entity: domain.EntityAuthor, ID: a.ID, Name: a.FullName, ExpectedID: want, Merge: existing[want]})
	}
	return out
}

// journalDrift lists journals whose id is not JournalID(name).
func journalDrift(journals []*domain.Journal) []Drift {
	existing := make(map[string]bool, len(journals))
	for _, j := range journals {
		existing[j.ID] = true
	}
	out := []Drift{}
	for _, j := range journals {
		want := domain.JournalID(j.Name)
		if want == "" || want == j.ID {
			continue
		}
		out = append(out, Drift{Entity: domain.EntityJournal, ID: j.ID, Name: j.Name, ExpectedID: want, Merge: existing[want]})
	}
	return out
}
