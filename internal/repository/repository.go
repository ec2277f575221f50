// Package repository provides data access for the research catalog.
//
// # Overview
//
// Every catalog table is exposed through the generic Resource contract and
// implemented by PgTable, which derives its SQL from a small table
// description. Tables whose create is idempotent (journals, authors,
// articles, design, metrics, article-author links) insert with
// ON CONFLICT DO NOTHING and fall back to reading the existing row,
// reporting created=false.
//
// # Store
//
// Store bundles one repository per table over a single DBTX. Pass a pool for
// standalone statements or a pgx.Tx to run several writes atomically:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    store := repository.NewStore(tx)
//	    _, _, err := store.Articles.Create(ctx, article)
//	    return err
//	})
//
// # Error Handling
//
// All methods return domain errors:
//
//   - domain.ErrNotFound: the addressed row does not exist
//   - domain.ErrInvalidInput: missing body or malformed key
//   - domain.ErrConstraint: the store rejected the write; the error keeps
//     the raw driver message
//
// # Thread Safety
//
// Repositories hold no state beyond their DBTX and are safe for concurrent
// use when backed by a pool.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-catalog/internal/database"
	"github.com/helixir/research-catalog/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
type DBTX = database.DBTX

// TxRunner runs fn inside a transaction, committing when fn returns nil.
// *database.DB implements it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SnapshotRunner runs fn inside a read-only repeatable-read transaction.
// *database.DB implements it.
type SnapshotRunner interface {
	WithSnapshotTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Store groups the repositories of every catalog table over one DBTX.
type Store struct {
	db DBTX

	Disciplines     *PgTable[domain.Discipline]
	Institutions    *PgTable[domain.Institution]
	Journals        *PgTable[domain.Journal]
	FundingAgencies *PgTable[domain.FundingAgency]
	Authors         *PgTable[domain.Author]
	Articles        *PgTable[domain.Article]
	Designs         *PgTable[domain.ArticleDesign]
	Metrics         *PgTable[domain.ArticleMetrics]
	Statistics      *PgStatisticRepository
	ArticleAuthors  *PgTable[domain.ArticleAuthor]
	ArticleFunding  *PgTable[domain.ArticleFunding]
}

// NewStore creates a Store whose repositories all use db.
func NewStore(db DBTX) *Store {
	return &Store{
		db:              db,
		Disciplines:     NewPgDisciplineRepository(db),
		Institutions:    NewPgInstitutionRepository(db),
		Journals:        NewPgJournalRepository(db),
		FundingAgencies: NewPgFundingAgencyRepository(db),
		Authors:         NewPgAuthorRepository(db),
		Articles:        NewPgArticleRepository(db),
		Designs:         NewPgDesignRepository(db),
		Metrics:         NewPgMetricsRepository(db),
		Statistics:      NewPgStatisticRepository(db),
		ArticleAuthors:  NewPgArticleAuthorRepository(db),
		ArticleFunding:  NewPgArticleFundingRepository(db),
	}
}
