//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/internal/catalog"
	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/reconcile"
	"github.com/helixir/research-catalog/internal/repository"
)

func TestStore_CreateIsIdempotent(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	store := repository.NewStore(testDB)

	impact := 49.96
	journal, created, err := store.Journals.Create(ctx, &domain.Journal{ID: "nature", Name: "Nature", ImpactFactor: &impact})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, journal.ImpactFactor)
	assert.InDelta(t, 49.96, *journal.ImpactFactor, 1e-9)

	again, created, err := store.Journals.Create(ctx, &domain.Journal{ID: "nature", Name: "Renamed"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Nature", again.Name, "an existing row is returned unchanged")

	author, created, err := store.Authors.Create(ctx, &domain.Author{FullName: "Smith John"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "smith-john", author.ID)
	assert.Equal(t, domain.GenderUnknown, author.Gender)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	store := repository.NewStore(testDB)

	_, _, err := store.Articles.Create(ctx, &domain.Article{ID: "A1", Title: "Minimum wages"})
	require.NoError(t, err)

	updated, err := store.Articles.Update(ctx, repository.ID("A1"), &domain.Article{Title: "Minimum wages revisited", PublicationYear: domain.IntPtr(2021)})
	require.NoError(t, err)
	assert.Equal(t, "Minimum wages revisited", updated.Title)
	require.NotNil(t, updated.PublicationYear)
	assert.Equal(t, 2021, *updated.PublicationYear)

	got, err := store.Articles.Get(ctx, repository.ID("A1"))
	require.NoError(t, err)
	assert.Equal(t, updated.Title, got.Title)

	require.NoError(t, store.Articles.Delete(ctx, repository.ID("A1")))

	_, err = store.Articles.Get(ctx, repository.ID("A1"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = store.Articles.Delete(ctx, repository.ID("A1"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_ForeignKeyViolation(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	store := repository.NewStore(testDB)

	_, _, err := store.Articles.Create(ctx, &domain.Article{ID: "A1", Title: "T", JournalID: domain.StringPtr("missing")})
	require.Error(t, err)

	var constraint *domain.ConstraintError
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, domain.ConstraintForeignKey, constraint.Kind)
	assert.Contains(t, constraint.Hint(), "journal")
}

func TestArticleWriter_CreateWithDefaults(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	writer := repository.NewArticleWriter(testDB)

	draft := &domain.ArticleDraft{
		Article:     domain.Article{ID: "A1", Title: "Trade shocks"},
		JournalName: "Journal of Political Economy",
		Discipline:  "Economics",
		AuthorNames: []string{"Ann Lee", "Bo Chen"},
	}

	bundle, err := writer.CreateWithDefaults(ctx, draft)
	require.NoError(t, err)
	assert.True(t, bundle.ArticleCreated)
	assert.True(t, bundle.JournalCreated)
	assert.True(t, bundle.DisciplineCreated)
	assert.Equal(t, 2, bundle.AuthorsCreated)
	assert.True(t, bundle.Design.IsEmpirical)
	assert.True(t, bundle.Statistic.IsPlaceholder())
	require.Len(t, bundle.Links, 2)
	assert.Equal(t, 2, *bundle.Links[1].AuthorOrder)

	// A second call finds every row already present.
	bundle, err = writer.CreateWithDefaults(ctx, draft)
	require.NoError(t, err)
	assert.False(t, bundle.ArticleCreated)
	assert.False(t, bundle.JournalCreated)
	assert.Zero(t, bundle.AuthorsCreated)

	ds, err := repository.LoadConsistentDataset(ctx, testDB)
	require.NoError(t, err)
	assert.Len(t, ds.Articles, 1)
	assert.Len(t, ds.Journals, 1)
	assert.Len(t, ds.Authors, 2)
	assert.Len(t, ds.Designs, 1)
	assert.Len(t, ds.Metrics, 1)
	assert.Len(t, ds.Statistics, 1)
	assert.Len(t, ds.ArticleAuthors, 2)
}

func TestArticleWriter_RollsBackOnFailure(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	writer := repository.NewArticleWriter(testDB)

	// The journal is written before the article insert fails on its discipline.
	_, err := writer.CreateWithDefaults(ctx, &domain.ArticleDraft{
		Article:     domain.Article{ID: "A1", Title: "T", DisciplineID: domain.StringPtr("missing")},
		JournalName: "Science",
	})
	var constraint *domain.ConstraintError
	require.True(t, errors.As(err, &constraint))

	ds, err := repository.LoadConsistentDataset(ctx, testDB)
	require.NoError(t, err)
	assert.Empty(t, ds.Articles)
	assert.Empty(t, ds.Journals)
}

func TestDriftRepository_RekeyAuthor(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	store := repository.NewStore(testDB)

	_, _, err := store.Articles.Create(ctx, &domain.Article{ID: "A1", Title: "T"})
	require.NoError(t, err)
	_, _, err = store.Authors.Create(ctx, &domain.Author{ID: "jsmith", FullName: "J Smith", Gender: domain.GenderMale})
	require.NoError(t, err)
	_, _, err = store.ArticleAuthors.Create(ctx, &domain.ArticleAuthor{ArticleID: "A1", AuthorID: "jsmith", AuthorOrder: domain.IntPtr(1)})
	require.NoError(t, err)

	var merged bool
	err = testDB.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		merged, err = repository.NewPgDriftRepository(tx).RekeyAuthor(ctx, "jsmith", "j-smith")
		return err
	})
	require.NoError(t, err)
	assert.False(t, merged)

	_, err = store.Authors.Get(ctx, repository.ID("jsmith"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	moved, err := store.Authors.Get(ctx, repository.ID("j-smith"))
	require.NoError(t, err)
	assert.Equal(t, domain.GenderMale, moved.Gender)

	links, err := store.ArticleAuthors.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "j-smith", links[0].AuthorID)
}

func TestReconciler_ReportsDrift(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	store := repository.NewStore(testDB)

	_, _, err := store.Authors.Create(ctx, &domain.Author{ID: "jsmith", FullName: "J Smith"})
	require.NoError(t, err)
	_, _, err = store.Journals.Create(ctx, &domain.Journal{ID: "nature", Name: "Nature"})
	require.NoError(t, err)

	r := reconcile.New(reconcile.Config{
		Loader:  repository.ConsistentLoader{Runner: testDB},
		Orphans: repository.NewPgDriftRepository(testDB),
		Tx:      testDB,
	})

	report, err := reconcile.Exclusive(r, testDB).Run(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Authors, 1)
	assert.Equal(t, "j-smith", report.Authors[0].ExpectedID)
	assert.Empty(t, report.Journals)
	assert.False(t, report.Applied)
}

func TestLoadConsistentDataset_FeedsComposites(t *testing.T) {
	cleanCatalog(t)
	ctx := context.Background()
	writer := repository.NewArticleWriter(testDB)

	_, err := writer.CreateWithDefaults(ctx, &domain.ArticleDraft{
		Article:     domain.Article{ID: "A1", Title: "Minimum wages", PublicationYear: domain.IntPtr(2021)},
		JournalName: "Nature",
		AuthorNames: []string{"John Smith"},
	})
	require.NoError(t, err)

	ds, err := repository.LoadConsistentDataset(ctx, testDB)
	require.NoError(t, err)

	snapshot := catalog.NewSnapshot(ds, time.Now())
	composite, ok := snapshot.CompositeByID("A1")
	require.True(t, ok)
	require.NotNil(t, composite.JournalDetails)
	assert.Equal(t, "Nature", composite.JournalDetails.Name)
	require.Len(t, composite.AuthorsList, 1)
	assert.Equal(t, "john-smith", composite.AuthorsList[0].ID)
	assert.Equal(t, 1, composite.AuthorsList[0].AuthorOrder)
	assert.Equal(t, "0.00", composite.MaxZScore)

	summary := snapshot.Dashboard(time.Now())
	assert.Equal(t, 1, summary.TotalArticles)
}
