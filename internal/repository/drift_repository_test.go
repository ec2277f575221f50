package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/internal/domain"
)

func TestPgDriftRepository_RekeyAuthor(t *testing.T) {
	t.Run("renames when target is free", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgDriftRepository(mock)

		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM authors WHERE id = \$1\)`).
			WithArgs("jane-doe").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO authors`).
			WithArgs("jane-doe", "jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO article_authors`).
			WithArgs("jane-doe", "jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("INSERT", 3))
		mock.ExpectExec(`DELETE FROM article_authors WHERE author_id = \$1`).
			WithArgs("jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectExec(`DELETE FROM authors WHERE id = \$1`).
			WithArgs("jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		merged, err := repo.RekeyAuthor(context.Background(), "jane-doe-a17", "jane-doe")
		require.NoError(t, err)
		assert.False(t, merged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("merges into existing target", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgDriftRepository(mock)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("jane-doe").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(`INSERT INTO article_authors`).
			WithArgs("jane-doe", "jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`DELETE FROM article_authors`).
			WithArgs("jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectExec(`DELETE FROM authors`).
			WithArgs("jane-doe-a17").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		merged, err := repo.RekeyAuthor(context.Background(), "jane-doe-a17", "jane-doe")
		require.NoError(t, err)
		assert.True(t, merged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when source is missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgDriftRepository(mock)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("jane-doe").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO authors`).
			WithArgs("jane-doe", "gone").
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		_, err = repo.RekeyAuthor(context.Background(), "gone", "jane-doe")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("rejects identical ids", func(t *testing.T) {
		repo := NewPgDriftRepository(nil)
		_, err := repo.RekeyAuthor(context.Background(), "jane-doe", "jane-doe")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgDriftRepository_RekeyJournal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgDriftRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM journals`).
		WithArgs("nature").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO journals`).
		WithArgs("nature", "Nature ").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE articles SET journal_id = \$1 WHERE journal_id = \$2`).
		WithArgs("nature", "Nature ").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec(`DELETE FROM journals WHERE id = \$1`).
		WithArgs("Nature ").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	merged, err := repo.RekeyJournal(context.Background(), "Nature ", "nature")
	require.NoError(t, err)
	assert.False(t, merged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDriftRepository_OrphanAuthorLinks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgDriftRepository(mock)

	mock.ExpectQuery(`LEFT JOIN authors`).
		WillReturnRows(pgxmock.NewRows(linkColumns).
			AddRow("A1", "ghost", domain.IntPtr(2)))

	links, err := repo.OrphanAuthorLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "ghost", links[0].AuthorID)
	assert.Equal(t, 2, links[0].Order())
	assert.NoError(t, mock.ExpectationsWereMet())
}
