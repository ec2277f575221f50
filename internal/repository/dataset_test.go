package repository

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadDataset(t *testing.T) {
	t.Run("reads every table in one batch", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewStore(mock)

		batch := mock.ExpectBatch()
		batch.ExpectQuery(`FROM disciplines`).
			WillReturnRows(pgxmock.NewRows(disciplineCols).AddRow("economics", "Economics", nil))
		batch.ExpectQuery(`FROM institutions`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "country", "shanghai_rank", "is_private"}))
		batch.ExpectQuery(`FROM journals`).
			WillReturnRows(pgxmock.NewRows(journalColumns).AddRow("nature", "Nature", nil, nil, nil, nil))
		batch.ExpectQuery(`FROM funding_agencies`).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "is_corporate_conflict"}))
		batch.ExpectQuery(`FROM authors`).
			WillReturnRows(pgxmock.NewRows(authorColumns).
				AddRow("alice-smith", "Alice Smith", "F", nil, nil).
				AddRow("bob-lee", "Bob Lee", "M", nil, nil))
		batch.ExpectQuery(`FROM articles`).
			WillReturnRows(pgxmock.NewRows(articleColumns).
				AddRow("A1", "T1", nil, nil, nil, nil, nil, nil, nil))
		batch.ExpectQuery(`FROM article_design`).
			WillReturnRows(pgxmock.NewRows(designColumns))
		batch.ExpectQuery(`FROM article_metrics`).
			WillReturnRows(pgxmock.NewRows(metricsColumns))
		batch.ExpectQuery(`FROM statistics`).
			WillReturnRows(statisticRows())
		batch.ExpectQuery(`FROM article_authors`).
			WillReturnRows(pgxmock.NewRows(linkColumns))
		batch.ExpectQuery(`FROM article_funding`).
			WillReturnRows(pgxmock.NewRows([]string{"article_id", "agency_id", "grant_number"}))

		ds, err := store.LoadDataset(context.Background())
		require.NoError(t, err)
		assert.Len(t, ds.Disciplines, 1)
		assert.Len(t, ds.Journals, 1)
		assert.Len(t, ds.Authors, 2)
		assert.Len(t, ds.Articles, 1)
		assert.NotNil(t, ds.Statistics)
		assert.Empty(t, ds.ArticleFunding)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// expectDatasetBatch expects the full dataset batch, with every table empty
// except where failFirst makes the disciplines query fail.
func expectDatasetBatch(mock pgxmock.PgxPoolIface, failFirst bool) {
	batch := mock.ExpectBatch()
	disciplines := batch.ExpectQuery(`FROM disciplines`)
	if failFirst {
		disciplines.WillReturnError(assert.AnError)
	} else {
		disciplines.WillReturnRows(pgxmock.NewRows(disciplineCols))
	}
	batch.ExpectQuery(`FROM institutions`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "country", "shanghai_rank", "is_private"}))
	batch.ExpectQuery(`FROM journals`).WillReturnRows(pgxmock.NewRows(journalColumns))
	batch.ExpectQuery(`FROM funding_agencies`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "is_corporate_conflict"}))
	batch.ExpectQuery(`FROM authors`).WillReturnRows(pgxmock.NewRows(authorColumns))
	batch.ExpectQuery(`FROM articles`).WillReturnRows(pgxmock.NewRows(articleColumns))
	batch.ExpectQuery(`FROM article_design`).WillReturnRows(pgxmock.NewRows(designColumns))
	batch.ExpectQuery(`FROM article_metrics`).WillReturnRows(pgxmock.NewRows(metricsColumns))
	batch.ExpectQuery(`FROM statistics`).WillReturnRows(statisticRows())
	batch.ExpectQuery(`FROM article_authors`).WillReturnRows(pgxmock.NewRows(linkColumns))
	batch.ExpectQuery(`FROM article_funding`).
		WillReturnRows(pgxmock.NewRows([]string{"article_id", "agency_id", "grant_number"}))
}

func TestLoadConsistentDataset(t *testing.T) {
	t.Run("rolls back when a query fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		expectDatasetBatch(mock, true)
		mock.ExpectRollback()

		_, err = LoadConsistentDataset(context.Background(), mockTxRunner{pool: mock})
		require.Error(t, err)
	})
}

func TestConsistentLoader(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	expectDatasetBatch(mock, false)
	mock.ExpectCommit()

	ds, err := ConsistentLoader{Runner: mockTxRunner{pool: mock}}.LoadDataset(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Articles)
	assert.NotNil(t, ds.Disciplines)
	assert.NoError(t, mock.ExpectationsWereMet())
}
