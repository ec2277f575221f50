package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/internal/domain"
)

var journalColumns = []string{"id", "name", "issn", "impact_factor", "policy_year_data", "policy_year_open_access"}

// anyArgs matches n query arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestNewPgTable_SQL(t *testing.T) {
	t.Run("journals upsert on id", func(t *testing.T) {
		repo := NewPgJournalRepository(nil)
		assert.Equal(t, "SELECT id, name, issn, impact_factor, policy_year_data, policy_year_open_access FROM journals ORDER BY name", repo.listSQL)
		assert.Equal(t, "SELECT id, name, issn, impact_factor, policy_year_data, policy_year_open_access FROM journals WHERE id = $1", repo.getSQL)
		assert.Contains(t, repo.insertSQL, "VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING RETURNING")
		assert.Equal(t, "UPDATE journals SET name = $1, issn = $2, impact_factor = $3, policy_year_data = $4, policy_year_open_access = $5 WHERE id = $6 RETURNING id, name, issn, impact_factor, policy_year_data, policy_year_open_access", repo.updateSQL)
		assert.Equal(t, "DELETE FROM journals WHERE id = $1", repo.deleteSQL)
	})

	t.Run("articles default date_added", func(t *testing.T) {
		repo := NewPgArticleRepository(nil)
		assert.Contains(t, repo.insertSQL, "COALESCE($9, NOW())")
		assert.Contains(t, repo.listSQL, "ORDER BY publication_year DESC NULLS LAST")
	})

	t.Run("link tables have composite keys and no update", func(t *testing.T) {
		repo := NewPgArticleAuthorRepository(nil)
		assert.Equal(t, "DELETE FROM article_authors WHERE article_id = $1 AND author_id = $2", repo.deleteSQL)
		assert.Contains(t, repo.insertSQL, "ON CONFLICT (article_id, author_id) DO NOTHING")
		assert.Empty(t, repo.updateSQL)
	})

	t.Run("plain tables do not upsert", func(t *testing.T) {
		repo := NewPgDisciplineRepository(nil)
		assert.NotContains(t, repo.insertSQL, "ON CONFLICT")
	})
}

func TestPgTable_List(t *testing.T) {
	t.Run("returns rows in order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)
		ctx := context.Background()

		mock.ExpectQuery(`SELECT .* FROM journals ORDER BY name`).
			WillReturnRows(pgxmock.NewRows(journalColumns).
				AddRow("american-economic-review", "American Economic Review", domain.StringPtr("0002-8282"), nil, nil, nil).
				AddRow("nature", "Nature", nil, nil, nil, nil))

		journals, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, journals, 2)
		assert.Equal(t, "american-economic-review", journals[0].ID)
		assert.Equal(t, "0002-8282", *journals[0].ISSN)
		assert.Nil(t, journals[1].ISSN)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice for empty table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`SELECT .* FROM journals`).
			WillReturnRows(pgxmock.NewRows(journalColumns))

		journals, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, journals)
		assert.Empty(t, journals)
	})

	t.Run("wraps query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`SELECT .* FROM journals`).
			WillReturnError(errors.New("connection refused"))

		_, err = repo.List(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list journal")
	})
}

func TestPgTable_Get(t *testing.T) {
	t.Run("returns row when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`SELECT .* FROM journals WHERE id = \$1`).
			WithArgs("nature").
			WillReturnRows(pgxmock.NewRows(journalColumns).AddRow("nature", "Nature", nil, nil, nil, nil))

		journal, err := repo.Get(context.Background(), ID("nature"))
		require.NoError(t, err)
		assert.Equal(t, "Nature", journal.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`SELECT .* FROM journals WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.Get(context.Background(), ID("missing"))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("rejects blank key", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		_, err = repo.Get(context.Background(), ID("  "))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects wrong key arity", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleAuthorRepository(mock)

		_, err = repo.Get(context.Background(), ID("A1"))
		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Contains(t, validationErr.Message, "expected 2 key parts")
	})
}

func TestPgTable_Create(t *testing.T) {
	t.Run("inserts new row and derives id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`INSERT INTO journals`).
			WithArgs("the-quarterly-journal-of-econo", "The Quarterly Journal of Economics", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(journalColumns).
				AddRow("the-quarterly-journal-of-econo", "The Quarterly Journal of Economics", nil, nil, nil, nil))

		journal, created, err := repo.Create(context.Background(), &domain.Journal{Name: "The Quarterly Journal of Economics"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "the-quarterly-journal-of-econo", journal.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns existing row on conflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`INSERT INTO journals`).
			WithArgs("nature", "Nature", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(journalColumns))
		mock.ExpectQuery(`SELECT .* FROM journals WHERE id = \$1`).
			WithArgs("nature").
			WillReturnRows(pgxmock.NewRows(journalColumns).
				AddRow("nature", "Nature", domain.StringPtr("0028-0836"), nil, nil, nil))

		journal, created, err := repo.Create(context.Background(), &domain.Journal{ID: "nature", Name: "Nature"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "0028-0836", *journal.ISSN)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plain table surfaces unique violation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFundingAgencyRepository(mock)

		mock.ExpectQuery(`INSERT INTO funding_agencies`).
			WithArgs("nsf", "NSF", false).
			WillReturnError(&pgconn.PgError{
				Code:           "23505",
				ConstraintName: "funding_agencies_pkey",
				Message:        `duplicate key value violates unique constraint "funding_agencies_pkey"`,
			})

		_, _, err = repo.Create(context.Background(), &domain.FundingAgency{ID: "nsf", Name: "NSF"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConstraint))
		var constraintErr *domain.ConstraintError
		require.True(t, errors.As(err, &constraintErr))
		assert.Equal(t, domain.ConstraintUnique, constraintErr.Kind)
		assert.Equal(t, "funding_agencies_pkey", constraintErr.Constraint)
	})

	t.Run("discipline gets default parent field", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgDisciplineRepository(mock)

		mock.ExpectQuery(`INSERT INTO disciplines`).
			WithArgs("political-science", "Political Science", domain.StringPtr(domain.DefaultParentField)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "parent_field"}).
				AddRow("political-science", "Political Science", domain.StringPtr(domain.DefaultParentField)))

		d, created, err := repo.Create(context.Background(), &domain.Discipline{Name: "Political Science"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, domain.DefaultParentField, *d.ParentField)
	})

	t.Run("author gender normalized", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgAuthorRepository(mock)

		mock.ExpectQuery(`INSERT INTO authors`).
			WithArgs("dr-jane-o-connor", "Dr. Jane O'Connor", "U", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "gender", "phd_year", "current_institution_id"}).
				AddRow("dr-jane-o-connor", "Dr. Jane O'Connor", "U", nil, nil))

		a, _, err := repo.Create(context.Background(), &domain.Author{FullName: "Dr. Jane O'Connor", Gender: "x"})
		require.NoError(t, err)
		assert.Equal(t, domain.GenderUnknown, a.Gender)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects nil body", func(t *testing.T) {
		repo := NewPgJournalRepository(nil)
		_, _, err := repo.Create(context.Background(), nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgTable_Update(t *testing.T) {
	t.Run("updates non-key columns", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)
		impact := 42.5

		mock.ExpectQuery(`UPDATE journals SET`).
			WithArgs("Nature", pgxmock.AnyArg(), &impact, pgxmock.AnyArg(), pgxmock.AnyArg(), "nature").
			WillReturnRows(pgxmock.NewRows(journalColumns).AddRow("nature", "Nature", nil, &impact, nil, nil))

		j, err := repo.Update(context.Background(), ID("nature"), &domain.Journal{Name: "Nature", ImpactFactor: &impact})
		require.NoError(t, err)
		assert.InDelta(t, 42.5, *j.ImpactFactor, 0.001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)

		mock.ExpectQuery(`UPDATE journals SET`).
			WithArgs(append(anyArgs(5), "missing")...).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.Update(context.Background(), ID("missing"), &domain.Journal{Name: "Missing"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("link tables cannot be updated", func(t *testing.T) {
		repo := NewPgArticleFundingRepository(nil)
		_, err := repo.Update(context.Background(), Key{"A1", "nsf"}, &domain.ArticleFunding{})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgTable_Delete(t *testing.T) {
	t.Run("deletes row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleAuthorRepository(mock)

		mock.ExpectExec(`DELETE FROM article_authors WHERE article_id = \$1 AND author_id = \$2`).
			WithArgs("A1", "alice-smith").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err = repo.Delete(context.Background(), Key{"A1", "alice-smith"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when nothing deleted", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgInstitutionRepository(mock)

		mock.ExpectExec(`DELETE FROM institutions`).
			WithArgs("mit").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err = repo.Delete(context.Background(), ID("mit"))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("foreign key violation keeps driver message", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgJournalRepository(mock)
		msg := `update or delete on table "journals" violates foreign key constraint "articles_journal_id_fkey" on table "articles"`

		mock.ExpectExec(`DELETE FROM journals`).
			WithArgs("nature").
			WillReturnError(&pgconn.PgError{Code: "23503", Message: msg})

		err = repo.Delete(context.Background(), ID("nature"))
		require.Error(t, err)
		assert.Equal(t, msg, err.Error())
	})
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "A1/alice-smith", Key{"A1", "alice-smith"}.String())
	assert.Equal(t, "nature", ID("nature").String())
}
