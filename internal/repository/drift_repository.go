package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/research-catalog/internal/domain"
)

// PgDriftRepository moves author and journal rows to a new primary key.
// Run each rekey inside a transaction; the statements are not atomic on their own.
type PgDriftRepository struct {
	db DBTX
}

// NewPgDriftRepository creates a new PgDriftRepository.
func NewPgDriftRepository(db DBTX) *PgDriftRepository {
	return &PgDriftRepository{db: db}
}

// OrphanAuthorLinks returns article-author links whose author row is missing.
func (r *PgDriftRepository) OrphanAuthorLinks(ctx context.Context) ([]*domain.ArticleAuthor, error) {
	query := `
		SELECT aa.article_id, aa.author_id, aa.author_order
		FROM article_authors aa
		LEFT JOIN authors a ON a.id = aa.author_id
		WHERE a.id IS NULL
		ORDER BY aa.article_id, aa.author_order`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translateError(domain.EntityArticleAuthor, "list orphaned", err)
	}
	defer rows.Close()

	links := make([]*domain.ArticleAuthor, 0)
	for rows.Next() {
		var l domain.ArticleAuthor
		if err := rows.Scan(&l.ArticleID, &l.AuthorID, &l.AuthorOrder); err != nil {
			return nil, fmt.Errorf("failed to scan article author: %w", err)
		}
		links = append(links, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(domain.EntityArticleAuthor, "list orphaned", err)
	}
	return links, nil
}

// RekeyAuthor moves the author oldID to newID. When newID already exists the
// two are merged: links are re-pointed to newID, links that would duplicate an
// existing pair are dropped, and newID keeps its own attributes. Otherwise a
// copy of the row is inserted under newID first. The old row is deleted in
// both cases. It reports whether a merge happened.
func (r *PgDriftRepository) RekeyAuthor(ctx context.Context, oldID, newID string) (bool, error) {
	if err := validateRekey(oldID, newID); err != nil {
		return false, err
	}

	merged, err := r.exists(ctx, "authors", newID)
	if err != nil {
		return false, translateError(domain.EntityAuthor, "rekey", err)
	}

	if !merged {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO authors (id, full_name, gender, phd_year, current_institution_id)
			SELECT $1, full_name, gender, phd_year, current_institution_id FROM authors WHERE id = $2`,
			newID, oldID)
		if err != nil {
			return false, translateError(domain.EntityAuthor, "rekey", err)
		}
		if tag.RowsAffected() == 0 {
			return false, domain.NewNotFoundError(domain.EntityAuthor, oldID)
		}
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO article_authors (article_id, author_id, author_order)
		SELECT article_id, $1, author_order FROM article_authors WHERE author_id = $2
		ON CONFLICT (article_id, author_id) DO NOTHING`,
		newID, oldID); err != nil {
		return false, translateError(domain.EntityArticleAuthor, "rekey", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM article_authors WHERE author_id = $1`, oldID); err != nil {
		return false, translateError(domain.EntityArticleAuthor, "rekey", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM authors WHERE id = $1`, oldID)
	if err != nil {
		return false, translateError(domain.EntityAuthor, "rekey", err)
	}
	if tag.RowsAffected() == 0 {
		return false, domain.NewNotFoundError(domain.EntityAuthor, oldID)
	}
	return merged, nil
}

// RekeyJournal moves the journal oldID to newID, re-pointing its articles.
// An existing newID row is kept as is. It reports whether a merge happened.
func (r *PgDriftRepository) RekeyJournal(ctx context.Context, oldID, newID string) (bool, error) {
	if err := validateRekey(oldID, newID); err != nil {
		return false, err
	}

	merged, err := r.exists(ctx, "journals", newID)
	if err != nil {
		return false, translateError(domain.EntityJournal, "rekey", err)
	}

	if !merged {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO journals (id, name, issn, impact_factor, policy_year_data, policy_year_open_access)
			SELECT $1, name, issn, impact_factor, policy_year_data, policy_year_open_access FROM journals WHERE id = $2`,
			newID, oldID)
		if err != nil {
			return false, translateError(domain.EntityJournal, "rekey", err)
		}
		if tag.RowsAffected() == 0 {
			return false, domain.NewNotFoundError(domain.EntityJournal, oldID)
		}
	}

	if _, err := r.db.Exec(ctx, `UPDATE articles SET journal_id = $1 WHERE journal_id = $2`, newID, oldID); err != nil {
		return false, translateError(domain.EntityArticle, "rekey", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM journals WHERE id = $1`, oldID)
	if err != nil {
		return false, translateError(domain.EntityJournal, "rekey", err)
	}
	if tag.RowsAffected() == 0 {
		return false, domain.NewNotFoundError(domain.EntityJournal, oldID)
	}
	return merged, nil
}

func (r *PgDriftRepository) exists(ctx context.Context, table, id string) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&found)
	return found, err
}

func validateRekey(oldID, newID string) error {
	if strings.TrimSpace(oldID) == "" {
		return domain.NewValidationError("old_id", "is required")
	}
	if strings.TrimSpace(newID) == "" {
		return domain.NewValidationError("new_id", "is required")
	}
	if oldID == newID {
		return domain.NewValidationError("new_id", "must differ from old_id")
	}
	return nil
}
