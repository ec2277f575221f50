package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-catalog/internal/domain"
)

// NewPgArticleRepository creates the articles table repository.
// Articles are listed newest publication year first, undated last.
// Create is idempotent on the article id; date_added defaults to NOW().
func NewPgArticleRepository(db DBTX) *PgTable[domain.Article] {
	return newPgTable(db, tableSpec[domain.Article]{
		entity:       domain.EntityArticle,
		table:        "articles",
		columns:      []string{"id", "title", "publication_year", "doi", "url", "abstract", "journal_id", "discipline_id", "date_added"},
		key:          []string{"id"},
		insert:       []string{"id", "title", "publication_year", "doi", "url", "abstract", "journal_id", "discipline_id", "date_added"},
		update:       []string{"title", "publication_year", "doi", "url", "abstract", "journal_id", "discipline_id"},
		orderBy:      "publication_year DESC NULLS LAST, id",
		upsert:       true,
		placeholders: map[string]string{"date_added": "COALESCE(%s, NOW())"},
		scan: func(row pgx.Row) (*domain.Article, error) {
			var a domain.Article
			if err := row.Scan(&a.ID, &a.Title, &a.PublicationYear, &a.DOI, &a.URL, &a.Abstract,
				&a.JournalID, &a.DisciplineID, &a.DateAdded); err != nil {
				return nil, err
			}
			return &a, nil
		},
		insertArgs: func(a *domain.Article) []any {
			return []any{a.ID, a.Title, a.PublicationYear, a.DOI, a.URL, a.Abstract, a.JournalID, a.DisciplineID, a.DateAdded}
		},
		updateArgs: func(a *domain.Article) []any {
			return []any{a.Title, a.PublicationYear, a.DOI, a.URL, a.Abstract, a.JournalID, a.DisciplineID}
		},
		keyOf: func(a *domain.Article) Key { return ID(a.ID) },
	})
}

// NewPgDesignRepository creates the article_design table repository, keyed by article id.
func NewPgDesignRepository(db DBTX) *PgTable[domain.ArticleDesign] {
	return newPgTable(db, tableSpec[domain.ArticleDesign]{
		entity:  domain.EntityArticleDesign,
		table:   "article_design",
		columns: []string{"article_id", "primary_method", "data_type", "is_empirical", "replication_available", "legal_constraints"},
		key:     []string{"article_id"},
		insert:  []string{"article_id", "primary_method", "data_type", "is_empirical", "replication_available", "legal_constraints"},
		update:  []string{"primary_method", "data_type", "is_empirical", "replication_available", "legal_constraints"},
		orderBy: "article_id",
		upsert:  true,
		scan: func(row pgx.Row) (*domain.ArticleDesign, error) {
			var d domain.ArticleDesign
			if err := row.Scan(&d.ArticleID, &d.PrimaryMethod, &d.DataType, &d.IsEmpirical,
				&d.ReplicationAvailable, &d.LegalConstraints); err != nil {
				return nil, err
			}
			return &d, nil
		},
		insertArgs: func(d *domain.ArticleDesign) []any {
			return []any{d.ArticleID, d.PrimaryMethod, d.DataType, d.IsEmpirical, d.ReplicationAvailable, d.LegalConstraints}
		},
		updateArgs: func(d *domain.ArticleDesign) []any {
			return []any{d.PrimaryMethod, d.DataType, d.IsEmpirical, d.ReplicationAvailable, d.LegalConstraints}
		},
		keyOf: func(d *domain.ArticleDesign) Key { return ID(d.ArticleID) },
	})
}

// NewPgMetricsRepository creates the article_metrics table repository, keyed by article id.
func NewPgMetricsRepository(db DBTX) *PgTable[domain.ArticleMetrics] {
	return newPgTable(db, tableSpec[domain.ArticleMetrics]{
		entity:  domain.EntityArticleMetrics,
		table:   "article_metrics",
		columns: []string{"article_id", "citation_count", "citation_velocity", "altmetric_score"},
		key:     []string{"article_id"},
		insert:  []string{"article_id", "citation_count", "citation_velocity", "altmetric_score"},
		update:  []string{"citation_count", "citation_velocity", "altmetric_score"},
		orderBy: "article_id",
		upsert:  true,
		scan: func(row pgx.Row) (*domain.ArticleMetrics, error) {
			var m domain.ArticleMetrics
			if err := row.Scan(&m.ArticleID, &m.CitationCount, &m.CitationVelocity, &m.AltmetricScore); err != nil {
				return nil, err
			}
			return &m, nil
		},
		insertArgs: func(m *domain.ArticleMetrics) []any {
			return []any{m.ArticleID, m.CitationCount, m.CitationVelocity, m.AltmetricScore}
		},
		updateArgs: func(m *domain.ArticleMetrics) []any {
			return []any{m.CitationCount, m.CitationVelocity, m.AltmetricScore}
		},
		keyOf: func(m *domain.ArticleMetrics) Key { return ID(m.ArticleID) },
	})
}

// NewPgArticleAuthorRepository creates the article_authors link repository,
// keyed by (article_id, author_id). Re-linking an existing pair is a no-op.
func NewPgArticleAuthorRepository(db DBTX) *PgTable[domain.ArticleAuthor] {
	return newPgTable(db, tableSpec[domain.ArticleAuthor]{
		entity:  domain.EntityArticleAuthor,
		table:   "article_authors",
		columns: []string{"article_id", "author_id", "author_order"},
		key:     []string{"article_id", "author_id"},
		insert:  []string{"article_id", "author_id", "author_order"},
		orderBy: "article_id, author_order",
		upsert:  true,
		prepare: func(l *domain.ArticleAuthor) {
			if l.AuthorOrder == nil {
				l.AuthorOrder = domain.IntPtr(1)
			}
		},
		scan: func(row pgx.Row) (*domain.ArticleAuthor, error) {
			var l domain.ArticleAuthor
			if err := row.Scan(&l.ArticleID, &l.AuthorID, &l.AuthorOrder); err != nil {
				return nil, err
			}
			return &l, nil
		},
		insertArgs: func(l *domain.ArticleAuthor) []any { return []any{l.ArticleID, l.AuthorID, l.AuthorOrder} },
		keyOf:      func(l *domain.ArticleAuthor) Key { return Key{l.ArticleID, l.AuthorID} },
	})
}

// NewPgArticleFundingRepository creates the article_funding link repository,
// keyed by (article_id, agency_id).
func NewPgArticleFundingRepository(db DBTX) *PgTable[domain.ArticleFunding] {
	return newPgTable(db, tableSpec[domain.ArticleFunding]{
		entity:  domain.EntityArticleFunding,
		table:   "article_funding",
		columns: []string{"article_id", "agency_id", "grant_number"},
		key:     []string{"article_id", "agency_id"},
		insert:  []string{"article_id", "agency_id", "grant_number"},
		orderBy: "article_id, agency_id",
		scan: func(row pgx.Row) (*domain.ArticleFunding, error) {
			var f domain.ArticleFunding
			if err := row.Scan(&f.ArticleID, &f.AgencyID, &f.GrantNumber); err != nil {
				return nil, err
			}
			return &f, nil
		},
		insertArgs: func(f *domain.ArticleFunding) []any { return []any{f.ArticleID, f.AgencyID, f.GrantNumber} },
		keyOf:      func(f *domain.ArticleFunding) Key { return Key{f.ArticleID, f.AgencyID} },
	})
}

var statisticColumns = []string{
	"id", "article_id", "test_name", "location_in_text", "coeff_reported", "se_reported",
	"p_value_reported", "stars_reported", "is_just_significant", "distance_to_threshold", "z_score",
}

// Compile-time interface verification.
var _ Resource[domain.Statistic] = (*PgStatisticRepository)(nil)

// PgStatisticRepository stores reported statistics. Creating a placeholder
// for an article that already has statistics returns the first existing row.
type PgStatisticRepository struct {
	*PgTable[domain.Statistic]
	firstSQL string
}

// NewPgStatisticRepository creates the statistics table repository.
func NewPgStatisticRepository(db DBTX) *PgStatisticRepository {
	table := newPgTable(db, tableSpec[domain.Statistic]{
		entity:  domain.EntityStatistic,
		table:   "statistics",
		columns: statisticColumns,
		key:     []string{"id"},
		insert:  statisticColumns[1:],
		update:  statisticColumns[2:],
		orderBy: "id",
		scan:    scanStatistic,
		insertArgs: func(s *domain.Statistic) []any {
			return append([]any{s.ArticleID}, statisticValues(s)...)
		},
		updateArgs: statisticValues,
		keyOf:      func(s *domain.Statistic) Key { return ID(strconv.FormatInt(s.ID, 10)) },
		keyArgs: func(k Key) ([]any, error) {
			id, err := strconv.ParseInt(k[0], 10, 64)
			if err != nil {
				return nil, domain.NewValidationError("id", "must be an integer")
			}
			return []any{id}, nil
		},
	})

	return &PgStatisticRepository{
		PgTable:  table,
		firstSQL: "SELECT " + strings.Join(statisticColumns, ", ") + " FROM statistics WHERE article_id = $1 ORDER BY id LIMIT 1",
	}
}

// Create inserts s, unless s is a placeholder and the article already has statistics.
func (r *PgStatisticRepository) Create(ctx context.Context, s *domain.Statistic) (*domain.Statistic, bool, error) {
	if s != nil && s.IsPlaceholder() {
		existing, err := r.FirstForArticle(ctx, s.ArticleID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}
	return r.PgTable.Create(ctx, s)
}

// FirstForArticle returns the lowest-id statistic of an article.
func (r *PgStatisticRepository) FirstForArticle(ctx context.Context, articleID string) (*domain.Statistic, error) {
	if articleID == "" {
		return nil, domain.NewValidationError("article_id", "is required")
	}

	s, err := scanStatistic(r.db.QueryRow(ctx, r.firstSQL, articleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(domain.EntityStatistic, "article "+articleID)
		}
		return nil, translateError(domain.EntityStatistic, "get", err)
	}
	return s, nil
}

func statisticValues(s *domain.Statistic) []any {
	return []any{
		s.TestName, s.LocationInText, s.CoeffReported, s.SEReported, s.PValueReported,
		s.StarsReported, s.IsJustSignificant, s.DistanceToThreshold, s.ZScore,
	}
}

func scanStatistic(row pgx.Row) (*domain.Statistic, error) {
	var s domain.Statistic
	if err := row.Scan(&s.ID, &s.ArticleID, &s.TestName, &s.LocationInText, &s.CoeffReported,
		&s.SEReported, &s.PValueReported, &s.StarsReported, &s.IsJustSignificant,
		&s.DistanceToThreshold, &s.ZScore); err != nil {
		return nil, err
	}
	return &s, nil
}
