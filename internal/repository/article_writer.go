package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-catalog/internal/domain"
)

// ArticleWriter creates an article together with the rows every article is
// expected to have, in one transaction.
type ArticleWriter struct {
	tx TxRunner
}

// NewArticleWriter creates a new ArticleWriter.
func NewArticleWriter(tx TxRunner) *ArticleWriter {
	return &ArticleWriter{tx: tx}
}

// CreateWithDefaults creates the draft's article along with its design,
// metrics, a "Pending Input" statistic and its author links. A journal named
// by JournalName, a discipline and authors are created when they do not
// exist. Any failure rolls back every write.
//
// Creating an article id that already exists reuses the stored row and only
// fills in the missing dependents.
func (w *ArticleWriter) CreateWithDefaults(ctx context.Context, draft *domain.ArticleDraft) (*domain.ArticleBundle, error) {
	if draft == nil {
		return nil, domain.NewValidationError("article", "body is required")
	}
	if strings.TrimSpace(draft.Article.ID) == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(draft.Article.Title) == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	disciplineName, err := draft.DisciplineName()
	if err != nil {
		return nil, err
	}

	var bundle *domain.ArticleBundle
	err = w.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		bundle, err = createWithDefaults(ctx, NewStore(tx), draft, disciplineName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func createWithDefaults(ctx context.Context, store *Store, draft *domain.ArticleDraft, disciplineName string) (*domain.ArticleBundle, error) {
	bundle := &domain.ArticleBundle{}
	article := draft.Article

	if name := strings.TrimSpace(draft.JournalName); name != "" {
		journal, created, err := store.resolveJournal(ctx, name)
		if err != nil {
			return nil, err
		}
		bundle.Journal, bundle.JournalCreated = journal, created
		article.JournalID = &journal.ID
	}

	if disciplineName != "" {
		discipline, created, err := store.resolveDiscipline(ctx, disciplineName)
		if err != nil {
			return nil, err
		}
		bundle.Discipline, bundle.DisciplineCreated = discipline, created
		article.DisciplineID = &discipline.ID
	}

	var err error
	if bundle.Article, bundle.ArticleCreated, err = store.Articles.Create(ctx, &article); err != nil {
		return nil, err
	}
	articleID := bundle.Article.ID

	if bundle.Design, _, err = store.Designs.Create(ctx, domain.NewDefaultDesign(articleID)); err != nil {
		return nil, err
	}
	if bundle.Metrics, _, err = store.Metrics.Create(ctx, domain.NewDefaultMetrics(articleID)); err != nil {
		return nil, err
	}
	placeholder := domain.NewPlaceholderStatistic(articleID, domain.StringPtr(domain.PlaceholderTestName))
	if bundle.Statistic, _, err = store.Statistics.Create(ctx, placeholder); err != nil {
		return nil, err
	}

	for i, name := range draft.Authors() {
		author, created, err := store.Authors.Create(ctx, &domain.Author{FullName: name, Gender: domain.GenderUnknown})
		if err != nil {
			return nil, err
		}
		if created {
			bundle.AuthorsCreated++
		}
		link, _, err := store.ArticleAuthors.Create(ctx, &domain.ArticleAuthor{
			ArticleID:   articleID,
			AuthorID:    author.ID,
			AuthorOrder: domain.IntPtr(i + 1),
		})
		if err != nil {
			return nil, err
		}
		bundle.Authors = append(bundle.Authors, author)
		bundle.Links = append(bundle.Links, link)
	}

	return bundle, nil
}

// resolveJournal finds a journal by derived id or case-insensitive name,
// creating it when neither matches.
func (s *Store) resolveJournal(ctx context.Context, name string) (*domain.Journal, bool, error) {
	id := domain.JournalID(name)
	journal, err := s.Journals.findOne(ctx, "id = $1 OR lower(name) = lower($2)", id, name)
	if err == nil {
		return journal, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	return s.Journals.Create(ctx, &domain.Journal{ID: id, Name: name})
}

// resolveDiscipline finds a discipline by id or case-insensitive name,
// creating it under the generated parent field when neither matches.
func (s *Store) resolveDiscipline(ctx context.Context, name string) (*domain.Discipline, bool, error) {
	id := domain.Slugify(name)
	if id == "" {
		return nil, false, domain.NewValidationError("discipline", "must contain a letter or digit")
	}
	discipline, err := s.Disciplines.findOne(ctx, "id = $1 OR id = $2 OR lower(name) = lower($2)", id, name)
	if err == nil {
		return discipline, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	return s.Disciplines.Create(ctx, &domain.Discipline{
		ID:          id,
		Name:        name,
		ParentField: domain.StringPtr(domain.GeneratedParentField),
	})
}
