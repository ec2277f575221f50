// Package catalog derives read models from a full copy of the catalog.
//
// A Snapshot is built once from a domain.Dataset and never mutated; every
// view (composite articles, dashboard, CSV export) is a pure function of it.
// Callers replace the snapshot wholesale after writes instead of patching it.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/helixir/research-catalog/internal/domain"
)

// Loader reads the full catalog in one round trip.
type Loader interface {
	LoadDataset(ctx context.Context) (*domain.Dataset, error)
}

// Snapshot is an immutable, indexed view of a Dataset taken at a point in time.
type Snapshot struct {
	ds  *domain.Dataset
	now time.Time

	articles       map[string]*domain.Article
	journals       map[string]*domain.Journal
	disciplines    map[string]*domain.Discipline
	institutions   map[string]*domain.Institution
	authors        map[string]*domain.Author
	designs        map[string]*domain.ArticleDesign
	metrics        map[string]*domain.ArticleMetrics
	statsByArticle map[string][]*domain.Statistic
	linksByArticle map[string][]*domain.ArticleAuthor
	activeAuthors  map[string]bool
}

// Load reads the catalog through loader and indexes it.
func Load(ctx context.Context, loader Loader, now time.Time) (*Snapshot, error) {
	ds, err := loader.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return NewSnapshot(ds, now), nil
}

// NewSnapshot indexes ds. The first row wins when a collection holds
// duplicate keys. now anchors author experience and the weekly trend.
func NewSnapshot(ds *domain.Dataset, now time.Time) *Snapshot {
	if ds == nil {
		ds = &domain.Dataset{}
	}

	s := &Snapshot{
		ds:             ds,
		now:            now,
		articles:       indexBy(ds.Articles, func(a *domain.Article) string { return a.ID }),
		journals:       indexBy(ds.Journals, func(j *domain.Journal) string { return j.ID }),
		disciplines:    indexBy(ds.Disciplines, func(d *domain.Discipline) string { return d.ID }),
		institutions:   indexBy(ds.Institutions, func(i *domain.Institution) string { return i.ID }),
		authors:        indexBy(ds.Authors, func(a *domain.Author) string { return a.ID }),
		designs:        indexBy(ds.Designs, func(d *domain.ArticleDesign) string { return d.ArticleID }),
		metrics:        indexBy(ds.Metrics, func(m *domain.ArticleMetrics) string { return m.ArticleID }),
		statsByArticle: map[string][]*domain.Statistic{},
		linksByArticle: map[string][]*domain.ArticleAuthor{},
		activeAuthors:  map[string]bool{},
	}

	for _, st := range ds.Statistics {
		s.statsByArticle[st.ArticleID] = append(s.statsByArticle[st.ArticleID], st)
	}
	for _, l := range ds.ArticleAuthors {
		s.linksByArticle[l.ArticleID] = append(s.linksByArticle[l.ArticleID], l)
		s.activeAuthors[l.AuthorID] = true
	}
	return s
}

func indexBy[T any](rows []*T, key func(*T) string) map[string]*T {
	m := make(map[string]*T, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, ok := m[k]; !ok {
			m[k] = r
		}
	}
	return m
}

// Dataset returns the underlying collections. Callers must not modify them.
func (s *Snapshot) Dataset() *domain.Dataset {
	return s.ds
}

// Now returns the time the snapshot is anchored to.
func (s *Snapshot) Now() time.Time {
	return s.now
}

// Article returns the article with id.
func (s *Snapshot) Article(id string) (*domain.Article, bool) {
	a, ok := s.articles[id]
	return a, ok
}

// DisciplineName returns the name of the discipline with id, or "".
func (s *Snapshot) DisciplineName(id *string) string {
	if id == nil {
		return ""
	}
	if d, ok := s.disciplines[*id]; ok {
		return d.Name
	}
	return ""
}
