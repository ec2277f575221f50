package csvimport

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"

	"github.com/helixir/research-catalog/internal/domain"
)

// journalArticleType is the only item type imported, compared without case.
const journalArticleType = "journalarticle"

var (
	yearRegex      = regexp.MustCompile(`\d{4}`)
	authorSplitter = regexp.MustCompile(`[;\n]`)
	// abstractPolicy strips every tag; it is safe for concurrent use.
	abstractPolicy = bluemonday.StrictPolicy()
)

// KnownIDs holds the identifiers already present in the store.
type KnownIDs struct {
	Journals    map[string]bool
	Disciplines map[string]bool
	Authors     map[string]bool
}

// NewKnownIDs collects the journal, discipline and author ids of ds.
func NewKnownIDs(ds *domain.Dataset) KnownIDs {
	known := KnownIDs{
		Journals:    map[string]bool{},
		Disciplines: map[string]bool{},
		Authors:     map[string]bool{},
	}
	if ds == nil {
		return known
	}
	for _, j := range ds.Journals {
		known.Journals[j.ID] = true
	}
	for _, d := range ds.Disciplines {
		known.Disciplines[d.ID] = true
	}
	for _, a := range ds.Authors {
		known.Authors[a.ID] = true
	}
	return known
}

// Plan is the set of writes derived from one CSV file.
type Plan struct {
	Journals    []*domain.Journal
	Disciplines []*domain.Discipline
	Authors     []*domain.Author
	Articles    []*domain.Article
	Designs     []*domain.ArticleDesign
	Metrics     []*domain.ArticleMetrics
	Statistics  []*domain.Statistic
	Links       []*domain.ArticleAuthor

	// KnownJournals holds the journal ids that existed before the import.
	KnownJournals map[string]bool

	Rows    int
	Skipped int
	Log     []LogEntry
}

// composer accumulates a Plan row by row.
type composer struct {
	plan     *Plan
	known    KnownIDs
	cols     ColumnMap
	journals map[string]bool
	discs    map[string]bool
	authors  map[string]bool
	articles map[string]bool
	links    map[[2]string]bool
	loggedAt time.Time
}

// Compose turns parsed rows into a Plan. It performs no I/O.
//
// Rows without a key or whose item type is not a journal article are
// skipped. Journals, disciplines and authors unknown to the store are queued
// once per file. Every accepted row queues its article; design, metrics,
// statistic and author links are queued once per article id.
func Compose(table *Table, known KnownIDs) *Plan {
	plan := &Plan{KnownJournals: known.Journals}
	if table == nil {
		return plan
	}

	c := &composer{
		plan:     plan,
		known:    known,
		cols:     MapColumns(table.Header),
		journals: map[string]bool{},
		discs:    map[string]bool{},
		authors:  map[string]bool{},
		articles: map[string]bool{},
		links:    map[[2]string]bool{},
		loggedAt: time.Now(),
	}

	for _, row := range table.Rows {
		plan.Rows++
		c.addRow(row)
	}
	return plan
}

func (c *composer) addRow(row []string) {
	key := c.cols.Value(row, ColumnKey)
	itemType := c.cols.Value(row, ColumnItemType)

	if key == "" {
		c.plan.Skipped++
		c.log(LevelInfo, "Skipped row %d: missing key", c.plan.Rows)
		return
	}
	if !strings.EqualFold(itemType, journalArticleType) {
		c.plan.Skipped++
		c.log(LevelInfo, "Skipped %s: item type %q is not a journal article", key, itemType)
		return
	}

	journalID := c.journal(row)
	disciplineID := c.discipline(row)

	title := c.cols.Value(row, ColumnTitle)
	if title == "" {
		title = domain.UntitledArticle
	}

	article := &domain.Article{
		ID:              key,
		Title:           title,
		PublicationYear: parseYear(c.cols.Value(row, ColumnPublicationYear)),
		DOI:             domain.StringPtr(c.cols.Value(row, ColumnDOI)),
		URL:             domain.StringPtr(c.cols.Value(row, ColumnURL)),
		Abstract:        sanitizeAbstract(c.cols.Value(row, ColumnAbstract)),
		JournalID:       &journalID,
		DisciplineID:    &disciplineID,
		DateAdded:       parseDateAdded(c.cols.Value(row, ColumnDateAdded)),
	}
	c.plan.Articles = append(c.plan.Articles, article)

	if !c.articles[key] {
		c.articles[key] = true
		c.plan.Designs = append(c.plan.Designs, domain.NewDefaultDesign(key))
		c.plan.Metrics = append(c.plan.Metrics, domain.NewDefaultMetrics(key))
		c.plan.Statistics = append(c.plan.Statistics, domain.NewPlaceholderStatistic(key, nil))
	}

	for i, name := range SplitAuthors(c.cols.Value(row, ColumnAuthor)) {
		authorID := domain.AuthorID(name)
		if authorID == "" {
			continue
		}
		if !c.known.Authors[authorID] && !c.authors[authorID] {
			c.authors[authorID] = true
			c.plan.Authors = append(c.plan.Authors, &domain.Author{
				ID:       authorID,
				FullName: name,
				Gender:   domain.GenderUnknown,
			})
		}

		pair := [2]string{key, authorID}
		if c.links[pair] {
			continue
		}
		c.links[pair] = true
		c.plan.Links = append(c.plan.Links, &domain.ArticleAuthor{
			ArticleID:   key,
			AuthorID:    authorID,
			AuthorOrder: domain.IntPtr(i + 1),
		})
	}
}

// journal returns the row's journal id and queues the journal when it is new.
// Rows without a publication title point at the unknown journal, which is
// never created here.
func (c *composer) journal(row []string) string {
	name := c.cols.Value(row, ColumnPublicationTitle)
	if name == "" {
		return domain.JournalID(domain.UnknownJournalName)
	}

	id := domain.JournalID(name)
	if id == "" || c.known.Journals[id] || c.journals[id] {
		return id
	}
	c.journals[id] = true
	c.plan.Journals = append(c.plan.Journals, &domain.Journal{
		ID:   id,
		Name: name,
		ISSN: domain.StringPtr(c.cols.Value(row, ColumnISSN)),
	})
	return id
}

// discipline returns the row's discipline id and queues the discipline when it is new.
func (c *composer) discipline(row []string) string {
	name := c.cols.Value(row, ColumnDiscipline)
	if name == "" {
		name = domain.DefaultDisciplineName
	}

	id := domain.Slugify(name)
	if id == "" {
		id = domain.DefaultDisciplineName
	}
	if c.known.Disciplines[id] || c.discs[id] {
		return id
	}
	c.discs[id] = true
	c.plan.Disciplines = append(c.plan.Disciplines, &domain.Discipline{
		ID:          id,
		Name:        name,
		ParentField: domain.StringPtr(domain.GeneratedParentField),
	})
	return id
}

func (c *composer) log(level Level, format string, args ...any) {
	c.plan.Log = append(c.plan.Log, LogEntry{
		Time:    c.loggedAt,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// SplitAuthors splits an author cell on semicolons and newlines, trimming
// names and dropping empty ones.
func SplitAuthors(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := authorSplitter.Split(cell, -1)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func parseYear(s string) *int {
	match := yearRegex.FindString(s)
	if match == "" {
		return nil
	}
	year := 0
	for _, r := range match {
		year = year*10 + int(r-'0')
	}
	return &year
}

func parseDateAdded(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return &t
}

func sanitizeAbstract(s string) *string {
	if s == "" {
		return nil
	}
	return domain.StringPtr(html.UnescapeString(abstractPolicy.Sanitize(s)))
}
