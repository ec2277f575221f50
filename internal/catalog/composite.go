package catalog

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/helixir/research-catalog/internal/domain"
)

// unknownJournalDisplay names the journal of articles without one.
const unknownJournalDisplay = "Unknown"

// AuthorDetail is an author of a composite article, joined with the name of
// the author's current institution.
type AuthorDetail struct {
	domain.Author
	InstitutionName *string `json:"institution_name"`
	Experience      int     `json:"experience"`
	AuthorOrder     int     `json:"author_order"`
}

// CompositeArticle is an article together with its related records.
type CompositeArticle struct {
	domain.Article
	JournalDetails *domain.Journal        `json:"journal_details"`
	DesignDetails  *domain.ArticleDesign  `json:"design_details"`
	MetricsDetails *domain.ArticleMetrics `json:"metrics_details"`
	AuthorsList    []AuthorDetail         `json:"authors_list"`
	StatsList      []*domain.Statistic    `json:"stats_list"`
	DisciplineName string                 `json:"discipline_name"`
	MaxZScore      string                 `json:"max_z_score"`
}

// JournalName returns the journal name, or "Unknown" without a journal.
func (c *CompositeArticle) JournalName() string {
	if c.JournalDetails == nil {
		return unknownJournalDisplay
	}
	return c.JournalDetails.Name
}

// AuthorSummary aggregates the authors of one article.
type AuthorSummary struct {
	Total         int     `json:"total_authors"`
	Solo          bool    `json:"is_solo"`
	FemaleShare   int     `json:"female_share"`
	AvgExperience float64 `json:"avg_experience"`
}

// Summary aggregates the article's author list.
func (c *CompositeArticle) Summary() AuthorSummary {
	total := len(c.AuthorsList)
	if total == 0 {
		return AuthorSummary{}
	}

	female, exp := 0, 0
	for _, a := range c.AuthorsList {
		if a.Gender == domain.GenderFemale {
			female++
		}
		exp += a.Experience
	}
	return AuthorSummary{
		Total:         total,
		Solo:          total == 1,
		FemaleShare:   percent(female, total),
		AvgExperience: roundTenth(float64(exp) / float64(total)),
	}
}

// Composite assembles the related records of article.
//
// Author links are ordered by author_order (missing orders sort as zero,
// ties keep insertion order) and links to unknown authors are dropped. The
// discipline name falls back to the raw discipline id, then "Unknown".
// MaxZScore is the largest absolute z-score with two decimals.
func (s *Snapshot) Composite(article *domain.Article) *CompositeArticle {
	if article == nil {
		return nil
	}

	c := &CompositeArticle{
		Article:        *article,
		DesignDetails:  s.designs[article.ID],
		MetricsDetails: s.metrics[article.ID],
		StatsList:      s.statsByArticle[article.ID],
		AuthorsList:    []AuthorDetail{},
	}
	if article.JournalID != nil {
		c.JournalDetails = s.journals[*article.JournalID]
	}
	if c.StatsList == nil {
		c.StatsList = []*domain.Statistic{}
	}

	links := slices.Clone(s.linksByArticle[article.ID])
	slices.SortStableFunc(links, func(a, b *domain.ArticleAuthor) int {
		return a.Order() - b.Order()
	})
	for _, l := range links {
		author, ok := s.authors[l.AuthorID]
		if !ok {
			continue
		}
		detail := AuthorDetail{
			Author:      *author,
			Experience:  author.Experience(s.now),
			AuthorOrder: l.Order(),
		}
		if author.CurrentInstitutionID != nil {
			if inst, ok := s.institutions[*author.CurrentInstitutionID]; ok {
				detail.InstitutionName = &inst.Name
			}
		}
		c.AuthorsList = append(c.AuthorsList, detail)
	}

	switch name := s.DisciplineName(article.DisciplineID); {
	case name != "":
		c.DisciplineName = name
	case domain.Deref(article.DisciplineID) != "":
		c.DisciplineName = *article.DisciplineID
	default:
		c.DisciplineName = domain.UnknownDisciplineDisplay
	}

	maxZ := 0.0
	for _, st := range c.StatsList {
		if st.ZScore != nil {
			maxZ = math.Max(maxZ, math.Abs(*st.ZScore))
		}
	}
	c.MaxZScore = fmt.Sprintf("%.2f", maxZ)

	return c
}

// CompositeByID assembles the article with id.
func (s *Snapshot) CompositeByID(id string) (*CompositeArticle, bool) {
	a, ok := s.articles[id]
	if !ok {
		return nil, false
	}
	return s.Composite(a), true
}

// Filter narrows the composite article list. Zero fields match everything.
type Filter struct {
	// Query matches title, DOI or any author name, case-insensitively.
	Query        string
	Year         int
	DisciplineID string
	Method       string
}

func (f Filter) match(c *CompositeArticle) bool {
	if f.Year != 0 && (c.PublicationYear == nil || *c.PublicationYear != f.Year) {
		return false
	}
	if f.DisciplineID != "" && domain.Deref(c.DisciplineID) != f.DisciplineID {
		return false
	}
	if f.Method != "" && (c.DesignDetails == nil || domain.Deref(c.DesignDetails.PrimaryMethod) != f.Method) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(domain.Deref(c.DOI)), q) {
			return true
		}
		for _, a := range c.AuthorsList {
			if strings.Contains(strings.ToLower(a.FullName), q) {
				return true
			}
		}
		return false
	}
	return true
}

// Composites assembles every article matching f, in article list order.
func (s *Snapshot) Composites(f Filter) []*CompositeArticle {
	out := make([]*CompositeArticle, 0, len(s.ds.Articles))
	for _, a := range s.ds.Articles {
		c := s.Composite(a)
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// percent returns part/total as a whole percentage, rounding halves up.
func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return roundHalfUp(float64(part) * 100 / float64(total))
}

// roundHalfUp rounds to the nearest integer, with halves rounding toward
// positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
