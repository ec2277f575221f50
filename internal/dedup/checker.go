package dedup

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/helixir/research-catalog/internal/domain"
)

// CheckerConfig holds the thresholds of the duplicate checker.
type CheckerConfig struct {
	// AuthorThreshold is the name similarity at or above which two authors
	// are reported as likely the same person (e.g. 0.9).
	AuthorThreshold float64

	// TitleThreshold is the normalized title similarity at or above which two
	// articles are duplicate candidates (e.g. 0.95).
	TitleThreshold float64

	// OverlapThreshold is the author overlap two title-similar articles must
	// reach to be reported (e.g. 0.5).
	OverlapThreshold float64
}

// DefaultCheckerConfig returns the thresholds used when none are configured.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		AuthorThreshold:  0.9,
		TitleThreshold:   0.95,
		OverlapThreshold: 0.5,
	}
}

// AuthorPair is two author rows that likely name the same person.
type AuthorPair struct {
	A     string  `json:"author_a"`
	B     string  `json:"author_b"`
	Score float64 `json:"score"`
}

// ArticlePair is two article rows that likely describe the same article.
type ArticlePair struct {
	A      string  `json:"article_a"`
	B      string  `json:"article_b"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Duplicate reasons.
const (
	ReasonSameDOI = "same_doi"
	ReasonTitle   = "similar_title"
)

// Checker finds likely duplicates in a catalog dataset.
type Checker struct {
	cfg CheckerConfig
}

// NewChecker creates a new Checker. Zero thresholds fall back to the defaults.
func NewChecker(cfg CheckerConfig) *Checker {
	def := DefaultCheckerConfig()
	if cfg.AuthorThreshold <= 0 {
		cfg.AuthorThreshold = def.AuthorThreshold
	}
	if cfg.TitleThreshold <= 0 {
		cfg.TitleThreshold = def.TitleThreshold
	}
	if cfg.OverlapThreshold <= 0 {
		cfg.OverlapThreshold = def.OverlapThreshold
	}
	return &Checker{cfg: cfg}
}

// Authors reports author pairs whose normalized names score at or above the
// author threshold, highest score first.
func (c *Checker) Authors(authors []*domain.Author) []AuthorPair {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = NormalizeName(a.FullName)
	}

	var pairs []AuthorPair
	for i := range authors {
		for j := i + 1; j < len(authors); j++ {
			score := NameSimilarity(names[i], names[j])
			if score >= c.cfg.AuthorThreshold {
				pairs = append(pairs, AuthorPair{A: authors[i].ID, B: authors[j].ID, Score: score})
			}
		}
	}
	slices.SortStableFunc(pairs, func(x, y AuthorPair) int { return cmp.Compare(y.Score, x.Score) })
	return pairs
}

// Articles reports article pairs that share a DOI, or whose titles are
// similar and whose author lists overlap.
func (c *Checker) Articles(ds *domain.Dataset) []ArticlePair {
	if ds == nil {
		return nil
	}

	authorNames := make(map[string]string, len(ds.Authors))
	for _, a := range ds.Authors {
		authorNames[a.ID] = a.FullName
	}
	byArticle := make(map[string][]string)
	for _, l := range ds.ArticleAuthors {
		if name, ok := authorNames[l.AuthorID]; ok {
			byArticle[l.ArticleID] = append(byArticle[l.ArticleID], name)
		}
	}

	titles := make([]string, len(ds.Articles))
	for i, a := range ds.Articles {
		titles[i] = normalizeTitle(a.Title)
	}

	var pairs []ArticlePair
	for i, a := range ds.Articles {
		for j := i + 1; j < len(ds.Articles); j++ {
			b := ds.Articles[j]
			if doi := strings.ToLower(domain.Deref(a.DOI)); doi != "" && doi == strings.ToLower(domain.Deref(b.DOI)) {
				pairs = append(pairs, ArticlePair{A: a.ID, B: b.ID, Score: 1, Reason: ReasonSameDOI})
				continue
			}
			score := TitleSimilarity(titles[i], titles[j])
			if score < c.cfg.TitleThreshold {
				continue
			}
			if AuthorOverlap(byArticle[a.ID], byArticle[b.ID]) < c.cfg.OverlapThreshold {
				continue
			}
			pairs = append(pairs, ArticlePair{A: a.ID, B: b.ID, Score: score, Reason: ReasonTitle})
		}
	}
	slices.SortStableFunc(pairs, func(x, y ArticlePair) int { return cmp.Compare(y.Score, x.Score) })
	return pairs
}

// TitleSimilarity returns 1 minus the edit distance of two normalized titles
// relative to the longer one. Empty titles never match.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// normalizeTitle lowercases s and reduces it to letters, digits and single spaces.
func normalizeTitle(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case !prevSpace:
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimRight(sb.String(), " ")
}
