// Package domain provides domain models and business logic for the research catalog.
package domain

import (
	"strings"
	"time"
)

// Gender is the recorded gender of an author.
// These values must match the check constraint on authors.gender.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = "U"
)

// ParseGender normalizes free text into a Gender, defaulting to GenderUnknown.
func ParseGender(s string) Gender {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return GenderMale
	case "F":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Entity names used in errors, logs and metrics labels.
const (
	EntityDiscipline     = "discipline"
	EntityInstitution    = "institution"
	EntityJournal        = "journal"
	EntityFundingAgency  = "funding_agency"
	EntityAuthor         = "author"
	EntityArticle        = "article"
	EntityArticleDesign  = "article_design"
	EntityArticleMetrics = "article_metrics"
	EntityStatistic      = "statistic"
	EntityArticleAuthor  = "article_author"
	EntityArticleFunding = "article_funding"
)

// Defaults applied when optional fields are omitted.
const (
	DefaultParentField       = "Social Sciences"
	GeneratedParentField     = "General"
	DefaultDisciplineName    = "economics"
	PlaceholderTestName      = "Pending Input"
	UnknownJournalName       = "Unknown Journal"
	UntitledArticle          = "Untitled"
	UnknownDisciplineDisplay = "Unknown"
)

// Discipline is an academic field an article belongs to.
type Discipline struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ParentField *string `json:"parent_field"`
}

// Institution is an author's affiliation.
type Institution struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Country      *string `json:"country"`
	ShanghaiRank *string `json:"shanghai_rank"`
	IsPrivate    bool    `json:"is_private"`
}

// Journal is a publication venue. Its ID is JournalID(Name) by convention.
type Journal struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	ISSN                 *string  `json:"issn"`
	ImpactFactor         *float64 `json:"impact_factor"`
	PolicyYearData       *int     `json:"policy_year_data"`
	PolicyYearOpenAccess *int     `json:"policy_year_open_access"`
}

// FundingAgency is a body that funds research.
type FundingAgency struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	IsCorporateConflict bool   `json:"is_corporate_conflict"`
}

// Author is a person credited on articles. Its ID is Slugify(FullName) by convention.
type Author struct {
	ID                   string  `json:"id"`
	FullName             string  `json:"full_name"`
	Gender               Gender  `json:"gender"`
	PhDYear              *int    `json:"phd_year"`
	CurrentInstitutionID *string `json:"current_institution_id"`
}

// Experience returns the years elapsed since the author's PhD as of now.
// It is zero when the PhD year is unknown or lies in the future.
func (a *Author) Experience(now time.Time) int {
	if a.PhDYear == nil {
		return 0
	}
	years := now.Year() - *a.PhDYear
	if years < 0 {
		return 0
	}
	return years
}

// Article is a catalogued research article keyed by an external identifier.
type Article struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	PublicationYear *int       `json:"publication_year"`
	DOI             *string    `json:"doi"`
	URL             *string    `json:"url"`
	Abstract        *string    `json:"abstract"`
	JournalID       *string    `json:"journal_id"`
	DisciplineID    *string    `json:"discipline_id"`
	DateAdded       *time.Time `json:"date_added"`
}

// ArticleDesign holds methodological metadata, one row per article.
type ArticleDesign struct {
	ArticleID            string  `json:"article_id"`
	PrimaryMethod        *string `json:"primary_method"`
	DataType             *string `json:"data_type"`
	IsEmpirical          bool    `json:"is_empirical"`
	ReplicationAvailable bool    `json:"replication_available"`
	LegalConstraints     bool    `json:"legal_constraints"`
}

// NewDefaultDesign returns the design row created alongside a new article.
func NewDefaultDesign(articleID string) *ArticleDesign {
	return &ArticleDesign{
		ArticleID:   articleID,
		IsEmpirical: true,
	}
}

// ArticleMetrics holds citation metrics, one row per article.
type ArticleMetrics struct {
	ArticleID        string  `json:"article_id"`
	CitationCount    int     `json:"citation_count"`
	CitationVelocity float64 `json:"citation_velocity"`
	AltmetricScore   float64 `json:"altmetric_score"`
}

// NewDefaultMetrics returns the zeroed metrics row created alongside a new article.
func NewDefaultMetrics(articleID string) *ArticleMetrics {
	return &ArticleMetrics{ArticleID: articleID}
}

// Statistic is a reported test statistic extracted from an article.
type Statistic struct {
	ID                  int64    `json:"id"`
	ArticleID           string   `json:"article_id"`
	TestName            *string  `json:"test_name"`
	LocationInText      *string  `json:"location_in_text"`
	CoeffReported       *float64 `json:"coeff_reported"`
	SEReported          *float64 `json:"se_reported"`
	PValueReported      *float64 `json:"p_value_reported"`
	StarsReported       *string  `json:"stars_reported"`
	IsJustSignificant   bool     `json:"is_just_significant"`
	DistanceToThreshold *float64 `json:"distance_to_threshold"`
	ZScore              *float64 `json:"z_score"`
}

// IsPlaceholder reports whether the statistic only reserves a slot for later entry.
func (s *Statistic) IsPlaceholder() bool {
	return s.TestName == nil || *s.TestName == PlaceholderTestName
}

// NewPlaceholderStatistic returns a statistic reserving a slot for manual entry.
// A nil testName produces the import form; the form path passes PlaceholderTestName.
func NewPlaceholderStatistic(articleID string, testName *string) *Statistic {
	return &Statistic{
		ArticleID: articleID,
		TestName:  testName,
	}
}

// ArticleAuthor links an author to an article with a 1-based rank.
type ArticleAuthor struct {
	ArticleID   string `json:"article_id"`
	AuthorID    string `json:"author_id"`
	AuthorOrder *int   `json:"author_order"`
}

// Order returns the author order, treating a missing value as zero.
func (l *ArticleAuthor) Order() int {
	if l.AuthorOrder == nil {
		return 0
	}
	return *l.AuthorOrder
}

// ArticleFunding links a funding agency to an article.
type ArticleFunding struct {
	ArticleID   string  `json:"article_id"`
	AgencyID    string  `json:"agency_id"`
	GrantNumber *string `json:"grant_number"`
}

// StringPtr returns a pointer to s, or nil when s is empty after trimming.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Deref returns the pointed-to string or an empty string.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
