package domain

import "strings"

// OtherDiscipline is the form value that selects CustomDiscipline.
const OtherDiscipline = "Other"

// ArticleDraft is a new article described by display names. Journal,
// discipline and authors that do not exist yet are created with it.
type ArticleDraft struct {
	Article Article `json:"article"`
	// JournalName, when set, resolves or creates the journal and overrides Article.JournalID.
	JournalName string `json:"journal_name"`
	// Discipline is a discipline id or name, or OtherDiscipline.
	Discipline       string   `json:"discipline"`
	CustomDiscipline string   `json:"custom_discipline"`
	AuthorNames      []string `json:"author_names"`
}

// DisciplineName returns the discipline name or id the draft refers to, if any.
func (d *ArticleDraft) DisciplineName() (string, error) {
	name := strings.TrimSpace(d.Discipline)
	if name != OtherDiscipline {
		return name, nil
	}
	custom := strings.TrimSpace(d.CustomDiscipline)
	if custom == "" {
		return "", NewValidationError("custom_discipline", "please specify the discipline")
	}
	return custom, nil
}

// Authors returns the trimmed, non-empty author names in order, without duplicate ids.
func (d *ArticleDraft) Authors() []string {
	seen := make(map[string]bool, len(d.AuthorNames))
	names := make([]string, 0, len(d.AuthorNames))
	for _, n := range d.AuthorNames {
		n = strings.TrimSpace(n)
		id := AuthorID(n)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		names = append(names, n)
	}
	return names
}

// ArticleBundle is the result of creating an article with its defaults.
type ArticleBundle struct {
	Article    *Article         `json:"article"`
	Journal    *Journal         `json:"journal,omitempty"`
	Discipline *Discipline      `json:"discipline,omitempty"`
	Design     *ArticleDesign   `json:"design"`
	Metrics    *ArticleMetrics  `json:"metrics"`
	Statistic  *Statistic       `json:"statistic"`
	Authors    []*Author        `json:"authors"`
	Links      []*ArticleAuthor `json:"links"`

	ArticleCreated    bool `json:"article_created"`
	JournalCreated    bool `json:"journal_created"`
	DisciplineCreated bool `json:"discipline_created"`
	AuthorsCreated    int  `json:"authors_created"`
}

// AuthorIDs returns the ids of the bundle's authors in link order.
func (b *ArticleBundle) AuthorIDs() []string {
	ids := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}
