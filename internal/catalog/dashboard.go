package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/helixir/research-catalog/internal/domain"
)

// MethodPalette colours the methodology slices in first-seen order.
var MethodPalette = []string{"#6366f1", "#3b82f6", "#0ea5e9", "#06b6d4", "#14b8a6", "#64748b"}

// otherDiscipline labels articles whose discipline is not in the catalog.
const otherDiscipline = "Other"

// Trend directions.
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Count is a labelled count.
type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Slice is a coloured pie chart slice.
type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// GenderBreakdown counts active authors by gender.
type GenderBreakdown struct {
	Male             int `json:"male"`
	Female           int `json:"female"`
	Unknown          int `json:"unknown"`
	FemalePercentage int `json:"female_percentage"`
}

// Trend compares articles added in the last seven days with the week before.
type Trend struct {
	Text      string `json:"text"`
	Direction string `json:"trend"`
	ThisWeek  int    `json:"this_week"`
	LastWeek  int    `json:"last_week"`
}

// Dashboard summarises the catalog.
type Dashboard struct {
	TotalArticles  int             `json:"total_articles"`
	Years          []Count         `json:"years"`
	Methods        []Count         `json:"methods"`
	MethodSlices   []Slice         `json:"pie_data"`
	EmpiricalShare int             `json:"empirical_share"`
	ActiveAuthors  int             `json:"active_authors"`
	Gender         GenderBreakdown `json:"gender"`
	AvgExperience  float64         `json:"avg_experience"`
	Disciplines    []Count         `json:"disciplines"`
	WeekOverWeek   Trend           `json:"wow"`
}

// Dashboard computes the summary as of now.
func (s *Snapshot) Dashboard(now time.Time) Dashboard {
	d := Dashboard{TotalArticles: len(s.ds.Articles)}

	d.Years = s.yearCounts()
	d.Methods, d.EmpiricalShare = s.methodCounts()
	d.MethodSlices = methodSlices(d.Methods)
	d.ActiveAuthors, d.Gender, d.AvgExperience = s.authorStats(now)
	d.Disciplines = s.disciplineCounts()
	d.WeekOverWeek = s.weekOverWeek(now)

	return d
}

func (s *Snapshot) yearCounts() []Count {
	counts := map[int]int{}
	for _, a := range s.ds.Articles {
		if a.PublicationYear != nil {
			counts[*a.PublicationYear]++
		}
	}

	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	slices.Sort(years)

	out := make([]Count, len(years))
	for i, y := range years {
		out[i] = Count{Label: strconv.Itoa(y), Value: counts[y]}
	}
	return out
}

// methodCounts returns per-method counts in first-seen order and the
// empirical share of all design rows.
func (s *Snapshot) methodCounts() ([]Count, int) {
	var (
		out       = []Count{}
		index     = map[string]int{}
		empirical int
	)
	for _, d := range s.ds.Designs {
		if d.IsEmpirical {
			empirical++
		}
		method := domain.Deref(d.PrimaryMethod)
		if method == "" {
			continue
		}
		i, ok := index[method]
		if !ok {
			i = len(out)
			index[method] = i
			out = append(out, Count{Label: method})
		}
		out[i].Value++
	}
	return out, percent(empirical, len(s.ds.Designs))
}

// methodSlices colours methods by first-seen position, then ranks them by count.
func methodSlices(methods []Count) []Slice {
	out := make([]Slice, len(methods))
	for i, m := range methods {
		out[i] = Slice{Label: m.Label, Value: m.Value, Color: MethodPalette[i%len(MethodPalette)]}
	}
	slices.SortStableFunc(out, func(a, b Slice) int { return cmp.Compare(b.Value, a.Value) })
	return out
}

// authorStats covers active authors only, i.e. authors linked to an article.
func (s *Snapshot) authorStats(now time.Time) (int, GenderBreakdown, float64) {
	var (
		g     GenderBreakdown
		total int
		exp   int
	)
	for _, a := range s.ds.Authors {
		if !s.activeAuthors[a.ID] {
			continue
		}
		total++
		exp += a.Experience(now)
		switch a.Gender {
		case domain.GenderMale:
			g.Male++
		case domain.GenderFemale:
			g.Female++
		default:
			g.Unknown++
		}
	}
	if total == 0 {
		return 0, g, 0
	}
	g.FemalePercentage = percent(g.Female, total)
	return total, g, roundTenth(float64(exp) / float64(total))
}

// disciplineCounts ranks discipline names by article count, descending.
func (s *Snapshot) disciplineCounts() []Count {
	var (
		out   = []Count{}
		index = map[string]int{}
	)
	for _, a := range s.ds.Articles {
		name := s.DisciplineName(a.DisciplineID)
		if name == "" {
			name = otherDiscipline
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Count{Label: name})
		}
		out[i].Value++
	}
	slices.SortStableFunc(out, func(a, b Count) int { return cmp.Compare(b.Value, a.Value) })
	return out
}

// weekOverWeek compares date_added counts of the last 7 days with the 7 days before.
func (s *Snapshot) weekOverWeek(now time.Time) Trend {
	oneWeekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	var t Trend
	for _, a := range s.ds.Articles {
		if a.DateAdded == nil {
			continue
		}
		switch added := *a.DateAdded; {
		case !added.Before(oneWeekAgo):
			t.ThisWeek++
		case !added.Before(twoWeeksAgo):
			t.LastWeek++
		}
	}

	switch {
	case t.ThisWeek == 0 && t.LastWeek == 0:
		t.Direction = TrendNeutral
		t.Text = "No recent data"
		if len(s.ds.Articles) > 0 {
			t.Text = "Historical data only"
		}
	case t.LastWeek == 0:
		t.Direction = TrendUp
		t.Text = fmt.Sprintf("+%d this week", t.ThisWeek)
	default:
		pct := roundHalfUp(float64(t.ThisWeek-t.LastWeek) / float64(t.LastWeek) * 100)
		sign := ""
		if pct > 0 {
			sign = "+"
		}
		t.Text = fmt.Sprintf("%s%d%% vs last week", sign, pct)
		t.Direction = TrendUp
		if pct < 0 {
			t.Direction = TrendDown
		}
	}
	return t
}
