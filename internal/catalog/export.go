package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/helixir/research-catalog/internal/domain"
)

// ExportFilename is the suggested download name of the CSV export.
const ExportFilename = "research_database_export.csv"

// ExportHeader lists the export columns in order.
var ExportHeader = []string{
	"Article ID", "Title", "Year", "Journal", "DOI", "Discipline", "Abstract", "URL",
	"Methodology", "Data Type", "Is Empirical", "Replication Avail",
	"Authors", "Author Genders", "Total Authors", "Female Share", "Avg Experience",
	"Statistics Summary",
}

// WriteCSV writes one row per article in list order and returns the number
// of article rows written. Every field is quoted and rows end in "\n".
func (s *Snapshot) WriteCSV(w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	if err := writeQuotedRecord(bw, ExportHeader); err != nil {
		return 0, err
	}

	n := 0
	for _, a := range s.ds.Articles {
		if err := writeQuotedRecord(bw, s.exportRecord(s.Composite(a))); err != nil {
			return n, err
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to write export: %w", err)
	}
	return n, nil
}

// exportRecord returns the export fields of one composite article.
func (s *Snapshot) exportRecord(c *CompositeArticle) []string {
	summary := c.Summary()

	year := ""
	if c.PublicationYear != nil {
		year = strconv.Itoa(*c.PublicationYear)
	}

	discipline := s.DisciplineName(c.DisciplineID)
	if discipline == "" {
		discipline = domain.Deref(c.DisciplineID)
	}

	var method, dataType string
	empirical, replication := "No", "No"
	if d := c.DesignDetails; d != nil {
		method = domain.Deref(d.PrimaryMethod)
		dataType = domain.Deref(d.DataType)
		empirical = yesNo(d.IsEmpirical)
		replication = yesNo(d.ReplicationAvailable)
	}

	names := make([]string, len(c.AuthorsList))
	genders := make([]string, len(c.AuthorsList))
	for i, a := range c.AuthorsList {
		names[i] = a.FullName
		genders[i] = string(a.Gender)
	}

	stats := make([]string, len(c.StatsList))
	for i, st := range c.StatsList {
		name := domain.PlaceholderTestName
		if st.TestName != nil {
			name = *st.TestName
		}
		stats[i] = fmt.Sprintf("%s(p=%s, b=%s)", name, formatNumber(st.PValueReported), formatNumber(st.CoeffReported))
	}

	return []string{
		c.ID,
		c.Title,
		year,
		c.JournalName(),
		domain.Deref(c.DOI),
		discipline,
		domain.Deref(c.Abstract),
		domain.Deref(c.URL),
		method,
		dataType,
		empirical,
		replication,
		strings.Join(names, "; "),
		strings.Join(genders, "; "),
		strconv.Itoa(summary.Total),
		strconv.Itoa(summary.FemaleShare) + "%",
		strconv.FormatFloat(summary.AvgExperience, 'f', 1, 64),
		strings.Join(stats, "; "),
	}
}

func writeQuotedRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// formatNumber renders v in its shortest form, or "NA" when missing.
func formatNumber(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
