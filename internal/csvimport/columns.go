package csvimport

import "strings"

// Column identifies a logical import column.
type Column int

const (
	ColumnKey Column = iota
	ColumnItemType
	ColumnTitle
	ColumnPublicationYear
	ColumnAuthor
	ColumnPublicationTitle
	ColumnISSN
	ColumnDOI
	ColumnURL
	ColumnAbstract
	ColumnDateAdded
	ColumnDiscipline

	columnCount
)

// columnAliases lists header substrings per column, in tie-break order.
var columnAliases = [columnCount][]string{
	ColumnKey:              {"key"},
	ColumnItemType:         {"item type"},
	ColumnTitle:            {"title"},
	ColumnPublicationYear:  {"publication year", "date"},
	ColumnAuthor:           {"author"},
	ColumnPublicationTitle: {"publication title", "journal"},
	ColumnISSN:             {"issn"},
	ColumnDOI:              {"doi"},
	ColumnURL:              {"url"},
	ColumnAbstract:         {"abstract note", "abstract"},
	ColumnDateAdded:        {"date added", "date_added"},
	ColumnDiscipline:       {"discipline", "field", "subject"},
}

var columnNames = [columnCount]string{
	ColumnKey:              "key",
	ColumnItemType:         "item_type",
	ColumnTitle:            "title",
	ColumnPublicationYear:  "publication_year",
	ColumnAuthor:           "author",
	ColumnPublicationTitle: "publication_title",
	ColumnISSN:             "issn",
	ColumnDOI:              "doi",
	ColumnURL:              "url",
	ColumnAbstract:         "abstract",
	ColumnDateAdded:        "date_added",
	ColumnDiscipline:       "discipline",
}

// String returns the column name.
func (c Column) String() string {
	if c < 0 || c >= columnCount {
		return "unknown"
	}
	return columnNames[c]
}

// ColumnMap holds the header index of every logical column, -1 when absent.
type ColumnMap [columnCount]int

// MapColumns resolves logical columns against a header row. A header cell
// matches when its trimmed lowercase form contains an alias; for each column
// the leftmost matching cell wins.
func MapColumns(header []string) ColumnMap {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var m ColumnMap
	for col := Column(0); col < columnCount; col++ {
		m[col] = -1
		for i, h := range normalized {
			if containsAny(h, columnAliases[col]) {
				m[col] = i
				break
			}
		}
	}
	return m
}

// Index returns the header index of col, or -1.
func (m ColumnMap) Index(col Column) int {
	return m[col]
}

// Has reports whether col was found in the header.
func (m ColumnMap) Has(col Column) bool {
	return m[col] >= 0
}

// Value returns the trimmed cell for col, or "" when the column is absent or
// the row is short.
func (m ColumnMap) Value(row []string, col Column) string {
	i := m[col]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Missing returns the names of columns the header did not provide.
func (m ColumnMap) Missing() []string {
	var missing []string
	for col := Column(0); col < columnCount; col++ {
		if m[col] < 0 {
			missing = append(missing, col.String())
		}
	}
	return missing
}

func containsAny(s string, aliases []string) bool {
	for _, a := range aliases {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}
