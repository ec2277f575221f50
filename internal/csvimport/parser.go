// Package csvimport turns reference-manager CSV exports into catalog rows.
//
// The pipeline is Parse → MapColumns → Compose → Flusher.Flush. Parsing and
// composing are pure; only the flusher talks to the store.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Warning describes a row that could not be parsed.
type Warning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// String formats the warning for logs.
func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Table is a parsed delimited file. Header is the first non-blank row.
type Table struct {
	Header    []string
	Rows      [][]string
	Delimiter rune
	Warnings  []Warning
}

// Parse reads delimited text. The delimiter (comma or tab) is detected from
// the first non-blank line. Malformed rows are reported as warnings and
// skipped; only read failures return an error.
func Parse(r io.Reader) (*Table, error) {
	// A byte order mark selects UTF-8 or UTF-16 and is dropped; without one the input is UTF-8.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	table := &Table{Delimiter: DetectDelimiter(data)}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = table.Delimiter
	reader.FieldsPerRecord = -1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				table.Warnings = append(table.Warnings, Warning{
					Line:    parseErr.StartLine,
					Message: parseErr.Err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		if isBlankRecord(record) {
			continue
		}
		if table.Header == nil {
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// DetectDelimiter picks tab when the first non-blank line has more tabs than
// commas outside quotes, and comma otherwise.
func DetectDelimiter(data []byte) rune {
	var commas, tabs int
	inQuotes := false
	seen := false

	for _, b := range data {
		switch {
		case b == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case b == '\n' || b == '\r':
			if seen {
				return pickDelimiter(commas, tabs)
			}
		case b == ',':
			commas++
			seen = true
		case b == '\t':
			tabs++
			seen = true
		case b != ' ':
			seen = true
		}
	}
	return pickDelimiter(commas, tabs)
}

func pickDelimiter(commas, tabs int) rune {
	if tabs > commas {
		return '\t'
	}
	return ','
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
