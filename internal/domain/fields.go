package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FieldKind is the input kind of an editable field.
type FieldKind int

const (
	FieldText FieldKind = iota + 1
	FieldNumber
	FieldBoolean
	FieldSelect
	FieldMultiline
)

// String returns the wire name of the field kind.
func (k FieldKind) String() string {
	switch k {
	case FieldText:
		return "text"
	case FieldNumber:
		return "number"
	case FieldBoolean:
		return "checkbox"
	case FieldSelect:
		return "select"
	case FieldMultiline:
		return "textarea"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by its wire name.
func (k FieldKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its wire name.
func (k *FieldKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("field kind must be a string: %w", err)
	}
	for kind := FieldText; kind <= FieldMultiline; kind++ {
		if kind.String() == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", name)
}

// Field describes one editable field of a resource.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Step        string    `json:"step,omitempty"`
	HelpText    string    `json:"help_text,omitempty"`
	// Options lists the choices of a select field.
	Options []string `json:"options,omitempty"`
	// Strict restricts select values to Options.
	Strict bool `json:"-"`
}

// Schema is the ordered field list of an editable resource.
type Schema struct {
	Resource string  `json:"resource"`
	Fields   []Field `json:"fields"`
}

// DisciplineOptions are the disciplines offered by the article form.
var DisciplineOptions = []string{
	"Economics",
	"Political science",
	"Sociology",
	"Philosophy",
	"Geography",
	"Sports and society",
	"Psychology",
	"History",
	"Communication and information",
	"Literature",
	"Other",
}

var schemas = map[string]Schema{
	"articles": {Resource: "articles", Fields: []Field{
		{Name: "id", Label: "Key/ID", Kind: FieldText, Placeholder: "P7PYD64M"},
		{Name: "title", Label: "Title", Kind: FieldText, Required: true},
		{Name: "publication_year", Label: "Year", Kind: FieldNumber, Placeholder: "2025"},
		{Name: "journal_name", Label: "Journal Name", Kind: FieldText, Placeholder: "Nature, Science, etc.",
			HelpText: "Journal will be auto-created if it doesn't exist"},
		{Name: "discipline_id", Label: "Discipline", Kind: FieldSelect, Options: DisciplineOptions},
		{Name: "doi", Label: "DOI", Kind: FieldText},
		{Name: "abstract", Label: "Abstract", Kind: FieldMultiline},
		{Name: "url", Label: "URL", Kind: FieldText},
	}},
	"journals": {Resource: "journals", Fields: []Field{
		{Name: "id", Label: "ID (Slug)", Kind: FieldText, Placeholder: "nature", Required: true},
		{Name: "name", Label: "Journal Name", Kind: FieldText, Required: true},
		{Name: "issn", Label: "ISSN", Kind: FieldText},
		{Name: "impact_factor", Label: "Impact Factor", Kind: FieldNumber, Step: "0.001"},
		{Name: "policy_year_data", Label: "Data Policy Year", Kind: FieldNumber},
		{Name: "policy_year_open_access", Label: "Open Access Policy Year", Kind: FieldNumber},
	}},
	"authors": {Resource: "authors", Fields: []Field{
		{Name: "id", Label: "ID (e.g. name-slug)", Kind: FieldText, Placeholder: "smith-john", Required: true},
		{Name: "full_name", Label: "Full Name", Kind: FieldText, Required: true},
		{Name: "gender", Label: "Gender", Kind: FieldSelect, Options: []string{"M", "F", "U"}, Strict: true},
		{Name: "phd_year", Label: "PhD Year", Kind: FieldNumber},
		{Name: "current_institution_id", Label: "Institution", Kind: FieldSelect,
			HelpText: "Select from available institutions"},
	}},
	"institutions": {Resource: "institutions", Fields: []Field{
		{Name: "name", Label: "Institution Name", Kind: FieldText, Required: true},
		{Name: "country", Label: "Country", Kind: FieldText},
		{Name: "shanghai_rank", Label: "Rank", Kind: FieldText},
		{Name: "is_private", Label: "Private Institution?", Kind: FieldBoolean},
	}},
	"disciplines": {Resource: "disciplines", Fields: []Field{
		{Name: "name", Label: "Discipline Name", Kind: FieldText, Required: true},
		{Name: "parent_field", Label: "Parent Field", Kind: FieldText, Placeholder: DefaultParentField},
	}},
	"article-design": {Resource: "article-design", Fields: []Field{
		{Name: "article_id", Label: "Article ID", Kind: FieldText, Required: true},
		{Name: "primary_method", Label: "Primary Method", Kind: FieldText, Placeholder: "DID, RCT..."},
		{Name: "data_type", Label: "Data Type", Kind: FieldText, Placeholder: "Admin, Survey..."},
		{Name: "is_empirical", Label: "Is Empirical?", Kind: FieldBoolean},
		{Name: "replication_available", Label: "Replication Avail?", Kind: FieldBoolean},
		{Name: "legal_constraints", Label: "Legal Constraints?", Kind: FieldBoolean},
	}},
	"statistics": {Resource: "statistics", Fields: []Field{
		{Name: "article_id", Label: "Article ID", Kind: FieldText, Required: true},
		{Name: "test_name", Label: "Test Name", Kind: FieldText, Placeholder: "Treatment Effect"},
		{Name: "location_in_text", Label: "Location", Kind: FieldText, Placeholder: "Table 2, Col 1"},
		{Name: "coeff_reported", Label: "Coefficient", Kind: FieldNumber, Step: "0.0001"},
		{Name: "se_reported", Label: "Standard Error", Kind: FieldNumber, Step: "0.0001"},
		{Name: "p_value_reported", Label: "P-Value", Kind: FieldNumber, Step: "0.0001"},
		{Name: "stars_reported", Label: "Stars", Kind: FieldText, Placeholder: "***"},
		{Name: "is_just_significant", Label: "Just Significant?", Kind: FieldBoolean},
		{Name: "distance_to_threshold", Label: "Distance to 0.05", Kind: FieldNumber, Step: "0.0001"},
		{Name: "z_score", Label: "Z-Score", Kind: FieldNumber, Step: "0.01"},
	}},
	"funding-agencies": {Resource: "funding-agencies", Fields: []Field{
		{Name: "id", Label: "ID", Kind: FieldText, Required: true},
		{Name: "name", Label: "Agency Name", Kind: FieldText, Required: true},
		{Name: "is_corporate_conflict", Label: "Corporate Conflict?", Kind: FieldBoolean},
	}},
	"article-metrics": {Resource: "article-metrics", Fields: []Field{
		{Name: "article_id", Label: "Article ID", Kind: FieldText, Required: true},
		{Name: "citation_count", Label: "Citation Count", Kind: FieldNumber},
		{Name: "citation_velocity", Label: "Citations/Year", Kind: FieldNumber, Step: "0.01"},
		{Name: "altmetric_score", Label: "Altmetric Score", Kind: FieldNumber},
	}},
}

// SchemaFor returns the field schema of a resource.
func SchemaFor(resource string) (Schema, bool) {
	s, ok := schemas[resource]
	return s, ok
}

// SchemaResources returns the names of all resources that have a schema, sorted.
func SchemaResources() []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks decoded JSON values against the schema.
// Unknown keys are ignored. When partial is true, required fields may be absent.
func (s Schema) Validate(values map[string]any, partial bool) error {
	for _, f := range s.Fields {
		v, present := values[f.Name]
		if isBlank(v) {
			if f.Required && !(partial && !present) {
				return NewValidationError(f.Name, "is required")
			}
			continue
		}
		if err := f.check(v); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) check(v any) error {
	switch f.Kind {
	case FieldText, FieldMultiline:
		switch v.(type) {
		case string, float64:
			return nil
		}
		return NewValidationError(f.Name, "must be text")
	case FieldNumber:
		switch n := v.(type) {
		case float64:
			return nil
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return nil
			}
		}
		return NewValidationError(f.Name, "must be a number")
	case FieldBoolean:
		if _, ok := v.(bool); ok {
			return nil
		}
		return NewValidationError(f.Name, "must be true or false")
	case FieldSelect:
		str, ok := v.(string)
		if !ok {
			return NewValidationError(f.Name, "must be one of the listed options")
		}
		if f.Strict && !slices.Contains(f.Options, str) {
			return NewValidationError(f.Name, fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", ")))
		}
		return nil
	default:
		return NewValidationError(f.Name, "has an unsupported field kind")
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Normalize rewrites form-style values in place so they decode onto the
// entity: numeric strings become JSON numbers and blank non-text values
// become null.
func (s Schema) Normalize(values map[string]any) {
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok || f.Kind == FieldText || f.Kind == FieldMultiline {
			continue
		}
		if isBlank(v) {
			values[f.Name] = nil
			continue
		}
		if str, ok := v.(string); ok && f.Kind == FieldNumber {
			values[f.Name] = json.Number(strings.TrimSpace(str))
		}
	}
}
