// Package schema holds the field list and competitor-type taxonomy that
// shape every research record. The schema is loaded once at startup and
// passed explicitly to components; it is never mutated afterwards.
package schema

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FieldType describes how a field's value is represented on disk and in
// the Notion database.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeURL     FieldType = "url"
	TypeSelect  FieldType = "select"
	TypeDate    FieldType = "date"
	TypeNumber  FieldType = "number"
	TypeList    FieldType = "list"
	TypeSources FieldType = "sources"
)

// Field is one entry in the ordered field list.
type Field struct {
	Name        string    `yaml:"name"`
	Column      string    `yaml:"column"`
	Type        FieldType `yaml:"type"`
	Description string    `yaml:"description"`
}

// TypeDef is one member of the competitor-type taxonomy.
type TypeDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Schema is the active field list plus the competitor-type enum.
type Schema struct {
	Fields          []Field   `yaml:"fields"`
	CompetitorTypes []TypeDef `yaml:"competitor_types"`

	byName map[string]Field
	types  map[string]struct{}
}

// Well-known field names referenced by the pipeline. These must exist in
// any schema, default or overridden.
const (
	FieldID          = "id"
	FieldName        = "competitor_name"
	FieldType_       = "competitor_type"
	FieldSources     = "sources"
	FieldCreatedAt   = "created_at"
	FieldLastUpdated = "last_updated"
)

var systemFields = []string{
	FieldID, FieldName, FieldType_, FieldSources, FieldCreatedAt, FieldLastUpdated,
}

// Default returns the built-in schema.
func Default() *Schema {
	s := &Schema{
		Fields: []Field{
			{Name: FieldID, Column: "ID", Type: TypeText, Description: "System-generated unique identifier."},
			{Name: FieldName, Column: "Competitor Name", Type: TypeText, Description: "Official company or product name."},
			{Name: FieldType_, Column: "Competitor Type", Type: TypeSelect, Description: "Classification within the competitor taxonomy."},
			{Name: "website", Column: "Website", Type: TypeURL, Description: "Primary public website URL."},
			{Name: "description", Column: "Description", Type: TypeText, Description: "One-paragraph overview of the company and its positioning."},
			{Name: "products_and_services", Column: "Products & Services", Type: TypeText, Description: "Main offerings relevant to our market."},
			{Name: "target_market", Column: "Target Market", Type: TypeText, Description: "Customer segments and industries served."},
			{Name: "pricing_model", Column: "Pricing Model", Type: TypeText, Description: "How the offering is priced (subscription, usage, license)."},
			{Name: "founding_year", Column: "Founding Year", Type: TypeNumber, Description: "Year the company was founded."},
			{Name: "employee_count", Column: "Employees", Type: TypeNumber, Description: "Approximate headcount."},
			{Name: "funding", Column: "Funding", Type: TypeText, Description: "Total funding raised and most recent round."},
			{Name: "strengths", Column: "Strengths", Type: TypeList, Description: "Key strengths, max 5 bullet points."},
			{Name: "weaknesses", Column: "Weaknesses", Type: TypeList, Description: "Key weaknesses or gaps, max 5 bullet points."},
			{Name: "recent_developments", Column: "Recent Developments", Type: TypeText, Description: "Notable launches, partnerships, or announcements in the last 12 months."},
			{Name: FieldSources, Column: "Sources", Type: TypeSources, Description: "Citations as url/description pairs."},
			{Name: FieldCreatedAt, Column: "Created", Type: TypeDate, Description: "Date the record was first researched."},
			{Name: FieldLastUpdated, Column: "Last Updated", Type: TypeDate, Description: "Date of the most recent successful refresh."},
		},
		CompetitorTypes: []TypeDef{
			{Name: "Direct", Description: "Sells a substantially equivalent offering to the same buyers."},
			{Name: "Indirect", Description: "Solves the same problem with a different approach or category."},
			{Name: "Emerging", Description: "Early-stage entrant with overlapping ambitions."},
			{Name: "Adjacent", Description: "Operates in a neighboring category that could expand into ours."},
			{Name: "Platform", Description: "Large platform vendor whose bundled features overlap our offering."},
		},
	}
	s.index()
	return s
}

// Load returns the schema from the override file at path, falling back to
// the built-in defaults when path is empty or the file is missing or
// malformed. A bad override is never fatal; it logs a warning.
func Load(path string) *Schema {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("schema: override unreadable, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return Default()
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		zap.L().Warn("schema: override malformed, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return Default()
	}

	if err := s.validate(); err != nil {
		zap.L().Warn("schema: override invalid, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return Default()
	}

	s.index()
	zap.L().Info("schema: loaded override",
		zap.String("path", path),
		zap.Int("fields", len(s.Fields)),
		zap.Int("competitor_types", len(s.CompetitorTypes)),
	)
	return &s
}

func (s *Schema) validate() error {
	if len(s.Fields) == 0 {
		return eris.New("no fields defined")
	}
	if len(s.CompetitorTypes) == 0 {
		return eris.New("no competitor types defined")
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return eris.New("field with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return eris.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	for _, name := range systemFields {
		if _, ok := seen[name]; !ok {
			return eris.Errorf("missing required field %q", name)
		}
	}
	return nil
}

func (s *Schema) index() {
	s.byName = make(map[string]Field, len(s.Fields))
	for i := range s.Fields {
		if s.Fields[i].Column == "" {
			s.Fields[i].Column = s.Fields[i].Name
		}
		s.byName[s.Fields[i].Name] = s.Fields[i]
	}
	s.types = make(map[string]struct{}, len(s.CompetitorTypes))
	for _, t := range s.CompetitorTypes {
		s.types[t.Name] = struct{}{}
	}
}

// FieldNames returns the ordered field list.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldByName looks up a field definition.
func (s *Schema) FieldByName(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// IsValidType reports whether name is a member of the competitor-type enum.
func (s *Schema) IsValidType(name string) bool {
	_, ok := s.types[name]
	return ok
}
