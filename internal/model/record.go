// Package model defines the competitor record shape and the run-ledger
// types shared across the pipeline.
package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compintel/internal/schema"
)

// NotAvailable is the sentinel stored for fields the model could not
// populate and for classification values outside the taxonomy.
const NotAvailable = "Not available"

// DateLayout is the on-disk format for created_at / last_updated.
const DateLayout = "2006-01-02"

// Record is one competitor's normalized profile, keyed by schema field
// name. After normalization a record contains exactly the schema's
// fields, no more and no fewer.
type Record map[string]any

// Source is one citation attached to a record. URL is the dedup key.
type Source struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Name returns the competitor display name, or "" if unset.
func (r Record) Name() string {
	s, _ := r[schema.FieldName].(string)
	return s
}

// ID returns the record identifier, or "" if unset.
func (r Record) ID() string {
	s, _ := r[schema.FieldID].(string)
	return s
}

// StringField returns the named field as a string when it holds one and
// is not the missing-value sentinel.
func (r Record) StringField(name string) (string, bool) {
	s, ok := r[name].(string)
	if !ok || s == "" || s == NotAvailable {
		return "", false
	}
	return s, true
}

// ListField returns the named field as a string slice. Normalized records
// store list fields as []string; records freshly decoded from disk hold
// []any, which is converted element-wise.
func (r Record) ListField(name string) []string {
	switch v := r[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Sources returns the record's citations. Handles both normalized
// ([]Source) and disk-decoded ([]any of maps) representations.
func (r Record) Sources() []Source {
	switch v := r[schema.FieldSources].(type) {
	case []Source:
		return v
	case []any:
		out := make([]Source, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			u, _ := m["url"].(string)
			d, _ := m["description"].(string)
			if u == "" || d == "" {
				continue
			}
			out = append(out, Source{URL: u, Description: d})
		}
		return out
	default:
		return nil
	}
}

// DedupSources collapses duplicate citations by URL, keeping the first
// occurrence and preserving order. Idempotent.
func DedupSources(sources []Source) []Source {
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		key := strings.TrimSpace(s.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// MarshalOrdered encodes the record as pretty-printed JSON with keys in
// schema order. Fields absent from the record are written as the
// NotAvailable sentinel so the on-disk shape is always complete.
func (r Record) MarshalOrdered(s *schema.Schema) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, f := range s.Fields {
		v, ok := r[f.Name]
		if !ok {
			v = NotAvailable
		}
		vb, err := json.MarshalIndent(v, "  ", "  ")
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal field %s", f.Name)
		}
		kb, _ := json.Marshal(f.Name)
		buf.WriteString("  ")
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(vb)
		if i < len(s.Fields)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// ReadRecord decodes a persisted record from its JSON encoding.
func ReadRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "model: decode record")
	}
	return r, nil
}
