// Package normalize reconciles raw model output into schema-conformant
// competitor records.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/resilience"
	"github.com/sells-group/compintel/internal/schema"
)

// ErrorKind classifies normalization failures.
type ErrorKind string

const (
	// KindInvalidJSON means the raw text could not be parsed as a JSON
	// object after fence stripping.
	KindInvalidJSON ErrorKind = "invalid_json"
	// KindMissingKey means a required key was absent from an otherwise
	// well-formed payload (used by the update pipeline's dual-key check).
	KindMissingKey ErrorKind = "missing_key"
)

// Error carries the failure kind plus the raw fragment for diagnostics.
type Error struct {
	Kind ErrorKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("normalize: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a normalization *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ne *Error
	ok := errors.As(err, &ne)
	return ne, ok
}

// StripFences removes a leading/trailing markdown code fence if present,
// tolerating a language tag on the opening fence.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the rest of the opening fence line ("json", etc).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Parse decodes raw model output into an untyped record, stripping code
// fences first. Failure yields *Error with KindInvalidJSON and the raw
// fragment attached, tagged retryable: a fresh attempt with the same
// request often yields parseable JSON.
func Parse(raw string) (model.Record, error) {
	cleaned := StripFences(raw)
	var rec model.Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return nil, resilience.MarkRetryable(&Error{Kind: KindInvalidJSON, Raw: raw, Err: err})
	}
	return rec, nil
}

// Normalize transforms raw model output into a schema-conformant record:
// parses it, injects the identifier and both timestamps (overwriting any
// model-supplied values), validates the classification enum, coerces
// sources, drops unrecognized keys, and backfills missing fields with
// the sentinel. now is the write time for both dates.
func Normalize(raw, competitorName string, now time.Time, s *schema.Schema) (model.Record, error) {
	rec, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	Shape(rec, competitorName, now, s)
	return rec, nil
}

// Shape applies the in-place normalization steps to an already-parsed
// record. Split out so the update pipeline can reuse it on the
// updated_record payload.
func Shape(rec model.Record, competitorName string, now time.Time, s *schema.Schema) {
	// System-generated fields always win over model-supplied values.
	rec[schema.FieldID] = uuid.New().String()
	rec[schema.FieldCreatedAt] = now.Format(model.DateLayout)
	rec[schema.FieldLastUpdated] = now.Format(model.DateLayout)
	rec[schema.FieldName] = competitorName

	validateType(rec, competitorName, s)
	rec[schema.FieldSources] = coerceSources(rec[schema.FieldSources], competitorName)
	dropUnknown(rec, s)
	FillMissing(rec, s)
}

// validateType coerces an absent or unrecognized classification to the
// sentinel. Never fatal, always logged.
func validateType(rec model.Record, name string, s *schema.Schema) {
	v, _ := rec[schema.FieldType_].(string)
	if v != "" && s.IsValidType(v) {
		return
	}
	zap.L().Warn("missing or unrecognized competitor type, using sentinel",
		zap.String("competitor", name),
		zap.String("value", v),
	)
	rec[schema.FieldType_] = model.NotAvailable
}

// coerceSources forces the sources field into canonical shape: non-list
// input becomes an empty list, entries missing url or description are
// dropped, and duplicates by url collapse to first occurrence.
func coerceSources(v any, name string) []model.Source {
	list, ok := v.([]any)
	if !ok {
		if v != nil {
			zap.L().Warn("sources field not a list, discarding",
				zap.String("competitor", name),
			)
		}
		return []model.Source{}
	}

	out := make([]model.Source, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		u, _ := m["url"].(string)
		d, _ := m["description"].(string)
		if strings.TrimSpace(u) == "" || strings.TrimSpace(d) == "" {
			continue
		}
		out = append(out, model.Source{URL: u, Description: d})
	}
	return model.DedupSources(out)
}

// dropUnknown removes keys the schema does not name. The model
// occasionally invents fields; keeping the record closed makes the
// on-disk shape stable across schema versions.
func dropUnknown(rec model.Record, s *schema.Schema) {
	for k := range rec {
		if _, ok := s.FieldByName(k); !ok {
			zap.L().Debug("dropping unrecognized record key", zap.String("key", k))
			delete(rec, k)
		}
	}
}

// FillMissing backfills absent schema fields so every persisted record
// contains every field: scalars get the sentinel, list-valued fields an
// empty list.
func FillMissing(rec model.Record, s *schema.Schema) {
	for _, f := range s.Fields {
		if _, ok := rec[f.Name]; ok {
			continue
		}
		switch f.Type {
		case schema.TypeList:
			rec[f.Name] = []string{}
		case schema.TypeSources:
			rec[f.Name] = []model.Source{}
		default:
			rec[f.Name] = model.NotAvailable
		}
	}
}
