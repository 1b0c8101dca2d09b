package research

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/normalize"
	"github.com/sells-group/compintel/internal/resilience"
	"github.com/sells-group/compintel/internal/schema"
)

// updateAttempts bounds the refresh retry budget. Tighter than initial
// research: the record already exists, so a skipped refresh costs little.
const updateAttempts = 2

// updatePayload is the dual-keyed response the refresh prompt requests.
type updatePayload struct {
	UpdatedRecord map[string]any `json:"updated_record"`
	ChangeSummary string         `json:"change_summary"`
}

// UpdateOne re-researches the competitor persisted at path, providing
// the prior record as comparison context, and overwrites the file in
// place. The record's identifier and creation date survive the refresh;
// last_updated moves to now. Returns the model's change summary.
func (r *Researcher) UpdateOne(ctx context.Context, path string) (*UpdateResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "update: read %s", path)
	}
	existing, err := model.ReadRecord(data)
	if err != nil {
		return nil, eris.Wrapf(err, "update: decode %s", path)
	}

	name := existing.Name()
	if name == "" || name == model.NotAvailable {
		name = model.NameFromFilename(filepath.Base(path))
	}

	started := r.now()
	attempts := 1
	payload, err := resilience.DoVal(ctx, r.retryConfig(updateAttempts, "update", &attempts),
		func(ctx context.Context) (*updatePayload, error) {
			resp, err := r.client.CreateMessage(ctx, r.messageRequest(updatePrompt(name, r.opts.CompanyContext, string(data), r.schema)))
			if err != nil {
				return nil, eris.Wrap(err, "update: create message")
			}
			resp.Usage.LogCost(r.opts.Model, "update")
			return parseUpdatePayload(resp.Text())
		})

	r.recordRun(name, model.OpUpdate, started, attempts, err)

	if err != nil {
		return nil, eris.Wrapf(err, "update: %s failed after %d attempts", name, attempts)
	}

	rec := model.Record(payload.UpdatedRecord)
	normalize.Shape(rec, name, r.now(), r.schema)

	// Identity survives refreshes: keep the original identifier and
	// creation date, move only last_updated.
	if id := existing.ID(); id != "" {
		rec[schema.FieldID] = id
	}
	if created, ok := existing[schema.FieldCreatedAt].(string); ok && created != "" && created != model.NotAvailable {
		rec[schema.FieldCreatedAt] = created
	}

	if err := r.writeRecord(path, rec); err != nil {
		return nil, err
	}

	zap.L().Info("update complete",
		zap.String("competitor", name),
		zap.String("path", path),
		zap.Int("attempts", attempts),
	)
	return &UpdateResult{Path: path, Name: name, Summary: payload.ChangeSummary}, nil
}

// parseUpdatePayload validates the dual-keyed refresh response. A
// missing key is a validation failure tagged retryable, like a parse
// failure.
func parseUpdatePayload(raw string) (*updatePayload, error) {
	cleaned := normalize.StripFences(raw)
	var p updatePayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, resilience.MarkRetryable(&normalize.Error{Kind: normalize.KindInvalidJSON, Raw: raw, Err: err})
	}
	if p.UpdatedRecord == nil {
		return nil, resilience.MarkRetryable(&normalize.Error{Kind: normalize.KindMissingKey, Raw: raw, Err: eris.New("missing updated_record")})
	}
	if strings.TrimSpace(p.ChangeSummary) == "" {
		return nil, resilience.MarkRetryable(&normalize.Error{Kind: normalize.KindMissingKey, Raw: raw, Err: eris.New("missing change_summary")})
	}
	return &p, nil
}

// ListRecordFiles returns the record files in dir, sorted by name.
// Diagnostic siblings (.error.txt / .fatal.txt) are excluded.
func ListRecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "update: read dir %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
