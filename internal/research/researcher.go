// Package research orchestrates the per-competitor model calls: initial
// research, refresh-and-diff, discovery of new entrants, and the
// executive digest.
package research

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/normalize"
	"github.com/sells-group/compintel/internal/resilience"
	"github.com/sells-group/compintel/internal/schema"
	"github.com/sells-group/compintel/internal/store"
	"github.com/sells-group/compintel/pkg/anthropic"
)

// Options configures a Researcher.
type Options struct {
	Model            string
	MaxTokens        int64
	WebSearchMaxUses int64
	MaxAttempts      int
	Concurrency      int
	OutputDir        string
	CompanyContext   string
}

// Researcher issues model requests and persists normalized records.
type Researcher struct {
	client anthropic.Client
	schema *schema.Schema
	ledger store.Store // optional; nil disables the run ledger
	opts   Options

	now       func() time.Time
	baseRetry resilience.RetryConfig
}

// New creates a Researcher. ledger may be nil.
func New(client anthropic.Client, s *schema.Schema, ledger store.Store, opts Options) *Researcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	return &Researcher{
		client:    client,
		schema:    s,
		ledger:    ledger,
		opts:      opts,
		now:       time.Now,
		baseRetry: resilience.DefaultRetryConfig(),
	}
}

// retryConfig builds the retry policy for research calls. The default
// resilience predicate governs: retryable-tagged parse failures and
// transient provider failures get another attempt, permanent provider
// errors (auth, bad request) fail fast.
func (r *Researcher) retryConfig(attempts int, operation string, counter *int) resilience.RetryConfig {
	cfg := r.baseRetry
	cfg.MaxAttempts = attempts
	logRetry := resilience.RetryLogger("anthropic", operation)
	cfg.OnRetry = func(attempt int, err error) {
		*counter = attempt + 1
		logRetry(attempt, err)
	}
	return cfg
}

// Research runs one research pass for a competitor and writes the
// normalized record to outputDir/filename. On retry exhaustion it writes
// a diagnostic sibling and returns the error; it never panics, so the
// scheduler can run tasks concurrently without failure coupling.
func (r *Researcher) Research(ctx context.Context, name, filename string) (string, error) {
	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return "", eris.Wrap(err, "research: create output dir")
	}
	path := filepath.Join(r.opts.OutputDir, filename)

	started := r.now()
	attempts := 1
	rec, err := resilience.DoVal(ctx, r.retryConfig(r.opts.MaxAttempts, "research", &attempts),
		func(ctx context.Context) (model.Record, error) {
			resp, err := r.client.CreateMessage(ctx, r.messageRequest(researchPrompt(name, r.opts.CompanyContext, r.schema)))
			if err != nil {
				return nil, eris.Wrap(err, "research: create message")
			}
			resp.Usage.LogCost(r.opts.Model, "research")
			return normalize.Normalize(resp.Text(), name, r.now(), r.schema)
		})

	r.recordRun(name, model.OpResearch, started, attempts, err)

	if err != nil {
		r.writeDiagnostic(path, err)
		return "", eris.Wrapf(err, "research: %s failed after %d attempts", name, attempts)
	}

	if err := r.writeRecord(path, rec); err != nil {
		return "", err
	}

	zap.L().Info("research complete",
		zap.String("competitor", name),
		zap.String("path", path),
		zap.Int("attempts", attempts),
	)
	return path, nil
}

func (r *Researcher) messageRequest(prompt string) anthropic.MessageRequest {
	temp := 0.2
	req := anthropic.MessageRequest{
		Model:       r.opts.Model,
		MaxTokens:   r.opts.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: researchSystem}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}
	if r.opts.WebSearchMaxUses > 0 {
		req.WebSearch = &anthropic.WebSearchTool{MaxUses: r.opts.WebSearchMaxUses}
	}
	return req
}

// writeRecord persists a record as pretty-printed JSON in schema field
// order. The write replaces the whole file, so an interrupt cannot leave
// a half-patched record.
func (r *Researcher) writeRecord(path string, rec model.Record) error {
	data, err := rec.MarshalOrdered(r.schema)
	if err != nil {
		return eris.Wrap(err, "research: encode record")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "research: write %s", path)
	}
	return nil
}

// writeDiagnostic persists the failure next to where the record would
// have gone: the raw unparseable response for JSON failures, the error
// chain otherwise.
func (r *Researcher) writeDiagnostic(path string, err error) {
	var (
		diagPath string
		content  string
	)
	if ne, ok := normalize.AsError(err); ok && ne.Kind == normalize.KindInvalidJSON {
		diagPath = path + ".error.txt"
		content = ne.Raw
	} else {
		diagPath = path + ".fatal.txt"
		content = eris.ToString(err, true)
	}
	if werr := os.WriteFile(diagPath, []byte(content), 0o644); werr != nil {
		zap.L().Error("failed to write diagnostic file",
			zap.String("path", diagPath),
			zap.Error(werr),
		)
		return
	}
	zap.L().Warn("wrote diagnostic file", zap.String("path", diagPath))
}

// recordRun appends a ledger row; ledger errors are logged, never fatal.
func (r *Researcher) recordRun(name string, op model.RunOperation, started time.Time, attempts int, runErr error) {
	if r.ledger == nil {
		return
	}
	run := model.Run{
		Competitor: name,
		Operation:  op,
		Status:     model.RunSucceeded,
		Attempts:   attempts,
		StartedAt:  started,
		FinishedAt: r.now(),
	}
	if runErr != nil {
		run.Status = model.RunFailed
		run.Error = runErr.Error()
	}
	// Ledger writes happen outside the task's cancellable context so a
	// cancelled run still gets its terminal row.
	if err := r.ledger.RecordRun(context.Background(), run); err != nil {
		zap.L().Warn("run ledger write failed", zap.Error(err))
	}
}
