package research

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/schema"
	"github.com/sells-group/compintel/pkg/anthropic"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// fakeClient scripts CreateMessage responses per call.
type fakeClient struct {
	mu      sync.Mutex
	reqs    []anthropic.MessageRequest
	respond func(call int, req anthropic.MessageRequest) (string, error)
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	call := len(f.reqs)
	f.mu.Unlock()

	text, err := f.respond(call, req)
	if err != nil {
		return nil, err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func newTestResearcher(t *testing.T, client anthropic.Client) *Researcher {
	t.Helper()
	r := New(client, schema.Default(), nil, Options{
		Model:            "claude-sonnet-4-5-20250929",
		MaxTokens:        1024,
		WebSearchMaxUses: 3,
		MaxAttempts:      3,
		Concurrency:      3,
		OutputDir:        t.TempDir(),
		CompanyContext:   "We sell widgets.",
	})
	r.now = func() time.Time { return testNow }
	r.baseRetry.InitialBackoff = time.Millisecond
	r.baseRetry.MaxBackoff = 2 * time.Millisecond
	r.baseRetry.JitterFraction = 0
	return r
}

const validResearchJSON = `{
	"competitor_type": "Direct",
	"website": "https://acme.example",
	"description": "Makes widgets.",
	"sources": [{"url": "https://acme.example/about", "description": "About page"}]
}`

func TestResearchMalformedThenValid(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(call int, _ anthropic.MessageRequest) (string, error) {
		if call == 1 {
			return "Sorry, I rambled instead of emitting JSON.", nil
		}
		return "```json\n" + validResearchJSON + "\n```", nil
	}}
	r := newTestResearcher(t, client)

	path, err := r.Research(context.Background(), "Acme Corp", "Acme_Corp.json")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls(), "malformed output is retried")
	assert.Equal(t, "Acme_Corp.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rec, err := model.ReadRecord(data)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", rec.Name())
	assert.NotEmpty(t, rec.ID())
	assert.Equal(t, "Direct", rec[schema.FieldType_])
	assert.Len(t, rec, len(schema.Default().Fields), "record carries every schema field")

	// No diagnostic sibling on success.
	_, statErr := os.Stat(path + ".error.txt")
	assert.True(t, os.IsNotExist(statErr))
}

func TestResearchExhaustionWritesRawDiagnostic(t *testing.T) {
	t.Parallel()

	const garbage = "still not JSON, attempt after attempt"
	client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
		return garbage, nil
	}}
	r := newTestResearcher(t, client)

	_, err := r.Research(context.Background(), "Acme Corp", "Acme_Corp.json")
	require.Error(t, err)
	assert.Equal(t, 3, client.calls())

	path := filepath.Join(r.opts.OutputDir, "Acme_Corp.json")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no record written on failure")

	diag, readErr := os.ReadFile(path + ".error.txt")
	require.NoError(t, readErr)
	assert.Equal(t, garbage, string(diag), "raw response preserved for inspection")
}

func TestResearchTransportFailureWritesFatalDiagnostic(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
		return "", errors.New("api: overloaded")
	}}
	r := newTestResearcher(t, client)

	_, err := r.Research(context.Background(), "Acme Corp", "Acme_Corp.json")
	require.Error(t, err)

	path := filepath.Join(r.opts.OutputDir, "Acme_Corp.json")
	diag, readErr := os.ReadFile(path + ".fatal.txt")
	require.NoError(t, readErr)
	assert.Contains(t, string(diag), "overloaded")
}

func TestResearchPermanentProviderErrorFailsFast(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
		return "", errors.New("api: invalid x-api-key")
	}}
	r := newTestResearcher(t, client)

	_, err := r.Research(context.Background(), "Acme Corp", "Acme_Corp.json")
	require.Error(t, err)
	assert.Equal(t, 1, client.calls(), "auth failures are not retried")

	path := filepath.Join(r.opts.OutputDir, "Acme_Corp.json")
	diag, readErr := os.ReadFile(path + ".fatal.txt")
	require.NoError(t, readErr)
	assert.Contains(t, string(diag), "invalid x-api-key")
}

func TestRunAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(_ int, req anthropic.MessageRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, "Bad Co") {
			return "", errors.New("api: overloaded")
		}
		return validResearchJSON, nil
	}}
	r := newTestResearcher(t, client)

	paths := r.RunAll(context.Background(), []string{"Acme Corp", "Bad Co", "Globex"})
	require.Len(t, paths, 2, "one failure must not sink its siblings")
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	_, err := os.Stat(filepath.Join(r.opts.OutputDir, "Bad_Co.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateOnePreservesIdentity(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
		return `{
			"updated_record": {
				"id": "model-invented",
				"competitor_type": "Direct",
				"description": "Now also makes gadgets.",
				"created_at": "2026-03-14"
			},
			"change_summary": "Expanded into gadgets."
		}`, nil
	}}
	r := newTestResearcher(t, client)

	existing := model.Record{
		schema.FieldID:        "original-id",
		schema.FieldName:      "Acme Corp",
		schema.FieldType_:     "Direct",
		schema.FieldCreatedAt: "2025-01-01",
		"description":         "Makes widgets.",
	}
	path := filepath.Join(r.opts.OutputDir, "Acme_Corp.json")
	data, err := existing.MarshalOrdered(r.schema)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(r.opts.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	res, err := r.UpdateOne(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", res.Name)
	assert.Equal(t, "Expanded into gadgets.", res.Summary)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	updated, err := model.ReadRecord(data)
	require.NoError(t, err)

	assert.Equal(t, "original-id", updated.ID(), "identifier survives the refresh")
	assert.Equal(t, "2025-01-01", updated[schema.FieldCreatedAt], "creation date survives")
	assert.Equal(t, "2026-03-14", updated[schema.FieldLastUpdated], "last_updated moves to now")
	assert.Equal(t, "Now also makes gadgets.", updated["description"])
}

func TestUpdateOneMissingSummaryRetriesThenSkips(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
		return `{"updated_record": {"description": "x"}}`, nil
	}}
	r := newTestResearcher(t, client)

	existing := model.Record{
		schema.FieldName: "Acme Corp",
		"description":    "Makes widgets.",
	}
	path := filepath.Join(r.opts.OutputDir, "Acme_Corp.json")
	data, err := existing.MarshalOrdered(r.schema)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(r.opts.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = r.UpdateOne(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, updateAttempts, client.calls(), "incomplete payload retried within the update budget")

	// A skipped refresh leaves the prior record untouched.
	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, data, after)
}

func TestUpdateAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(_ int, req anthropic.MessageRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, "Bad Co") {
			return "", errors.New("api: overloaded")
		}
		return `{"updated_record": {"competitor_type": "Direct"}, "change_summary": "No change."}`, nil
	}}
	r := newTestResearcher(t, client)
	require.NoError(t, os.MkdirAll(r.opts.OutputDir, 0o755))

	var paths []string
	for _, name := range []string{"Acme Corp", "Bad Co"} {
		rec := model.Record{schema.FieldName: name}
		data, err := rec.MarshalOrdered(r.schema)
		require.NoError(t, err)
		p := filepath.Join(r.opts.OutputDir, model.Filename(name))
		require.NoError(t, os.WriteFile(p, data, 0o644))
		paths = append(paths, p)
	}

	results := r.UpdateAll(context.Background(), paths)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme Corp", results[0].Name)
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	t.Run("filters already-tracked names case-insensitively", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
			return `{"new_competitors": ["Acme Corp", "ACME CORP", "NewCo", "  ", 42]}`, nil
		}}
		r := newTestResearcher(t, client)

		names, err := r.Discover(context.Background(), []string{"Acme Corp"}, 30)
		require.NoError(t, err)
		assert.Equal(t, []string{"NewCo"}, names)
	})

	t.Run("non-list field degrades to empty result", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
			return `{"new_competitors": "NewCo"}`, nil
		}}
		r := newTestResearcher(t, client)

		names, err := r.Discover(context.Background(), nil, 30)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("unparseable response degrades to empty result", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
			return "no json here", nil
		}}
		r := newTestResearcher(t, client)

		names, err := r.Discover(context.Background(), nil, 30)
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestSummarizeTopChanges(t *testing.T) {
	t.Parallel()

	t.Run("no summaries short-circuits without a model call", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
			t.Fatal("unexpected model call")
			return "", nil
		}}
		r := newTestResearcher(t, client)

		digest, err := r.SummarizeTopChanges(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, NoUpdatesSentinel, digest)
		assert.Equal(t, 0, client.calls())
	})

	t.Run("digest call runs without web search", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{respond: func(int, anthropic.MessageRequest) (string, error) {
			return "  1. Acme expanded into gadgets.\n", nil
		}}
		r := newTestResearcher(t, client)

		digest, err := r.SummarizeTopChanges(context.Background(), []string{"Acme: expanded into gadgets"})
		require.NoError(t, err)
		assert.Equal(t, "1. Acme expanded into gadgets.", digest)
		require.Equal(t, 1, client.calls())
		assert.Nil(t, client.reqs[0].WebSearch)
	})
}

func TestListRecordFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "a.json.error.txt", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	paths, err := ListRecordFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.json"),
	}, paths)
}
