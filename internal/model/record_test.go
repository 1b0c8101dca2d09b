package model

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/schema"
)

func TestRecordAccessors(t *testing.T) {
	t.Parallel()

	rec := Record{
		"competitor_name": "Acme Corp",
		"id":              "abc-123",
		"website":         NotAvailable,
		"strengths":       []any{"fast", 42, "cheap"},
		"weaknesses":      []string{"narrow"},
	}

	t.Run("Name and ID", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Acme Corp", rec.Name())
		assert.Equal(t, "abc-123", rec.ID())
		assert.Empty(t, Record{}.Name())
	})

	t.Run("StringField rejects sentinel and empties", func(t *testing.T) {
		t.Parallel()
		_, ok := rec.StringField("website")
		assert.False(t, ok)
		_, ok = rec.StringField("absent")
		assert.False(t, ok)
		v, ok := rec.StringField("competitor_name")
		require.True(t, ok)
		assert.Equal(t, "Acme Corp", v)
	})

	t.Run("ListField handles both representations", func(t *testing.T) {
		t.Parallel()
		// Disk-decoded lists hold []any; non-strings are dropped.
		assert.Equal(t, []string{"fast", "cheap"}, rec.ListField("strengths"))
		assert.Equal(t, []string{"narrow"}, rec.ListField("weaknesses"))
		assert.Nil(t, rec.ListField("absent"))
	})
}

func TestRecordSources(t *testing.T) {
	t.Parallel()

	t.Run("normalized representation", func(t *testing.T) {
		t.Parallel()
		rec := Record{"sources": []Source{{URL: "https://a.example", Description: "a"}}}
		got := rec.Sources()
		require.Len(t, got, 1)
		assert.Equal(t, "https://a.example", got[0].URL)
	})

	t.Run("disk-decoded representation drops incomplete entries", func(t *testing.T) {
		t.Parallel()
		rec := Record{"sources": []any{
			map[string]any{"url": "https://a.example", "description": "a"},
			map[string]any{"url": "https://b.example"},
			map[string]any{"description": "no url"},
			"not a map",
		}}
		got := rec.Sources()
		require.Len(t, got, 1)
		assert.Equal(t, "https://a.example", got[0].URL)
	})

	t.Run("absent field yields nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, Record{}.Sources())
	})
}

func TestDedupSources(t *testing.T) {
	t.Parallel()

	in := []Source{
		{URL: "https://a.example", Description: "first"},
		{URL: "https://b.example", Description: "b"},
		{URL: "https://a.example", Description: "second"},
	}

	out := DedupSources(in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Description, "first occurrence wins")
	assert.Equal(t, "https://b.example", out[1].URL, "order preserved")

	// Idempotent: a second pass changes nothing.
	assert.Equal(t, out, DedupSources(out))
}

func TestMarshalOrdered(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	rec := Record{
		"id":              "abc-123",
		"competitor_name": "Acme Corp",
		"competitor_type": "Direct",
		"sources":         []Source{{URL: "https://a.example", Description: "a"}},
	}

	data, err := rec.MarshalOrdered(s)
	require.NoError(t, err)

	t.Run("output is valid JSON with every schema field", func(t *testing.T) {
		t.Parallel()
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Len(t, decoded, len(s.Fields))
		for _, f := range s.Fields {
			assert.Contains(t, decoded, f.Name)
		}
		// Absent fields are backfilled with the sentinel.
		assert.Equal(t, NotAvailable, decoded["website"])
	})

	t.Run("keys appear in schema order", func(t *testing.T) {
		t.Parallel()
		dec := json.NewDecoder(bytes.NewReader(data))
		tok, err := dec.Token()
		require.NoError(t, err)
		require.Equal(t, json.Delim('{'), tok)

		var keys []string
		for dec.More() {
			tok, err := dec.Token()
			require.NoError(t, err)
			keys = append(keys, tok.(string))
			var skip json.RawMessage
			require.NoError(t, dec.Decode(&skip))
		}
		assert.Equal(t, s.FieldNames(), keys)
	})

	t.Run("roundtrips through ReadRecord", func(t *testing.T) {
		t.Parallel()
		back, err := ReadRecord(data)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", back.Name())
		assert.Equal(t, "abc-123", back.ID())
		require.Len(t, back.Sources(), 1)
	})
}

func TestReadRecordInvalid(t *testing.T) {
	t.Parallel()
	_, err := ReadRecord([]byte("not json"))
	assert.Error(t, err)
}
