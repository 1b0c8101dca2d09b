package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/schema"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	records := []model.Record{
		{
			schema.FieldID:    "abc-123",
			schema.FieldName:  "Acme Corp",
			schema.FieldType_: "Direct",
			"website":         "https://acme.example",
			"founding_year":   float64(2019),
			"strengths":       []any{"fast", "cheap"},
			schema.FieldSources: []any{
				map[string]any{"url": "https://acme.example/about", "description": "About page"},
			},
		},
		{
			schema.FieldName: "Globex",
		},
	}

	path := filepath.Join(t.TempDir(), "competitors.xlsx")
	require.NoError(t, WriteXLSX(records, s, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "Competitors", sheet.Name)
	require.Len(t, sheet.Rows, 3, "header plus one row per record")

	header := sheet.Rows[0]
	require.Len(t, header.Cells, len(s.Fields))
	assert.Equal(t, "ID", header.Cells[0].Value)
	assert.Equal(t, "Competitor Name", header.Cells[1].Value)

	col := func(name string) int {
		for i, field := range s.Fields {
			if field.Name == name {
				return i
			}
		}
		t.Fatalf("no field %s", name)
		return -1
	}

	acme := sheet.Rows[1]
	assert.Equal(t, "Acme Corp", acme.Cells[col(schema.FieldName)].Value)
	assert.Equal(t, "2019", acme.Cells[col("founding_year")].Value, "whole numbers render without decimals")
	assert.Equal(t, "fast; cheap", acme.Cells[col("strengths")].Value)
	assert.Equal(t, "About page (https://acme.example/about)", acme.Cells[col(schema.FieldSources)].Value)

	globex := sheet.Rows[2]
	assert.Equal(t, "Globex", globex.Cells[col(schema.FieldName)].Value)
	assert.Equal(t, model.NotAvailable, globex.Cells[col("website")].Value, "missing scalars export the sentinel")
	assert.Equal(t, "", globex.Cells[col("strengths")].Value, "missing lists export empty")
}
