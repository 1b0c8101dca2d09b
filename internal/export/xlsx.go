// Package export writes record-folder snapshots for offline review.
package export

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/schema"
)

// WriteXLSX writes all records to an XLSX workbook at path, one row per
// competitor with columns in schema order.
func WriteXLSX(records []model.Record, s *schema.Schema, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Competitors")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, f := range s.Fields {
		header.AddCell().Value = f.Column
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for _, f := range s.Fields {
			row.AddCell().Value = cellValue(rec, f)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func cellValue(rec model.Record, f schema.Field) string {
	switch f.Type {
	case schema.TypeList:
		return strings.Join(rec.ListField(f.Name), "; ")
	case schema.TypeSources:
		var parts []string
		for _, s := range rec.Sources() {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Description, s.URL))
		}
		return strings.Join(parts, "; ")
	default:
		v, ok := rec[f.Name]
		if !ok {
			return model.NotAvailable
		}
		switch val := v.(type) {
		case string:
			return val
		case float64:
			// Whole numbers render without a trailing ".0".
			if val == float64(int64(val)) {
				return fmt.Sprintf("%d", int64(val))
			}
			return fmt.Sprintf("%g", val)
		default:
			return fmt.Sprintf("%v", val)
		}
	}
}
