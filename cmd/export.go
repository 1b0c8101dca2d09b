package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/export"
	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/research"
	"github.com/sells-group/compintel/internal/schema"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all records to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := schema.Load(cfg.Research.SchemaPath)

		paths, err := research.ListRecordFiles(cfg.Research.OutputDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.Errorf("export: no records in %s", cfg.Research.OutputDir)
		}

		var records []model.Record
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				zap.L().Warn("export: record unreadable, skipping", zap.String("path", p), zap.Error(err))
				continue
			}
			rec, err := model.ReadRecord(data)
			if err != nil {
				zap.L().Warn("export: record undecodable, skipping", zap.String("path", p), zap.Error(err))
				continue
			}
			records = append(records, rec)
		}

		if err := export.WriteXLSX(records, s, exportOut); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.Int("records", len(records)),
			zap.String("path", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "competitors.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
