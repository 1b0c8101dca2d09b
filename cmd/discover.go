package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/compintel/internal/research"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find competitors that emerged within the lookback window",
	Long:  "Asks the model for competitors that emerged or pivoted into the space recently, excluding every name already tracked in the output folder. Prints one name per line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateResearch(); err != nil {
			return err
		}

		var existing []string
		if paths, err := research.ListRecordFiles(cfg.Research.OutputDir); err == nil {
			for _, p := range paths {
				existing = append(existing, recordName(p))
			}
		}

		r, _, ledger := initResearcher(ctx)
		if ledger != nil {
			defer ledger.Close() //nolint:errcheck
		}

		names, err := r.Discover(ctx, existing, cfg.Research.LookbackDays)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(os.Stderr, "No new competitors found.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
