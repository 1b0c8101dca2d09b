package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run ledger",
	Long:  "Lists per-competitor research and update operations recorded in the run ledger.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		operation, _ := cmd.Flags().GetString("operation")
		competitor, _ := cmd.Flags().GetString("competitor")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:     model.RunStatus(status),
			Operation:  model.RunOperation(operation),
			Competitor: competitor,
			Limit:      limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCOMPETITOR\tOPERATION\tSTATUS\tATTEMPTS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Competitor,
			r.Operation,
			r.Status,
			r.Attempts,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
	}
	tw.Flush()
}

func init() {
	runsCmd.Flags().String("status", "", "filter by status (succeeded|failed)")
	runsCmd.Flags().String("operation", "", "filter by operation (research|update)")
	runsCmd.Flags().String("competitor", "", "filter by competitor name")
	runsCmd.Flags().Int("limit", 50, "maximum rows")
	rootCmd.AddCommand(runsCmd)
}
