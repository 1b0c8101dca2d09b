package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/publish"
	"github.com/sells-group/compintel/internal/research"
	"github.com/sells-group/compintel/internal/schema"
	"github.com/sells-group/compintel/pkg/notion"
)

var updateSkipPublish bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh every record, discover new entrants, publish to Notion",
	Long:  "Re-researches every JSON record in the output folder with the prior record as context, runs discovery alongside, synthesizes an executive digest, and reconciles the results into Notion.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateResearch(); err != nil {
			return err
		}
		if !updateSkipPublish {
			if err := cfg.ValidatePublish(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(cfg.Research.OutputDir); err != nil {
			return eris.Wrapf(err, "update: output folder %s not found, run research first", cfg.Research.OutputDir)
		}
		paths, err := research.ListRecordFiles(cfg.Research.OutputDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.Errorf("update: no records in %s, run research first", cfg.Research.OutputDir)
		}

		r, s, ledger := initResearcher(ctx)
		if ledger != nil {
			defer ledger.Close() //nolint:errcheck
		}

		existing := make([]string, 0, len(paths))
		for _, p := range paths {
			existing = append(existing, recordName(p))
		}

		// Discovery shares no state with the per-record refreshes, so it
		// runs alongside the update fan-out.
		type discovery struct {
			names []string
			err   error
		}
		discoveryCh := make(chan discovery, 1)
		go func() {
			names, err := r.Discover(ctx, existing, cfg.Research.LookbackDays)
			discoveryCh <- discovery{names: names, err: err}
		}()

		updates := r.UpdateAll(ctx, paths)

		disc := <-discoveryCh
		if disc.err != nil {
			zap.L().Error("discovery failed, continuing without it", zap.Error(disc.err))
		}

		summaries := make([]string, 0, len(updates))
		for _, u := range updates {
			summaries = append(summaries, u.Name+": "+u.Summary)
		}
		digest, err := r.SummarizeTopChanges(ctx, summaries)
		if err != nil {
			zap.L().Error("digest generation failed, falling back to sentinel", zap.Error(err))
			digest = research.NoUpdatesSentinel
		}

		if updateSkipPublish {
			fmt.Println(digest)
			for _, name := range disc.names {
				fmt.Println("new competitor:", name)
			}
			return nil
		}

		return publishRun(ctx, s, updates, digest, disc.names)
	},
}

// publishRun reconciles the refreshed records into the competitor
// database and appends the digest, source references, and discovered
// names to the summary page. Publishing is best-effort per step: a
// failed section append does not abort the remaining sections.
func publishRun(ctx context.Context, s *schema.Schema, updates []research.UpdateResult, digest string, discovered []string) error {
	pub := publish.New(notion.NewClient(cfg.Notion.Token), s, cfg.Notion.DatabaseID, cfg.Notion.SummaryPageID)

	var (
		records []model.Record
		sources []model.Source
	)
	for _, u := range updates {
		data, err := os.ReadFile(u.Path)
		if err != nil {
			zap.L().Warn("publish: record unreadable, skipping", zap.String("path", u.Path), zap.Error(err))
			continue
		}
		rec, err := model.ReadRecord(data)
		if err != nil {
			zap.L().Warn("publish: record undecodable, skipping", zap.String("path", u.Path), zap.Error(err))
			continue
		}
		records = append(records, rec)
		sources = append(sources, rec.Sources()...)
	}

	counts := pub.Reconcile(ctx, records)

	if err := pub.AppendSection(ctx, pageTitle(time.Now()), digest); err != nil {
		zap.L().Error("publish: digest section failed", zap.Error(err))
	}
	if err := pub.AppendSourceReferences(ctx, "Sources", sources); err != nil {
		zap.L().Error("publish: source references failed", zap.Error(err))
	}
	if len(discovered) > 0 {
		lead := fmt.Sprintf("%d potential new competitor(s) surfaced in the last %d days:", len(discovered), cfg.Research.LookbackDays)
		if err := pub.AppendBulletedSection(ctx, "Potential New Competitors Discovered", lead, discovered); err != nil {
			zap.L().Error("publish: discovery section failed", zap.Error(err))
		}
	}

	if counts.Failed > 0 {
		return eris.Errorf("update: %d record(s) failed to reconcile into Notion", counts.Failed)
	}
	return nil
}

// recordName derives the competitor name for a record file, preferring
// the persisted name over the filename.
func recordName(path string) string {
	if data, err := os.ReadFile(path); err == nil {
		if rec, err := model.ReadRecord(data); err == nil {
			if n := rec.Name(); n != "" && n != model.NotAvailable {
				return n
			}
		}
	}
	return model.NameFromFilename(filepath.Base(path))
}

func pageTitle(now time.Time) string {
	return "Competitor Intelligence Update - " + now.Format("January 2, 2006")
}

func init() {
	updateCmd.Flags().BoolVar(&updateSkipPublish, "skip-publish", false, "refresh records and print the digest without touching Notion")
	rootCmd.AddCommand(updateCmd)
}
