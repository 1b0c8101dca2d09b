package research

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compintel/internal/model"
)

// RunAll launches one research task per competitor concurrently and
// returns the paths of the successful records. One task's failure never
// aborts its siblings; failures are logged and dropped from the result.
func (r *Researcher) RunAll(ctx context.Context, names []string) []string {
	if len(names) == 0 {
		return nil
	}

	// Distinct names can sanitize to the same filename ("A/B" vs "A B");
	// colliding names get a hash suffix so no task overwrites another.
	filenames := model.AssignFilenames(names)

	zap.L().Info("starting research fan-out",
		zap.Int("competitors", len(names)),
		zap.Int("concurrency", r.opts.Concurrency),
	)

	results := make([]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, name := range names {
		g.Go(func() error {
			path, err := r.Research(gctx, name, filenames[name])
			if err != nil {
				zap.L().Error("research task failed",
					zap.String("competitor", name),
					zap.Error(err),
				)
				return nil // isolate the failure
			}
			results[i] = path
			return nil
		})
	}
	_ = g.Wait() // tasks always return nil

	var paths []string
	for _, p := range results {
		if p != "" {
			paths = append(paths, p)
		}
	}

	zap.L().Info("research fan-out complete",
		zap.Int("succeeded", len(paths)),
		zap.Int("total", len(names)),
		zap.String("outcome", formatCount(len(paths), len(names))),
	)
	return paths
}

// UpdateResult pairs an updated record file with its change summary.
type UpdateResult struct {
	Path    string
	Name    string
	Summary string
}

// UpdateAll refreshes every record file concurrently, optionally running
// the discovery task alongside. It returns the successful updates; a
// skipped entity stays at its prior on-disk state.
func (r *Researcher) UpdateAll(ctx context.Context, paths []string) []UpdateResult {
	if len(paths) == 0 {
		return nil
	}

	zap.L().Info("starting update fan-out",
		zap.Int("records", len(paths)),
		zap.Int("concurrency", r.opts.Concurrency),
	)

	results := make([]*UpdateResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			res, err := r.UpdateOne(gctx, path)
			if err != nil {
				zap.L().Warn("update skipped",
					zap.String("path", path),
					zap.Error(err),
				)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var out []UpdateResult
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}

	zap.L().Info("update fan-out complete",
		zap.Int("succeeded", len(out)),
		zap.Int("total", len(paths)),
		zap.String("outcome", formatCount(len(out), len(paths))),
	)
	return out
}

func formatCount(n, total int) string {
	return fmt.Sprintf("%d/%d successful", n, total)
}
