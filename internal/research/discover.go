package research

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/compintel/internal/normalize"
)

// Discover asks the model for competitors that emerged within the
// lookback window. The prompt instructs the model to exclude
// already-tracked names, but the instruction is not trusted: results are
// re-filtered here with a Unicode case-folded set difference. Any
// response shape other than a list of strings degrades to an empty
// result with a warning; an empty result is a valid outcome.
func (r *Researcher) Discover(ctx context.Context, existing []string, lookbackDays int) ([]string, error) {
	resp, err := r.client.CreateMessage(ctx, r.messageRequest(discoverPrompt(r.opts.CompanyContext, lookbackDays, existing)))
	if err != nil {
		return nil, eris.Wrap(err, "discover: create message")
	}
	resp.Usage.LogCost(r.opts.Model, "discover")

	rec, err := normalize.Parse(resp.Text())
	if err != nil {
		zap.L().Warn("discovery response not parseable, treating as no new entrants", zap.Error(err))
		return nil, nil
	}

	list, ok := rec["new_competitors"].([]any)
	if !ok {
		if rec["new_competitors"] != nil {
			zap.L().Warn("discovery field not a list, treating as no new entrants")
		}
		return nil, nil
	}

	folder := cases.Fold()
	known := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		known[folder.String(strings.TrimSpace(n))] = struct{}{}
	}

	var names []string
	for _, item := range list {
		name, ok := item.(string)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := known[folder.String(name)]; dup {
			zap.L().Debug("discovery returned an already-tracked name, dropping",
				zap.String("name", name),
			)
			continue
		}
		names = append(names, name)
	}

	zap.L().Info("discovery complete",
		zap.Int("candidates", len(names)),
		zap.Int("lookback_days", lookbackDays),
	)
	return names, nil
}
