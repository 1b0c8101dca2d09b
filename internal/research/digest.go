package research

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// NoUpdatesSentinel is returned when there are no change summaries to
// digest. No model call is made in that case.
const NoUpdatesSentinel = "No significant competitor updates found in this run."

// SummarizeTopChanges merges per-competitor change summaries into one
// prioritized executive digest (max 10 items).
func (r *Researcher) SummarizeTopChanges(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return NoUpdatesSentinel, nil
	}

	req := r.messageRequest(digestPrompt(r.opts.CompanyContext, summaries))
	// The digest synthesizes text already gathered; no search needed.
	req.WebSearch = nil

	resp, err := r.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "digest: create message")
	}
	resp.Usage.LogCost(r.opts.Model, "digest")

	return strings.TrimSpace(resp.Text()), nil
}
