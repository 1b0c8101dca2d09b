package research

import (
	"fmt"
	"strings"

	"github.com/sells-group/compintel/internal/schema"
)

const researchSystem = `You are a competitive intelligence analyst. You research companies using live web search and produce structured, factual profiles. Every claim must be backed by a source you actually found. Respond ONLY with a single valid JSON object, no markdown fences, no commentary.`

const researchPromptTmpl = `Research the competitor "%s".

Company context for the team requesting this research:
%s

Populate every field below. Use the string "Not available" for anything you cannot verify. List fields are JSON arrays of strings. The "sources" field is a JSON array of {"url": "...", "description": "..."} objects citing the pages you used.

Fields to populate:
%s

Competitor type must be one of:
%s

Return a single JSON object with exactly these fields.`

const updatePromptTmpl = `Re-research the competitor "%s" and compare your findings against the prior profile below.

Company context for the team requesting this research:
%s

Prior profile (JSON):
%s

Populate every field listed below for the refreshed profile, following the same conventions (use "Not available" when unverifiable, cite sources as {"url", "description"} objects).

Fields to populate:
%s

Competitor type must be one of:
%s

Return a single JSON object with exactly two keys:
  "updated_record": the complete refreshed profile object
  "change_summary": 2-4 sentences describing what changed since the prior profile, or stating that nothing material changed`

const discoverPromptTmpl = `Identify competitors that have newly emerged or newly entered this market within the last %d days.

Company context for the team requesting this research:
%s

Exclude these already-tracked competitors:
%s

Use web search to find genuine new entrants: launches, funding announcements, pivots into this space. Do not pad the list; an empty result is acceptable.

Return a single JSON object with exactly one key:
  "new_competitors": a JSON array of company name strings`

const digestPromptTmpl = `You are preparing an executive briefing. Below are per-competitor change summaries from this research cycle.

Company context:
%s

Change summaries:
%s

Write a prioritized digest of at most 10 items, most significant first, framed for executive consumption: what changed, why it matters to us, and any recommended follow-up. Plain text, numbered list.`

// fieldList renders the schema's researchable fields as prompt bullet
// lines. System-generated fields are omitted; the normalizer overwrites
// them regardless of what the model returns.
func fieldList(s *schema.Schema) string {
	var b strings.Builder
	for _, f := range s.Fields {
		switch f.Name {
		case schema.FieldID, schema.FieldCreatedAt, schema.FieldLastUpdated:
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func typeList(s *schema.Schema) string {
	var b strings.Builder
	for _, t := range s.CompetitorTypes {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func researchPrompt(name, companyContext string, s *schema.Schema) string {
	return fmt.Sprintf(researchPromptTmpl, name, companyContext, fieldList(s), typeList(s))
}

func updatePrompt(name, companyContext, priorJSON string, s *schema.Schema) string {
	return fmt.Sprintf(updatePromptTmpl, name, companyContext, priorJSON, fieldList(s), typeList(s))
}

func discoverPrompt(companyContext string, lookbackDays int, existing []string) string {
	names := "- (none tracked yet)"
	if len(existing) > 0 {
		names = "- " + strings.Join(existing, "\n- ")
	}
	return fmt.Sprintf(discoverPromptTmpl, lookbackDays, companyContext, names)
}

func digestPrompt(companyContext string, summaries []string) string {
	var b strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return fmt.Sprintf(digestPromptTmpl, companyContext, strings.TrimRight(b.String(), "\n"))
}
