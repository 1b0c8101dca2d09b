// Package publish reconciles normalized records against the Notion
// workspace: create-or-update rows in the competitor database and
// append digest sections to the summary page.
package publish

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/schema"
	"github.com/sells-group/compintel/pkg/notion"
)

// Publisher owns the Notion targets for one run.
type Publisher struct {
	client notion.Client
	schema *schema.Schema
	dbID   string
	pageID string
}

// New creates a Publisher for the given database and summary page.
func New(client notion.Client, s *schema.Schema, dbID, pageID string) *Publisher {
	return &Publisher{client: client, schema: s, dbID: dbID, pageID: pageID}
}

// Counts aggregates reconciliation outcomes.
type Counts struct {
	Created int
	Updated int
	Failed  int
}

// Reconcile upserts each record into the competitor database, keyed by
// the title property (exact match on the competitor name). The database
// is prefetched once and titles resolved from that index; if the
// prefetch fails, each record falls back to a targeted title query. A
// lookup that still fails falls through to create rather than aborting;
// individual failures are counted and logged, never fatal to the batch.
func (p *Publisher) Reconcile(ctx context.Context, records []model.Record) Counts {
	var counts Counts
	titleProp := p.titleColumn()
	index, prefetched := p.pageIndex(ctx, titleProp)

	for _, rec := range records {
		name := rec.Name()
		if name == "" || name == model.NotAvailable {
			counts.Failed++
			zap.L().Warn("reconcile: record has no competitor name, skipping")
			continue
		}

		pageID := index[name]
		if pageID == "" && !prefetched {
			page, err := notion.FindPageByTitle(ctx, p.client, p.dbID, titleProp, name)
			switch {
			case err != nil:
				// Ambiguity between "missing" and "lookup broken" resolves
				// toward create: a duplicate row beats losing the record.
				zap.L().Warn("reconcile: lookup failed, falling through to create",
					zap.String("competitor", name),
					zap.Error(err),
				)
			case page != nil:
				pageID = string(page.ID)
			}
		}

		props := p.properties(rec)
		var err error
		if pageID != "" {
			_, err = p.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props})
			if err == nil {
				counts.Updated++
				continue
			}
		} else {
			_, err = p.client.CreatePage(ctx, &notionapi.PageCreateRequest{
				Parent: notionapi.Parent{
					Type:       notionapi.ParentTypeDatabaseID,
					DatabaseID: notionapi.DatabaseID(p.dbID),
				},
				Properties: props,
			})
			if err == nil {
				counts.Created++
				continue
			}
		}

		counts.Failed++
		zap.L().Error("reconcile: upsert failed",
			zap.String("competitor", name),
			zap.Error(err),
		)
	}

	zap.L().Info("reconcile complete",
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("failed", counts.Failed),
	)
	return counts
}

// pageIndex fetches the whole competitor database once and maps title
// text to page ID. A failed prefetch returns ok=false so the caller can
// fall back to per-record lookups.
func (p *Publisher) pageIndex(ctx context.Context, titleProp string) (map[string]string, bool) {
	pages, err := notion.QueryAll(ctx, p.client, p.dbID, nil)
	if err != nil {
		zap.L().Warn("reconcile: database prefetch failed, falling back to per-record lookups",
			zap.Error(err),
		)
		return nil, false
	}

	index := make(map[string]string, len(pages))
	for i := range pages {
		if title := titleText(pages[i].Properties[titleProp]); title != "" {
			index[title] = string(pages[i].ID)
		}
	}
	return index, true
}

// titleText flattens a title property to plain text.
func titleText(prop notionapi.Property) string {
	var rts []notionapi.RichText
	switch v := prop.(type) {
	case *notionapi.TitleProperty:
		rts = v.Title
	case notionapi.TitleProperty:
		rts = v.Title
	default:
		return ""
	}

	var b strings.Builder
	for _, rt := range rts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

func (p *Publisher) titleColumn() string {
	if f, ok := p.schema.FieldByName(schema.FieldName); ok {
		return f.Column
	}
	return "Competitor Name"
}

// properties maps a record onto typed Notion property values, chunking
// long text at the per-block limit. The internal identifier field is
// not exported to Notion.
func (p *Publisher) properties(rec model.Record) notionapi.Properties {
	props := make(notionapi.Properties, len(p.schema.Fields))

	for _, f := range p.schema.Fields {
		if f.Name == schema.FieldID {
			continue
		}

		switch f.Name {
		case schema.FieldName:
			props[f.Column] = notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: richChunks(rec.Name()),
			}
			continue
		case schema.FieldSources:
			if rt := sourceRichText(rec.Sources()); len(rt) > 0 {
				props[f.Column] = notionapi.RichTextProperty{
					Type:     notionapi.PropertyTypeRichText,
					RichText: rt,
				}
			}
			continue
		}

		switch f.Type {
		case schema.TypeURL:
			if s, ok := rec.StringField(f.Name); ok {
				props[f.Column] = notionapi.URLProperty{
					Type: notionapi.PropertyTypeURL,
					URL:  s,
				}
			}
		case schema.TypeSelect:
			if s, ok := rec.StringField(f.Name); ok {
				props[f.Column] = notionapi.SelectProperty{
					Type:   notionapi.PropertyTypeSelect,
					Select: notionapi.Option{Name: s},
				}
			}
		case schema.TypeDate:
			if s, ok := rec.StringField(f.Name); ok {
				if d, err := parseDate(s); err == nil {
					props[f.Column] = notionapi.DateProperty{
						Type: notionapi.PropertyTypeDate,
						Date: &notionapi.DateObject{Start: d},
					}
				}
			}
		case schema.TypeNumber:
			if n, ok := numberValue(rec[f.Name]); ok {
				props[f.Column] = notionapi.NumberProperty{
					Type:   notionapi.PropertyTypeNumber,
					Number: n,
				}
			}
		case schema.TypeList:
			if items := rec.ListField(f.Name); len(items) > 0 {
				props[f.Column] = notionapi.RichTextProperty{
					Type:     notionapi.PropertyTypeRichText,
					RichText: richChunks(bulletize(items)),
				}
			}
		default:
			if s, ok := rec.StringField(f.Name); ok {
				props[f.Column] = notionapi.RichTextProperty{
					Type:     notionapi.PropertyTypeRichText,
					RichText: richChunks(s),
				}
			}
		}
	}

	return props
}

// richChunks renders text as rich-text segments, one per 2000-char chunk.
func richChunks(s string) []notionapi.RichText {
	chunks := ChunkText(s, notionBlockLimit)
	out := make([]notionapi.RichText, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: c},
		})
	}
	return out
}

// sourceRichText renders citations as numbered clickable references:
// bold "[1]" linking to the url, followed by the description.
func sourceRichText(sources []model.Source) []notionapi.RichText {
	var out []notionapi.RichText
	for i, s := range sources {
		out = append(out,
			notionapi.RichText{
				Type:        notionapi.ObjectTypeText,
				Text:        &notionapi.Text{Content: "[" + strconv.Itoa(i+1) + "]", Link: &notionapi.Link{Url: s.URL}},
				Annotations: &notionapi.Annotations{Bold: true},
			},
			notionapi.RichText{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: " " + truncate(s.Description, notionBlockLimit-1) + "\n"},
			},
		)
	}
	return out
}

func bulletize(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("• ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		if n == "" || n == model.NotAvailable {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseDate(s string) (*notionapi.Date, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, err
	}
	d := notionapi.Date(t)
	return &d, nil
}
