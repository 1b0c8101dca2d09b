package publish

import (
	"context"
	"strconv"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compintel/internal/model"
)

// AppendSection appends a titled section (heading + paragraphs) to the
// summary page. Content longer than the per-block limit is split across
// multiple ordered paragraph blocks.
func (p *Publisher) AppendSection(ctx context.Context, title, content string) error {
	blocks := []notionapi.Block{headingBlock(title)}
	for _, chunk := range ChunkText(content, notionBlockLimit) {
		blocks = append(blocks, paragraphBlock(richChunks(chunk)))
	}
	if err := p.client.AppendBlocks(ctx, p.pageID, blocks); err != nil {
		return eris.Wrapf(err, "publish: append section %q", title)
	}
	return nil
}

// AppendBulletedSection appends a heading followed by one paragraph per
// item, each prefixed with a bullet.
func (p *Publisher) AppendBulletedSection(ctx context.Context, title, lead string, items []string) error {
	blocks := []notionapi.Block{headingBlock(title)}
	if lead != "" {
		for _, chunk := range ChunkText(lead, notionBlockLimit) {
			blocks = append(blocks, paragraphBlock(richChunks(chunk)))
		}
	}
	for _, item := range items {
		blocks = append(blocks, paragraphBlock(richChunks("• "+item)))
	}
	if err := p.client.AppendBlocks(ctx, p.pageID, blocks); err != nil {
		return eris.Wrapf(err, "publish: append bulleted section %q", title)
	}
	return nil
}

// AppendSourceReferences appends a heading and a numbered, clickable
// reference list built from the given citations.
func (p *Publisher) AppendSourceReferences(ctx context.Context, title string, sources []model.Source) error {
	if len(sources) == 0 {
		return nil
	}
	sources = model.DedupSources(sources)

	blocks := []notionapi.Block{headingBlock(title)}
	for i, s := range sources {
		blocks = append(blocks, paragraphBlock([]notionapi.RichText{
			{
				Type:        notionapi.ObjectTypeText,
				Text:        &notionapi.Text{Content: "[" + strconv.Itoa(i+1) + "]", Link: &notionapi.Link{Url: s.URL}},
				Annotations: &notionapi.Annotations{Bold: true},
			},
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: " " + truncate(s.Description, notionBlockLimit-1)},
			},
		}))
	}
	if err := p.client.AppendBlocks(ctx, p.pageID, blocks); err != nil {
		return eris.Wrapf(err, "publish: append source references")
	}
	return nil
}

func headingBlock(title string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{
			RichText: richChunks(title),
		},
	}
}

func paragraphBlock(rt []notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: rt,
		},
	}
}
