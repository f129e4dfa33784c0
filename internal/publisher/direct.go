package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/notelift/notelift-backend/pkg/notion"
)

// Notion rejects rich text spans above 2000 characters; long blocks are
// cut into 1500-character chunks until the remainder fits.
const (
	chunkSize    = 1500
	blockTextCap = 2000
)

// DirectPublisher bypasses model tool-selection entirely: it creates the
// page and maps each draft line to a block type by syntactic pattern.
// The test-mode upload path uses it to exercise publishing with zero
// model calls.
type DirectPublisher struct {
	writer pageWriter
}

// NewDirectPublisher builds the deterministic publisher.
func NewDirectPublisher(writer pageWriter) (*DirectPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("page writer required")
	}
	return &DirectPublisher{writer: writer}, nil
}

// Publish creates the page and appends one block per non-blank line.
func (p *DirectPublisher) Publish(ctx context.Context, accessToken, title, parentPageID, draft string) error {
	pageID, err := p.writer.CreatePage(ctx, accessToken, parentPageID, title)
	if err != nil {
		if notion.IsTargetGone(err) {
			return ErrTargetGone
		}
		return err
	}

	for _, line := range strings.Split(draft, "\n") {
		blockType, text, ok := classifyLine(line)
		if !ok {
			continue
		}
		if err := p.writer.AppendBlocks(ctx, accessToken, pageID, blocksFor(blockType, text)); err != nil {
			return err
		}
	}
	return nil
}

// classifyLine maps a draft line onto a block type. Blank lines are
// skipped.
func classifyLine(line string) (blockType, text string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	switch {
	case strings.HasPrefix(line, "# "):
		return notion.BlockHeading1, line[2:], true
	case strings.HasPrefix(line, "## "):
		return notion.BlockHeading2, line[3:], true
	case isNumberedHeading(line):
		return notion.BlockHeading2, line, true
	case strings.HasPrefix(line, "- "):
		return notion.BlockBulletedItem, line[2:], true
	}
	return notion.BlockParagraph, line, true
}

func isNumberedHeading(line string) bool {
	if len(line) < 3 {
		return false
	}
	return line[0] >= '1' && line[0] <= '9' && line[1] == '.' && line[2] == ' '
}

// blocksFor splits the text into chunks and wraps each in a block of the
// same type.
func blocksFor(blockType, text string) []notion.Block {
	chunks := chunkText(text)
	blocks := make([]notion.Block, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = notion.TextBlock(blockType, chunk)
	}
	return blocks
}

func chunkText(text string) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > blockTextCap {
		chunks = append(chunks, string(runes[:chunkSize]))
		runes = runes[chunkSize:]
	}
	return append(chunks, string(runes))
}
