package publisher

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/notelift/notelift-backend/pkg/gemini"
	"github.com/notelift/notelift-backend/pkg/notion"
)

const (
	toolCreatePage   = "create_notion_page"
	toolAppendBlocks = "append_notion_blocks"
)

// ToolDeclarations describes the workspace operations the model may
// drive during a publish run.
func ToolDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        toolCreatePage,
			Description: "Create a new Notion page under a parent page and return its id.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"parent_page_id": {Type: genai.TypeString, Description: "ID of the parent page."},
					"title":          {Type: genai.TypeString, Description: "Title of the new page."},
				},
				Required: []string{"parent_page_id", "title"},
			},
		},
		{
			Name:        toolAppendBlocks,
			Description: "Append one content block to an existing Notion page.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"page_id":    {Type: genai.TypeString, Description: "ID of the page to append to."},
					"block_type": {Type: genai.TypeString, Description: "One of heading_1, heading_2, bulleted_list_item, paragraph."},
					"text":       {Type: genai.TypeString, Description: "Plain text content of the block."},
				},
				Required: []string{"page_id", "block_type", "text"},
			},
		},
	}
}

type pageWriter interface {
	CreatePage(ctx context.Context, accessToken, parentPageID, title string) (string, error)
	AppendBlocks(ctx context.Context, accessToken, blockID string, children []notion.Block) error
}

// notionExecutor runs model-requested tool calls against the Notion API
// with the caller's access token.
type notionExecutor struct {
	writer      pageWriter
	accessToken string
}

func (e *notionExecutor) Execute(ctx context.Context, call *gemini.ToolCall) (map[string]any, error) {
	switch call.Name {
	case toolCreatePage:
		parentID, _ := call.Args["parent_page_id"].(string)
		title, _ := call.Args["title"].(string)
		pageID, err := e.writer.CreatePage(ctx, e.accessToken, parentID, title)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": pageID}, nil

	case toolAppendBlocks:
		pageID, _ := call.Args["page_id"].(string)
		blockType, _ := call.Args["block_type"].(string)
		text, _ := call.Args["text"].(string)
		if !validBlockType(blockType) {
			return nil, fmt.Errorf("unknown block type %q", blockType)
		}
		if err := e.writer.AppendBlocks(ctx, e.accessToken, pageID, blocksFor(blockType, text)); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil
	}

	return nil, fmt.Errorf("unknown tool %q", call.Name)
}

func validBlockType(blockType string) bool {
	switch blockType {
	case notion.BlockHeading1, notion.BlockHeading2, notion.BlockBulletedItem, notion.BlockParagraph:
		return true
	}
	return false
}
