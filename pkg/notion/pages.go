package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
)

const pagesPath = "/v1/pages"

// Block types used when publishing notes.
const (
	BlockHeading1     = "heading_1"
	BlockHeading2     = "heading_2"
	BlockBulletedItem = "bulleted_list_item"
	BlockParagraph    = "paragraph"
)

// Block is an outbound Notion block payload.
type Block map[string]any

// TextBlock builds a block of the given type carrying a single rich text
// span.
func TextBlock(blockType, text string) Block {
	return Block{
		"object": "block",
		"type":   blockType,
		blockType: map[string]any{
			"rich_text": []map[string]any{
				{
					"type": "text",
					"text": map[string]string{"content": text},
				},
			},
		},
	}
}

// CreatePage creates a child page under the parent and returns its ID.
func (c *Client) CreatePage(ctx context.Context, accessToken, parentPageID, title string) (string, error) {
	if strings.TrimSpace(parentPageID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "parent page ID is required")
	}

	body := map[string]any{
		"parent": map[string]string{"page_id": parentPageID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{
					{"text": map[string]string{"content": title}},
				},
			},
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        pagesPath,
		body:        body,
		bearerToken: accessToken,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "notion create page returned no page ID")
	}
	return resp.ID, nil
}

// AppendBlocks appends children blocks to the given block or page.
func (c *Client) AppendBlocks(ctx context.Context, accessToken, blockID string, children []Block) error {
	if strings.TrimSpace(blockID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "block ID is required")
	}
	if len(children) == 0 {
		return nil
	}

	path := fmt.Sprintf("/v1/blocks/%s/children", url.PathEscape(blockID))
	return c.doJSON(ctx, request{
		method:      http.MethodPatch,
		path:        path,
		body:        map[string]any{"children": children},
		bearerToken: accessToken,
	}, nil)
}
