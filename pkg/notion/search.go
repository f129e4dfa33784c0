package notion

import (
	"context"
	"net/http"
	"strings"
)

const searchPath = "/v1/search"

// Page is a search result trimmed down to what the page picker needs.
type Page struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Icon        *string `json:"icon"`
	ParentType  *string `json:"parent_type"`
	ParentID    *string `json:"parent_id"`
	ParentTitle *string `json:"parent_title"`
}

// SearchResult groups the pages returned by a workspace search.
type SearchResult struct {
	Pages   []Page `json:"pages"`
	HasMore bool   `json:"has_more"`
}

type searchResponse struct {
	Results []struct {
		Object     string                  `json:"object"`
		ID         string                  `json:"id"`
		Icon       *searchIcon             `json:"icon"`
		Parent     searchParent            `json:"parent"`
		Properties map[string]searchColumn `json:"properties"`
	} `json:"results"`
	HasMore bool `json:"has_more"`
}

type searchIcon struct {
	Type     string `json:"type"`
	Emoji    string `json:"emoji"`
	External struct {
		URL string `json:"url"`
	} `json:"external"`
	File struct {
		URL string `json:"url"`
	} `json:"file"`
}

type searchParent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id"`
	DatabaseID string `json:"database_id"`
}

type searchColumn struct {
	Type  string `json:"type"`
	Title []struct {
		PlainText string `json:"plain_text"`
	} `json:"title"`
}

// Search lists pages the integration can reach, optionally filtered by a
// query string. Parent titles are resolved when the parent appears in the
// same result set.
func (c *Client) Search(ctx context.Context, accessToken, query string) (*SearchResult, error) {
	body := map[string]any{
		"filter": map[string]string{
			"property": "object",
			"value":    "page",
		},
	}
	if strings.TrimSpace(query) != "" {
		body["query"] = query
	}

	var resp searchResponse
	err := c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        searchPath,
		body:        body,
		bearerToken: accessToken,
	}, &resp)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(resp.Results))
	byID := make(map[string]int, len(resp.Results))

	for _, result := range resp.Results {
		if result.Object != "page" {
			continue
		}

		page := Page{ID: result.ID, Title: pageTitle(result.Properties)}
		if icon := iconValue(result.Icon); icon != "" {
			page.Icon = &icon
		}
		switch result.Parent.Type {
		case "page_id":
			parentType, parentID := result.Parent.Type, result.Parent.PageID
			page.ParentType, page.ParentID = &parentType, &parentID
		case "database_id":
			parentType, parentID := result.Parent.Type, result.Parent.DatabaseID
			page.ParentType, page.ParentID = &parentType, &parentID
		default:
			if result.Parent.Type != "" {
				parentType := result.Parent.Type
				page.ParentType = &parentType
			}
		}

		byID[normalizeID(result.ID)] = len(pages)
		pages = append(pages, page)
	}

	// Parent titles resolve only within this result set.
	for i := range pages {
		if pages[i].ParentID == nil {
			continue
		}
		if idx, ok := byID[normalizeID(*pages[i].ParentID)]; ok {
			title := pages[idx].Title
			pages[i].ParentTitle = &title
		}
	}

	return &SearchResult{Pages: pages, HasMore: resp.HasMore}, nil
}

func pageTitle(properties map[string]searchColumn) string {
	for _, column := range properties {
		if column.Type != "title" {
			continue
		}
		if len(column.Title) > 0 && column.Title[0].PlainText != "" {
			return column.Title[0].PlainText
		}
	}
	return "Untitled"
}

func iconValue(icon *searchIcon) string {
	if icon == nil {
		return ""
	}
	switch icon.Type {
	case "emoji":
		return icon.Emoji
	case "external":
		return icon.External.URL
	case "file":
		return icon.File.URL
	}
	return ""
}

// normalizeID strips dashes so page IDs compare reliably across the two
// formats Notion returns.
func normalizeID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
