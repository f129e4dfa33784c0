// Package gemini wraps the Google Gemini API for text extraction,
// draft rewriting and tool-driven publishing.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/notelift/notelift-backend/pkg/config"
)

const (
	DefaultVisionModel = "gemini-2.5-flash"
	DefaultTextModel   = "gemini-2.5-flash"
	defaultCallTimeout = 120 * time.Second
)

// Client talks to the Gemini API.
type Client struct {
	client      *genai.Client
	visionModel string
	textModel   string
	timeout     time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithVisionModel sets the model used for image transcription.
func WithVisionModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.visionModel = model
		}
	}
}

// WithTextModel sets the model used for drafting and tool calls.
func WithTextModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.textModel = model
		}
	}
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg config.GeminiConfig, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:      genaiClient,
		visionModel: DefaultVisionModel,
		textModel:   DefaultTextModel,
		timeout:     defaultCallTimeout,
	}
	if cfg.VisionModel != "" {
		c.visionModel = cfg.VisionModel
	}
	if cfg.TextModel != "" {
		c.textModel = cfg.TextModel
	}
	if cfg.CallTimeout > 0 {
		c.timeout = cfg.CallTimeout
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ExtractFromImage transcribes the supplied image bytes using the vision
// model.
func (c *Client) ExtractFromImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(data, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe image: %w", err)
	}

	return extractTextFromResponse(result)
}

// GenerateText runs a single prompt against the text model with an
// optional system instruction.
func (c *Client) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var cfg *genai.GenerateContentConfig
	if systemInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}
