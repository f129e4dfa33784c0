package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/notelift/notelift-backend/pkg/gemini"
)

const extractionPrompt = "Extract all text from the provided image. " +
	"The text is handwritten and may contain abbreviations or imperfect handwriting. " +
	"Accurately transcribe what is written. " +
	"Expand common abbreviations if you are confident about their meaning. " +
	"Return only the extracted text, no commentary."

const structurePrompt = "Organize this draft into sections with headings. " +
	"Preserve numbered titles like '1. Introduction'. " +
	"Use only the language of the draft. Do not add extra content."

const enhancePrompt = "Improve this draft: ensure it is clear and easy to understand. " +
	"Ensure the facts are correct."

const verifyPrompt = "Check the facts in this draft: ensure there is no false information. " +
	"If there is: answer only the word 'ko' in lowercase. " +
	"If there is not: answer only the word 'ok' in lowercase."

var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// GeminiExtractor transcribes handwritten notes with the vision model.
type GeminiExtractor struct {
	client *gemini.Client
}

// NewGeminiExtractor builds the production extractor.
func NewGeminiExtractor(client *gemini.Client) *GeminiExtractor {
	return &GeminiExtractor{client: client}
}

// ExtractText transcribes every eligible image in the folder and
// concatenates the results. An empty folder yields an empty string.
func (e *GeminiExtractor) ExtractText(ctx context.Context, dir string) (string, error) {
	paths, err := ListImageFiles(dir)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read image %s: %w", path, err)
		}
		mimeType := imageMimeTypes[strings.ToLower(filepath.Ext(path))]
		text, err := e.client.ExtractFromImage(ctx, extractionPrompt, mimeType, data)
		if err != nil {
			return "", fmt.Errorf("transcribe %s: %w", filepath.Base(path), err)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// GeminiEnhancer rewrites drafts with the text model.
type GeminiEnhancer struct {
	client *gemini.Client
}

// NewGeminiEnhancer builds the production enhancer.
func NewGeminiEnhancer(client *gemini.Client) *GeminiEnhancer {
	return &GeminiEnhancer{client: client}
}

func (e *GeminiEnhancer) Structure(ctx context.Context, state State) (State, error) {
	out, err := e.client.GenerateText(ctx, structurePrompt, state.Input)
	if err != nil {
		return state, err
	}
	state.Response = out
	return state, nil
}

func (e *GeminiEnhancer) Enhance(ctx context.Context, state State) (State, error) {
	out, err := e.client.GenerateText(ctx, enhancePrompt, state.Response)
	if err != nil {
		return state, err
	}
	state.Response = out
	return state, nil
}

// Verify treats anything other than a literal "ok" as a failed check.
func (e *GeminiEnhancer) Verify(ctx context.Context, state State) (Verdict, error) {
	out, err := e.client.GenerateText(ctx, verifyPrompt, state.Response)
	if err != nil {
		return VerdictKO, err
	}
	if strings.TrimSpace(strings.ToLower(out)) == "ok" {
		return VerdictOK, nil
	}
	return VerdictKO, nil
}

// ListImageFiles returns the image files in dir, sorted by name.
// Placeholder files and unknown extensions are skipped. A missing or
// empty folder is not an error.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload folder: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := imageMimeTypes[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}
