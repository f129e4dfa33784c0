// Package pipeline turns an uploaded photo of handwritten notes into a
// polished draft: transcribe, structure, enhance, verify.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notelift/notelift-backend/pkg/logger"
)

// Verdict is the fact-check outcome for an enhanced draft.
type Verdict string

const (
	VerdictOK Verdict = "ok"
	VerdictKO Verdict = "ko"
)

// State carries the draft through the enhancement steps. Steps receive
// and return it by value; nothing is mutated behind the caller's back.
type State struct {
	Input    string
	Response string
}

// Extractor transcribes the images found in a folder.
type Extractor interface {
	ExtractText(ctx context.Context, dir string) (string, error)
}

// Enhancer rewrites a draft through the structure, enhance and verify
// steps.
type Enhancer interface {
	Structure(ctx context.Context, state State) (State, error)
	Enhance(ctx context.Context, state State) (State, error)
	Verify(ctx context.Context, state State) (Verdict, error)
}

// Result is the finished draft handed to the publisher.
type Result struct {
	Title   string
	Content string
}

// Runner executes the full pipeline over one upload folder.
type Runner struct {
	extractor  Extractor
	enhancer   Enhancer
	maxRetries int
	logg       *logger.Logger
}

// NewRunner wires a pipeline run. maxRetries bounds the enhance/verify
// loop; once exhausted the draft is accepted as-is rather than looping
// forever.
func NewRunner(extractor Extractor, enhancer Enhancer, maxRetries int, logg *logger.Logger) (*Runner, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor required")
	}
	if enhancer == nil {
		return nil, fmt.Errorf("enhancer required")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Runner{
		extractor:  extractor,
		enhancer:   enhancer,
		maxRetries: maxRetries,
		logg:       logg,
	}, nil
}

// Run transcribes the folder and drives the enhancement loop to a
// terminal state.
func (r *Runner) Run(ctx context.Context, dir string) (*Result, error) {
	raw, err := r.extractor.ExtractText(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	state := State{Input: raw}
	state, err = r.enhancer.Structure(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("structure draft: %w", err)
	}

	for attempt := 0; ; attempt++ {
		state, err = r.enhancer.Enhance(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("enhance draft: %w", err)
		}

		verdict, err := r.enhancer.Verify(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("verify draft: %w", err)
		}
		if verdict == VerdictOK {
			break
		}
		if attempt+1 >= r.maxRetries {
			if r.logg != nil {
				r.logg.Warn(ctx, fmt.Sprintf("fact check still failing after %d attempts, accepting draft as-is", r.maxRetries))
			}
			break
		}
	}

	return &Result{
		Title:   TitleFromDir(dir),
		Content: state.Response,
	}, nil
}

// TitleFromDir derives the page title from the upload folder name.
func TitleFromDir(dir string) string {
	return filepath.Base(strings.TrimRight(dir, "/"))
}
