package publisher

import (
	"context"
	"fmt"

	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/gemini"
	"github.com/notelift/notelift-backend/pkg/logger"
	"github.com/notelift/notelift-backend/pkg/notion"
)

const publishPromptTemplate = `You are publishing polished notes into a Notion workspace.

Create a new page titled %q under the parent page with id %q, then append
the draft below to that page block by block. Map markdown-style headings
to heading blocks and dashes to bulleted list items. When every block has
been appended, reply with a short confirmation and stop calling tools.

Draft:
%s`

type toolSession interface {
	Send(ctx context.Context, prompt string) (*gemini.StepResult, error)
	ReturnToolResult(ctx context.Context, name string, result map[string]any) (*gemini.StepResult, error)
}

type toolExecutor interface {
	Execute(ctx context.Context, call *gemini.ToolCall) (map[string]any, error)
}

// ToolPublisher drives a bounded function-calling loop: the model picks
// workspace operations, the executor performs them, results feed back
// until the model stops or a bound trips.
type ToolPublisher struct {
	newSession           func() toolSession
	newExecutor          func(accessToken string) toolExecutor
	maxIterations        int
	maxConsecutiveErrors int
	logg                 *logger.Logger
}

// NewToolPublisher wires the production publisher around a Gemini client
// and a Notion client.
func NewToolPublisher(gem *gemini.Client, writer pageWriter, maxIterations, maxConsecutiveErrors int, logg *logger.Logger) (*ToolPublisher, error) {
	if gem == nil {
		return nil, fmt.Errorf("gemini client required")
	}
	if writer == nil {
		return nil, fmt.Errorf("page writer required")
	}
	declarations := ToolDeclarations()
	return newToolPublisher(
		func() toolSession { return gem.NewToolSession(declarations) },
		func(accessToken string) toolExecutor {
			return &notionExecutor{writer: writer, accessToken: accessToken}
		},
		maxIterations,
		maxConsecutiveErrors,
		logg,
	), nil
}

func newToolPublisher(newSession func() toolSession, newExecutor func(string) toolExecutor, maxIterations, maxConsecutiveErrors int, logg *logger.Logger) *ToolPublisher {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxConsecutiveErrors <= 0 {
		maxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	return &ToolPublisher{
		newSession:           newSession,
		newExecutor:          newExecutor,
		maxIterations:        maxIterations,
		maxConsecutiveErrors: maxConsecutiveErrors,
		logg:                 logg,
	}
}

// Publish runs the tool loop until the model finishes or a bound trips.
func (p *ToolPublisher) Publish(ctx context.Context, accessToken, title, parentPageID, draft string) error {
	session := p.newSession()
	executor := p.newExecutor(accessToken)

	prompt := fmt.Sprintf(publishPromptTemplate, title, parentPageID, draft)
	consecutiveErrors := 0

	step, err := session.Send(ctx, prompt)
	for iteration := 1; ; iteration++ {
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "model turn failed")
		}
		if step.Done() {
			return nil
		}
		if iteration >= p.maxIterations {
			return ErrIterationLimit
		}

		result, execErr := executor.Execute(ctx, step.Call)
		if execErr != nil {
			if notion.IsTargetGone(execErr) {
				return ErrTargetGone
			}
			consecutiveErrors++
			if p.logg != nil {
				p.logg.Error(ctx, fmt.Sprintf("tool %s failed (%d consecutive)", step.Call.Name, consecutiveErrors), execErr)
			}
			if consecutiveErrors >= p.maxConsecutiveErrors {
				return ErrRetriesExhausted
			}
			result = map[string]any{"error": execErr.Error()}
		} else {
			consecutiveErrors = 0
		}

		step, err = session.ReturnToolResult(ctx, step.Call.Name, result)
	}
}
