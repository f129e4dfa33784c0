package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ToolCall is a function call requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// StepResult is one model turn: either a tool call to execute or final
// text output.
type StepResult struct {
	Text string
	Call *ToolCall
}

// Done reports whether the model produced a final answer instead of a
// tool call.
func (r *StepResult) Done() bool {
	return r.Call == nil
}

// ToolSession is a multi-turn conversation where the model drives work
// through declared functions.
type ToolSession struct {
	client  *Client
	config  *genai.GenerateContentConfig
	history []*genai.Content
}

// NewToolSession starts a conversation bound to the given function
// declarations.
func (c *Client) NewToolSession(declarations []*genai.FunctionDeclaration) *ToolSession {
	return &ToolSession{
		client: c,
		config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{FunctionDeclarations: declarations}},
		},
	}
}

// Send appends a user prompt and runs one model turn.
func (s *ToolSession) Send(ctx context.Context, prompt string) (*StepResult, error) {
	s.history = append(s.history, genai.NewContentFromText(prompt, genai.RoleUser))
	return s.step(ctx)
}

// ReturnToolResult feeds the outcome of the previous tool call back to
// the model and runs the next turn.
func (s *ToolSession) ReturnToolResult(ctx context.Context, name string, result map[string]any) (*StepResult, error) {
	part := genai.NewPartFromFunctionResponse(name, result)
	s.history = append(s.history, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
	return s.step(ctx)
}

func (s *ToolSession) step(ctx context.Context) (*StepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.client.timeout)
	defer cancel()

	result, err := s.client.client.Models.GenerateContent(ctx, s.client.textModel, s.history, s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to run tool turn: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content generated")
	}

	content := result.Candidates[0].Content
	s.history = append(s.history, content)

	step := &StepResult{}
	for _, part := range content.Parts {
		if part.FunctionCall != nil && step.Call == nil {
			step.Call = &ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}
		}
		if part.Text != "" {
			step.Text += part.Text
		}
	}

	return step, nil
}
