package gemini

import (
	"context"
	"testing"

	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.GeminiConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestStepResultDone(t *testing.T) {
	final := &StepResult{Text: "all done"}
	assert.True(t, final.Done())

	pending := &StepResult{Call: &ToolCall{Name: "create-page"}}
	assert.False(t, pending.Done())
}
