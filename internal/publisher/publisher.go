// Package publisher writes a finished draft into the user's Notion
// workspace, either through a model-driven tool loop or a direct
// deterministic mapping.
package publisher

import (
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
)

// Loop bounds for the tool-calling publisher.
const (
	DefaultMaxIterations        = 10
	DefaultMaxConsecutiveErrors = 5
)

var (
	// ErrTargetGone means the configured parent page was deleted,
	// archived or unshared. Callers clear the stored publish target.
	ErrTargetGone = pkgerrors.New(pkgerrors.CodeTargetGone, "the configured page no longer exists or is no longer accessible")

	// ErrRetriesExhausted means too many consecutive tool calls failed.
	ErrRetriesExhausted = pkgerrors.New(pkgerrors.CodeDependency, "publishing aborted after repeated tool failures")

	// ErrIterationLimit means the model never produced a final answer
	// within the iteration budget.
	ErrIterationLimit = pkgerrors.New(pkgerrors.CodeDependency, "publishing aborted after reaching the iteration limit")
)
