package client

import (
	"context"

	"github.com/Muchai14/code-collab-hub/internal/domain"
)

// Executor runs a code buffer and reports the outcome. It is an external
// capability: implementations must not panic on bad input — failures come
// back through ExecutionResult.Error or the error return, and the agent
// folds the latter into the result as well.
type Executor interface {
	Execute(ctx context.Context, code string, language domain.Language) (*domain.ExecutionResult, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, code string, language domain.Language) (*domain.ExecutionResult, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, code string, language domain.Language) (*domain.ExecutionResult, error) {
	return f(ctx, code, language)
}
