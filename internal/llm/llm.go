// Package llm defines the text-generation collaborator contract. The core
// never retries provider calls itself; a returned error is the calling
// agent's failure, subject to task-level retry.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no provider is configured. Callers treat
// this as a terminal condition, not a transient fault.
var ErrUnavailable = errors.New("no text-generation provider configured")

// CompletionRequest is one generation call.
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32

	// ForceJSON asks the provider for a JSON-only response. Used by the
	// response classifier to keep the label set closed.
	ForceJSON bool
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the provider's response.
type Completion struct {
	Text  string
	Usage Usage
}

// Completer is the narrow contract agents generate text through.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Unconfigured is the provider used when no real provider is wired. Every
// call fails with ErrUnavailable.
type Unconfigured struct{}

func (Unconfigured) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	return Completion{}, ErrUnavailable
}
