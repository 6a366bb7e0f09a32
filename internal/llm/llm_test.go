package llm

import (
	"context"
	"errors"
	"testing"
)

func TestUnconfigured(t *testing.T) {
	var c Completer = Unconfigured{}
	_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable for missing API key", err)
	}
}
