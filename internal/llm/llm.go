// Package llm provides minimal text-completion clients used by the classifier.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer returns the raw text answer of a language model.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

const defaultTimeout = 15 * time.Second

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
