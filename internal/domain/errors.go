package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidPrompt       = errors.New("invalid prompt")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrClassification      = errors.New("classification failed")
	ErrInvalidTransition   = errors.New("invalid job transition")

	// Generation failures. Each is fatal to one generation attempt and is not
	// retried; callers fall back to the placeholder.
	ErrConfiguration = errors.New("configuration error")
	ErrSubmission    = errors.New("submission error")
	ErrExecution     = errors.New("execution error")
	ErrFetch         = errors.New("fetch error")
	ErrDownload      = errors.New("download error")
	ErrTimeout       = errors.New("timeout error")
)

// GenerationError classifies a failure of a generation backend.
type GenerationError struct {
	Backend string
	Kind    error
	Err     error
}

// NewGenerationError wraps err under one of the generation sentinel kinds.
func NewGenerationError(backend string, kind, err error) *GenerationError {
	return &GenerationError{Backend: backend, Kind: kind, Err: err}
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Backend, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Backend, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
