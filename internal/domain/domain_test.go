package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewDecisionCoercesUnknownValues(t *testing.T) {
	tests := []struct {
		in   Decision
		want Decision
	}{
		{DecisionGenerate, DecisionGenerate},
		{"GENERATE", DecisionGenerate},
		{DecisionSearch, DecisionSearch},
		{"draw", DecisionSearch},
		{"", DecisionSearch},
	}
	for _, tt := range tests {
		got := NewDecision(tt.in, "because")
		if got.Decision() != tt.want {
			t.Fatalf("NewDecision(%q) = %q, want %q", tt.in, got.Decision(), tt.want)
		}
	}
}

func TestNewDecisionNeverHasEmptyReason(t *testing.T) {
	d := NewDecision(DecisionSearch, "   ")
	if d.Reason() == "" {
		t.Fatalf("reason should be defaulted")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"decision":"search","reason":"Default decision"}` {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestImagePromptCompose(t *testing.T) {
	p := NewImagePrompt(" volcano cross-section ", "", " watercolor style ")
	if p.Language != DefaultLanguage {
		t.Fatalf("language = %q, want %q", p.Language, DefaultLanguage)
	}
	if got := p.Compose(false); got != "volcano cross-section" {
		t.Fatalf("Compose(false) = %q", got)
	}
	if got := p.Compose(true); got != "volcano cross-section, watercolor style" {
		t.Fatalf("Compose(true) = %q", got)
	}
	bare := NewImagePrompt("volcano", "Russian", "")
	if got := bare.Compose(true); got != "volcano" {
		t.Fatalf("Compose(true) without theme = %q", got)
	}
}

func TestCandidateValidate(t *testing.T) {
	if err := (ImageCandidate{URL: "https://x/y.jpg", Source: SourcePexels}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (ImageCandidate{Source: SourcePexels}).Validate(); err == nil {
		t.Fatalf("empty url should be rejected")
	}
	if err := (ImageCandidate{URL: "https://x", Source: "flickr"}).Validate(); err == nil {
		t.Fatalf("unknown source should be rejected")
	}
	if err := PlaceholderCandidate().Validate(); err != nil {
		t.Fatalf("placeholder must be valid: %v", err)
	}
}

func TestGenerationJobAdvancesForwardOnly(t *testing.T) {
	job := NewGenerationJob("p-1", time.Now())
	if err := job.Advance(JobStatusRunning); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	if err := job.Advance(JobStatusRunning); err != nil {
		t.Fatalf("running -> running should be a no-op: %v", err)
	}
	if err := job.Advance(JobStatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("running -> pending err = %v, want ErrInvalidTransition", err)
	}
	if err := job.Advance(JobStatusCompleted); err != nil {
		t.Fatalf("running -> completed: %v", err)
	}
	if err := job.Advance(JobStatusFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed -> failed err = %v, want ErrInvalidTransition", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
}

func TestGenerationErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := error(NewGenerationError("comfyui", ErrDownload, cause))
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if errors.Is(err, ErrFetch) {
		t.Fatalf("unexpected ErrFetch match")
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Backend != "comfyui" {
		t.Fatalf("errors.As failed: %#v", genErr)
	}
}
