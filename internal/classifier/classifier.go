// Package classifier decides whether an image prompt should be searched for
// or generated. A fixed keyword gate runs first; only prompts that match no
// keyword are sent to the language model.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/llm"
	"imagesvc/internal/metrics"
)

const (
	maxTokens         = 200
	reasonKeywordsMax = 3

	// FallbackReason is reported whenever the model call or its parsing fails.
	FallbackReason = "classification error — defaulting to search"
)

type Options struct {
	Completer llm.Completer
	Logger    *infra.Logger
	Metrics   *metrics.Collector
}

type Classifier struct {
	completer llm.Completer
	logger    *infra.Logger
	metrics   *metrics.Collector
	lower     cases.Caser
}

func New(opts Options) *Classifier {
	return &Classifier{
		completer: opts.Completer,
		logger:    infra.LoggerOrDiscard(opts.Logger),
		metrics:   opts.Metrics,
		lower:     cases.Lower(language.Und),
	}
}

type modelAnswer struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Classify never fails; every error path resolves to a search decision.
func (c *Classifier) Classify(ctx context.Context, prompt string) domain.ClassificationDecision {
	if matched := c.MatchKeywords(prompt); len(matched) > 0 {
		top := matched
		if len(top) > reasonKeywordsMax {
			top = top[:reasonKeywordsMax]
		}
		c.logger.Debug().Strs("keywords", matched).Msg("classifier: keyword gate forced search")
		c.metrics.RecordDecision(string(domain.DecisionSearch), "keyword")
		return domain.NewDecision(domain.DecisionSearch, "Scientific/educational content detected: "+strings.Join(top, ", "))
	}

	decision, err := c.ask(ctx, prompt)
	if err != nil {
		c.logger.Warn().Err(err).Msg("classifier: model classification failed")
		c.metrics.RecordDecision(string(domain.DecisionSearch), "fallback")
		return domain.NewDecision(domain.DecisionSearch, FallbackReason)
	}
	c.metrics.RecordDecision(string(decision.Decision()), "llm")
	return decision
}

// MatchKeywords returns every keyword contained in prompt, in declaration order.
// Matching is by substring, so "ion" matches "motivation".
func (c *Classifier) MatchKeywords(prompt string) []string {
	lowered := c.lower.String(prompt)
	var matched []string
	for _, kw := range searchKeywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func (c *Classifier) ask(ctx context.Context, prompt string) (domain.ClassificationDecision, error) {
	if c.completer == nil {
		return domain.ClassificationDecision{}, fmt.Errorf("%w: no language model configured", domain.ErrClassification)
	}
	raw, err := c.completer.Complete(ctx, llm.Request{
		System:    systemInstruction,
		User:      userPrompt(prompt),
		MaxTokens: maxTokens,
	})
	if err != nil {
		return domain.ClassificationDecision{}, fmt.Errorf("%w: %w", domain.ErrClassification, err)
	}
	answer, err := llm.ParseObject[modelAnswer](raw)
	if err != nil {
		return domain.ClassificationDecision{}, fmt.Errorf("%w: %w", domain.ErrClassification, err)
	}
	return domain.NewDecision(domain.ParseDecision(answer.Decision), answer.Reason), nil
}
