package domain

import (
	"encoding/json"
	"strings"
)

// Decision enumerates the image sourcing strategies.
type Decision string

const (
	DecisionGenerate Decision = "generate"
	DecisionSearch   Decision = "search"
)

const defaultDecisionReason = "Default decision"

// ClassificationDecision is the immutable outcome of classifying a prompt.
type ClassificationDecision struct {
	decision Decision
	reason   string
}

// NewDecision builds a decision, coercing unknown values to search and
// substituting a default reason when none is given.
func NewDecision(decision Decision, reason string) ClassificationDecision {
	d := ParseDecision(string(decision))
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDecisionReason
	}
	return ClassificationDecision{decision: d, reason: reason}
}

// ParseDecision maps free-form text onto a Decision. Anything other than
// "generate" becomes search.
func ParseDecision(raw string) Decision {
	if strings.EqualFold(strings.TrimSpace(raw), string(DecisionGenerate)) {
		return DecisionGenerate
	}
	return DecisionSearch
}

func (c ClassificationDecision) Decision() Decision { return c.decision }

func (c ClassificationDecision) Reason() string { return c.reason }

// MarshalJSON exposes the decision as {"decision":..., "reason":...}.
func (c ClassificationDecision) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Decision Decision `json:"decision"`
		Reason   string   `json:"reason"`
	}{c.decision, c.reason})
}
