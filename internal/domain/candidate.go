package domain

import (
	"errors"
	"strings"
)

// Source tags the origin of an image candidate.
type Source string

const (
	SourceUnsplash    Source = "unsplash"
	SourcePexels      Source = "pexels"
	SourceWikimedia   Source = "wikimedia"
	SourcePixabay     Source = "pixabay"
	SourceBrave       Source = "brave"
	SourceDuckDuckGo  Source = "duckduckgo"
	SourceGenerated   Source = "ai"
	SourcePlaceholder Source = "placeholder"
)

// Valid reports whether s is one of the declared source tags.
func (s Source) Valid() bool {
	switch s {
	case SourceUnsplash, SourcePexels, SourceWikimedia, SourcePixabay,
		SourceBrave, SourceDuckDuckGo, SourceGenerated, SourcePlaceholder:
		return true
	}
	return false
}

// PlaceholderPath is served when neither search nor generation produced an image.
const PlaceholderPath = "/static/images/placeholder.jpg"

// ImageCandidate is the normalized result of any search or generation step.
type ImageCandidate struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Source       Source `json:"source"`
	Attribution  string `json:"attribution,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Validate checks the candidate invariants: a non-empty URL and a known source.
func (c ImageCandidate) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("candidate url is required")
	}
	if !c.Source.Valid() {
		return errors.New("candidate source " + string(c.Source) + " is not supported")
	}
	return nil
}

// PlaceholderCandidate returns the fixed last-resort candidate.
func PlaceholderCandidate() ImageCandidate {
	return ImageCandidate{
		URL:         PlaceholderPath,
		Source:      SourcePlaceholder,
		Attribution: "Placeholder",
		Description: "Image generation failed",
	}
}

// GeneratedCandidate wraps a generated artifact path or URL.
func GeneratedCandidate(location, prompt string) ImageCandidate {
	return ImageCandidate{
		URL:         location,
		Source:      SourceGenerated,
		Attribution: "AI Generated",
		Description: prompt,
	}
}

// AdaptiveImageResponse is returned by the adaptive entry point.
type AdaptiveImageResponse struct {
	Decision Decision         `json:"decision"`
	Reason   string           `json:"reason"`
	Images   []ImageCandidate `json:"images"`
}
