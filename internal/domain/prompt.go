package domain

import "strings"

// DefaultLanguage is used when a caller does not specify a prompt language.
const DefaultLanguage = "English"

// ImagePrompt is the immutable input of an image request.
type ImagePrompt struct {
	Text     string `json:"prompt"`
	Language string `json:"language"`
	Theme    string `json:"theme_prompt,omitempty"`
}

// NewImagePrompt trims its inputs and defaults the language.
func NewImagePrompt(text, language, theme string) ImagePrompt {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	return ImagePrompt{
		Text:     strings.TrimSpace(text),
		Language: language,
		Theme:    strings.TrimSpace(theme),
	}
}

// Compose returns the text sent to a backend. Generative paths pass
// withTheme=true; search needs the literal subject and passes false.
func (p ImagePrompt) Compose(withTheme bool) string {
	if withTheme && p.Theme != "" {
		return p.Text + ", " + p.Theme
	}
	return p.Text
}
