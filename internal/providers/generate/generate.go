// Package generate produces a single image for a prompt, either by calling
// a generative backend or by taking the first hit of a stock photo API.
package generate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
	"imagesvc/internal/providers/comfyui"
	"imagesvc/internal/providers/search"
)

// Generator returns a local artifact path or a remote URL. Failures are
// *domain.GenerationError values; a returned path is never empty on success.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt, outputDir string) (string, error)
}

// Kind names a generation strategy as written in IMAGE_PROVIDER.
type Kind string

const (
	KindPixabay       Kind = "pixabay"
	KindPexels        Kind = "pexels"
	KindGeminiFlash   Kind = "gemini_flash"
	KindNanoBananaPro Kind = "nanobanana_pro"
	KindDallE3        Kind = "dall-e-3"
	KindGPTImage      Kind = "gpt-image-1.5"
	KindComfyUI       Kind = "comfyui"

	KindDisabled Kind = "disabled"
	KindNone     Kind = "none"
)

// Priority is the fixed order in which requested kinds are considered.
var Priority = []Kind{
	KindPixabay, KindPexels, KindGeminiFlash, KindNanoBananaPro,
	KindDallE3, KindGPTImage, KindComfyUI,
}

const generateTimeout = 120 * time.Second

// Settings is the configuration slice selection depends on.
type Settings struct {
	Requested       []string
	Disabled        bool
	DallE3Quality   string
	GPTImageQuality string
}

// SettingsFromConfig extracts the generation settings from cfg.
func SettingsFromConfig(cfg *infra.Config) Settings {
	return Settings{
		Requested:       cfg.ImageProvider,
		Disabled:        cfg.DisableImageGeneration,
		DallE3Quality:   cfg.DallE3Quality,
		GPTImageQuality: cfg.GPTImageQuality,
	}
}

// Deps carries the collaborators generators are built from.
type Deps struct {
	Credentials   credentials.Lookup
	Pexels        search.Provider
	Pixabay       search.Provider
	ComfyUI       *comfyui.Generator
	OpenAIBaseURL string
	GeminiBaseURL string
	HTTPClient    *http.Client
	// Timeout bounds each hosted generator call.
	Timeout       time.Duration
	Logger        *infra.Logger
}

// Strategy is the generation path chosen once at startup.
type Strategy struct {
	Kind      Kind
	Generator Generator
	// Stock strategies search with the bare prompt, without the theme.
	Stock bool
}

// Enabled reports whether a generator is available.
func (s Strategy) Enabled() bool {
	return s.Generator != nil
}

// Select resolves the strategy: disabled generation wins, otherwise the
// first kind in Priority that was requested and can be built.
func Select(settings Settings, deps Deps) Strategy {
	if settings.Disabled {
		return Strategy{Kind: KindDisabled}
	}
	requested := make(map[Kind]bool, len(settings.Requested))
	for _, r := range settings.Requested {
		requested[Kind(strings.ToLower(strings.TrimSpace(r)))] = true
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	for _, kind := range Priority {
		if !requested[kind] {
			continue
		}
		if s, ok := build(kind, settings, deps, httpClient); ok {
			infra.LoggerOrDiscard(deps.Logger).Info().Str("strategy", string(kind)).Msg("generate: strategy selected")
			return s
		}
	}
	return Strategy{Kind: KindNone}
}

func build(kind Kind, settings Settings, deps Deps, httpClient *http.Client) (Strategy, bool) {
	switch kind {
	case KindPixabay, KindPexels:
		p := deps.Pixabay
		if kind == KindPexels {
			p = deps.Pexels
		}
		if p == nil {
			return Strategy{}, false
		}
		return Strategy{Kind: kind, Generator: NewStockGenerator(p), Stock: true}, true
	case KindGeminiFlash, KindNanoBananaPro:
		model := GeminiFlashImageModel
		if kind == KindNanoBananaPro {
			model = NanoBananaProModel
		}
		return Strategy{Kind: kind, Generator: NewGeminiGenerator(GeminiOptions{
			Name:        string(kind),
			Model:       model,
			BaseURL:     deps.GeminiBaseURL,
			Credentials: deps.Credentials,
			HTTPClient:  httpClient,
			Timeout:     deps.Timeout,
			Logger:      deps.Logger,
		})}, true
	case KindDallE3, KindGPTImage:
		quality := coalesce(settings.DallE3Quality, "standard")
		if kind == KindGPTImage {
			quality = coalesce(settings.GPTImageQuality, "medium")
		}
		return Strategy{Kind: kind, Generator: NewOpenAIGenerator(OpenAIOptions{
			Model:       string(kind),
			Quality:     quality,
			BaseURL:     deps.OpenAIBaseURL,
			Credentials: deps.Credentials,
			HTTPClient:  httpClient,
			Timeout:     deps.Timeout,
			Logger:      deps.Logger,
		})}, true
	case KindComfyUI:
		if deps.ComfyUI == nil {
			return Strategy{}, false
		}
		return Strategy{Kind: kind, Generator: deps.ComfyUI}, true
	}
	return Strategy{}, false
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ Generator = (*comfyui.Generator)(nil)
