// Package adaptive decides, per prompt, whether an image is searched or
// generated and always hands back at least one usable candidate.
package adaptive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/metrics"
	"imagesvc/internal/providers/generate"
	"imagesvc/internal/providers/search"
	"imagesvc/internal/storage"
)

const (
	// PerSource is how many candidates each provider contributes.
	PerSource = 2

	SearchEmptyReason = "Search returned no results, falling back to AI generation"

	webSearchCount = 5
)

var (
	ErrGenerationDisabled = errors.New("image generation is disabled")
	ErrNoGenerator        = errors.New("no image generator configured")
)

// Classifier picks search or generate for a prompt.
type Classifier interface {
	Classify(ctx context.Context, prompt string) domain.ClassificationDecision
}

// Searcher fans a query out to all search providers.
type Searcher interface {
	SearchMultipleSources(ctx context.Context, query string, perSource int) []domain.ImageCandidate
}

type Options struct {
	Classifier Classifier
	Searcher   Searcher
	Strategy   generate.Strategy
	// WebSearch is the agent-gated web search tried before the generator;
	// nil when no agent is configured.
	WebSearch search.Provider
	// Store receives generated artifacts and maps them to public URLs.
	Store   *storage.FileStore
	Metrics *metrics.Collector
	Logger  *infra.Logger
}

type Service struct {
	classifier Classifier
	searcher   Searcher
	strategy   generate.Strategy
	web        search.Provider
	store      *storage.FileStore
	metrics    *metrics.Collector
	logger     *infra.Logger
}

func New(opts Options) *Service {
	return &Service{
		classifier: opts.Classifier,
		searcher:   opts.Searcher,
		strategy:   opts.Strategy,
		web:        opts.WebSearch,
		store:      opts.Store,
		metrics:    opts.Metrics,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

// Strategy exposes the generation strategy selected at startup.
func (s *Service) Strategy() generate.Strategy {
	return s.strategy
}

// GetAdaptiveImage classifies the prompt, searches when asked to and falls
// back to generation when search comes back empty. It never fails: the
// worst case is a single placeholder candidate.
func (s *Service) GetAdaptiveImage(ctx context.Context, prompt, language string) domain.AdaptiveImageResponse {
	p := domain.NewImagePrompt(prompt, language, "")
	decision := domain.NewDecision(domain.DecisionSearch, "no classifier configured")
	if s.classifier != nil {
		decision = s.classifier.Classify(ctx, p.Text)
	}
	s.logger.Info().
		Str("decision", string(decision.Decision())).
		Str("reason", decision.Reason()).
		Msg("adaptive: source decided")

	if decision.Decision() == domain.DecisionSearch {
		var images []domain.ImageCandidate
		if s.searcher != nil {
			images = s.searcher.SearchMultipleSources(ctx, p.Text, PerSource)
		}
		if len(images) > 0 {
			return domain.AdaptiveImageResponse{Decision: domain.DecisionSearch, Reason: decision.Reason(), Images: images}
		}
		decision = domain.NewDecision(domain.DecisionGenerate, SearchEmptyReason)
		s.metrics.RecordDecision(string(domain.DecisionGenerate), "search_empty")
		s.logger.Info().Msg("adaptive: search empty, generating")
	}

	outcome := s.GenerateImage(ctx, p)
	candidate := domain.PlaceholderCandidate()
	if !outcome.Placeholder {
		candidate = domain.GeneratedCandidate(s.store.PublicURL(outcome.Path), p.Text)
	}
	return domain.AdaptiveImageResponse{
		Decision: domain.DecisionGenerate,
		Reason:   decision.Reason(),
		Images:   []domain.ImageCandidate{candidate},
	}
}

// GenerateOutcome is the result of GenerateImage.
type GenerateOutcome struct {
	// Path is a local artifact path, a remote URL or the placeholder path.
	Path string
	// Asset is set when the image should be recorded for the presentation.
	Asset *domain.ImageAsset
	// Placeholder marks the fallback result; Err carries the cause.
	Placeholder bool
	Err         error
}

// GenerateImage produces one image for a presentation slot: web search
// first when an agent is configured, then the selected generator, then the
// placeholder.
func (s *Service) GenerateImage(ctx context.Context, p domain.ImagePrompt) GenerateOutcome {
	if s.strategy.Kind == generate.KindDisabled {
		return placeholder(ErrGenerationDisabled)
	}
	text := p.Compose(!s.strategy.Stock)

	if s.web != nil {
		res := s.web.Search(ctx, search.Query{Text: text, Count: webSearchCount, Language: p.Language})
		if urls := res.URLs(); len(urls) > 0 {
			s.logger.Info().Str("source", string(res.Source)).Int("count", len(urls)).Msg("adaptive: web search answered")
			return GenerateOutcome{
				Path: urls[0],
				Asset: &domain.ImageAsset{
					Path: urls[0],
					Extras: map[string]any{
						"prompt":     p.Text,
						"candidates": urls,
						"source":     "search",
					},
				},
			}
		}
	}

	if !s.strategy.Enabled() {
		return placeholder(ErrNoGenerator)
	}
	gen := s.strategy.Generator
	start := time.Now()
	path, err := gen.Generate(ctx, text, s.outputDir())
	s.metrics.RecordGeneration(gen.Name(), err, time.Since(start))
	if err != nil {
		s.logger.Error().Err(err).Str("backend", gen.Name()).Msg("adaptive: generation failed")
		return placeholder(err)
	}
	if isRemote(path) {
		return GenerateOutcome{Path: path}
	}
	if !storage.Exists(path) {
		err := fmt.Errorf("%w: image not found at %s", domain.ErrFetch, path)
		s.logger.Error().Err(err).Str("backend", gen.Name()).Msg("adaptive: generated file missing")
		return placeholder(err)
	}
	extras := map[string]any{"prompt": p.Text}
	if p.Theme != "" {
		extras["theme_prompt"] = p.Theme
	}
	return GenerateOutcome{
		Path:  path,
		Asset: &domain.ImageAsset{Path: path, Extras: extras},
	}
}

func placeholder(err error) GenerateOutcome {
	return GenerateOutcome{Path: domain.PlaceholderPath, Placeholder: true, Err: err}
}

func (s *Service) outputDir() string {
	return s.store.BasePath()
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
