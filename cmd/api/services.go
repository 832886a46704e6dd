package main

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"imagesvc/internal/adaptive"
	"imagesvc/internal/aggregator"
	"imagesvc/internal/classifier"
	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
	"imagesvc/internal/llm"
	"imagesvc/internal/metrics"
	"imagesvc/internal/providers/comfyui"
	"imagesvc/internal/providers/generate"
	"imagesvc/internal/providers/search"
	"imagesvc/internal/storage"
)

const thumbFetchTimeout = 5 * time.Second

type services struct {
	Adaptive   *adaptive.Service
	Aggregator *aggregator.Aggregator
	Classifier *classifier.Classifier
	cache      *aggregator.RedisCache
}

func (s *services) Close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
}

func buildServices(ctx context.Context, cfg *infra.Config, lookup credentials.Lookup, store *storage.FileStore, m *metrics.Collector, logger *infra.Logger) (*services, error) {
	httpClient := &http.Client{}
	opts := func() search.Options {
		o := search.Options{Credentials: lookup, HTTPClient: httpClient, Logger: logger}
		if cfg.SearchRatePerMin > 0 {
			o.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.SearchRatePerMin)), 1)
		}
		return o
	}

	unsplash := search.NewUnsplash(opts())
	pexels := search.NewPexels(opts())
	pixabay := search.NewPixabay(opts())
	wikimedia := search.NewWikimedia(opts())

	out := &services{}
	aggOpts := aggregator.Options{
		Providers: []search.Provider{unsplash, pexels, wikimedia, pixabay},
		CacheTTL:  cfg.SearchCacheTTL,
		Metrics:   m,
		Logger:    logger,
	}
	if cfg.SearchCacheURL != "" {
		cache, err := aggregator.NewRedisCache(ctx, cfg.SearchCacheURL)
		if err != nil {
			logger.Warn().Err(err).Msg("search cache disabled")
		} else {
			out.cache = cache
			aggOpts.Cache = cache
		}
	}
	if cfg.SearchDedupeThumbs {
		aggOpts.Deduper = aggregator.NewThumbDeduper(httpClient, thumbFetchTimeout, logger)
	}
	out.Aggregator = aggregator.New(aggOpts)

	out.Classifier = classifier.New(classifier.Options{
		Completer: newCompleter(ctx, cfg, lookup, logger),
		Logger:    logger,
		Metrics:   m,
	})

	var web search.Provider
	if cfg.AgentURL != "" {
		agent, err := search.NewAgentClient(search.AgentOptions{BaseURL: cfg.AgentURL, HTTPClient: httpClient, Logger: logger})
		if err != nil {
			return nil, err
		}
		web = search.NewWebSearch(search.WebSearchOptions{
			Agent:   agent,
			Primary: search.NewBrave(opts()),
			Fallbacks: []search.Provider{
				wikimedia, pexels, unsplash, pixabay, search.NewDuckDuckGo(opts()),
			},
			Logger: logger,
		})
	}

	comfy := comfyui.New(comfyui.Options{
		BaseURL:      cfg.ComfyUIURL,
		Workflow:     cfg.ComfyUIWorkflow,
		PollInterval: cfg.ComfyUIPollInterval,
		Timeout:      cfg.ComfyUITimeout,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	strategy := generate.Select(generate.SettingsFromConfig(cfg), generate.Deps{
		Credentials:   lookup,
		Pexels:        pexels,
		Pixabay:       pixabay,
		ComfyUI:       comfy,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiBaseURL: cfg.GeminiBaseURL,
		HTTPClient:    httpClient,
		Timeout:       cfg.GenerateTimeout,
		Logger:        logger,
	})

	out.Adaptive = adaptive.New(adaptive.Options{
		Classifier: out.Classifier,
		Searcher:   out.Aggregator,
		Strategy:   strategy,
		WebSearch:  web,
		Store:      store,
		Metrics:    m,
		Logger:     logger,
	})
	return out, nil
}

// newCompleter builds the classifier's language model client. Without a
// key the classifier answers from keywords and its fallback only.
func newCompleter(ctx context.Context, cfg *infra.Config, lookup credentials.Lookup, logger *infra.Logger) llm.Completer {
	switch cfg.LLMProvider {
	case "gemini":
		c, err := llm.NewGeminiCompleter(llm.GeminiOptions{
			APIKey:  credentials.Resolve(ctx, lookup, credentials.ProviderGemini, logger),
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("classifier: language model disabled")
			return nil
		}
		return c
	default:
		c, err := llm.NewOpenAICompleter(llm.OpenAIOptions{
			APIKey:  credentials.Resolve(ctx, lookup, credentials.ProviderOpenAI, logger),
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("classifier: language model disabled")
			return nil
		}
		return c
	}
}
