// Package aggregator fans a query out to every search provider and merges
// the answers into one fair, bounded list.
package aggregator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/metrics"
	"imagesvc/internal/providers/search"
)

const (
	// MaxResults bounds every merged list.
	MaxResults = 10
	// DefaultPerSource is the per-provider count of the adaptive flow.
	DefaultPerSource = 2
)

type Options struct {
	Providers  []search.Provider
	Cache      Cache
	CacheTTL   time.Duration
	Deduper    *ThumbDeduper
	Metrics    *metrics.Collector
	Logger     *infra.Logger
	MaxResults int
}

type Aggregator struct {
	providers  []search.Provider
	cache      Cache
	cacheTTL   time.Duration
	deduper    *ThumbDeduper
	metrics    *metrics.Collector
	logger     *infra.Logger
	maxResults int
}

func New(opts Options) *Aggregator {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = MaxResults
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Aggregator{
		providers:  opts.Providers,
		cache:      opts.Cache,
		cacheTTL:   ttl,
		deduper:    opts.Deduper,
		metrics:    opts.Metrics,
		logger:     infra.LoggerOrDiscard(opts.Logger),
		maxResults: maxResults,
	}
}

// Providers returns the configured provider names.
func (a *Aggregator) Providers() []string {
	return search.Sources(a.providers)
}

// SearchMultipleSources queries all providers concurrently and returns at
// most MaxResults candidates interleaved by source. It never fails; an empty
// slice means no provider had anything.
func (a *Aggregator) SearchMultipleSources(ctx context.Context, query string, perSource int) []domain.ImageCandidate {
	if perSource <= 0 {
		perSource = DefaultPerSource
	}
	key := cacheKey(query, perSource)
	if cached, ok := a.lookup(ctx, key); ok {
		return cached
	}

	results := a.Gather(ctx, search.Query{Text: query, Count: perSource})
	merged := Interleave(results)
	merged = dedupeURLs(merged)
	if a.deduper != nil {
		merged = a.deduper.Filter(ctx, merged)
	}
	if len(merged) > a.maxResults {
		merged = merged[:a.maxResults]
	}
	if merged == nil {
		merged = []domain.ImageCandidate{}
	}

	a.logger.Info().Str("query", query).Int("count", len(merged)).Msg("aggregator: merged search results")
	if len(merged) > 0 {
		a.store(ctx, key, merged)
	}
	return merged
}

// Gather runs every provider concurrently. Results keep provider order. A
// provider that panics is reported as a failed result; none can cancel the
// others.
func (a *Aggregator) Gather(ctx context.Context, q search.Query) []search.Result {
	results := make([]search.Result, len(a.providers))
	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			results[i] = a.call(ctx, p, q)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Aggregator) call(ctx context.Context, p search.Provider, q search.Query) (res search.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = search.Result{
				Source: p.Name(),
				Err:    &search.ProviderError{Provider: p.Name(), Op: "panic", Err: fmt.Errorf("%v", r)},
			}
			a.logger.Error().Str("provider", string(p.Name())).Interface("panic", r).Msg("aggregator: provider panicked")
		}
		a.metrics.RecordProvider(string(p.Name()), outcome(res), time.Since(start))
	}()
	res = p.Search(ctx, q)
	if res.Source == "" {
		res.Source = p.Name()
	}
	return res
}

func outcome(r search.Result) string {
	switch {
	case r.Err != nil:
		return metrics.OutcomeError
	case len(r.Candidates) == 0:
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeOK
	}
}

func (a *Aggregator) lookup(ctx context.Context, key string) ([]domain.ImageCandidate, bool) {
	if a.cache == nil {
		return nil, false
	}
	cached, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn().Err(err).Msg("aggregator: cache read failed")
		return nil, false
	}
	a.metrics.RecordCache(ok)
	return cached, ok
}

func (a *Aggregator) store(ctx context.Context, key string, list []domain.ImageCandidate) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, list, a.cacheTTL); err != nil {
		a.logger.Warn().Err(err).Msg("aggregator: cache write failed")
	}
}

func cacheKey(query string, perSource int) string {
	sum := sha256.Sum256([]byte(query + "|" + strconv.Itoa(perSource)))
	return "imagesvc:search:" + hex.EncodeToString(sum[:])
}
