// Package search adapts external image search APIs to domain.ImageCandidate.
//
// Adapters never panic and never fail upward: every problem is reported in
// Result.Err next to an empty candidate list, and callers that only need the
// list use Result.OrEmpty.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
)

const (
	defaultTimeout = 10 * time.Second
	defaultCount   = 5
	userAgent      = "imagesvc/1.0 (+https://github.com/imagesvc)"
)

// ErrMissingCredentials marks a provider skipped for lack of an API key.
var ErrMissingCredentials = errors.New("missing credentials")

// Query is the provider-independent search request.
type Query struct {
	Text     string
	Count    int
	Language string
}

func (q Query) count() int {
	if q.Count <= 0 {
		return defaultCount
	}
	return q.Count
}

// Result is the typed outcome of one provider call.
type Result struct {
	Source     domain.Source
	Candidates []domain.ImageCandidate
	Err        error
}

// OrEmpty collapses the result to a list; failures become an empty list.
func (r Result) OrEmpty() []domain.ImageCandidate {
	if r.Err != nil {
		return nil
	}
	return r.Candidates
}

// Provider is implemented by every search adapter.
type Provider interface {
	Name() domain.Source
	Search(ctx context.Context, q Query) Result
}

// ProviderError describes a failed provider call.
type ProviderError struct {
	Provider domain.Source
	Op       string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{domain.ErrProviderUnavailable, e.Err}
}

// Options configures a provider adapter. Zero values pick the defaults of
// the individual provider.
type Options struct {
	Credentials credentials.Lookup
	BaseURL     string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Limiter     *rate.Limiter
	Logger      *infra.Logger
}

// client carries the plumbing shared by all adapters.
type client struct {
	source  domain.Source
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	keys    credentials.Lookup
	logger  *infra.Logger
}

func newClient(source domain.Source, defaultBaseURL string, defaultTimeout time.Duration, opts Options) client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := infra.LoggerOrDiscard(opts.Logger).With().Str("provider", string(source)).Logger()
	return client{
		source:  source,
		baseURL: baseURL,
		http:    httpClient,
		timeout: timeout,
		limiter: opts.Limiter,
		keys:    opts.Credentials,
		logger:  &logger,
	}
}

// apiKey resolves the key for provider or returns ErrMissingCredentials.
func (c *client) apiKey(ctx context.Context, provider string) (string, error) {
	if c.keys == nil {
		return "", ErrMissingCredentials
	}
	key, err := c.keys.Token(ctx, provider)
	if err != nil {
		return "", fmt.Errorf("lookup key: %w", err)
	}
	if key == "" {
		return "", ErrMissingCredentials
	}
	return key, nil
}

// get performs a rate-limited GET bounded by the adapter timeout and returns
// the body of a 2xx response.
func (c *client) get(ctx context.Context, endpoint string, params url.Values, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Provider: c.source, Op: "rate_limit", Err: err}
		}
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Provider: c.source, Op: "build_request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: c.source, Op: "http_request", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &ProviderError{Provider: c.source, Op: "read_body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider: c.source,
			Op:       "http_status",
			Status:   resp.StatusCode,
			Err:      errors.New(truncate(strings.TrimSpace(string(body)), 200)),
		}
	}
	return body, nil
}

func (c *client) getJSON(ctx context.Context, endpoint string, params url.Values, header http.Header, out any) error {
	body, err := c.get(ctx, endpoint, params, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: c.source, Op: "decode_response", Err: err}
	}
	return nil
}

// fail logs err and builds an empty result. Missing keys are expected in
// most deployments and only logged at debug level.
func (c *client) fail(err error) Result {
	if errors.Is(err, ErrMissingCredentials) {
		c.logger.Debug().Msg("search: provider skipped, no api key")
		return Result{Source: c.source, Err: &ProviderError{Provider: c.source, Op: "credentials", Err: err}}
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		err = &ProviderError{Provider: c.source, Op: "search", Err: err}
	}
	c.logger.Warn().Err(err).Msg("search: provider failed")
	return Result{Source: c.source, Err: err}
}

// ok keeps only valid candidates, capped at limit.
func (c *client) ok(candidates []domain.ImageCandidate, limit int) Result {
	out := make([]domain.ImageCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if err := cand.Validate(); err != nil {
			continue
		}
		out = append(out, cand)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	c.logger.Debug().Int("count", len(out)).Msg("search: provider answered")
	return Result{Source: c.source, Candidates: out}
}

func orUnknown(name string) string {
	name = StripHTML(name)
	if name == "" {
		return "Unknown"
	}
	return name
}
