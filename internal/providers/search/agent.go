package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"imagesvc/internal/infra"
)

const agentTimeout = 30 * time.Second

// Agent actions.
const (
	ActionSearch   = "search"
	ActionGenerate = "generate"
)

// AgentRoute is the routing answer of the cooperating agent service.
type AgentRoute struct {
	Action        string `json:"action"`
	SearchQuery   string `json:"search_query"`
	SearchQueryEn string `json:"search_query_en"`
}

// FallbackQuery is the query used by the English-centric fallback providers.
func (r AgentRoute) FallbackQuery() string {
	if strings.TrimSpace(r.SearchQueryEn) != "" {
		return r.SearchQueryEn
	}
	return r.SearchQuery
}

type AgentOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// AgentClient talks to the agent service that rewrites queries and decides
// between search and generation.
//
// The agent cannot serve concurrent requests, so every call in the process
// goes through a single-slot semaphore. This serializes all agent traffic and
// is the throughput ceiling of the web search path.
type AgentClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	slot    *semaphore.Weighted
	logger  *infra.Logger
}

func NewAgentClient(opts AgentOptions) (*AgentClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("agent url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = agentTimeout
	}
	return &AgentClient{
		baseURL: baseURL,
		http:    httpClient,
		timeout: timeout,
		slot:    semaphore.NewWeighted(1),
		logger:  infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

type agentRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

// Route asks the agent how to source an image for query. It blocks until the
// agent slot is free or ctx is done.
func (a *AgentClient) Route(ctx context.Context, query, language string) (AgentRoute, error) {
	if err := a.slot.Acquire(ctx, 1); err != nil {
		return AgentRoute{}, fmt.Errorf("agent: wait for slot: %w", err)
	}
	defer a.slot.Release(1)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := json.Marshal(agentRequest{Query: query, Language: language})
	if err != nil {
		return AgentRoute{}, fmt.Errorf("agent: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return AgentRoute{}, fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.http.Do(req)
	if err != nil {
		return AgentRoute{}, fmt.Errorf("agent: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return AgentRoute{}, fmt.Errorf("agent: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var route AgentRoute
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		return AgentRoute{}, fmt.Errorf("agent: decode response: %w", err)
	}
	a.logger.Debug().Str("action", route.Action).Str("search_query", route.SearchQuery).Msg("agent: routed query")
	return route, nil
}
