package search

import (
	"context"
	"errors"
	"strings"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
)

// Web search fetches this many images per provider.
const webSearchCount = 5

// ErrGenerationRequested is reported when the agent routes a query to
// generation instead of search.
var ErrGenerationRequested = errors.New("agent requested generation")

type WebSearchOptions struct {
	Agent *AgentClient
	// Primary is queried with the agent's native-language query.
	Primary Provider
	// Fallbacks are tried in order with the English query when Primary is empty.
	Fallbacks []Provider
	Logger    *infra.Logger
}

// WebSearch is the agent-gated web image search: the agent rewrites the
// query, Brave answers it, and a chain of public sources backs Brave up.
type WebSearch struct {
	agent     *AgentClient
	primary   Provider
	fallbacks []Provider
	logger    *infra.Logger
}

func NewWebSearch(opts WebSearchOptions) *WebSearch {
	return &WebSearch{
		agent:     opts.Agent,
		primary:   opts.Primary,
		fallbacks: opts.Fallbacks,
		logger:    infra.LoggerOrDiscard(opts.Logger),
	}
}

func (w *WebSearch) Name() domain.Source { return domain.SourceBrave }

// Search returns an empty result whenever generation should take over: the
// agent asked for it, gave no query, answered an unknown action or failed.
func (w *WebSearch) Search(ctx context.Context, q Query) Result {
	if w.agent == nil {
		return Result{Source: domain.SourceBrave, Err: &ProviderError{Provider: domain.SourceBrave, Op: "agent", Err: ErrMissingCredentials}}
	}
	route, err := w.agent.Route(ctx, q.Text, q.Language)
	if err != nil {
		w.logger.Warn().Err(err).Msg("websearch: agent failed, using generation")
		return Result{Source: domain.SourceBrave, Err: &ProviderError{Provider: domain.SourceBrave, Op: "agent", Err: err}}
	}
	switch route.Action {
	case ActionGenerate:
		w.logger.Info().Str("query", q.Text).Msg("websearch: agent chose generation")
		return Result{Source: domain.SourceBrave, Err: ErrGenerationRequested}
	case ActionSearch:
	default:
		w.logger.Warn().Str("action", route.Action).Msg("websearch: unknown agent action, using generation")
		return Result{Source: domain.SourceBrave, Err: ErrGenerationRequested}
	}
	if strings.TrimSpace(route.SearchQuery) == "" {
		w.logger.Warn().Msg("websearch: search action without query, using generation")
		return Result{Source: domain.SourceBrave, Err: ErrGenerationRequested}
	}

	if w.primary != nil {
		res := w.primary.Search(ctx, Query{Text: route.SearchQuery, Count: webSearchCount, Language: q.Language})
		if len(res.OrEmpty()) > 0 {
			w.logger.Info().Str("source", string(res.Source)).Int("count", len(res.Candidates)).Msg("websearch: found images")
			return res
		}
	}
	res := FirstNonEmpty(ctx, Query{Text: route.FallbackQuery(), Count: webSearchCount, Language: q.Language}, w.fallbacks...)
	if len(res.OrEmpty()) == 0 {
		w.logger.Info().Str("query", route.SearchQuery).Strs("tried", Sources(w.fallbacks)).Msg("websearch: no images found, using generation")
		return Result{Source: domain.SourceBrave, Err: res.Err}
	}
	w.logger.Info().Str("source", string(res.Source)).Int("count", len(res.Candidates)).Msg("websearch: fallback found images")
	return res
}

var _ Provider = (*WebSearch)(nil)
