package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"imagesvc/internal/infra"
	"imagesvc/internal/sqlinline"
)

// Provider names as stored in integration_tokens.provider.
const (
	ProviderUnsplash = "unsplash"
	ProviderPexels   = "pexels"
	ProviderPixabay  = "pixabay"
	ProviderBrave    = "brave"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
)

// KnownProviders lists every provider the service reads a key for.
var KnownProviders = []string{
	ProviderUnsplash, ProviderPexels, ProviderPixabay,
	ProviderBrave, ProviderOpenAI, ProviderGemini,
}

// ErrUnknownProvider is returned when storing a key for an unrecognised provider.
var ErrUnknownProvider = errors.New("unknown provider")

// Lookup resolves an API key for a provider. An empty token with a nil error
// means the provider has no key configured and should be skipped.
type Lookup interface {
	Token(ctx context.Context, provider string) (string, error)
}

// Store reads and writes keys in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken upserts the key for provider.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !IsKnownProvider(provider) {
		return ErrUnknownProvider
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " api key is required")
	}
	return s.upsert(ctx, provider, token, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// ProviderStatus reports when a stored key was last written.
type ProviderStatus struct {
	Provider  string
	UpdatedAt time.Time
}

// Providers lists the providers that have a key stored in the database.
func (s *Store) Providers(ctx context.Context) ([]ProviderStatus, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListIntegrationProviders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProviderStatus
	for rows.Next() {
		var st ProviderStatus
		if err := rows.Scan(&st.Provider, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func IsKnownProvider(provider string) bool {
	for _, p := range KnownProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// Static serves keys from a fixed map, typically built from the environment.
type Static map[string]string

func (s Static) Token(_ context.Context, provider string) (string, error) {
	return strings.TrimSpace(s[provider]), nil
}

// FromConfig maps the configured environment keys to provider names.
func FromConfig(cfg *infra.Config) Static {
	return Static{
		ProviderUnsplash: cfg.UnsplashAPIKey,
		ProviderPexels:   cfg.PexelsAPIKey,
		ProviderPixabay:  cfg.PixabayAPIKey,
		ProviderBrave:    cfg.BraveSearchAPIKey,
		ProviderOpenAI:   cfg.OpenAIAPIKey,
		ProviderGemini:   cfg.GeminiAPIKey,
	}
}

// Chain returns the first non-empty token from its lookups in order.
// Errors from later lookups are only reported when nothing was found.
type Chain []Lookup

func (c Chain) Token(ctx context.Context, provider string) (string, error) {
	var firstErr error
	for _, l := range c {
		if l == nil {
			continue
		}
		token, err := l.Token(ctx, provider)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if token != "" {
			return token, nil
		}
	}
	return "", firstErr
}

// Resolve looks up provider and logs instead of failing; a lookup error
// means the provider is treated as unconfigured.
func Resolve(ctx context.Context, l Lookup, provider string, logger *infra.Logger) string {
	if l == nil {
		return ""
	}
	token, err := l.Token(ctx, provider)
	if err != nil {
		infra.LoggerOrDiscard(logger).Warn().Err(err).Str("provider", provider).Msg("credentials: lookup failed")
		return ""
	}
	return token
}

var (
	_ Lookup = (*Store)(nil)
	_ Lookup = Static(nil)
	_ Lookup = Chain(nil)
)
