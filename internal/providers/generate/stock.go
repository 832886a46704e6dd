package generate

import (
	"context"
	"errors"

	"imagesvc/internal/domain"
	"imagesvc/internal/providers/search"
)

// StockGenerator answers with the first hit of a stock photo API. It
// returns a remote URL and never writes to outputDir.
type StockGenerator struct {
	provider search.Provider
}

func NewStockGenerator(p search.Provider) *StockGenerator {
	return &StockGenerator{provider: p}
}

func (s *StockGenerator) Name() string { return string(s.provider.Name()) }

func (s *StockGenerator) Generate(ctx context.Context, prompt, _ string) (string, error) {
	res := s.provider.Search(ctx, search.Query{Text: prompt, Count: 1})
	if res.Err != nil {
		kind := domain.ErrExecution
		if errors.Is(res.Err, search.ErrMissingCredentials) {
			kind = domain.ErrConfiguration
		}
		return "", domain.NewGenerationError(s.Name(), kind, res.Err)
	}
	if len(res.Candidates) == 0 {
		return "", domain.NewGenerationError(s.Name(), domain.ErrFetch, errors.New("no stock image found"))
	}
	return res.Candidates[0].URL, nil
}

var _ Generator = (*StockGenerator)(nil)
