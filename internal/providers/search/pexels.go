package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra/credentials"
)

type Pexels struct {
	client
}

func NewPexels(opts Options) *Pexels {
	return &Pexels{client: newClient(domain.SourcePexels, "https://api.pexels.com/v1", defaultTimeout, opts)}
}

func (p *Pexels) Name() domain.Source { return domain.SourcePexels }

type pexelsResponse struct {
	Photos []struct {
		Alt          string `json:"alt"`
		Photographer string `json:"photographer"`
		Src          struct {
			Original string `json:"original"`
			Large    string `json:"large"`
			Medium   string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Search(ctx context.Context, q Query) Result {
	key, err := p.apiKey(ctx, credentials.ProviderPexels)
	if err != nil {
		return p.fail(err)
	}
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("per_page", strconv.Itoa(q.count()))
	header := http.Header{}
	header.Set("Authorization", key)

	var out pexelsResponse
	if err := p.getJSON(ctx, p.baseURL+"/search", params, header, &out); err != nil {
		return p.fail(err)
	}
	candidates := make([]domain.ImageCandidate, 0, len(out.Photos))
	for _, photo := range out.Photos {
		link := photo.Src.Large
		if link == "" {
			link = photo.Src.Original
		}
		candidates = append(candidates, domain.ImageCandidate{
			URL:          link,
			ThumbnailURL: photo.Src.Medium,
			Source:       domain.SourcePexels,
			Attribution:  "Photo by " + orUnknown(photo.Photographer) + " on Pexels",
			Description:  StripHTML(photo.Alt),
		})
	}
	return p.ok(candidates, q.count())
}

var _ Provider = (*Pexels)(nil)
