package search

import (
	"context"
	"net/url"
	"strconv"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra/credentials"
)

// Pixabay rejects per_page outside [3, 200].
const (
	pixabayMinPerPage = 3
	pixabayMaxPerPage = 200
)

type Pixabay struct {
	client
}

func NewPixabay(opts Options) *Pixabay {
	return &Pixabay{client: newClient(domain.SourcePixabay, "https://pixabay.com/api", defaultTimeout, opts)}
}

func (p *Pixabay) Name() domain.Source { return domain.SourcePixabay }

type pixabayResponse struct {
	Hits []struct {
		WebformatURL  string `json:"webformatURL"`
		LargeImageURL string `json:"largeImageURL"`
		PreviewURL    string `json:"previewURL"`
		Tags          string `json:"tags"`
		User          string `json:"user"`
	} `json:"hits"`
}

func (p *Pixabay) Search(ctx context.Context, q Query) Result {
	key, err := p.apiKey(ctx, credentials.ProviderPixabay)
	if err != nil {
		return p.fail(err)
	}
	count := q.count()
	perPage := min(max(count, pixabayMinPerPage), pixabayMaxPerPage)
	params := url.Values{}
	params.Set("key", key)
	params.Set("q", q.Text)
	params.Set("image_type", "photo")
	params.Set("per_page", strconv.Itoa(perPage))

	var out pixabayResponse
	if err := p.getJSON(ctx, p.baseURL+"/", params, nil, &out); err != nil {
		return p.fail(err)
	}
	candidates := make([]domain.ImageCandidate, 0, len(out.Hits))
	for _, hit := range out.Hits {
		link := hit.WebformatURL
		if link == "" {
			link = hit.LargeImageURL
		}
		candidates = append(candidates, domain.ImageCandidate{
			URL:          link,
			ThumbnailURL: hit.PreviewURL,
			Source:       domain.SourcePixabay,
			Attribution:  "Photo by " + orUnknown(hit.User) + " on Pixabay",
			Description:  StripHTML(hit.Tags),
		})
	}
	return p.ok(candidates, count)
}

var _ Provider = (*Pixabay)(nil)
