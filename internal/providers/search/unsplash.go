package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra/credentials"
)

const unsplashMaxPerPage = 30

type Unsplash struct {
	client
}

func NewUnsplash(opts Options) *Unsplash {
	return &Unsplash{client: newClient(domain.SourceUnsplash, "https://api.unsplash.com", defaultTimeout, opts)}
}

func (u *Unsplash) Name() domain.Source { return domain.SourceUnsplash }

type unsplashResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

func (u *Unsplash) Search(ctx context.Context, q Query) Result {
	key, err := u.apiKey(ctx, credentials.ProviderUnsplash)
	if err != nil {
		return u.fail(err)
	}
	count := min(q.count(), unsplashMaxPerPage)
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("per_page", strconv.Itoa(count))
	params.Set("orientation", "landscape")
	header := http.Header{}
	header.Set("Authorization", "Client-ID "+key)
	header.Set("Accept-Version", "v1")

	var out unsplashResponse
	if err := u.getJSON(ctx, u.baseURL+"/search/photos", params, header, &out); err != nil {
		return u.fail(err)
	}
	candidates := make([]domain.ImageCandidate, 0, len(out.Results))
	for _, photo := range out.Results {
		description := photo.Description
		if description == "" {
			description = photo.AltDescription
		}
		candidates = append(candidates, domain.ImageCandidate{
			URL:          photo.URLs.Regular,
			ThumbnailURL: photo.URLs.Thumb,
			Source:       domain.SourceUnsplash,
			Attribution:  "Photo by " + orUnknown(photo.User.Name) + " on Unsplash",
			Description:  StripHTML(description),
		})
	}
	return u.ok(candidates, count)
}

var _ Provider = (*Unsplash)(nil)
