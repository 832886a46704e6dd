package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra/credentials"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tiff", ".svg"}

// Brave queries the Brave image search API.
type Brave struct {
	client
}

func NewBrave(opts Options) *Brave {
	return &Brave{client: newClient(domain.SourceBrave, "https://api.search.brave.com/res/v1", defaultTimeout, opts)}
}

func (b *Brave) Name() domain.Source { return domain.SourceBrave }

type braveResponse struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	Image      string `json:"image"`
	Src        string `json:"src"`
	Properties struct {
		URL string `json:"url"`
	} `json:"properties"`
	Thumbnail struct {
		Src string `json:"src"`
	} `json:"thumbnail"`
}

func (b *Brave) Search(ctx context.Context, q Query) Result {
	key, err := b.apiKey(ctx, credentials.ProviderBrave)
	if err != nil {
		return b.fail(err)
	}
	loc := localeFor(q.Language)
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("count", strconv.Itoa(q.count()))
	// The images endpoint only accepts off|strict.
	params.Set("safesearch", "off")
	params.Set("country", loc.Country)
	params.Set("search_lang", loc.SearchLang)
	params.Set("ui_lang", loc.UILang)
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("X-Subscription-Token", key)

	var out braveResponse
	if err := b.getJSON(ctx, b.baseURL+"/images/search", params, header, &out); err != nil {
		return b.fail(err)
	}
	candidates := make([]domain.ImageCandidate, 0, len(out.Results))
	for _, r := range out.Results {
		picked := pickImageURL(r.Properties.URL, r.Thumbnail.Src, r.Image, r.Src, r.URL)
		if picked == "" {
			continue
		}
		candidates = append(candidates, domain.ImageCandidate{
			URL:          picked,
			ThumbnailURL: r.Thumbnail.Src,
			Source:       domain.SourceBrave,
			Attribution:  "Image from " + orUnknown(r.Source) + " via Brave Search",
			Description:  StripHTML(r.Title),
		})
	}
	return b.ok(candidates, q.count())
}

// pickImageURL prefers the first absolute URL that looks like an image and
// otherwise falls back to the first absolute URL.
func pickImageURL(options ...string) string {
	for _, v := range options {
		if strings.HasPrefix(v, "http") && looksLikeImageURL(v) {
			return v
		}
	}
	for _, v := range options {
		if strings.HasPrefix(v, "http") {
			return v
		}
	}
	return ""
}

func looksLikeImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	// Common CDN layouts without extensions.
	return strings.Contains(path, "/wp-content/uploads/") || strings.Contains(path, "/images/")
}

var _ Provider = (*Brave)(nil)
