package search

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"imagesvc/internal/domain"
)

const (
	wikimediaTimeout        = 15 * time.Second
	wikimediaThumbWidth     = 800
	wikimediaDescriptionMax = 200
)

// Wikimedia searches Wikimedia Commons; no key is required.
type Wikimedia struct {
	client
}

func NewWikimedia(opts Options) *Wikimedia {
	return &Wikimedia{client: newClient(domain.SourceWikimedia, "https://commons.wikimedia.org/w/api.php", wikimediaTimeout, opts)}
}

func (w *Wikimedia) Name() domain.Source { return domain.SourceWikimedia }

type wikimediaResponse struct {
	Query struct {
		Pages map[string]wikimediaPage `json:"pages"`
	} `json:"query"`
}

type wikimediaPage struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	ImageInfo []struct {
		URL         string `json:"url"`
		ThumbURL    string `json:"thumburl"`
		ExtMetadata struct {
			Artist           wikimediaMetaValue `json:"Artist"`
			ImageDescription wikimediaMetaValue `json:"ImageDescription"`
		} `json:"extmetadata"`
	} `json:"imageinfo"`
}

type wikimediaMetaValue struct {
	Value string `json:"value"`
}

func (w *Wikimedia) Search(ctx context.Context, q Query) Result {
	count := q.count()
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", "filetype:bitmap "+q.Text)
	params.Set("gsrnamespace", "6")
	params.Set("gsrlimit", strconv.Itoa(count))
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url|extmetadata|size")
	params.Set("iiurlwidth", strconv.Itoa(wikimediaThumbWidth))
	header := http.Header{}
	header.Set("User-Agent", userAgent)

	var out wikimediaResponse
	if err := w.getJSON(ctx, w.baseURL, params, header, &out); err != nil {
		return w.fail(err)
	}

	// Pages arrive as an object keyed by page id; the search rank is in index.
	ids := make([]string, 0, len(out.Query.Pages))
	for id := range out.Query.Pages {
		if id == "-1" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := out.Query.Pages[ids[i]], out.Query.Pages[ids[j]]
		if pi.Index != pj.Index {
			return pi.Index < pj.Index
		}
		return ids[i] < ids[j]
	})

	candidates := make([]domain.ImageCandidate, 0, len(ids))
	for _, id := range ids {
		page := out.Query.Pages[id]
		if len(page.ImageInfo) == 0 {
			continue
		}
		info := page.ImageInfo[0]
		link := info.ThumbURL
		if link == "" {
			link = info.URL
		}
		candidates = append(candidates, domain.ImageCandidate{
			URL:          link,
			ThumbnailURL: link,
			Source:       domain.SourceWikimedia,
			Attribution:  "Image by " + orUnknown(info.ExtMetadata.Artist.Value) + " via Wikimedia Commons (CC)",
			Description:  truncate(StripHTML(info.ExtMetadata.ImageDescription.Value), wikimediaDescriptionMax),
		})
	}
	return w.ok(candidates, count)
}

var _ Provider = (*Wikimedia)(nil)
