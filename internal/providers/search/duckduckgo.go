package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"imagesvc/internal/domain"
)

// DuckDuckGo scrapes the unofficial image endpoint. It needs no key and is
// only used as the last web fallback.
type DuckDuckGo struct {
	client
}

func NewDuckDuckGo(opts Options) *DuckDuckGo {
	return &DuckDuckGo{client: newClient(domain.SourceDuckDuckGo, "https://duckduckgo.com", defaultTimeout, opts)}
}

func (d *DuckDuckGo) Name() domain.Source { return domain.SourceDuckDuckGo }

var (
	errNoVQD      = errors.New("vqd token not found")
	vqdScriptExpr = regexp.MustCompile(`vqd\s*[=:]\s*["']?([\d-]+)`)
)

type duckResponse struct {
	Results []struct {
		Title     string `json:"title"`
		Image     string `json:"image"`
		Thumbnail string `json:"thumbnail"`
		URL       string `json:"url"`
		Source    string `json:"source"`
	} `json:"results"`
}

func (d *DuckDuckGo) Search(ctx context.Context, q Query) Result {
	loc := localeFor(q.Language)
	vqd, err := d.token(ctx, q.Text)
	if err != nil {
		return d.fail(err)
	}
	params := url.Values{}
	params.Set("l", loc.DDGRegion)
	params.Set("o", "json")
	params.Set("q", q.Text)
	params.Set("vqd", vqd)
	params.Set("f", ",,,,,")
	// p=1 is moderate safe search.
	params.Set("p", "1")
	header := http.Header{}
	header.Set("Referer", d.baseURL+"/")
	header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	body, err := d.get(ctx, d.baseURL+"/i.js", params, header)
	if err != nil {
		return d.fail(err)
	}
	var out duckResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return d.fail(&ProviderError{Provider: d.source, Op: "decode_response", Err: err})
	}
	candidates := make([]domain.ImageCandidate, 0, len(out.Results))
	for _, r := range out.Results {
		if !strings.HasPrefix(r.Image, "http") {
			continue
		}
		candidates = append(candidates, domain.ImageCandidate{
			URL:          r.Image,
			ThumbnailURL: r.Thumbnail,
			Source:       domain.SourceDuckDuckGo,
			Attribution:  "Image from " + orUnknown(hostOf(r.URL)) + " via DuckDuckGo",
			Description:  StripHTML(r.Title),
		})
	}
	return d.ok(candidates, q.count())
}

func (d *DuckDuckGo) token(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	body, err := d.get(ctx, d.baseURL+"/", params, nil)
	if err != nil {
		return "", err
	}
	if vqd := extractVQD(body); vqd != "" {
		return vqd, nil
	}
	return "", &ProviderError{Provider: d.source, Op: "vqd", Err: errNoVQD}
}

// extractVQD finds the search token either in a hidden form input or in the
// inline script that bootstraps the results page.
func extractVQD(page []byte) string {
	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "input":
				if attr(tok, "name") == "vqd" && attr(tok, "value") != "" {
					return attr(tok, "value")
				}
			case "script":
				inScript = tt == html.StartTagToken
			}
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			if m := vqdScriptExpr.FindSubmatch(z.Text()); m != nil {
				return string(m[1])
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var _ Provider = (*DuckDuckGo)(nil)
