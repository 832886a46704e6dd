package aggregator

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
)

// dedupeThreshold is the dHash Hamming distance below which two thumbnails
// are treated as the same picture.
const dedupeThreshold = 10

const thumbFetchLimit = 4 << 20

// ThumbDeduper drops candidates whose thumbnails are perceptually identical
// to an earlier candidate. Thumbnails that cannot be fetched or decoded are
// kept.
type ThumbDeduper struct {
	http    *http.Client
	timeout time.Duration
	logger  *infra.Logger
}

func NewThumbDeduper(client *http.Client, timeout time.Duration, logger *infra.Logger) *ThumbDeduper {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ThumbDeduper{http: client, timeout: timeout, logger: infra.LoggerOrDiscard(logger)}
}

func (d *ThumbDeduper) Filter(ctx context.Context, list []domain.ImageCandidate) []domain.ImageCandidate {
	var hashes []*goimagehash.ImageHash
	out := make([]domain.ImageCandidate, 0, len(list))
	for _, c := range list {
		hash, err := d.hash(ctx, c)
		if err != nil {
			d.logger.Debug().Err(err).Str("url", c.URL).Msg("aggregator: thumbnail hash skipped")
			out = append(out, c)
			continue
		}
		if isNearDuplicate(hash, hashes) {
			d.logger.Debug().Str("url", c.URL).Msg("aggregator: dropped perceptual duplicate")
			continue
		}
		hashes = append(hashes, hash)
		out = append(out, c)
	}
	return out
}

func isNearDuplicate(hash *goimagehash.ImageHash, seen []*goimagehash.ImageHash) bool {
	for _, h := range seen {
		if dist, err := hash.Distance(h); err == nil && dist < dedupeThreshold {
			return true
		}
	}
	return false
}

func (d *ThumbDeduper) hash(ctx context.Context, c domain.ImageCandidate) (*goimagehash.ImageHash, error) {
	link := c.ThumbnailURL
	if link == "" {
		link = c.URL
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, thumbFetchLimit))
	if err != nil {
		return nil, err
	}
	return goimagehash.DifferenceHash(img)
}
