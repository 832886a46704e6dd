package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ThumbnailSide bounds both thumbnail dimensions.
const ThumbnailSide = 320

// Dimensions describes a decoded image header.
type Dimensions struct {
	Width  int
	Height int
	Format string
}

// Probe reads the image header without decoding pixels.
func Probe(data []byte) (Dimensions, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("storage: probe image: %w", err)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// ThumbnailKey derives the thumbnail key for an artifact key.
func ThumbnailKey(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "_thumb.jpg"
}

// WriteThumbnail renders a JPEG that fits within side x side next to key and
// returns the thumbnail key.
func (s *FileStore) WriteThumbnail(ctx context.Context, key string, data []byte, side int) (string, error) {
	if side <= 0 {
		side = ThumbnailSide
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("storage: decode image: %w", err)
	}
	thumb := imaging.Fit(img, side, side, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		return "", fmt.Errorf("storage: encode thumbnail: %w", err)
	}
	return s.Write(ctx, ThumbnailKey(key), buf.Bytes())
}
