package storage

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Artifact is a generated image written to disk.
type Artifact struct {
	Path          string
	ThumbnailPath string
	Dimensions    Dimensions
}

// SaveArtifact writes data into dir as "<uuid>.<ext>" and renders a
// thumbnail next to it. Probe and thumbnail failures are reported through
// the returned artifact only; the image itself is kept.
func SaveArtifact(ctx context.Context, dir, ext string, data []byte) (Artifact, error) {
	store, err := NewFileStore(dir, "")
	if err != nil {
		return Artifact{}, err
	}
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "png"
	}
	key, err := store.Write(ctx, uuid.NewString()+"."+ext, data)
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{Path: filepath.Join(store.BasePath(), filepath.FromSlash(key))}
	if dims, err := Probe(data); err == nil {
		art.Dimensions = dims
		if thumbKey, err := store.WriteThumbnail(ctx, key, data, ThumbnailSide); err == nil {
			art.ThumbnailPath = filepath.Join(store.BasePath(), filepath.FromSlash(thumbKey))
		}
	}
	return art, nil
}

// ExtFromFilename returns the extension of name without the dot, or
// fallback when there is none.
func ExtFromFilename(name, fallback string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if ext := strings.TrimPrefix(path.Ext(base), "."); ext != "" {
		return ext
	}
	return fallback
}
