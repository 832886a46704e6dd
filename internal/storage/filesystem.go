package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for empty keys or keys escaping the root.
var ErrInvalidKey = errors.New("storage: invalid key")

// FileStore persists generated and uploaded images under one directory that
// the HTTP layer serves as static files.
type FileStore struct {
	basePath  string
	urlPrefix string
}

// NewFileStore initializes a FileStore rooted at basePath. urlPrefix is the
// public path the directory is mounted at, e.g. "/static/images".
func NewFileStore(basePath, urlPrefix string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	prefix := strings.Trim(strings.TrimSpace(urlPrefix), "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	return &FileStore{basePath: basePath, urlPrefix: prefix}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists data at the given relative key and returns the cleaned key.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, cleanKey, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Path maps a key to its location on disk.
func (s *FileStore) Path(key string) (string, error) {
	fullPath, _, err := s.resolve(key)
	return fullPath, err
}

// URL maps a key to the public static path.
func (s *FileStore) URL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return s.urlPrefix + "/" + cleanKey
}

// KeyFromURL is the inverse of URL. ok is false for paths outside the prefix.
func (s *FileStore) KeyFromURL(u string) (string, bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(u), s.urlPrefix+"/")
	if !found {
		return "", false
	}
	key, err := sanitizeKey(rest)
	if err != nil {
		return "", false
	}
	return key, true
}

// KeyFromPath maps a local path inside the store back to its key.
func (s *FileStore) KeyFromPath(p string) (string, bool) {
	if s == nil || strings.TrimSpace(p) == "" || isRemote(p) {
		return "", false
	}
	rel, err := filepath.Rel(s.basePath, p)
	if err != nil {
		return "", false
	}
	key, err := sanitizeKey(rel)
	if err != nil {
		return "", false
	}
	return key, true
}

// PublicURL maps a local path inside the store to its static URL. Remote
// URLs and paths outside the store are returned unchanged.
func (s *FileStore) PublicURL(p string) string {
	key, ok := s.KeyFromPath(p)
	if !ok {
		return p
	}
	return s.URL(key)
}

// Remove deletes the file behind key. Missing files are not an error.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	return nil
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *FileStore) resolve(key string) (string, string, error) {
	if s == nil {
		return "", "", errors.New("storage: no store configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey)), cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}
