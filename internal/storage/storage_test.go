package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFileStoreWriteAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "/static/images/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	key, err := store.Write(context.Background(), "./generated/a.png", []byte("data"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "generated/a.png" {
		t.Fatalf("key = %q", key)
	}
	full, _ := store.Path(key)
	if !Exists(full) {
		t.Fatalf("%s should exist", full)
	}
	if got := store.URL(key); got != "/static/images/generated/a.png" {
		t.Fatalf("URL = %q", got)
	}
	if back, ok := store.KeyFromURL("/static/images/generated/a.png"); !ok || back != key {
		t.Fatalf("KeyFromURL = %q, %v", back, ok)
	}
	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if Exists(full) {
		t.Fatalf("%s should be gone", full)
	}
	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "/static/images")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, key := range []string{"", "..", "../etc/passwd", "a/../../b"} {
		if _, err := store.Write(context.Background(), key, nil); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Write(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
	if _, ok := store.KeyFromURL("/elsewhere/a.png"); ok {
		t.Fatalf("foreign prefix should not map to a key")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Fatalf("directories are not artifacts")
	}
	file := filepath.Join(dir, "x.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(file) || Exists(filepath.Join(dir, "missing.png")) || Exists("") {
		t.Fatalf("Exists mismatch")
	}
}

func TestProbeAndThumbnail(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "/static/images")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	data := pngBytes(t, 640, 480)
	dims, err := Probe(data)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if dims.Width != 640 || dims.Height != 480 || dims.Format != "png" {
		t.Fatalf("dims = %+v", dims)
	}

	thumbKey, err := store.WriteThumbnail(context.Background(), "abc.png", data, 160)
	if err != nil {
		t.Fatalf("WriteThumbnail: %v", err)
	}
	if thumbKey != "abc_thumb.jpg" {
		t.Fatalf("thumb key = %q", thumbKey)
	}
	full, _ := store.Path(thumbKey)
	raw, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("read thumbnail: %v", err)
	}
	thumb, err := Probe(raw)
	if err != nil {
		t.Fatalf("Probe thumbnail: %v", err)
	}
	if thumb.Format != "jpeg" || thumb.Width != 160 || thumb.Height != 120 {
		t.Fatalf("thumbnail = %+v", thumb)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	if _, err := Probe([]byte("not an image")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveArtifact(t *testing.T) {
	dir := t.TempDir()
	art, err := SaveArtifact(context.Background(), dir, ".PNG", pngBytes(t, 64, 32))
	if err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	if filepath.Dir(art.Path) != dir || filepath.Ext(art.Path) != ".png" {
		t.Fatalf("path = %q", art.Path)
	}
	if !Exists(art.Path) || !Exists(art.ThumbnailPath) {
		t.Fatalf("artifact or thumbnail missing: %+v", art)
	}
	if art.Dimensions.Width != 64 || art.Dimensions.Height != 32 {
		t.Fatalf("dims = %+v", art.Dimensions)
	}

	// Undecodable payloads are still stored, just without a thumbnail.
	raw, err := SaveArtifact(context.Background(), dir, "", []byte("opaque"))
	if err != nil {
		t.Fatalf("SaveArtifact opaque: %v", err)
	}
	if filepath.Ext(raw.Path) != ".png" || raw.ThumbnailPath != "" || !Exists(raw.Path) {
		t.Fatalf("opaque artifact = %+v", raw)
	}
}

func TestExtFromFilename(t *testing.T) {
	cases := map[string]string{
		"ComfyUI_0001.webp": "webp",
		"noext":             "png",
		"trailing.":         "png",
		"a.b.jpg":           "jpg",
		"run.v2/img":        "png",
		"run.v2/img.webp":   "webp",
		`run.v2\img`:        "png",
	}
	for in, want := range cases {
		if got := ExtFromFilename(in, "png"); got != want {
			t.Fatalf("ExtFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublicURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "/static/images")
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		filepath.Join(dir, "a.png"):        "/static/images/a.png",
		filepath.Join(dir, "sub", "b.jpg"): "/static/images/sub/b.jpg",
		"https://cdn.example.com/c.png":    "https://cdn.example.com/c.png",
		filepath.Join(dir, "..", "x.png"):  filepath.Join(dir, "..", "x.png"),
	}
	for in, want := range cases {
		if got := store.PublicURL(in); got != want {
			t.Fatalf("PublicURL(%q) = %q, want %q", in, got, want)
		}
	}
	var nilStore *FileStore
	if got := nilStore.PublicURL("/tmp/a.png"); got != "/tmp/a.png" {
		t.Fatalf("nil store PublicURL = %q", got)
	}
}
