package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"imagesvc/internal/adaptive"
	"imagesvc/internal/domain"
	"imagesvc/internal/middleware"
	"imagesvc/internal/storage"
)

const (
	maxPromptLength = 2000
	maxPerSource    = 10
	maxUploadBytes  = 20 << 20
)

// AdaptiveImage picks search or generation for the prompt and always answers
// with at least one candidate.
func (a *App) AdaptiveImage(w http.ResponseWriter, r *http.Request) {
	var req adaptiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	prompt, ok := a.prompt(w, req.Prompt)
	if !ok {
		return
	}
	language := requestLanguage(r, req.Language)
	a.json(w, http.StatusOK, a.Adaptive.GetAdaptiveImage(r.Context(), prompt, language))
}

// SearchMultiple queries every search provider and returns the interleaved list.
func (a *App) SearchMultiple(w http.ResponseWriter, r *http.Request) {
	query, ok := a.prompt(w, r.URL.Query().Get("query"))
	if !ok {
		return
	}
	perSource := adaptive.PerSource
	if raw := r.URL.Query().Get("per_source"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPerSource {
			a.error(w, http.StatusBadRequest, "bad_request", "per_source must be between 1 and 10")
			return
		}
		perSource = n
	}
	images := a.Searcher.SearchMultipleSources(r.Context(), query, perSource)
	if images == nil {
		images = []domain.ImageCandidate{}
	}
	a.json(w, http.StatusOK, imagesResponse{Images: images})
}

func (a *App) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	prompt, ok := a.prompt(w, req.Prompt)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.Classifier.Classify(r.Context(), prompt))
}

// GenerateImage produces one image for a presentation slot and records it
// when a database is configured.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prompt, ok := a.prompt(w, q.Get("prompt"))
	if !ok {
		return
	}
	p := domain.NewImagePrompt(prompt, requestLanguage(r, q.Get("language")), q.Get("theme"))
	outcome := a.Adaptive.GenerateImage(r.Context(), p)
	if outcome.Err != nil {
		a.Logger.Warn().Err(outcome.Err).Bool("placeholder", outcome.Placeholder).Msg("images: generate fell back")
	}

	resp := generateResponse{
		Path:        a.Store.PublicURL(outcome.Path),
		Placeholder: outcome.Placeholder,
	}
	if outcome.Asset != nil && a.Assets != nil {
		if err := a.Assets.Create(r.Context(), outcome.Asset); err != nil {
			a.Logger.Error().Err(err).Msg("images: record asset")
		} else {
			view := a.view(*outcome.Asset)
			resp.Asset = &view
		}
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) ListGenerated(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, false)
}

func (a *App) ListUploaded(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, true)
}

func (a *App) list(w http.ResponseWriter, r *http.Request, uploaded bool) {
	if !a.requireAssets(w) {
		return
	}
	assets, err := a.Assets.List(r.Context(), uploaded)
	if err != nil {
		a.Logger.Error().Err(err).Bool("uploaded", uploaded).Msg("images: list assets")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list images")
		return
	}
	views := make([]assetView, 0, len(assets))
	for _, asset := range assets {
		views = append(views, a.view(asset))
	}
	a.json(w, http.StatusOK, assetListResponse{Images: views})
}

// ImageDetails looks an asset up by the file name at the end of url.
func (a *App) ImageDetails(w http.ResponseWriter, r *http.Request) {
	if !a.requireAssets(w) {
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	filename := filenameFromURL(raw)
	if filename == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "url is required")
		return
	}
	asset, err := a.Assets.FindByFilename(r.Context(), filename)
	if err != nil {
		a.assetError(w, err, "failed to load image")
		return
	}
	a.json(w, http.StatusOK, a.view(*asset))
}

// UploadImage stores a user supplied image and records it as uploaded.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !a.requireAssets(w) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read file")
		return
	}
	dims, err := storage.Probe(data)
	if err != nil {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_image", "file is not a supported image")
		return
	}

	key, err := a.Store.Write(r.Context(), "uploads/"+uuid.NewString()+"."+formatExt(dims.Format), data)
	if err != nil {
		a.Logger.Error().Err(err).Msg("images: store upload")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store image")
		return
	}
	if _, err := a.Store.WriteThumbnail(r.Context(), key, data, storage.ThumbnailSide); err != nil {
		a.Logger.Warn().Err(err).Str("key", key).Msg("images: thumbnail failed")
	}
	fullPath, err := a.Store.Path(key)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to store image")
		return
	}

	asset := &domain.ImageAsset{
		Path:       fullPath,
		IsUploaded: true,
		Extras: map[string]any{
			"original_filename": filepath.Base(header.Filename),
			"width":             dims.Width,
			"height":            dims.Height,
			"format":            dims.Format,
		},
	}
	if err := a.Assets.Create(r.Context(), asset); err != nil {
		a.Logger.Error().Err(err).Msg("images: record upload")
		_ = a.Store.Remove(r.Context(), key)
		_ = a.Store.Remove(r.Context(), storage.ThumbnailKey(key))
		a.error(w, http.StatusInternalServerError, "internal", "failed to record image")
		return
	}
	a.json(w, http.StatusCreated, a.view(*asset))
}

// DeleteImage removes the record and, for files inside the store, the file
// and its thumbnail.
func (a *App) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if !a.requireAssets(w) {
		return
	}
	id := chi.URLParam(r, "id")
	asset, err := a.Assets.GetByID(r.Context(), id)
	if err != nil {
		a.assetError(w, err, "failed to load image")
		return
	}
	if err := a.Assets.Delete(r.Context(), asset.ID); err != nil {
		a.assetError(w, err, "failed to delete image")
		return
	}
	if key, ok := a.Store.KeyFromPath(asset.Path); ok {
		for _, k := range []string{key, storage.ThumbnailKey(key)} {
			if err := a.Store.Remove(r.Context(), k); err != nil {
				a.Logger.Warn().Err(err).Str("key", k).Msg("images: remove file")
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) prompt(w http.ResponseWriter, raw string) (string, bool) {
	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "invalid_prompt", "prompt is required")
		return "", false
	}
	if len([]rune(prompt)) > maxPromptLength {
		a.error(w, http.StatusBadRequest, "invalid_prompt", "prompt is too long")
		return "", false
	}
	return prompt, true
}

func (a *App) requireAssets(w http.ResponseWriter) bool {
	if a.Assets == nil || a.Store == nil {
		a.error(w, http.StatusServiceUnavailable, "database_disabled", "image records require DATABASE_URL")
		return false
	}
	return true
}

func (a *App) assetError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	a.Logger.Error().Err(err).Msg("images: " + msg)
	a.error(w, http.StatusInternalServerError, "internal", msg)
}

func (a *App) view(asset domain.ImageAsset) assetView {
	v := assetView{ImageAsset: asset, URL: a.Store.PublicURL(asset.Path)}
	if key, ok := a.Store.KeyFromPath(asset.Path); ok {
		thumb := storage.ThumbnailKey(key)
		if p, err := a.Store.Path(thumb); err == nil && storage.Exists(p) {
			v.ThumbnailURL = a.Store.URL(thumb)
		}
	}
	return v
}

// requestLanguage prefers an explicit language and otherwise uses the
// locale the i18n middleware detected.
func requestLanguage(r *http.Request, explicit string) string {
	if lang := strings.TrimSpace(explicit); lang != "" {
		return lang
	}
	return middleware.LanguageName(middleware.LocaleFromContext(r.Context()))
}

func filenameFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func formatExt(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
