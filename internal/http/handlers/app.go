package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"imagesvc/internal/adaptive"
	"imagesvc/internal/domain"
	"imagesvc/internal/metrics"
	"imagesvc/internal/storage"
)

// Adaptive is the image sourcing service behind the image endpoints.
type Adaptive interface {
	GetAdaptiveImage(ctx context.Context, prompt, language string) domain.AdaptiveImageResponse
	GenerateImage(ctx context.Context, p domain.ImagePrompt) adaptive.GenerateOutcome
}

// App carries the dependencies of every handler. Assets is nil when the
// service runs without a database.
type App struct {
	Adaptive   Adaptive
	Searcher   adaptive.Searcher
	Classifier adaptive.Classifier
	Assets     domain.ImageAssetRepository
	Store      *storage.FileStore
	Metrics    *metrics.Collector
	Logger     zerolog.Logger
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: msg}})
}
