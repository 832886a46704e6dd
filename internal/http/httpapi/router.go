package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"imagesvc/internal/http/handlers"
	"imagesvc/internal/middleware"
)

// Options configures the middleware stack around the handlers.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	// StaticDir is served under StaticPrefix; empty disables static files.
	StaticDir    string
	StaticPrefix string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger, app.Metrics),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/metrics", app.ServeMetrics)

	if opts.StaticDir != "" {
		prefix := "/" + strings.Trim(opts.StaticPrefix, "/")
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle(prefix+"/*", fs)
	}

	r.Route("/v1/images", func(r chi.Router) {
		r.Use(
			middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
			middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
		)
		r.Post("/adaptive", app.AdaptiveImage)
		r.Get("/search-multiple", app.SearchMultiple)
		r.Post("/classify", app.Classify)
		r.Get("/generate", app.GenerateImage)
		r.Get("/generated", app.ListGenerated)
		r.Get("/uploaded", app.ListUploaded)
		r.Get("/details", app.ImageDetails)
		r.Post("/upload", app.UploadImage)
		r.Delete("/{id}", app.DeleteImage)
	})

	return r
}
