package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"imagesvc/internal/adapter/repo"
	"imagesvc/internal/http/handlers"
	"imagesvc/internal/http/httpapi"
	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
	"imagesvc/internal/infra/geoip"
	"imagesvc/internal/metrics"
	"imagesvc/internal/middleware"
	"imagesvc/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database is optional: without it keys come from the environment
	// only and image records are not kept.
	lookup := credentials.Chain{credentials.FromConfig(cfg)}
	app := &handlers.App{Logger: logger}
	pool, err := infra.NewDBPool(ctx, cfg)
	switch {
	case errors.Is(err, infra.ErrDatabaseDisabled):
		logger.Info().Msg("database disabled")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to connect database")
	default:
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		lookup = append(lookup, credentials.NewStore(runner))
		app.Assets = repo.NewImageAssetRepository(runner)
	}

	store, err := storage.NewFileStore(cfg.ImagesDir, cfg.StaticURLPrefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare image directory")
	}
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	collector := metrics.NewCollector("imagesvc", nil)
	svc, err := buildServices(ctx, cfg, lookup, store, collector, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}
	defer svc.Close()

	app.Adaptive = svc.Adaptive
	app.Searcher = svc.Aggregator
	app.Classifier = svc.Classifier
	app.Store = store
	app.Metrics = collector

	var countryLookup middleware.CountryLookup
	if fn := resolver.Lookup(); fn != nil {
		countryLookup = fn
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   middleware.LocaleEnglish,
		CountryLookup:   countryLookup,
		StaticDir:       store.BasePath(),
		StaticPrefix:    cfg.StaticURLPrefix,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("generator", string(svc.Adaptive.Strategy().Kind)).
			Strs("search", svc.Aggregator.Providers()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
