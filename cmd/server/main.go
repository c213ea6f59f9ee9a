package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/clip-api/internal/catalog"
	"github.com/Brownie44l1/clip-api/internal/config"
	"github.com/Brownie44l1/clip-api/internal/handlers"
	"github.com/Brownie44l1/clip-api/internal/keepalive"
	"github.com/Brownie44l1/clip-api/internal/logger"
	"github.com/Brownie44l1/clip-api/internal/metrics"
	"github.com/Brownie44l1/clip-api/internal/middleware"
	"github.com/Brownie44l1/clip-api/internal/model"
	"github.com/Brownie44l1/clip-api/internal/ranker"
	"github.com/Brownie44l1/clip-api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	l := logger.Init(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	modelDir := cfg.ModelDir
	// If running from cmd/server, go up two levels
	if wd, err := os.Getwd(); err == nil && filepath.Base(wd) == "server" && !filepath.IsAbs(modelDir) {
		modelDir = filepath.Join(wd, "../..", modelDir)
	}

	paths := model.PathsFromDir(modelDir)
	paths.SharedLibrary = cfg.OrtLibrary

	l.Info().Str("dir", modelDir).Msg("Loading model")

	modelServer, err := model.NewServer(paths)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to initialize model server")
	}
	defer modelServer.Close()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to load catalog")
		}
	}

	rk := ranker.New(modelServer, cat,
		ranker.WithTopK(cfg.TopK),
		ranker.WithTimeout(cfg.RankTimeout),
		ranker.WithMaxPixels(cfg.MaxPixels),
		ranker.WithLogger(l),
	)

	m := metrics.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitWindow)
	limiter.Logger = l
	go limiter.Run(ctx, time.Minute)

	handler := handlers.NewHandler(rk, m, cfg.MaxUploadSize)
	router := server.NewRouter(handler, server.Options{
		Production:  cfg.IsProduction(),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      l,
		Metrics:     m,
		Limiter:     limiter,
	})

	if cfg.KeepAliveURL != "" {
		pinger := keepalive.New(cfg.KeepAliveURL, cfg.KeepAliveInterval)
		pinger.Logger = l
		go pinger.Run(ctx)
	}

	l.Info().
		Int("labels", cat.Len()).
		Int("top_k", cfg.TopK).
		Int("rate_limit_per_minute", cfg.RateLimitPerMinute).
		Msg("Classifier ready")
	l.Info().Msg("Endpoints: GET / | GET /health | GET /metrics | POST /classify")

	if err := server.Run(ctx, cfg.Addr(), router, l); err != nil {
		l.Error().Err(err).Msg("Server failed")
		stop()
		modelServer.Close()
		os.Exit(1)
	}
	l.Info().Msg("Server stopped")
}
