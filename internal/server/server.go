package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/clip-api/internal/handlers"
	"github.com/Brownie44l1/clip-api/internal/metrics"
	"github.com/Brownie44l1/clip-api/internal/middleware"
)

const ShutdownTimeout = 15 * time.Second

type Options struct {
	Production  bool
	CORSOrigins []string
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Limiter     *middleware.RateLimiter
}

// NewRouter wires the HTTP surface. Only /classify is rate limited so
// health checks and keep-alive pings never spend client quota.
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(opts.Logger),
		middleware.RequestID(opts.Logger),
		middleware.AccessLog(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	classify := []gin.HandlerFunc{h.Classify}
	if opts.Limiter != nil {
		classify = append([]gin.HandlerFunc{opts.Limiter.Middleware(h.RateLimited)}, classify...)
	}
	r.POST("/classify", classify...)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
