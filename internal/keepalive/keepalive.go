// Package keepalive pings a URL on a fixed interval so idle hosting
// platforms do not put the service to sleep.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = 10 * time.Minute

type Pinger struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
	Logger   zerolog.Logger
}

func New(url string, interval time.Duration) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pinger{
		URL:      url,
		Interval: interval,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Logger:   log.Logger,
	}
}

// Run pings once immediately and then on every tick until ctx is done.
func (p *Pinger) Run(ctx context.Context) {
	p.Logger.Info().Str("url", p.URL).Dur("interval", p.Interval).Msg("keep-alive started")

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.pingAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			p.Logger.Info().Msg("keep-alive stopped")
			return
		case <-ticker.C:
			p.pingAndLog(ctx)
		}
	}
}

func (p *Pinger) pingAndLog(ctx context.Context) {
	status, err := p.Ping(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.Logger.Warn().Err(err).Str("url", p.URL).Msg("keep-alive ping failed")
		}
		return
	}
	p.Logger.Info().Int("status", status).Msg("keep-alive ping")
}

// Ping issues a single GET and returns the response status code.
func (p *Pinger) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build ping request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
