package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const DefaultWindow = time.Minute

type window struct {
	start time.Time
	count int
}

// RateLimiter allows at most limit requests per client in each fixed
// window. A client's window opens with its first request and resets once
// it has fully elapsed.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window

	limit  int
	window time.Duration
	now    func() time.Time

	Logger zerolog.Logger
	// Rejections are logged at most once per minute.
	rejectLog rate.Sometimes
}

func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	if per <= 0 {
		per = DefaultWindow
	}
	return &RateLimiter{
		clients:   make(map[string]*window),
		limit:     limit,
		window:    per,
		now:       time.Now,
		Logger:    log.Logger,
		rejectLog: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take counts one request for key. When the quota is spent it reports how
// long until the client's window resets.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[key]
	if !ok || !now.Before(w.start.Add(rl.window)) {
		w = &window{start: now}
		rl.clients[key] = w
	}

	if w.count >= rl.limit {
		return false, w.start.Add(rl.window).Sub(now)
	}
	w.count++
	return true, 0
}

// Sweep forgets clients whose window has expired and returns how many
// were removed.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, w := range rl.clients {
		if !now.Before(w.start.Add(rl.window)) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired clients every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects over-quota clients with 429. onReject, if set, runs
// before the response is written.
func (rl *RateLimiter) Middleware(onReject func(*gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		ok, wait := rl.take(ip)
		if ok {
			c.Next()
			return
		}

		rl.rejectLog.Do(func() {
			rl.Logger.Warn().Str("client", ip).Int("limit", rl.limit).Dur("window", rl.window).Msg("rate limit exceeded")
		})
		if onReject != nil {
			onReject(c)
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(1, secs)
}
