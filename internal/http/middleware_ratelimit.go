package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fakehospital/portal/internal/observability/metrics"
	"golang.org/x/time/rate"
)

// Rate limiter defaults: 10 attempts per minute per client with a burst of 5.
const (
	DefaultRatePerMinute = 10
	DefaultRateBurst     = 5
	defaultVisitorIdle   = 10 * time.Minute
)

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
	// IdleTTL is how long an idle client's limiter is kept before cleanup.
	IdleTTL    time.Duration
	TrustProxy bool
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP with a token bucket per client.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	trust    bool
	now      func() time.Time
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewRateLimiter creates a RateLimiter. Zero values take the defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = DefaultRatePerMinute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = defaultVisitorIdle
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     idle,
		trust:    cfg.TrustProxy,
		now:      time.Now,
		logger:   logger.With("component", "rate_limiter"),
		metrics:  metrics.OrNop(cfg.Metrics),
	}
}

// Allow reports whether the client key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Cleanup drops clients idle for longer than IdleTTL and returns how many were removed.
func (l *RateLimiter) Cleanup() int {
	cutoff := l.now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Run cleans up idle clients every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Cleanup(); n > 0 {
				l.logger.Debug("rate limiter cleanup", "removed", n)
			}
		}
	}
}

// Middleware limits requests to the wrapped handler. Each route keeps its own
// bucket per client, and route also labels metrics. Only state-changing methods
// are counted so rendering a form is never throttled.
func (l *RateLimiter) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r, l.trust)
			if l.Allow(route + "|" + ip) {
				next.ServeHTTP(w, r)
				return
			}
			l.metrics.RateLimited(route)
			l.logger.WarnContext(r.Context(), "rate limited", "route", route, "client_ip", ip)
			retry := time.Duration(float64(time.Second) / float64(l.limit))
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retry.Seconds()))))
			if isAPIRequest(r) {
				WriteError(w, ErrorParams{
					Code:    http.StatusTooManyRequests,
					ErrCode: "rate_limited",
					Message: "Too many attempts. Please wait and try again.",
				})
				return
			}
			http.Error(w, "Too many attempts. Please wait and try again.", http.StatusTooManyRequests)
		})
	}
}

// Len reports how many clients are being tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
