package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`

	// TrustProxy keys the sign-in rate limiter on the last X-Forwarded-For hop.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// RateLimitPerMinute and RateLimitBurst shape the per-client token bucket
	// applied to sign-in and sign-up posts.
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST"      envDefault:"5"`
	RateLimitCleanup   time.Duration `env:"RATE_LIMIT_CLEANUP"    envDefault:"1m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.RateLimitPerMinute < 1 {
		h.RateLimitPerMinute = 1
	}
	if h.RateLimitBurst < 1 {
		h.RateLimitBurst = 1
	}
	if h.RateLimitCleanup < 10*time.Second {
		h.RateLimitCleanup = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
