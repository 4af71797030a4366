package config

import (
	"strings"
	"time"
)

// SessionConfig controls auth tokens, the enriched-session cache, and the
// downstream data-service credential.
type SessionConfig struct {
	// TokenLifetime is how long a sign-in stays valid.
	TokenLifetime time.Duration `env:"TOKEN_LIFETIME" envDefault:"168h"`

	// CacheTTL bounds how long an enriched session is reused before the role
	// record is looked up again.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// SigningSecret signs the downstream credential attached to each session.
	// Empty disables the credential.
	SigningSecret string `env:"SIGNING_SECRET"`
}

const (
	minCacheTTL      = 5 * time.Second
	maxCacheTTL      = time.Hour
	minTokenLifetime = 5 * time.Minute
	maxTokenLifetime = 30 * 24 * time.Hour
)

// Sanitize clamps TTLs into their supported ranges.
func (s *SessionConfig) Sanitize() {
	s.SigningSecret = strings.TrimSpace(s.SigningSecret)
	s.CacheTTL = clampDuration(s.CacheTTL, minCacheTTL, maxCacheTTL)
	s.TokenLifetime = clampDuration(s.TokenLifetime, minTokenLifetime, maxTokenLifetime)
}

// DownstreamCredentialEnabled reports whether sessions carry a signed credential.
func (s SessionConfig) DownstreamCredentialEnabled() bool {
	return s.SigningSecret != ""
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
