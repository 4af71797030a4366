package config

import (
	"os"
	"strings"
)

// AppConfig is the portal's configuration, composed from the domain files in
// this package and loaded from environment variables with
// github.com/caarlos0/env:
//   - auth.go: sign-in, SSO, and password hashing
//   - database.go: PostgreSQL and Redis
//   - http.go: listener, cookies, and sign-in throttling
//   - session.go: auth token lifetime, session cache, downstream credential
//   - observability.go: log level and Prometheus metrics
type AppConfig struct {
	// IsDev permits the mock SSO provider.
	// Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth     AuthConfig    `envPrefix:"AUTH_"`
	Postgres DBConfig      `envPrefix:"DB_"`
	Redis    RedisConfig   `envPrefix:"REDIS_"`
	HTTP     HTTPConfig    `envPrefix:"HTTP_"`
	Session  SessionConfig `envPrefix:"SESSION_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call it after parsing.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Auth.Sanitize(c.IsDev)
	c.HTTP.Sanitize()
	c.Session.Sanitize()
	c.Observability.Sanitize()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
