package config

import "log/slog"

// ObservabilityConfig controls logging verbosity and the Prometheus endpoint.
type ObservabilityConfig struct {
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Metrics  ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	if c.LogLevel < slog.LevelDebug {
		c.LogLevel = slog.LevelDebug
	}
}

// ObservabilityMetricsConfig controls the /metrics endpoint.
type ObservabilityMetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsEnabled returns true when /metrics should be mounted.
func (c ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled
}
