package service

import (
	"log/slog"

	"github.com/fakehospital/portal/internal/observability/metrics"
)

// Observability carries the optional logger and metrics recorder shared by services.
type Observability struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

func (o Observability) logger(component string) *slog.Logger {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}

func (o Observability) recorder() metrics.Recorder {
	return metrics.OrNop(o.Metrics)
}
