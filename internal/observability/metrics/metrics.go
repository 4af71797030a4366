// Package metrics collects the portal's Prometheus metrics and serves /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session resolution sources.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// Recorder is what services and middleware report to. Nop satisfies it when
// metrics are disabled.
type Recorder interface {
	SessionResolved(source string)
	RoleRecordMerge(role, outcome string)
	AccessDenied(reason string)
	SignIn(result string)
	StaffProvisioned(role, result string)
	RateLimited(route string)
	HTTPRequest(method string, status int, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	sessionsResolved *prometheus.CounterVec
	roleMerges       *prometheus.CounterVec
	accessDenied     *prometheus.CounterVec
	signIns          *prometheus.CounterVec
	staffProvisioned *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_sessions_resolved_total",
			Help: "Sessions resolved, by source (cache or store).",
		}, []string{"source"}),
		roleMerges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_role_record_merges_total",
			Help: "Role record merges during session augmentation, by role and outcome.",
		}, []string{"role", "outcome"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_access_denied_total",
			Help: "Requests denied by the access guard, by reason.",
		}, []string{"reason"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_sign_in_total",
			Help: "Sign-in attempts, by result.",
		}, []string{"result"}),
		staffProvisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_staff_provisioned_total",
			Help: "Staff provisioning attempts, by role and result.",
		}, []string{"role", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP responses, by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.sessionsResolved,
		c.roleMerges,
		c.accessDenied,
		c.signIns,
		c.staffProvisioned,
		c.rateLimited,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) SessionResolved(source string) {
	c.sessionsResolved.WithLabelValues(source).Inc()
}

// RoleRecordMerge records one augmentation outcome: "merged", "missing", or "lookup_error".
func (c *Collector) RoleRecordMerge(role, outcome string) {
	c.roleMerges.WithLabelValues(role, outcome).Inc()
}

func (c *Collector) AccessDenied(reason string) {
	c.accessDenied.WithLabelValues(reason).Inc()
}

func (c *Collector) SignIn(result string) {
	c.signIns.WithLabelValues(result).Inc()
}

func (c *Collector) StaffProvisioned(role, result string) {
	c.staffProvisioned.WithLabelValues(role, result).Inc()
}

func (c *Collector) RateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

func (c *Collector) HTTPRequest(method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) SessionResolved(string)                 {}
func (Nop) RoleRecordMerge(string, string)         {}
func (Nop) AccessDenied(string)                    {}
func (Nop) SignIn(string)                          {}
func (Nop) StaffProvisioned(string, string)        {}
func (Nop) RateLimited(string)                     {}
func (Nop) HTTPRequest(string, int, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Handler serves the Prometheus scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
