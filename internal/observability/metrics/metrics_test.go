package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SessionResolved(SourceCache)
	c.SessionResolved(SourceCache)
	c.SessionResolved(SourceStore)
	c.RoleRecordMerge("doctor", "missing")
	c.AccessDenied("role_mismatch")
	c.SignIn("invalid_credentials")
	c.StaffProvisioned("nurse", "success")
	c.RateLimited("/sign-in")

	assert.InDelta(t, 2, testutil.ToFloat64(c.sessionsResolved.WithLabelValues(SourceCache)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.sessionsResolved.WithLabelValues(SourceStore)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.roleMerges.WithLabelValues("doctor", "missing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.accessDenied.WithLabelValues("role_mismatch")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.signIns.WithLabelValues("invalid_credentials")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.staffProvisioned.WithLabelValues("nurse", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.rateLimited.WithLabelValues("/sign-in")), 0)
}

func TestCollector_HTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.HTTPRequest(http.MethodGet, http.StatusForbidden, 20*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "403")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpLatency))
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.AccessDenied("authentication_absent")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `portal_access_denied_total{reason="authentication_absent"} 1`)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))
	c := NewCollector(prometheus.NewRegistry())
	assert.Same(t, c, OrNop(c))
}
