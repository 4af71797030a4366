package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRequest(method, path, ip string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":51234"
	return req
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rec := &recordingMetrics{}
	l := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 2, Logger: quietLogger(), Metrics: rec})
	h := l.Middleware("sign_in")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for range 2 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, limitedRequest(http.MethodPost, "/sign-in", "203.0.113.7"))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, limitedRequest(http.MethodPost, "/sign-in", "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many attempts")
	assert.Equal(t, []string{"sign_in"}, rec.rateLimited)

	other := httptest.NewRecorder()
	h.ServeHTTP(other, limitedRequest(http.MethodPost, "/sign-in", "198.51.100.4"))
	assert.Equal(t, http.StatusNoContent, other.Code, "clients are limited independently")
}

func TestRateLimiter_GetIsNeverCounted(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 1, Logger: quietLogger()})
	h := l.Middleware("sign_in")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 5 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, limitedRequest(http.MethodGet, "/sign-in", "203.0.113.7"))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Zero(t, l.Len())
}

func TestRateLimiter_APIResponseIsJSON(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 1, Logger: quietLogger()})
	h := l.Middleware("api")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), limitedRequest(http.MethodPost, "/api/admin/staff", "203.0.113.7"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, limitedRequest(http.MethodPost, "/api/admin/staff", "203.0.113.7"))

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"error":"rate_limited"`)
}

func TestRateLimiter_TrustProxyUsesLastForwardedHop(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 1, TrustProxy: true, Logger: quietLogger()})
	h := l.Middleware("sign_in")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(forwarded string) int {
		req := limitedRequest(http.MethodPost, "/sign-in", "10.0.0.1")
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.4"))
	// A client-supplied prefix does not buy a fresh bucket.
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.55, 203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.1.1.1, 2.2.2.2, 198.51.100.4"))
}

func TestRateLimiter_RoutesHaveSeparateBuckets(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 1, Logger: quietLogger()})
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	signIn := l.Middleware("sign_in")(ok)
	signUp := l.Middleware("sign_up")(ok)

	serve := func(h http.Handler, path string) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, limitedRequest(http.MethodPost, path, "203.0.113.7"))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, serve(signIn, "/sign-in"))
	assert.Equal(t, http.StatusTooManyRequests, serve(signIn, "/sign-in"))
	assert.Equal(t, http.StatusOK, serve(signUp, "/sign-up"), "sign-up is not charged for sign-in attempts")
	assert.Equal(t, 2, l.Len())
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitConfig{IdleTTL: time.Minute, Logger: quietLogger()})
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(30 * time.Second)
	l.Allow("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Len())
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	req := limitedRequest(http.MethodGet, "/", "192.0.2.10")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	assert.Equal(t, "192.0.2.10", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))

	req.Header.Set("X-Forwarded-For", "198.51.100.1, 203.0.113.9")
	assert.Equal(t, "203.0.113.9", clientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, not-an-ip")
	assert.Equal(t, "192.0.2.10", clientIP(req, true))
}
