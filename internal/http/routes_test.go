package httpx

import (
	"net/http"
	"net/url"
	"testing"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserFlow_SignUpSignInDashboardSignOut(t *testing.T) {
	p := newPortal(t)
	b := newBrowser(t, p.handler)

	resp, body := b.get("/sign-up")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	csrf := csrfFrom(t, body)

	resp, _ = b.post("/sign-up", url.Values{
		CSRFFieldName:     {csrf},
		"firstName":       {"Pat"},
		"lastName":        {"Lee"},
		"email":           {"pat@example.com"},
		"password":        {"secret123"},
		"confirmPassword": {"secret123"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/sign-in?registered=1", resp.Header.Get("Location"))

	resp, body = b.get("/sign-in?registered=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Account created")

	resp, _ = b.post("/sign-in", url.Values{
		CSRFFieldName: {csrfFrom(t, body)},
		"email":       {"pat@example.com"},
		"password":    {"secret123"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, domainauth.PatientHome, resp.Header.Get("Location"))

	resp, body = b.get(domainauth.PatientHome)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, Pat")
	assert.Contains(t, body, "You have no prescriptions.")

	resp, _ = b.get(domainauth.AdminHome)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = b.post("/sign-out", url.Values{CSRFFieldName: {csrfFrom(t, body)}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = b.get(domainauth.PatientHome)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []string{denyMismatch, denyAbsent}, p.metrics.deniedReasons())
}

func TestBrowserFlow_PostWithoutCSRFIsRejected(t *testing.T) {
	p := newPortal(t)
	b := newBrowser(t, p.handler)

	b.get("/sign-in")
	resp, _ := b.post("/sign-in", url.Values{"email": {"a@b.co"}, "password": {"x"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_SignInIsRateLimited(t *testing.T) {
	p := newPortal(t, withRateLimit(RateLimitConfig{PerMinute: 1, Burst: 2}))
	b := newBrowser(t, p.handler)

	_, body := b.get("/sign-in")
	csrf := csrfFrom(t, body)
	attempt := func() int {
		resp, _ := b.post("/sign-in", url.Values{CSRFFieldName: {csrf}, "email": {"a@b.co"}, "password": {"wrong123"}})
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, attempt())
	assert.Equal(t, http.StatusUnauthorized, attempt())
	assert.Equal(t, http.StatusTooManyRequests, attempt())

	resp, _ := b.get("/sign-in")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "viewing the form is not throttled")
}

func TestRouter_StaticAssets(t *testing.T) {
	p := newPortal(t)
	b := newBrowser(t, p.handler)

	resp, body := b.get("/static/css/portal.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=300", resp.Header.Get("Cache-Control"))
	assert.Contains(t, body, ".container")
}

func TestRouter_Healthz(t *testing.T) {
	p := newPortal(t)
	b := newBrowser(t, p.handler)

	resp, body := b.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestRouter_ProtectedSubpathsAreGuarded(t *testing.T) {
	p := newPortal(t)
	b := newBrowser(t, p.handler)

	for _, path := range []string{"/admin/staff", "/patients/anything", "/api/admin/staff"} {
		resp, _ := b.get(path)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
	resp, _ := b.get("/administrator")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
