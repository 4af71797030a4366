package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	authmocks "github.com/fakehospital/portal/internal/mocks/auth"
	"github.com/fakehospital/portal/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"
)

// recordingMetrics keeps the labels the HTTP layer reports.
type recordingMetrics struct {
	mu          sync.Mutex
	denied      []string
	rateLimited []string
	requests    []int
}

func (m *recordingMetrics) SessionResolved(string)         {}
func (m *recordingMetrics) RoleRecordMerge(string, string) {}
func (m *recordingMetrics) SignIn(string)                  {}
func (m *recordingMetrics) StaffProvisioned(string, string) {}

func (m *recordingMetrics) AccessDenied(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, reason)
}

func (m *recordingMetrics) RateLimited(route string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited = append(m.rateLimited, route)
}

func (m *recordingMetrics) HTTPRequest(_ string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, status)
}

func (m *recordingMetrics) deniedReasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.denied...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: os.DirFS(TemplatePathFromTest),
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	return r
}

// portal wires the real services over in-memory stores.
type portal struct {
	identities *authmocks.MemoryIdentityStore
	directory  *authmocks.MemoryRoleDirectory
	tokens     *authmocks.MemorySessionStore
	cache      *authmocks.MemorySessionCache
	provider   *authmocks.MockAuthProvider
	auth       *service.AuthService
	sessions   *service.SessionAugmenter
	staff      *service.StaffService
	metrics    *recordingMetrics
	renderer   *TemplateRenderer
	limiter    *RateLimiter
	handler    http.Handler
}

type portalOption func(*portalOptions)

type portalOptions struct {
	sso     bool
	limiter *RateLimitConfig
}

func withSSO() portalOption { return func(o *portalOptions) { o.sso = true } }

func withRateLimit(cfg RateLimitConfig) portalOption {
	return func(o *portalOptions) { o.limiter = &cfg }
}

func newPortal(t *testing.T, opts ...portalOption) *portal {
	t.Helper()
	var o portalOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := &portal{
		identities: authmocks.NewMemoryIdentityStore(),
		directory:  authmocks.NewMemoryRoleDirectory(),
		tokens:     authmocks.NewMemorySessionStore(),
		cache:      authmocks.NewMemorySessionCache(),
		metrics:    &recordingMetrics{},
		renderer:   testRenderer(t),
	}
	p.identities.Directory = p.directory
	obs := service.Observability{Logger: quietLogger(), Metrics: p.metrics}

	sec := service.AuthSecurity{Hasher: authmocks.PlainHasher{}}
	if o.sso {
		p.provider = authmocks.NewMockAuthProvider()
		sec.Provider = p.provider
	}
	p.auth = service.MustNewAuthService(service.AuthServiceOptions{
		Stores:   service.AuthStores{Identities: p.identities, Tokens: p.tokens},
		Security: sec,
		Config:   service.AuthConfig{Obs: obs},
	})
	p.sessions = service.MustNewSessionAugmenter(service.SessionAugmenterOptions{
		Sources: service.SessionSources{Directory: p.directory, Tokens: p.auth, Cache: p.cache},
		Config:  service.SessionConfig{Signer: authmocks.StaticSigner{}},
		Obs:     obs,
	})
	p.staff = service.MustNewStaffService(service.StaffServiceOptions{
		Identities: p.identities,
		Hasher:     authmocks.PlainHasher{},
		Config: service.StaffConfig{
			Credentials: func() (string, error) { return "31415926", nil },
			Obs:         obs,
		},
	})
	dashboards, err := service.NewDashboardService(p.directory)
	require.NoError(t, err)
	if o.limiter != nil {
		cfg := *o.limiter
		cfg.Logger = quietLogger()
		cfg.Metrics = p.metrics
		p.limiter = NewRateLimiter(cfg)
	}

	p.handler = NewRouter(RouterServices{
		Auth:        p.auth,
		Sessions:    p.sessions,
		Dashboards:  dashboards,
		Staff:       p.staff,
		Renderer:    p.renderer,
		StaticFS:    os.DirFS("../../frontend/static"),
		RateLimiter: p.limiter,
		Metrics:     p.metrics,
		Logger:      quietLogger(),
	})
	return p
}

// addUser creates an identity with its role record and returns it.
func (p *portal) addUser(t *testing.T, email string, role domainauth.Role, password string) domainauth.Identity {
	t.Helper()
	ident, err := p.identities.Create(context.Background(), domainauth.NewIdentity{
		Email:          email,
		DisplayName:    "Test " + role.Title(),
		Role:           role,
		CredentialHash: "hash:" + password,
	})
	require.NoError(t, err)
	return ident
}

// signIn issues an auth token directly, bypassing the form.
func (p *portal) signIn(t *testing.T, email, password string) string {
	t.Helper()
	res, err := p.auth.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	return res.Token.Token
}

// do serves req through the full router.
func (p *portal) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	return rec
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	return req
}

// formPost builds a browser form post carrying a valid CSRF token.
func formPost(path string, values url.Values) *http.Request {
	const token = "test-csrf-token"
	if values == nil {
		values = url.Values{}
	}
	values.Set(CSRFFieldName, token)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	return req
}

// browser is a cookie-keeping client against a live test server.
type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	return &browser{
		t:   t,
		srv: srv,
		client: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.srv.URL + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, values url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.srv.URL+path, values)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

var csrfInputPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// csrfFrom extracts the CSRF token embedded in a rendered form.
func csrfFrom(t *testing.T, body string) string {
	t.Helper()
	m := csrfInputPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "page has no CSRF field")
	return m[1]
}
