package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/fakehospital/portal/internal/observability/metrics"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth       AccountService
	Sessions   SessionStore
	Dashboards Dashboards
	Staff      StaffService
	Renderer   *TemplateRenderer
	// StaticFS is rooted at the static asset directory; nil disables /static/.
	StaticFS fs.FS
	// Table defaults to DefaultAuthorizationTable.
	Table *AuthorizationTable
	// RateLimiter throttles credential posts; nil disables throttling.
	RateLimiter *RateLimiter
	Metrics     metrics.Recorder
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	HealthChecks   map[string]HealthCheck
	CookieDomain   string
	Logger         *slog.Logger
}

// SessionStore resolves and invalidates augmented sessions.
type SessionStore interface {
	SessionResolver
	SessionInvalidator
}

// StaffService provisions and lists staff.
type StaffService interface {
	StaffProvisioner
	StaffDirectory
}

// NewRouter builds the portal's handler. Every request passes through
// recovery, logging, security headers, CSRF, and the access guard, in that order.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	table := services.Table
	if table == nil {
		table = DefaultAuthorizationTable()
	}
	rec := metrics.OrNop(services.Metrics)

	pages := &PageHandlers{
		Dashboards: services.Dashboards,
		Staff:      services.Staff,
		Renderer:   services.Renderer,
		Logger:     logger,
	}
	auth := &AuthHandlers{
		Svc:      services.Auth,
		Sessions: services.Sessions,
		Renderer: services.Renderer,
		Cookies:  cookieWriter{domain: services.CookieDomain},
		Logger:   logger,
	}
	staff := &StaffHandlers{
		Svc:      services.Staff,
		Pages:    pages,
		Renderer: services.Renderer,
		Logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", pages.Home)
	mux.Handle("GET /healthz", HealthHandler(services.HealthChecks))
	mux.Handle("HEAD /healthz", HealthHandler(services.HealthChecks))
	if services.MetricsHandler != nil {
		mux.Handle("GET /metrics", services.MetricsHandler)
	}
	if services.StaticFS != nil {
		mux.Handle("GET /static/", staticWithCacheHeaders(
			http.StripPrefix("/static/", http.FileServer(http.FS(services.StaticFS)))))
	}

	registerAuthRoutes(mux, auth, services.RateLimiter)
	registerDashboardRoutes(mux, pages)
	registerStaffRoutes(mux, staff, pages)
	mux.HandleFunc("GET /api/session", SessionInfo)

	return chain(mux,
		Recover(logger),
		Logging(logger, rec),
		SecurityHeaders(),
		CSRFProtection(services.CookieDomain),
		Guard(GuardConfig{
			Table:    table,
			Resolver: services.Sessions,
			Renderer: services.Renderer,
			Logger:   logger,
			Metrics:  rec,
		}),
		OptionalSession(services.Sessions),
	)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, limiter *RateLimiter) {
	throttle := func(route string, fn http.HandlerFunc) http.Handler {
		if limiter == nil {
			return fn
		}
		return limiter.Middleware(route)(fn)
	}
	mux.HandleFunc("GET /sign-in", h.SignInPage)
	mux.Handle("POST /sign-in", throttle("sign_in", h.SignIn))
	mux.HandleFunc("GET /sign-up", h.SignUpPage)
	mux.Handle("POST /sign-up", throttle("sign_up", h.SignUp))
	mux.HandleFunc("POST /sign-out", h.SignOut)
	mux.HandleFunc("GET /auth/login", h.SSOLogin)
	mux.HandleFunc("GET /auth/callback", h.SSOCallback)
}

func registerDashboardRoutes(mux *http.ServeMux, h *PageHandlers) {
	mux.HandleFunc("GET /patients", h.Patients)
	mux.HandleFunc("GET /doctors", h.Clinician)
	mux.HandleFunc("GET /nurses", h.Clinician)
	mux.HandleFunc("GET /admin", h.Admin)
}

func registerStaffRoutes(mux *http.ServeMux, h *StaffHandlers, pages *PageHandlers) {
	mux.HandleFunc("GET /admin/staff", pages.Admin)
	mux.HandleFunc("POST /admin/staff", h.CreateForm)
	mux.HandleFunc("GET /api/admin/staff", h.ListAPI)
	mux.HandleFunc("POST /api/admin/staff", h.CreateAPI)
}

// staticWithCacheHeaders lets browsers reuse assets briefly; they are not
// content-hashed, so long-lived caching would pin stale copies.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		handler.ServeHTTP(w, r)
	})
}
