package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/observability/metrics"
)

// SessionResolver turns the session cookie value into the enriched session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domainauth.Session, error)
}

// Denial reasons, logged and counted but never shown to the client.
const (
	denyAbsent   = "authentication_absent"
	denyMismatch = "role_mismatch"
)

// forbiddenBody is the one JSON body every API denial returns.
//
//nolint:gochecknoglobals // fixed response body
var forbiddenBody = map[string]string{
	"error":   "forbidden",
	"message": "You are not authorized to access this resource.",
}

// GuardConfig groups the dependencies of Guard.
type GuardConfig struct {
	Table    *AuthorizationTable
	Resolver SessionResolver
	// Renderer draws the HTML denial page; nil falls back to a static page.
	Renderer *TemplateRenderer
	Logger   *slog.Logger
	Metrics  metrics.Recorder
}

// Guard enforces the authorization table. Requests to paths without a rule
// pass through untouched. Protected requests without a valid session, or whose
// session role differs from the rule's, receive the same 403 response; the
// reason only reaches logs and metrics. On success the session is attached to
// the request context.
func Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "access_guard")
	rec := metrics.OrNop(cfg.Metrics)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, protected := cfg.Table.Lookup(r.URL.Path)
			if !protected {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := resolveRequestSession(r, cfg.Resolver)
			var reason error
			switch {
			case err != nil:
				reason = err
			case sess.Role() != rule.Role:
				reason = domainauth.ErrRoleMismatch
			}
			if reason != nil {
				kind := denyAbsent
				if errors.Is(reason, domainauth.ErrRoleMismatch) {
					kind = denyMismatch
				}
				rec.AccessDenied(kind)
				logger.InfoContext(r.Context(), "access denied",
					"path", r.URL.Path,
					"required_role", string(rule.Role),
					"reason", kind,
					"error", reason,
				)
				deny(w, r, cfg.Renderer)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sess)))
		})
	}
}

// OptionalSession attaches the session to the request context when the cookie
// resolves, and otherwise leaves the request untouched.
func OptionalSession(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetSessionFromContext(r.Context()); !ok {
				if sess, err := resolveRequestSession(r, resolver); err == nil {
					r = r.WithContext(SetSessionInContext(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveRequestSession reads the session cookie and resolves it. Every
// failure, transient ones included, is reported as ErrAuthenticationAbsent.
func resolveRequestSession(r *http.Request, resolver SessionResolver) (*domainauth.Session, error) {
	if resolver == nil {
		return nil, domainauth.ErrAuthenticationAbsent
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, domainauth.ErrAuthenticationAbsent
	}
	sess, err := resolver.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, domainauth.ErrAuthenticationAbsent) {
			return nil, err
		}
		return nil, errors.Join(domainauth.ErrAuthenticationAbsent, err)
	}
	if sess == nil {
		return nil, domainauth.ErrAuthenticationAbsent
	}
	return sess, nil
}

const staticDenialPage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Access denied</title></head>
<body><main><h1>Access denied</h1>
<p>We're sorry, but you don't have permission to view this page.</p>
<p>If you believe this is a mistake, contact <a href="mailto:` + SupportEmail + `">` + SupportEmail + `</a>.</p>
<p><a href="/">Return Home</a></p></main></body></html>
`

func deny(w http.ResponseWriter, r *http.Request, renderer *TemplateRenderer) {
	w.Header().Set("Cache-Control", "no-store")
	if isAPIRequest(r) {
		WriteJSON(w, http.StatusForbidden, forbiddenBody)
		return
	}
	if renderer != nil {
		data := NewTemplateData(r, PageMeta{Title: "Access denied", CurrentPage: PageForbidden}).
			WithoutSession().
			Build()
		if err := renderer.Render(w, http.StatusForbidden, data); err == nil {
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(staticDenialPage))
}
