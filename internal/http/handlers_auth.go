package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/http/validation"
	"github.com/fakehospital/portal/internal/service"
)

// AccountService is the subset of service.AuthService the account pages use.
type AccountService interface {
	SignUp(ctx context.Context, in service.SignUpInput) (domainauth.Identity, error)
	SignIn(ctx context.Context, email, password string) (*service.SignInResult, error)
	SignOut(ctx context.Context, token string) error
	SSOEnabled() bool
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, in service.CompleteLoginInput) (*service.SignInResult, error)
}

// SessionInvalidator drops a cached session.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// AuthHandlers serves sign-in, sign-up, sign-out, and the SSO round trip.
type AuthHandlers struct {
	Svc      AccountService
	Sessions SessionInvalidator
	Renderer *TemplateRenderer
	Cookies  cookieWriter
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// SignInPage renders the sign-in form. A signed-in visitor is sent home instead.
// GET /sign-in.
func (h *AuthHandlers) SignInPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, domainauth.DestinationFor(sess.Role()), http.StatusSeeOther)
		return
	}
	b := h.signInData(r)
	if r.URL.Query().Get("registered") == "1" {
		b.With("Notice", "Account created. Please sign in.")
	}
	renderPage(w, h.Renderer, http.StatusOK, b.Build())
}

func (h *AuthHandlers) signInData(r *http.Request) *TemplateDataBuilder {
	return NewTemplateData(r, PageMeta{Title: "Sign in", CurrentPage: PageSignIn}).
		With("SSOEnabled", h.Svc.SSOEnabled())
}

// SignIn verifies the submitted email and password.
// POST /sign-in.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	form := map[string]string{"email": email}

	fv := validation.New().
		Validate("email", email, validation.NotEmpty("Email")).
		Validate("password", password, validation.NotEmpty("Password"))
	if !fv.Valid() {
		renderPage(w, h.Renderer, http.StatusUnprocessableEntity,
			h.signInData(r).WithForm(form).WithFieldErrors(fv.Errors()).Build())
		return
	}

	res, err := h.Svc.SignIn(r.Context(), email, password)
	switch {
	case err == nil:
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		renderPage(w, h.Renderer, http.StatusUnauthorized,
			h.signInData(r).WithForm(form).WithError(msgInvalidSignIn).Build())
		return
	default:
		h.logger().ErrorContext(r.Context(), "sign in failed", "error", err)
		renderPage(w, h.Renderer, http.StatusServiceUnavailable,
			h.signInData(r).WithForm(form).WithError(msgUnavailable).Build())
		return
	}

	h.Cookies.setSession(w, r, res.Token.Token, res.Token.ExpiresAt)
	http.Redirect(w, r, res.Destination, http.StatusSeeOther)
}

// SignUpPage renders the patient registration form.
// GET /sign-up.
func (h *AuthHandlers) SignUpPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, domainauth.DestinationFor(sess.Role()), http.StatusSeeOther)
		return
	}
	renderPage(w, h.Renderer, http.StatusOK, signUpData(r).Build())
}

func signUpData(r *http.Request) *TemplateDataBuilder {
	return NewTemplateData(r, PageMeta{Title: "Create account", CurrentPage: PageSignUp})
}

// SignUp registers a patient and sends them to sign in. The new account is not
// signed in automatically.
// POST /sign-up.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	in := service.SignUpInput{
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
	}
	form := map[string]string{"firstName": in.FirstName, "lastName": in.LastName, "email": in.Email}

	fields := service.ValidateSignUpInput(in)
	if msg := validation.Matches(in.Password)(r.PostFormValue("confirmPassword")); msg != "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["confirmPassword"] = msg
	}
	if fields != nil {
		renderPage(w, h.Renderer, http.StatusUnprocessableEntity,
			signUpData(r).WithForm(form).WithFieldErrors(fields).WithError(msgFixBelow).Build())
		return
	}

	if _, err := h.Svc.SignUp(r.Context(), in); err != nil {
		fields, general := formError(err, msgSignUpFailed)
		status := http.StatusUnprocessableEntity
		if general != "" {
			status = http.StatusInternalServerError
			h.logger().ErrorContext(r.Context(), "sign up failed", "error", err)
		}
		renderPage(w, h.Renderer, status,
			signUpData(r).WithForm(form).WithFieldErrors(fields).WithError(general).Build())
		return
	}

	http.Redirect(w, r, domainauth.SignInRoute+"?registered=1", http.StatusSeeOther)
}

// SignOut revokes the auth token, drops the cached session, and clears the cookie.
// POST /sign-out.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.Svc.SignOut(r.Context(), token); err != nil {
			h.logger().WarnContext(r.Context(), "sign out failed", "error", err)
		}
		if h.Sessions != nil {
			if err := h.Sessions.Invalidate(r.Context(), token); err != nil {
				h.logger().WarnContext(r.Context(), "session cache invalidation failed", "error", err)
			}
		}
	}
	h.Cookies.clear(w, r, SessionCookieName)
	http.Redirect(w, r, domainauth.SignInRoute, http.StatusSeeOther)
}

// SSOLogin starts the single sign-on flow.
// GET /auth/login.
func (h *AuthHandlers) SSOLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.SSOEnabled() {
		http.NotFound(w, r)
		return
	}
	res, err := h.Svc.BeginLogin(r.Context(), callbackURL(r))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin sso login failed", "error", err)
		renderPage(w, h.Renderer, http.StatusBadGateway,
			h.signInData(r).WithError("Single sign-on is unavailable. Please sign in with your password.").Build())
		return
	}
	h.Cookies.setShortLived(w, r, oauthStateCookie, res.State)
	h.Cookies.setShortLived(w, r, oauthNonceCookie, res.Nonce)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// SSOCallback completes the flow and signs the matching portal identity in.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.SSOEnabled() {
		http.NotFound(w, r)
		return
	}
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if code == "" || state == "" || err != nil || stateCookie.Value != state {
		h.ssoFailed(w, r, http.StatusBadRequest, errors.New("missing or mismatched state"))
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		h.ssoFailed(w, r, http.StatusBadRequest, errors.New("missing nonce"))
		return
	}

	res, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	h.Cookies.clear(w, r, oauthStateCookie)
	h.Cookies.clear(w, r, oauthNonceCookie)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domainauth.ErrAuthenticationAbsent) {
			status = http.StatusUnauthorized
		}
		h.ssoFailed(w, r, status, err)
		return
	}

	h.Cookies.setSession(w, r, res.Token.Token, res.Token.ExpiresAt)
	http.Redirect(w, r, res.Destination, http.StatusFound)
}

func (h *AuthHandlers) ssoFailed(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.logger().WarnContext(r.Context(), "sso callback rejected", "status", status, "error", err)
	renderPage(w, h.Renderer, status,
		h.signInData(r).WithError("Single sign-on failed. Please try again or sign in with your password.").Build())
}

// callbackURL builds the absolute SSO callback for the host the request came in on.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if isSecureRequest(r) {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/auth/callback"}
	return u.String()
}
