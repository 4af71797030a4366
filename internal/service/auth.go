package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/fakehospital/portal/internal/ports"
	"github.com/google/uuid"
)

// DefaultTokenLifetime is how long an authentication token stays valid.
const DefaultTokenLifetime = 7 * 24 * time.Hour

// Sign-in results for metrics.
const (
	signInSuccess = "success"
	signInInvalid = "invalid_credentials"
	signInError   = "error"
)

// ErrSSODisabled is returned by the SSO operations when no provider is configured.
var ErrSSODisabled = errors.New("single sign-on is not enabled")

// AuthStores groups the stores AuthService reads and writes.
type AuthStores struct {
	Identities ports.IdentityStore
	Tokens     ports.SessionStore
}

// AuthSecurity groups credential verification and the optional SSO provider.
type AuthSecurity struct {
	Hasher   ports.PasswordHasher
	Provider ports.AuthProvider
}

// AuthConfig tunes token lifetime and carries observability hooks.
type AuthConfig struct {
	TokenLifetime time.Duration
	Now           func() time.Time
	Obs           Observability
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Stores   AuthStores
	Security AuthSecurity
	Config   AuthConfig
}

// AuthService owns the account flows: sign-up, password sign-in, SSO sign-in,
// sign-out, and resolving an authentication token to its identity.
type AuthService struct {
	identities ports.IdentityStore
	tokens     ports.SessionStore
	hasher     ports.PasswordHasher
	provider   ports.AuthProvider
	lifetime   time.Duration
	now        func() time.Time
	obs        Observability

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Stores.Identities == nil {
		return nil, errors.New("IdentityStore is required")
	}
	if opts.Stores.Tokens == nil {
		return nil, errors.New("SessionStore is required")
	}
	if opts.Security.Hasher == nil {
		return nil, errors.New("PasswordHasher is required")
	}
	lifetime := opts.Config.TokenLifetime
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		identities: opts.Stores.Identities,
		tokens:     opts.Stores.Tokens,
		hasher:     opts.Security.Hasher,
		provider:   opts.Security.Provider,
		lifetime:   lifetime,
		now:        now,
		obs:        opts.Config.Obs,
	}, nil
}

// MustNewAuthService is NewAuthService that panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	s, err := NewAuthService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// SSOEnabled reports whether an SSO provider is configured.
func (s *AuthService) SSOEnabled() bool { return s.provider != nil }

// SignUpInput carries a patient self-registration.
type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SignUp registers a patient: identity, credential account, and patient record.
// It does not sign the new account in.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (domainauth.Identity, error) {
	if err := firstFieldError(ValidateSignUpInput(in)); err != nil {
		return domainauth.Identity{}, err
	}
	email := normalizeEmail(in.Email)

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: %w", domainauth.ErrProvisioningFailure, err)
	}
	ident, err := s.identities.Create(ctx, domainauth.NewIdentity{
		Email:          email,
		DisplayName:    displayName(in.FirstName, in.LastName),
		Role:           domainauth.RolePatient,
		CredentialHash: hash,
	})
	if err != nil {
		return domainauth.Identity{}, classifyCreateError(err)
	}
	s.obs.logger("auth").InfoContext(ctx, "patient registered", "identity_id", ident.ID)
	return ident, nil
}

// classifyCreateError folds identity-store failures into the two provisioning
// error kinds while keeping the cause in the chain.
func classifyCreateError(err error) error {
	if apperrors.IsConflict(err) {
		return fmt.Errorf("%w: %w", domainauth.ErrDuplicateEmail, err)
	}
	return fmt.Errorf("%w: %w", domainauth.ErrProvisioningFailure, err)
}

// SignInResult is a freshly issued authentication token and where to send its holder.
type SignInResult struct {
	Token       domainauth.AuthToken
	Identity    domainauth.Identity
	Destination string
}

// SignIn verifies an email and password. Every mismatch, including an unknown
// email, yields ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	rec := s.obs.recorder()
	email = normalizeEmail(email)
	if email == "" || password == "" {
		rec.SignIn(signInInvalid)
		return nil, domainauth.ErrInvalidCredentials
	}

	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.compareDecoy(password)
			rec.SignIn(signInInvalid)
			return nil, domainauth.ErrInvalidCredentials
		}
		rec.SignIn(signInError)
		return nil, fmt.Errorf("sign in: %w", errors.Join(domainauth.ErrTransientLookup, err))
	}

	hash, err := s.identities.CredentialHash(ctx, ident.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.compareDecoy(password)
			rec.SignIn(signInInvalid)
			return nil, domainauth.ErrInvalidCredentials
		}
		rec.SignIn(signInError)
		return nil, fmt.Errorf("sign in: %w", errors.Join(domainauth.ErrTransientLookup, err))
	}
	if !s.hasher.Compare(hash, password) {
		rec.SignIn(signInInvalid)
		return nil, domainauth.ErrInvalidCredentials
	}

	res, err := s.issue(ctx, ident)
	if err != nil {
		rec.SignIn(signInError)
		return nil, err
	}
	rec.SignIn(signInSuccess)
	return res, nil
}

// compareDecoy spends one hash comparison on a request that has no stored
// credential, so an unknown email costs the same as a wrong password.
func (s *AuthService) compareDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy:" + uuid.NewString())
		if err == nil {
			s.decoyHash = hash
		}
	})
	_ = s.hasher.Compare(s.decoyHash, password)
}

func (s *AuthService) issue(ctx context.Context, ident domainauth.Identity) (*SignInResult, error) {
	now := s.now()
	tok := domainauth.AuthToken{
		Token:      uuid.NewString(),
		IdentityID: ident.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.lifetime),
	}
	if err := s.tokens.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("save auth token: %w", err)
	}
	s.obs.logger("auth").InfoContext(ctx, "signed in", "identity_id", ident.ID, "role", string(ident.Role))
	return &SignInResult{
		Token:       tok,
		Identity:    ident,
		Destination: domainauth.DestinationFor(ident.Role),
	}, nil
}

// SignOut revokes an authentication token. An empty token is a no-op.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	return nil
}

// LookupToken resolves an authentication token to its identity and expiry.
// Unknown, expired, or orphaned tokens yield ErrAuthenticationAbsent; store
// failures are joined with ErrTransientLookup.
func (s *AuthService) LookupToken(ctx context.Context, token string) (domainauth.Identity, time.Time, error) {
	if token == "" {
		return domainauth.Identity{}, time.Time{}, domainauth.ErrAuthenticationAbsent
	}

	tok, err := s.tokens.Get(ctx, token)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domainauth.Identity{}, time.Time{}, domainauth.ErrAuthenticationAbsent
		}
		return domainauth.Identity{}, time.Time{}, fmt.Errorf("get auth token: %w", errors.Join(domainauth.ErrTransientLookup, err))
	}
	if tok.Expired(s.now()) {
		_ = s.tokens.Delete(ctx, token)
		return domainauth.Identity{}, time.Time{}, domainauth.ErrAuthenticationAbsent
	}

	ident, err := s.identities.GetByID(ctx, tok.IdentityID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = s.tokens.Delete(ctx, token)
			return domainauth.Identity{}, time.Time{}, domainauth.ErrAuthenticationAbsent
		}
		return domainauth.Identity{}, time.Time{}, fmt.Errorf("get identity: %w", errors.Join(domainauth.ErrTransientLookup, err))
	}
	return ident, tok.ExpiresAt, nil
}

// BeginLoginResult contains the result of beginning an SSO flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin starts an SSO flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, ErrSSODisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing an SSO flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the authorization code and signs in the portal
// identity with the provider's email. SSO never creates identities: staff are
// provisioned by admins and patients sign up.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*SignInResult, error) {
	if s.provider == nil {
		return nil, ErrSSODisabled
	}
	switch {
	case in.Code == "":
		return nil, errors.New("authorization code is required")
	case in.State == "":
		return nil, errors.New("state parameter is required")
	case in.Nonce == "":
		return nil, errors.New("nonce parameter is required")
	}

	principal, err := s.provider.Exchange(ctx, ports.ExchangeInput{Code: in.Code, State: in.State, Nonce: in.Nonce})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	ident, err := s.identities.GetByEmail(ctx, strings.ToLower(principal.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.obs.recorder().SignIn(signInInvalid)
			return nil, fmt.Errorf("%w: no portal account for provider subject %s", domainauth.ErrAuthenticationAbsent, principal.Subject)
		}
		s.obs.recorder().SignIn(signInError)
		return nil, fmt.Errorf("find identity: %w", errors.Join(domainauth.ErrTransientLookup, err))
	}

	res, err := s.issue(ctx, ident)
	if err != nil {
		s.obs.recorder().SignIn(signInError)
		return nil, err
	}
	s.obs.recorder().SignIn(signInSuccess)
	return res, nil
}
