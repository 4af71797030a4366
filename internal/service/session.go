package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/observability/metrics"
	"github.com/fakehospital/portal/internal/ports"
)

// DefaultSessionCacheTTL bounds how long an enriched session is served from cache.
const DefaultSessionCacheTTL = 10 * time.Minute

// Role record merge outcomes for metrics.
const (
	mergeMerged      = "merged"
	mergeMissing     = "missing"
	mergeLookupError = "lookup_error"
	mergeNoRole      = "no_role"
)

// TokenLookup resolves an authentication token to its identity and expiry.
// AuthService implements it.
type TokenLookup interface {
	LookupToken(ctx context.Context, token string) (domainauth.Identity, time.Time, error)
}

// SessionSources groups what the augmenter reads from.
type SessionSources struct {
	Directory ports.RoleDirectory
	Tokens    TokenLookup
	// Cache is optional; without it every Resolve recomputes the session.
	Cache ports.SessionCache
}

// SessionConfig tunes caching and access-token minting.
type SessionConfig struct {
	CacheTTL time.Duration
	// Signer is nil when no signing secret is configured.
	Signer ports.TokenSigner
	Now    func() time.Time
}

// SessionAugmenterOptions groups dependencies for SessionAugmenter.
type SessionAugmenterOptions struct {
	Sources SessionSources
	Config  SessionConfig
	Obs     Observability
}

// SessionAugmenter turns an authentication token into the enriched Session:
// identity, role record merged under its alias, and an optional downstream
// access token.
type SessionAugmenter struct {
	directory ports.RoleDirectory
	tokens    TokenLookup
	cache     ports.SessionCache
	signer    ports.TokenSigner
	ttl       time.Duration
	now       func() time.Time
	obs       Observability
}

// NewSessionAugmenter constructs a SessionAugmenter.
func NewSessionAugmenter(opts SessionAugmenterOptions) (*SessionAugmenter, error) {
	if opts.Sources.Directory == nil {
		return nil, errors.New("RoleDirectory is required")
	}
	if opts.Sources.Tokens == nil {
		return nil, errors.New("TokenLookup is required")
	}
	ttl := opts.Config.CacheTTL
	if ttl <= 0 {
		ttl = DefaultSessionCacheTTL
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	return &SessionAugmenter{
		directory: opts.Sources.Directory,
		tokens:    opts.Sources.Tokens,
		cache:     opts.Sources.Cache,
		signer:    opts.Config.Signer,
		ttl:       ttl,
		now:       now,
		obs:       opts.Obs,
	}, nil
}

// MustNewSessionAugmenter is NewSessionAugmenter that panics on error.
func MustNewSessionAugmenter(opts SessionAugmenterOptions) *SessionAugmenter {
	a, err := NewSessionAugmenter(opts)
	if err != nil {
		panic(err)
	}
	return a
}

// Augment builds the session for ident. It never fails: a missing role record
// or a directory error leaves the role-specific fields absent, and a signing
// failure leaves the access token empty. Both are logged and counted.
func (a *SessionAugmenter) Augment(ctx context.Context, ident domainauth.Identity, token string, expiresAt time.Time) domainauth.Session {
	sess := domainauth.Session{
		Token:     token,
		User:      domainauth.SessionUser{Identity: ident},
		ExpiresAt: expiresAt,
	}
	log := a.obs.logger("session")
	rec := a.obs.recorder()

	if !ident.Role.Valid() {
		rec.RoleRecordMerge("none", mergeNoRole)
	} else {
		record, err := a.directory.GetRoleRecord(ctx, ident.Role, ident.ID)
		switch {
		case err != nil:
			rec.RoleRecordMerge(string(ident.Role), mergeLookupError)
			log.WarnContext(ctx, "role record lookup failed; continuing without role fields",
				"identity_id", ident.ID,
				"role", string(ident.Role),
				"kind", domainauth.ErrTransientLookup.Error(),
				"error", err,
			)
		case record == nil:
			rec.RoleRecordMerge(string(ident.Role), mergeMissing)
			log.InfoContext(ctx, "role record missing; continuing without role fields",
				"identity_id", ident.ID,
				"role", string(ident.Role),
				"kind", domainauth.ErrRoleRecordMissing.Error(),
			)
		default:
			rec.RoleRecordMerge(string(ident.Role), mergeMerged)
			sess.User.Record = record
		}
	}

	if a.signer != nil {
		accessToken, err := a.signer.Sign(ctx, ident.ID, ident.Email)
		if err != nil {
			log.WarnContext(ctx, "access token signing failed", "identity_id", ident.ID, "error", err)
		} else {
			sess.AccessToken = accessToken
		}
	}
	return sess
}

// Resolve returns the session for token, serving it from the cache when
// present. On a miss the token is looked up, the session augmented, and the
// result cached for min(CacheTTL, time until token expiry).
func (a *SessionAugmenter) Resolve(ctx context.Context, token string) (*domainauth.Session, error) {
	if token == "" {
		return nil, domainauth.ErrAuthenticationAbsent
	}
	log := a.obs.logger("session")
	now := a.now()

	if a.cache != nil {
		cached, ok, err := a.cache.Get(ctx, token)
		switch {
		case err != nil:
			log.WarnContext(ctx, "session cache read failed", "error", err)
		case ok && cached != nil && now.Before(cached.ExpiresAt):
			a.obs.recorder().SessionResolved(metrics.SourceCache)
			return cached, nil
		}
	}

	ident, expiresAt, err := a.tokens.LookupToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	sess := a.Augment(ctx, ident, token, expiresAt)
	a.obs.recorder().SessionResolved(metrics.SourceStore)

	if a.cache != nil {
		ttl := min(a.ttl, expiresAt.Sub(now))
		if ttl > 0 {
			if setErr := a.cache.Set(ctx, sess, ttl); setErr != nil {
				log.WarnContext(ctx, "session cache write failed", "error", setErr)
			}
		}
	}
	return &sess, nil
}

// Invalidate drops the cached session for token.
func (a *SessionAugmenter) Invalidate(ctx context.Context, token string) error {
	if a.cache == nil || token == "" {
		return nil
	}
	if err := a.cache.Delete(ctx, token); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}
