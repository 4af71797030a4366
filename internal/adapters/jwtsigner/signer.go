// Package jwtsigner mints the HS256 credential the portal hands to the downstream data service.
package jwtsigner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Audience and role claims expected by the data service for signed-in users.
	Audience      = "authenticated"
	RoleClaim     = "authenticated"
	DefaultExpiry = 24 * time.Hour
)

// ErrNoSecret is returned by New when no signing secret is configured.
var ErrNoSecret = errors.New("jwtsigner: signing secret not configured")

// Claims is the payload of a downstream access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues downstream access tokens.
type Signer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// Option customises a Signer.
type Option func(*Signer)

// WithExpiry overrides the token lifetime.
func WithExpiry(d time.Duration) Option {
	return func(s *Signer) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Signer using secret. An empty secret is rejected; callers that
// run without a secret should not construct a Signer at all.
func New(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	s := &Signer{
		secret: []byte(secret),
		expiry: DefaultExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign mints a token for identityID.
func (s *Signer) Sign(_ context.Context, identityID, email string) (string, error) {
	if identityID == "" {
		return "", errors.New("jwtsigner: identity id is required")
	}
	now := s.now()
	claims := Claims{
		Email: email,
		Role:  RoleClaim,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
