// Package devauth is a local stand-in for the OIDC provider. It signs in one
// configured identity without leaving the portal, so SSO flows can be
// exercised in development.
package devauth

import (
	"context"
	"crypto/rand"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/ports"
)

const (
	defaultSessionDuration = 8 * time.Hour
	defaultCallbackPath    = "/auth/callback"
	// codeTTL bounds how long an issued code stays redeemable.
	codeTTL = 5 * time.Minute
)

// ErrInvalidCode is returned for codes that were never issued, were already
// redeemed, have expired, or were issued for a different nonce.
var ErrInvalidCode = errors.New("dev auth: invalid or expired code")

// Config describes the identity the provider signs in. Email is required and
// must belong to an identity already provisioned in the portal.
type Config struct {
	Subject         string
	Email           string
	FirstName       string
	LastName        string
	SessionDuration time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type pendingCode struct {
	nonce   string
	expires time.Time
}

// Provider implements ports.AuthProvider. Begin issues a one-time code and
// redirects straight to the callback; Exchange redeems it.
type Provider struct {
	subject   string
	email     string
	firstName string
	lastName  string
	lifetime  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]pendingCode
}

var _ ports.AuthProvider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	p := &Provider{
		subject:   cfg.Subject,
		email:     email,
		firstName: cfg.FirstName,
		lastName:  cfg.LastName,
		lifetime:  cfg.SessionDuration,
		now:       cfg.Now,
		pending:   make(map[string]pendingCode),
	}
	if p.subject == "" {
		p.subject = "dev:" + email
	}
	if p.lifetime <= 0 {
		p.lifetime = defaultSessionDuration
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Begin returns the callback URL carrying a fresh code and state.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	target := in.RedirectURL
	if target == "" {
		target = defaultCallbackPath
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", "", "", err
	}

	state, nonce, code := rand.Text(), rand.Text(), rand.Text()
	now := p.now()

	p.mu.Lock()
	for c, pc := range p.pending {
		if now.After(pc.expires) {
			delete(p.pending, c)
		}
	}
	p.pending[code] = pendingCode{nonce: nonce, expires: now.Add(codeTTL)}
	p.mu.Unlock()

	q := u.Query()
	q.Set("code", code)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), state, nonce, nil
}

// Exchange redeems a code issued by Begin for the configured identity. Codes
// are single use and bound to the nonce they were issued with.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
	now := p.now()

	p.mu.Lock()
	pc, ok := p.pending[in.Code]
	delete(p.pending, in.Code)
	p.mu.Unlock()

	if !ok || now.After(pc.expires) || pc.nonce != in.Nonce {
		return domainauth.ProviderIdentity{}, ErrInvalidCode
	}
	return domainauth.ProviderIdentity{
		Subject:   p.subject,
		Email:     p.email,
		FirstName: p.firstName,
		LastName:  p.lastName,
		ExpiresAt: now.Add(p.lifetime),
	}, nil
}
