// Package oidc signs pre-provisioned staff in through an OpenID Connect
// identity provider using the authorization code flow.
package oidc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/ports"
	"golang.org/x/oauth2"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	// fallbackLifetime applies when the token response carries no expiry.
	fallbackLifetime = time.Hour
	wellKnownSuffix  = "/.well-known/openid-configuration"
)

var (
	// ErrNoEmail means neither the ID token nor UserInfo carried an email,
	// so the IdP identity cannot be matched to a portal account.
	ErrNoEmail = errors.New("identity provider returned no email")
	// ErrEmailNotVerified means the IdP explicitly marked the email unverified.
	ErrEmailNotVerified = errors.New("identity provider reports email as unverified")
	ErrNonceMismatch    = errors.New("id_token nonce mismatch")
)

// ProviderConfig holds the client registration and discovery location.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scope is space separated; "openid" is added when missing.
	Scope string
	// DiscoveryURL is the issuer, with or without the well-known suffix.
	DiscoveryURL string
	HTTPClient   *http.Client
}

func (c ProviderConfig) validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if c.RedirectURL == "" {
		missing = append(missing, "redirect URL")
	}
	if c.DiscoveryURL == "" {
		missing = append(missing, "discovery URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("oidc: %s required", strings.Join(missing, ", "))
	}
	return nil
}

// Provider implements ports.AuthProvider.
type Provider struct {
	oauth    *oauth2.Config
	op       *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
	client   *http.Client
	now      func() time.Time
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider fetches the discovery document once and configures the code flow
// from it.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	ctx := gooidc.ClientContext(context.Background(), client)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscovery(cfg.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopesWithOpenID(cfg.Scope),
			Endpoint:     op.Endpoint(),
		},
		op:       op,
		verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		client:   client,
		now:      time.Now,
	}, nil
}

func issuerFromDiscovery(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, wellKnownSuffix)
}

func scopesWithOpenID(scope string) []string {
	scopes := strings.Fields(scope)
	if !slices.Contains(scopes, gooidc.ScopeOpenID) {
		scopes = append([]string{gooidc.ScopeOpenID}, scopes...)
	}
	return scopes
}

// Begin returns the IdP authorization URL with a fresh state and nonce. The
// redirect URI is always the registered one.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state, nonce := rand.Text(), rand.Text()
	authURL := p.oauth.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems the code, verifies the ID token and its nonce, and returns
// the identity the IdP asserted. Missing profile claims are filled from UserInfo.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
	switch {
	case in.Code == "":
		return domainauth.ProviderIdentity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.ProviderIdentity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.ProviderIdentity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.client)
	tok, err := p.oauth.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.ProviderIdentity{}, fmt.Errorf("exchange code: %w", err)
	}

	c, err := p.verifyIDToken(ctx, tok, in.Nonce)
	if err != nil {
		return domainauth.ProviderIdentity{}, err
	}
	if c.email() == "" || c.Sub == "" {
		ui, uiErr := p.userInfo(ctx, tok)
		if uiErr != nil {
			return domainauth.ProviderIdentity{}, uiErr
		}
		c.fillFrom(ui)
	}

	if c.email() == "" {
		return domainauth.ProviderIdentity{}, ErrNoEmail
	}
	if c.EmailVerified != nil && !*c.EmailVerified {
		return domainauth.ProviderIdentity{}, ErrEmailNotVerified
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = p.now().Add(fallbackLifetime)
	}
	first, last := c.names()
	return domainauth.ProviderIdentity{
		Subject:   c.Sub,
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(c.email()),
		ExpiresAt: expiresAt,
	}, nil
}

func (p *Provider) verifyIDToken(ctx context.Context, tok *oauth2.Token, nonce string) (claims, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return claims{}, errors.New("token response has no id_token")
	}
	idTok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return claims{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != nonce {
		return claims{}, ErrNonceMismatch
	}
	var c claims
	if err := idTok.Claims(&c); err != nil {
		return claims{}, fmt.Errorf("decode id_token claims: %w", err)
	}
	return c, nil
}

func (p *Provider) userInfo(ctx context.Context, tok *oauth2.Token) (claims, error) {
	ui, err := p.op.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return claims{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	var c claims
	if err := ui.Claims(&c); err != nil {
		return claims{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return c, nil
}

// claims is the profile subset read from both the ID token and UserInfo.
// Some enterprise IdPs send "mail" instead of "email".
type claims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Mail          string `json:"mail"`
	EmailVerified *bool  `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
}

func (c claims) email() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Mail
}

// names prefers the structured claims and otherwise splits "name" at its
// first space.
func (c claims) names() (string, string) {
	if c.GivenName != "" || c.FamilyName != "" {
		return c.GivenName, c.FamilyName
	}
	first, last, _ := strings.Cut(strings.TrimSpace(c.Name), " ")
	return first, strings.TrimSpace(last)
}

// fillFrom copies fields c lacks from other.
func (c *claims) fillFrom(other claims) {
	if c.Sub == "" {
		c.Sub = other.Sub
	}
	if c.email() == "" {
		c.Email = other.email()
	}
	if c.EmailVerified == nil {
		c.EmailVerified = other.EmailVerified
	}
	if c.GivenName == "" && c.FamilyName == "" && c.Name == "" {
		c.GivenName, c.FamilyName, c.Name = other.GivenName, other.FamilyName, other.Name
	}
}
