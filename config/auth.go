package config

import (
	"fmt"
	"strings"
)

// SSOMode selects the single sign-on provider offered next to password sign-in.
type SSOMode string

const (
	// SSOModeOff disables single sign-on; only password sign-in is offered.
	SSOModeOff SSOMode = "off"
	// SSOModeOAuth uses an OpenID Connect identity provider.
	SSOModeOAuth SSOMode = "oauth"
	// SSOModeMock signs in a fixed configured identity (development only).
	SSOModeMock SSOMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for SSOMode.
func (m *SSOMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "", "off", "none", "disabled":
		*m = SSOModeOff
		return nil
	case "oauth", "mock":
		*m = SSOMode(v)
		return nil
	default:
		return fmt.Errorf("invalid SSOMode: %q (valid options: off, oauth, mock)", v)
	}
}

// OAuthConfig contains OpenID Connect client configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// Complete reports whether the client has everything discovery and exchange need.
func (o OAuthConfig) Complete() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.DiscoveryURL != ""
}

// DevAuthConfig is the identity the mock provider signs in. The email must
// belong to an identity already provisioned in the portal.
type DevAuthConfig struct {
	Email     string `env:"EMAIL"      envDefault:"admin@fakehospital.com"`
	FirstName string `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string `env:"LAST_NAME"  envDefault:"Admin"`
}

// AuthConfig groups sign-in configuration.
type AuthConfig struct {
	SSOMode SSOMode       `env:"SSO_MODE" envDefault:"off"`
	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_"`

	// BcryptCost is the work factor for stored password hashes.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

const (
	minBcryptCost = 10
	maxBcryptCost = 14
)

// Sanitize clamps the bcrypt cost and refuses mock SSO outside development.
func (a *AuthConfig) Sanitize(isDev bool) {
	if a.SSOMode == "" {
		a.SSOMode = SSOModeOff
	}
	if a.SSOMode == SSOModeMock && !isDev {
		a.SSOMode = SSOModeOff
	}
	a.DevAuth.Email = strings.ToLower(strings.TrimSpace(a.DevAuth.Email))
	if a.BcryptCost < minBcryptCost {
		a.BcryptCost = minBcryptCost
	}
	if a.BcryptCost > maxBcryptCost {
		a.BcryptCost = maxBcryptCost
	}
}
