package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fakehospital/portal/config"
	"github.com/fakehospital/portal/internal/adapters/devauth"
	"github.com/fakehospital/portal/internal/adapters/jwtsigner"
	"github.com/fakehospital/portal/internal/adapters/oidc"
	"github.com/fakehospital/portal/internal/ports"
)

// ErrOAuthIncomplete is returned when SSO mode is oauth but the client is not
// fully configured.
var ErrOAuthIncomplete = errors.New("oauth sso requires AUTH_OAUTH_CLIENT_ID, AUTH_OAUTH_CLIENT_SECRET, and AUTH_OAUTH_DISCOVERY_URL")

// BuildSSOProvider returns the provider selected by cfg.SSOMode, or nil when
// single sign-on is off.
//
//nolint:ireturn // the provider implementation is chosen at runtime.
func BuildSSOProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.AuthProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.SSOMode {
	case config.SSOModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Email:     cfg.DevAuth.Email,
			FirstName: cfg.DevAuth.FirstName,
			LastName:  cfg.DevAuth.LastName,
		})
		if err != nil {
			return nil, fmt.Errorf("dev sso provider: %w", err)
		}
		logger.Warn("mock single sign-on enabled", "email", cfg.DevAuth.Email)
		return prov, nil

	case config.SSOModeOAuth:
		if !cfg.OAuth.Complete() {
			logger.Error("oauth sso selected but required config missing",
				"discovery_url_empty", cfg.OAuth.DiscoveryURL == "",
				"client_id_empty", cfg.OAuth.ClientID == "",
				"client_secret_empty", cfg.OAuth.ClientSecret == "",
			)
			return nil, ErrOAuthIncomplete
		}
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scope:        cfg.OAuth.Scope,
			DiscoveryURL: cfg.OAuth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return prov, nil

	case config.SSOModeOff:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported sso mode %q", cfg.SSOMode)
	}
}

// BuildTokenSigner returns the downstream credential signer, or nil when no
// signing secret is configured.
//
//nolint:ireturn // nil interface signals "no downstream credential".
func BuildTokenSigner(cfg config.SessionConfig) (ports.TokenSigner, error) {
	if !cfg.DownstreamCredentialEnabled() {
		return nil, nil
	}
	signer, err := jwtsigner.New(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("token signer: %w", err)
	}
	return signer, nil
}
