package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fakehospital/portal/config"
	"github.com/fakehospital/portal/internal/adapters/jwtsigner"
	mockauth "github.com/fakehospital/portal/internal/mocks/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unreachableRedis returns a client whose commands fail fast.
func unreachableRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBuildSSOProvider(t *testing.T) {
	logger := quietLogger()

	prov, err := BuildSSOProvider(config.AuthConfig{SSOMode: config.SSOModeOff}, logger)
	require.NoError(t, err)
	assert.Nil(t, prov)

	prov, err = BuildSSOProvider(config.AuthConfig{
		SSOMode: config.SSOModeMock,
		DevAuth: config.DevAuthConfig{Email: "admin@fakehospital.com", FirstName: "Dev", LastName: "Admin"},
	}, logger)
	require.NoError(t, err)
	assert.NotNil(t, prov)

	_, err = BuildSSOProvider(config.AuthConfig{SSOMode: config.SSOModeMock}, logger)
	require.Error(t, err, "mock sso needs an email")

	_, err = BuildSSOProvider(config.AuthConfig{
		SSOMode: config.SSOModeOAuth,
		OAuth:   config.OAuthConfig{ClientID: "portal"},
	}, logger)
	require.ErrorIs(t, err, ErrOAuthIncomplete)

	_, err = BuildSSOProvider(config.AuthConfig{SSOMode: "saml"}, logger)
	require.Error(t, err)
}

func TestBuildSSOProvider_OAuthDiscovers(t *testing.T) {
	var issuer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"issuer":"`+issuer+`","authorization_endpoint":"`+issuer+`/authorize",`+
			`"token_endpoint":"`+issuer+`/token","jwks_uri":"`+issuer+`/jwks"}`)
	}))
	t.Cleanup(srv.Close)
	issuer = srv.URL

	prov, err := BuildSSOProvider(config.AuthConfig{
		SSOMode: config.SSOModeOAuth,
		OAuth: config.OAuthConfig{
			ClientID:     "portal",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/auth/callback",
			Scope:        "openid email",
			DiscoveryURL: srv.URL,
		},
	}, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, prov)
}

func TestBuildTokenSigner(t *testing.T) {
	signer, err := BuildTokenSigner(config.SessionConfig{})
	require.NoError(t, err)
	assert.Nil(t, signer, "no secret means no downstream credential")

	signer, err = BuildTokenSigner(config.SessionConfig{SigningSecret: "downstream"})
	require.NoError(t, err)
	require.NotNil(t, signer)

	tok, err := signer.Sign(context.Background(), "id-1", "pat@example.com")
	require.NoError(t, err)
	_, ok := signer.(*jwtsigner.Signer)
	require.True(t, ok)
	claims := &jwtsigner.Claims{}
	_, err = jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) { return []byte("downstream"), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(jwtsigner.Audience))
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.Subject)
}

func TestNewServices_RequiresInfrastructure(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)

	_, err = NewServices(&ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)
}

func newTestContainer(t *testing.T, cfg *config.AppConfig) (ServiceContainer, *HTTPServerConfig, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	client := unreachableRedis(t)

	container, err := NewServices(&ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: client,
		Logger:      quietLogger(),
		SSOProvider: mockauth.NewMockAuthProvider(),
		Registry:    prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return container, &HTTPServerConfig{
		Config:      cfg,
		Services:    container,
		DB:          db,
		RedisClient: client,
		Logger:      quietLogger(),
	}, mock
}

func TestNewServices_WiresServices(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Observability.Metrics.Enabled = true
	container, _, _ := newTestContainer(t, cfg)

	assert.NotNil(t, container.Auth)
	assert.NotNil(t, container.Sessions)
	assert.NotNil(t, container.Dashboards)
	assert.NotNil(t, container.Staff)
	assert.True(t, container.Auth.SSOEnabled())
	assert.NotNil(t, container.Observability.Registry)
}

func TestBuildHTTPHandler_ServesPortal(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Observability.Metrics.Enabled = true
	cfg.Sanitize()
	_, httpCfg, mock := newTestContainer(t, cfg)

	handler, limiter, err := BuildHTTPHandler(httpCfg)
	require.NoError(t, err)
	require.NotNil(t, limiter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your care, in one place")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/portal.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildHTTPHandler_MetricsDisabled(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Sanitize()
	_, httpCfg, _ := newTestContainer(t, cfg)

	handler, _, err := BuildHTTPHandler(httpCfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectInfrastructure_FailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ConnectInfrastructure(ctx, DatabaseConfig{
		DBConfig:    config.DBConfig{Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable"},
		RedisConfig: config.RedisConfig{URI: "127.0.0.1:1"},
		Logger:      quietLogger(),
	})
	require.Error(t, err)
}

func TestShutdownHTTPServer_NilServer(t *testing.T) {
	assert.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}
