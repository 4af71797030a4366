package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	portal "github.com/fakehospital/portal"
	"github.com/fakehospital/portal/config"
	httpx "github.com/fakehospital/portal/internal/http"
	"github.com/fakehospital/portal/internal/observability/metrics"
	"github.com/redis/go-redis/v9"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildHTTPHandler assembles the router, its renderer, static assets, health
// checks, and the sign-in rate limiter. The limiter is returned so the caller
// can run its cleanup loop.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, *httpx.RateLimiter, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	templates, err := fs.Sub(portal.TemplateFS, httpx.TemplatePathFromRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("template fs: %w", err)
	}
	renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{
		TemplateFS: templates,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(portal.StaticFS, "frontend/static")
	if err != nil {
		return nil, nil, fmt.Errorf("static fs: %w", err)
	}

	rec := metrics.OrNop(cfg.Services.Observability.Metrics)
	limiter := httpx.NewRateLimiter(httpx.RateLimitConfig{
		PerMinute:  appCfg.HTTP.RateLimitPerMinute,
		Burst:      appCfg.HTTP.RateLimitBurst,
		TrustProxy: appCfg.HTTP.TrustProxy,
		Logger:     logger,
		Metrics:    rec,
	})

	var metricsHandler http.Handler
	if appCfg.Observability.Metrics.IsEnabled() && cfg.Services.Observability.Registry != nil {
		metricsHandler = metrics.Handler(cfg.Services.Observability.Registry)
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Auth:           cfg.Services.Auth,
		Sessions:       cfg.Services.Sessions,
		Dashboards:     cfg.Services.Dashboards,
		Staff:          cfg.Services.Staff,
		Renderer:       renderer,
		StaticFS:       static,
		RateLimiter:    limiter,
		Metrics:        rec,
		MetricsHandler: metricsHandler,
		HealthChecks:   healthChecks(cfg.DB, cfg.RedisClient),
		CookieDomain:   appCfg.HTTP.CookieDomain,
		Logger:         logger,
	})
	return handler, limiter, nil
}

func healthChecks(db *sql.DB, client redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck, 2)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}

func startServer(logger *slog.Logger, handler http.Handler, addr string, errCh chan<- error) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}

// RunHTTPWithShutdown serves until SIGINT/SIGTERM or a server error, then
// drains in-flight requests and stops the rate limiter's cleanup loop.
func RunHTTPWithShutdown(ctx context.Context, cfg *HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler, limiter, err := BuildHTTPHandler(cfg)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiterDone := make(chan struct{})
	go func() {
		defer close(limiterDone)
		limiter.Run(runCtx, cfg.Config.HTTP.RateLimitCleanup)
	}()

	errCh := make(chan error, 1)
	server := startServer(logger, handler, cfg.Config.HTTP.Addr, errCh)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		logger.Info("shutting down portal...")
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down portal")
	case runErr = <-errCh:
		logger.Error("service error", "error", runErr)
	}

	cancel()
	// runCtx is already cancelled; shutdown gets a fresh deadline.
	stopErr := ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  server,
		Timeout: cfg.Config.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
	<-limiterDone
	return errors.Join(runErr, stopErr)
}
