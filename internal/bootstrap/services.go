package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fakehospital/portal/config"
	"github.com/fakehospital/portal/internal/adapters/passhash"
	redisadapter "github.com/fakehospital/portal/internal/adapters/redis"
	"github.com/fakehospital/portal/internal/data"
	"github.com/fakehospital/portal/internal/observability/metrics"
	"github.com/fakehospital/portal/internal/ports"
	"github.com/fakehospital/portal/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth       *service.AuthService
	Sessions   *service.SessionAugmenter
	Dashboards *service.DashboardService
	Staff      *service.StaffService

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Registry *prometheus.Registry
	Metrics  metrics.Recorder
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// SSOProvider overrides BuildSSOProvider; tests use it to avoid discovery.
	SSOProvider ports.AuthProvider
	// Registry defaults to a fresh registry with Go and process collectors.
	Registry *prometheus.Registry
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Identities *data.IdentityRepo
	Directory  *data.RoleDirectoryRepo
	Tokens     *redisadapter.SessionStore
	Cache      *redisadapter.SessionCache
}

func newServiceRepositories(deps *ServiceDeps) serviceRepositories {
	prefix := deps.Config.Redis.KeyPrefix
	return serviceRepositories{
		Identities: data.NewIdentityRepo(deps.DB),
		Directory:  data.NewRoleDirectoryRepo(deps.DB),
		Tokens:     redisadapter.NewSessionStoreWithPrefix(deps.RedisClient, prefix+"auth_token:"),
		Cache:      redisadapter.NewSessionCacheWithPrefix(deps.RedisClient, prefix+"session:"),
	}
}

// NewServices wires repositories, adapters, and services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database is required")
	}
	if deps.RedisClient == nil {
		return ServiceContainer{}, errors.New("redis client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Observability.Metrics.IsEnabled() {
		recorder = metrics.NewCollector(registry)
	}
	obs := service.Observability{Logger: logger, Metrics: recorder}

	provider := deps.SSOProvider
	if provider == nil {
		var err error
		if provider, err = BuildSSOProvider(cfg.Auth, logger); err != nil {
			return ServiceContainer{}, err
		}
	}
	signer, err := BuildTokenSigner(cfg.Session)
	if err != nil {
		return ServiceContainer{}, err
	}
	if signer == nil {
		logger.Info("downstream credential disabled: no signing secret configured")
	}

	repos := newServiceRepositories(deps)
	hasher := passhash.New(cfg.Auth.BcryptCost)

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Stores:   service.AuthStores{Identities: repos.Identities, Tokens: repos.Tokens},
		Security: service.AuthSecurity{Hasher: hasher, Provider: provider},
		Config:   service.AuthConfig{TokenLifetime: cfg.Session.TokenLifetime, Obs: obs},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("auth service: %w", err)
	}

	sessions, err := service.NewSessionAugmenter(service.SessionAugmenterOptions{
		Sources: service.SessionSources{Directory: repos.Directory, Tokens: auth, Cache: repos.Cache},
		Config:  service.SessionConfig{CacheTTL: cfg.Session.CacheTTL, Signer: signer},
		Obs:     obs,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("session augmenter: %w", err)
	}

	dashboards, err := service.NewDashboardService(repos.Directory)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("dashboard service: %w", err)
	}

	staff, err := service.NewStaffService(service.StaffServiceOptions{
		Identities: repos.Identities,
		Hasher:     hasher,
		Config:     service.StaffConfig{Obs: obs},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("staff service: %w", err)
	}

	return ServiceContainer{
		Auth:       auth,
		Sessions:   sessions,
		Dashboards: dashboards,
		Staff:      staff,
		Observability: ObservabilityContainer{
			Registry: registry,
			Metrics:  recorder,
		},
	}, nil
}
