package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eugenenazirov/minimee/internal/api"
	"github.com/eugenenazirov/minimee/internal/config"
	"github.com/eugenenazirov/minimee/internal/extstore"
	"github.com/eugenenazirov/minimee/internal/hooks"
	"github.com/eugenenazirov/minimee/internal/hostconfig"
	"github.com/eugenenazirov/minimee/internal/probe"
	"github.com/eugenenazirov/minimee/internal/settings"
	"github.com/eugenenazirov/minimee/internal/storage"
)

// Version is reported in hook registrations.
var Version = "dev"

// App encapsulates the application dependencies and HTTP server.
type App struct {
	host     *hostconfig.Config
	hooks    *hooks.Registry
	sessions *storage.SessionCache[settings.CacheEntry]
	probe    *probe.Capabilities
	pool     *pgxpool.Pool
	resolver *Resolver
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	host := hostconfig.FromMap(nil)
	if cfg.HostConfigFile != "" {
		loaded, err := hostconfig.Load(cfg.HostConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load host config: %w", err)
		}
		host = loaded
	}

	registry := hooks.NewRegistry()
	if cfg.EnvHook {
		registry.Register(settings.SettingsHook, hooks.Binding{
			Class:  "Env",
			Method: "settings",
			Fn:     hooks.EnvSettings(cfg.EnvHookPrefix),
		})
	}

	sessions := storage.NewSessionCache[settings.CacheEntry](cfg.SessionTTL)
	caps := probe.New(cfg.Extensions, cfg.AllowURLFetch)

	deps := settings.Dependencies{
		Hooks:  registry,
		Config: host,
		Cache:  sessions,
		Probe:  caps,
		Logger: logger,
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := extstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			sessions.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		pool = p
		deps.Persistence = extstore.New(pool, cfg.ExtensionClass)
	}

	resolver := NewResolver(
		settings.NewResolver(deps, settings.WithRootPath(cfg.RootPath), settings.WithVersion(Version)),
		registry,
		logger,
	)

	handler := api.NewHandler(resolver, api.WithSessions(sessions))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		host:     host,
		hooks:    registry,
		sessions: sessions,
		probe:    caps,
		pool:     pool,
		resolver: resolver,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, apiRouter),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Resolver returns the resolver shared by the HTTP handlers.
func (a *App) Resolver() *Resolver {
	return a.resolver
}

// Close releases the session cache and database pool.
func (a *App) Close() {
	a.sessions.Close()
	if a.pool != nil {
		a.pool.Close()
	}
}
