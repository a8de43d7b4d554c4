// Package app wires configuration, infrastructure, and HTTP routing into a
// runnable daybook process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/daybook/internal/admin"
	"github.com/wisbric/daybook/internal/audit"
	"github.com/wisbric/daybook/internal/auth"
	"github.com/wisbric/daybook/internal/config"
	"github.com/wisbric/daybook/internal/httpserver"
	"github.com/wisbric/daybook/internal/platform"
	"github.com/wisbric/daybook/internal/seed"
	"github.com/wisbric/daybook/internal/telemetry"
	"github.com/wisbric/daybook/internal/version"
	"github.com/wisbric/daybook/pkg/entry"
	"github.com/wisbric/daybook/pkg/tenant"
	"github.com/wisbric/daybook/pkg/user"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api or seed).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting daybook",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	// Tracing
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "daybook", version.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	// Database
	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	// Redis
	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	// Run migrations.
	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	// Metrics
	metricsReg := telemetry.NewMetricsRegistry()

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "seed":
		return seed.Run(ctx, db, logger, seed.Options{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			DemoTenant:    cfg.DevMode,
		})
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	// OIDC authenticator (optional, nil if not configured).
	var oidcAuth *auth.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		var err error
		oidcAuth, err = auth.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		logger.Info("OIDC authentication disabled (OIDC_ISSUER not set)")
	}

	// Session tokens for local auth.
	secret := cfg.SessionSecret
	if secret == "" {
		if !cfg.DevMode {
			return fmt.Errorf("DAYBOOK_SESSION_SECRET is required outside dev mode")
		}
		secret = auth.GenerateDevSecret()
		logger.Warn("using a generated session secret; sessions will not survive restarts")
	}
	sessions, err := auth.NewSessionManager(secret, cfg.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("initializing session manager: %w", err)
	}

	// Platform-scoped user directory for login and user-record tenant lookup.
	directory := user.NewSystemStore(db, logger)

	// Audit log writer (async, buffered).
	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	coordinator := &tenant.Coordinator{
		Pool:         db,
		Resolver:     tenant.DefaultChain(),
		Logger:       logger,
		Exempt:       tenant.NewExemptList(cfg.ExtraExemptPaths...),
		BypassPrefix: "/api/v1/platform",
		Metrics: &tenant.Metrics{
			ResolutionsTotal:   telemetry.TenantResolutionsTotal,
			RejectionsTotal:    telemetry.TenantRejectionsTotal,
			BypassTotal:        telemetry.TenantBypassTotal,
			ConnsPoisonedTotal: telemetry.TenantConnsPoisonedTotal,
		},
	}

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, oidcAuth, sessions, directory, coordinator)

	// Mount domain handlers.
	entryHandler := entry.NewHandler(logger, auditWriter)
	srv.APIRouter.Mount("/entries", entryHandler.Routes())

	userHandler := user.NewHandler(logger)
	srv.APIRouter.Mount("/users", userHandler.Routes())

	auditHandler := audit.NewHandler(logger)
	srv.APIRouter.Mount("/audit-log", auditHandler.Routes())

	adminHandler := admin.NewHandler(logger, auditWriter)
	srv.PlatformRouter.Mount("/", adminHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
