package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/daybook/internal/auth"
	"github.com/wisbric/daybook/internal/config"
	"github.com/wisbric/daybook/internal/version"
	"github.com/wisbric/daybook/pkg/tenant"
)

// Directory combines the platform-scoped user lookups authentication needs:
// credentials by email for login, and the user's home tenant for resolution.
type Directory interface {
	auth.CredentialStore
	auth.TenantLookup
}

// Server holds the HTTP server dependencies.
type Server struct {
	Router         *chi.Mux
	APIRouter      chi.Router // authenticated, tenant-scoped /api/v1 sub-router
	PlatformRouter chi.Router // platform-admin /api/v1/platform sub-router (bypass scope)
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	Redis          *redis.Client
	Metrics        *prometheus.Registry
	startedAt      time.Time
}

// NewServer creates an HTTP server with middleware, health/metrics endpoints,
// local auth routes, and the tenant lifecycle pipeline on /api/v1.
// oidcAuth may be nil when OIDC is not configured (bearer auth then falls
// back to session tokens). Domain handlers should be mounted on APIRouter
// and PlatformRouter after calling NewServer.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	rdb *redis.Client,
	metricsReg *prometheus.Registry,
	oidcAuth *auth.OIDCAuthenticator,
	sessions *auth.SessionManager,
	directory Directory,
	coordinator *tenant.Coordinator,
) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	// Global middleware
	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (unauthenticated)
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)

	// Prometheus metrics (unauthenticated)
	s.Router.Handle(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	// Local auth: login, logout, discovery. These paths are tenant-exempt;
	// the login lookup runs with platform scope because the caller has no
	// tenant yet.
	limiter := auth.NewRateLimiter(rdb, 10, 15*time.Minute)
	login := auth.NewLoginHandler(sessions, directory, limiter, logger, oidcAuth != nil)
	s.Router.Route("/auth", func(r chi.Router) {
		r.Post("/login", login.HandleLogin)
		r.Post("/logout", login.HandleLogout)
		r.Get("/config", login.HandleConfig)
	})

	// Authenticated, tenant-scoped API routes.
	s.Router.Route("/api/v1", func(r chi.Router) {
		// 1. Authenticate: OIDC → session → dev header fallback.
		r.Use(auth.Middleware(oidcAuth, sessions, directory, cfg.DevMode, logger))

		// 2. Require valid authentication on all /api/v1 routes.
		r.Use(auth.RequireAuth)

		// 3. Resolve, validate, and bind the tenant; or open a bypass region
		//    for platform admins under /api/v1/platform.
		r.Use(coordinator.Middleware())

		// Debug endpoint.
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			t := tenant.FromContext(r.Context())
			id := auth.FromContext(r.Context())
			Respond(w, http.StatusOK, map[string]string{
				"tenant":  t.Slug,
				"subject": id.Subject,
				"role":    id.Role,
				"method":  id.Method,
			})
		})

		r.Get("/status", s.HandleStatus)

		// Platform administration, reached only through the coordinator's
		// bypass path. The role check here is deliberately redundant with
		// the coordinator's own.
		r.Route("/platform", func(pr chi.Router) {
			pr.Use(auth.RequirePlatformAdmin)
			s.PlatformRouter = pr
		})

		// Store reference so domain handlers can be mounted externally.
		s.APIRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: database ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
		return
	}

	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("readiness check: redis ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
		return
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the JSON shape returned by HandleStatus.
type statusResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	CommitSHA       string  `json:"commit_sha"`
	Uptime          string  `json:"uptime"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	Database        string  `json:"database"`
	DatabaseLatency float64 `json:"database_latency_ms"`
	Redis           string  `json:"redis"`
	RedisLatency    float64 `json:"redis_latency_ms"`
}

// HandleStatus returns system health information including DB/Redis
// connectivity and uptime.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(s.startedAt)

	resp := statusResponse{
		Version:       version.Version,
		CommitSHA:     version.Commit,
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	// Ping database.
	dbStart := time.Now()
	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("status check: database ping failed", "error", err)
		resp.Database = "error"
	} else {
		resp.Database = "ok"
	}
	resp.DatabaseLatency = math.Round(float64(time.Since(dbStart).Microseconds())/10) / 100 // ms with 2 decimal places

	// Ping Redis.
	redisStart := time.Now()
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("status check: redis ping failed", "error", err)
		resp.Redis = "error"
	} else {
		resp.Redis = "ok"
	}
	resp.RedisLatency = math.Round(float64(time.Since(redisStart).Microseconds())/10) / 100

	// Overall status.
	if resp.Database == "ok" && resp.Redis == "ok" {
		resp.Status = "ok"
	} else {
		resp.Status = "degraded"
	}

	Respond(w, http.StatusOK, resp)
}
