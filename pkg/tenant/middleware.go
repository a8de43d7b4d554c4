package tenant

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/daybook/internal/auth"
)

// Coordinator drives the per-request tenant lifecycle: exempt check,
// resolution, context set, validation, dispatch, and the guaranteed clear
// before the connection returns to the pool.
type Coordinator struct {
	Pool     *pgxpool.Pool
	Resolver Resolver
	Logger   *slog.Logger
	Exempt   *ExemptList

	// BypassPrefix is the path prefix of the platform administration API.
	// Platform admins hitting it get a bypass region instead of the normal
	// set/validate sequence.
	BypassPrefix string

	Metrics *Metrics
}

// Middleware returns the HTTP middleware enforcing the tenant lifecycle.
//
// Exactly one of dispatch or rejection happens per request. On every exit
// path (normal return, handler panic, client disconnect) the deferred guard
// release wipes the connection's security state before the pool can hand it
// to anyone else.
func (c *Coordinator) Middleware() func(http.Handler) http.Handler {
	validator := &Validator{Logger: c.Logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.Exempt.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if c.BypassPrefix != "" && strings.HasPrefix(r.URL.Path, c.BypassPrefix) {
				c.serveBypass(w, r, next)
				return
			}

			ri := c.Resolver.Resolve(r)
			c.Metrics.resolution(ri.Source)
			if !ri.Found() {
				// Nothing was set, so there is nothing to clear. Generic
				// response: no hints about why resolution failed.
				c.Metrics.rejection(RejectMissing)
				c.Logger.Warn("no tenant resolved", "path", r.URL.Path)
				respondError(w, http.StatusForbidden, "forbidden", "tenant required")
				return
			}

			conn, err := c.Pool.Acquire(r.Context())
			if err != nil {
				c.Logger.Error("acquiring database connection", "error", err)
				c.Metrics.rejection(RejectInternal)
				respondError(w, http.StatusInternalServerError, "internal", "internal server error")
				return
			}

			guard := NewGuard(conn, c.Logger)
			defer func() {
				guard.Release(r.Context())
				if guard.Poisoned() {
					c.Metrics.poisoned()
				}
			}()

			if err := guard.Set(r.Context(), ri.TenantID); err != nil {
				c.Logger.Error("setting tenant context", "tenant_id", ri.TenantID, "error", err)
				c.Metrics.rejection(RejectInternal)
				respondError(w, http.StatusInternalServerError, "internal", "internal server error")
				return
			}

			t, err := validator.Validate(r.Context(), conn, ri.TenantID)
			if err != nil {
				c.reject(w, r, err)
				return
			}

			ctx := NewContext(r.Context(), t)
			ctx = NewConnContext(ctx, conn)

			c.Logger.Debug("tenant context established",
				"tenant_id", t.ID,
				"slug", t.Slug,
				"source", ri.Source,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// serveBypass handles platform-admin requests: no tenant is set; instead a
// bypass region spans the handler, closed before the connection is
// released.
func (c *Coordinator) serveBypass(w http.ResponseWriter, r *http.Request, next http.Handler) {
	id := auth.FromContext(r.Context())
	if !id.IsPlatformAdmin() {
		c.Metrics.rejection(RejectMissing)
		respondError(w, http.StatusForbidden, "forbidden", "platform administrator access required")
		return
	}

	conn, err := c.Pool.Acquire(r.Context())
	if err != nil {
		c.Logger.Error("acquiring database connection", "error", err)
		c.Metrics.rejection(RejectInternal)
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	guard := NewGuard(conn, c.Logger)
	defer func() {
		guard.Release(r.Context())
		if guard.Poisoned() {
			c.Metrics.poisoned()
		}
	}()

	if err := guard.EnterBypass(r.Context()); err != nil {
		c.Logger.Error("entering bypass region", "error", err)
		c.Metrics.rejection(RejectInternal)
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	defer func() {
		if err := guard.ExitBypass(r.Context()); err != nil {
			c.Logger.Error("exiting bypass region", "error", err)
		}
	}()

	c.Metrics.bypass()
	c.Logger.Info("bypass region entered",
		"subject", id.Subject,
		"path", r.URL.Path,
	)

	ctx := NewConnContext(r.Context(), conn)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// reject maps a validation rejection to its HTTP response. Suspended and
// pending-deletion tenants get a clear, non-technical explanation; the rest
// return minimal information to avoid tenant-existence probing.
func (c *Coordinator) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := RejectionReason(err)
	c.Metrics.rejection(reason)

	switch reason {
	case RejectNotFound:
		c.Logger.Warn("unknown tenant", "path", r.URL.Path)
		respondError(w, http.StatusNotFound, "not_found", "tenant not found")
	case RejectSuspended:
		c.Logger.Info("suspended tenant rejected", "path", r.URL.Path)
		respondError(w, http.StatusForbidden, "tenant_suspended",
			"this organisation's account is suspended; please contact support")
	case RejectPendingDeletion:
		c.Logger.Info("pending-deletion tenant rejected", "path", r.URL.Path)
		respondError(w, http.StatusForbidden, "tenant_pending_deletion",
			"this organisation's account is scheduled for deletion and can no longer be used")
	default:
		// Detail was already logged where the fault happened.
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// respondError writes a JSON error response without importing httpserver.
func respondError(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errStr,
		"message": message,
	})
}
