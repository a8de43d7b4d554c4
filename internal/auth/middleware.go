package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// TenantLookup resolves the tenant attached to a user record. Implemented by
// pkg/user with a platform-scoped lookup so it works before any tenant
// context exists.
type TenantLookup interface {
	TenantForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Middleware returns an HTTP middleware that authenticates the caller and
// stores the resulting Identity in the request context.
//
// Authentication precedence:
//  1. Authorization: Bearer <jwt>  →  OIDC validation (when configured)
//  2. Session cookie or bearer     →  self-issued session JWT
//  3. X-Tenant-ID: <uuid>          →  Development-only fallback (no real auth)
//
// If none succeed, the request is rejected with 401. Tenant claims that are
// absent or malformed leave the corresponding Identity field as uuid.Nil;
// rejecting tenant-less requests is the tenant middleware's job, not ours.
func Middleware(oidcAuth *OIDCAuthenticator, sessions *SessionManager, users TenantLookup, devMode bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity *Identity

			// 1. Try OIDC JWT.
			if authHeader := r.Header.Get("Authorization"); oidcAuth != nil &&
				(strings.HasPrefix(authHeader, "Bearer ") || strings.HasPrefix(authHeader, "bearer ")) {
				claims, err := oidcAuth.Authenticate(r.Context(), authHeader)
				if err != nil {
					logger.Warn("OIDC authentication failed", "error", err)
					respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token")
					return
				}

				identity = &Identity{
					Subject:       claims.Subject,
					Email:         claims.Email,
					Role:          claims.Role,
					TokenTenantID: parseTenantID(claims.TenantID),
					Method:        MethodOIDC,
				}

				logger.Debug("authenticated via OIDC",
					"sub", claims.Subject,
					"email", claims.Email,
					"tenant_id", claims.TenantID,
				)
			}

			// 2. Try the session token (cookie, or bearer when OIDC is off).
			if identity == nil && sessions != nil {
				if raw := sessionToken(r, oidcAuth == nil); raw != "" {
					claims, err := sessions.ValidateToken(raw)
					if err != nil {
						logger.Warn("session validation failed", "error", err)
						respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid session")
						return
					}

					identity = &Identity{
						Subject:         claims.Subject,
						Email:           claims.Email,
						Role:            claims.Role,
						SessionTenantID: parseTenantID(claims.TenantID),
						Method:          MethodSession,
					}
					if uid, err := uuid.Parse(claims.UserID); err == nil {
						identity.UserID = &uid
					}

					logger.Debug("authenticated via session",
						"sub", claims.Subject,
						"tenant_id", claims.TenantID,
					)
				}
			}

			// 3. Dev-mode fallback: X-Tenant-ID header (no real authentication).
			if identity == nil && devMode {
				if raw := r.Header.Get("X-Tenant-ID"); raw != "" {
					devID := uuid.Nil
					identity = &Identity{
						Subject:      "dev:anonymous",
						Email:        "dev@localhost",
						Role:         RoleAdmin,
						UserTenantID: parseTenantID(raw),
						UserID:       &devID,
						Method:       MethodDev,
					}

					logger.Debug("dev-mode authentication", "tenant_id", raw)
				}
			}

			if identity == nil {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "no valid authentication provided")
				return
			}

			// Attach the tenant recorded on the caller's user record, the
			// lowest-priority tenant source.
			if users != nil && identity.UserID != nil && *identity.UserID != uuid.Nil && identity.UserTenantID == uuid.Nil {
				tid, err := users.TenantForUser(r.Context(), *identity.UserID)
				if err != nil {
					logger.Debug("user record tenant lookup failed", "user_id", identity.UserID, "error", err)
				} else {
					identity.UserTenantID = tid
				}
			}

			ctx := NewContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionToken extracts the raw session JWT from the request. The bearer
// header is only consulted when OIDC is not configured, so the two token
// kinds cannot shadow each other.
func sessionToken(r *http.Request, allowBearer bool) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if allowBearer {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	return ""
}

// parseTenantID parses a tenant claim. Malformed values resolve to uuid.Nil
// rather than an error so that every "no usable tenant" case funnels through
// the same rejection path downstream.
func parseTenantID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func respondErr(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errStr,
		"message": message,
	})
}
