package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is the user record data needed to authenticate a login.
type Credentials struct {
	UserID       uuid.UUID
	Email        string
	DisplayName  string
	Role         string
	TenantID     uuid.UUID
	PasswordHash string
}

// CredentialStore looks up login credentials by email. The lookup runs with
// platform scope because no tenant context exists before authentication.
type CredentialStore interface {
	ByEmail(ctx context.Context, email string) (*Credentials, error)
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the public user information returned in auth responses.
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// AuthConfigResponse tells the frontend which auth methods are available.
type AuthConfigResponse struct {
	OIDCEnabled  bool `json:"oidc_enabled"`
	LocalEnabled bool `json:"local_enabled"`
}

// LoginHandler handles local email/password login and auth discovery.
type LoginHandler struct {
	sessionMgr  *SessionManager
	store       CredentialStore
	limiter     *RateLimiter
	logger      *slog.Logger
	oidcEnabled bool
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(sm *SessionManager, store CredentialStore, limiter *RateLimiter, logger *slog.Logger, oidcEnabled bool) *LoginHandler {
	return &LoginHandler{
		sessionMgr:  sm,
		store:       store,
		limiter:     limiter,
		logger:      logger,
		oidcEnabled: oidcEnabled,
	}
}

// HandleLogin authenticates a user with email/password and returns a session JWT.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if h.limiter != nil {
		result, err := h.limiter.Check(r.Context(), ip)
		if err != nil {
			h.logger.Error("login: rate limit check failed", "error", err)
		} else if !result.Allowed {
			respondErr(w, http.StatusTooManyRequests, "rate_limited", "too many failed attempts, try again later")
			return
		}
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondErr(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	creds, err := h.store.ByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Warn("login: user lookup failed", "email", req.Email, "error", err)
		h.recordFailure(r.Context(), ip)
		respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		h.recordFailure(r.Context(), ip)
		respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	tenantClaim := ""
	if creds.TenantID != uuid.Nil {
		tenantClaim = creds.TenantID.String()
	}

	token, err := h.sessionMgr.IssueToken(SessionClaims{
		Subject:  creds.DisplayName,
		Email:    creds.Email,
		Role:     creds.Role,
		TenantID: tenantClaim,
		UserID:   creds.UserID.String(),
	})
	if err != nil {
		h.logger.Error("login: issuing session token", "error", err)
		respondErr(w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(r.Context(), ip); err != nil {
			h.logger.Warn("login: resetting rate limit", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.sessionMgr.maxAge),
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{
		Token: token,
		User: UserInfo{
			ID:          creds.UserID.String(),
			Email:       creds.Email,
			DisplayName: creds.DisplayName,
			Role:        creds.Role,
		},
	})
}

// HandleLogout clears the session cookie.
func (h *LoginHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleConfig reports which auth methods are available.
func (h *LoginHandler) HandleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(AuthConfigResponse{
		OIDCEnabled:  h.oidcEnabled,
		LocalEnabled: h.store != nil,
	})
}

func (h *LoginHandler) recordFailure(ctx context.Context, ip string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Record(ctx, ip); err != nil {
		h.logger.Warn("login: recording failed attempt", "error", err)
	}
}

// clientIP extracts the originating client IP, honouring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
