package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "daybook_session"

// sessionIssuer is stamped into every token and checked on validation.
const sessionIssuer = "daybook"

// SessionClaims are the application claims embedded in a session JWT.
// TenantID is the tenant the user belonged to at login time; it may be
// empty for platform operators.
type SessionClaims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// SessionManager issues and validates HS256-signed session JWTs.
type SessionManager struct {
	signer jose.Signer
	key    []byte
	maxAge time.Duration
}

// NewSessionManager builds a session manager from a shared secret of at
// least 32 bytes.
func NewSessionManager(secret string, maxAge time.Duration) (*SessionManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}

	key := []byte(secret)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &SessionManager{signer: signer, key: key, maxAge: maxAge}, nil
}

// GenerateDevSecret returns a random hex secret for dev mode, where no
// DAYBOOK_SESSION_SECRET is configured. Sessions do not survive restarts.
func GenerateDevSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// IssueToken signs a session JWT carrying the given claims.
func (sm *SessionManager) IssueToken(claims SessionClaims) (string, error) {
	now := time.Now()
	registered := jwt.Claims{
		Subject:   claims.Subject,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(sm.maxAge)),
	}

	token, err := jwt.Signed(sm.signer).Claims(registered).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ValidateToken checks the signature, issuer, and expiry of a session JWT
// and returns its application claims.
func (sm *SessionManager) ValidateToken(raw string) (*SessionClaims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	var registered jwt.Claims
	var claims SessionClaims
	if err := tok.Claims(sm.key, &registered, &claims); err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	expected := jwt.Expected{Issuer: sessionIssuer, Time: time.Now()}
	if err := registered.Validate(expected); err != nil {
		return nil, fmt.Errorf("validating claims: %w", err)
	}

	return &claims, nil
}
