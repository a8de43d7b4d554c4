package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCClaims are the claims pulled out of a verified ID token. tenant_id is
// optional; a token without one still authenticates, and the tenant
// lifecycle middleware decides afterwards whether the request may proceed.
type OIDCClaims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// OIDCAuthenticator verifies bearer tokens against an OIDC provider.
type OIDCAuthenticator struct {
	Verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator runs OIDC discovery against the issuer and prepares a
// verifier for the given client ID. Discovery fetches the provider's signing
// keys over the network.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider %s: %w", issuerURL, err)
	}
	return &OIDCAuthenticator{
		Verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Authenticate verifies an Authorization header value and returns the claims.
// Unknown or missing roles are normalised to member, the least privileged
// tenant role.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, bearerToken string) (*OIDCClaims, error) {
	token := stripBearer(bearerToken)
	if token == "" {
		return nil, fmt.Errorf("empty bearer token")
	}

	idToken, err := a.Verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}
	if !IsValidRole(claims.Role) {
		claims.Role = RoleMember
	}

	return &claims, nil
}

func stripBearer(header string) string {
	const prefix = "bearer "
	h := strings.TrimSpace(header)
	if len(h) >= len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		h = h[len(prefix):]
	}
	return strings.TrimSpace(h)
}
