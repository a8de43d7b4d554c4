// Package auth authenticates callers and exposes the resulting identity to
// the rest of the request pipeline.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Roles supported by the RBAC system. RolePlatform is reserved for operators
// of the platform itself and is the only role allowed to cross tenants.
const (
	RolePlatform = "platform"
	RoleAdmin    = "admin"
	RoleMember   = "member"
	RoleReadonly = "readonly"
)

// ValidRoles lists all known roles in descending privilege order.
var ValidRoles = []string{RolePlatform, RoleAdmin, RoleMember, RoleReadonly}

// Method describes how the caller was authenticated.
const (
	MethodOIDC    = "oidc"
	MethodSession = "session"
	MethodDev     = "dev"
)

// Identity represents the authenticated caller for the current request.
//
// The three tenant fields mirror the places a tenant identifier can come
// from. Each is uuid.Nil when that source carried no usable value; the
// tenant resolver chain picks the first populated one in priority order.
type Identity struct {
	Subject         string     // OIDC sub or user id
	Email           string     // User email
	Name            string     // User display name
	Role            string     // One of the Role* constants
	TokenTenantID   uuid.UUID  // Tenant claim embedded in a bearer credential
	SessionTenantID uuid.UUID  // Tenant recorded in the caller's session
	UserTenantID    uuid.UUID  // Tenant attached to the caller's user record
	UserID          *uuid.UUID // Non-nil for user-backed identities
	Method          string     // One of the Method* constants
}

// IsPlatformAdmin reports whether the caller operates the platform itself.
func (id *Identity) IsPlatformAdmin() bool {
	return id != nil && id.Role == RolePlatform
}

type ctxKey string

const identityKey ctxKey = "auth_identity"

// NewContext stores the identity in the context.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity from the context.
// Returns nil if no identity is set.
func FromContext(ctx context.Context) *Identity {
	v, _ := ctx.Value(identityKey).(*Identity)
	return v
}

// IsValidRole reports whether role is a recognised RBAC role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
