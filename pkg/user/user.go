// Package user manages user accounts. Regular reads go through the
// request's tenant-scoped connection and see only the caller's own tenant;
// the authentication-time lookups (credentials by email, tenant by user id)
// run before any tenant context exists and therefore use short, audited
// bypass regions of their own.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of a tenant.
type User struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
