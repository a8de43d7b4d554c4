// Package tenant binds each request to a single tenant identity and
// propagates that identity into PostgreSQL as a row-level security predicate.
//
// The load-bearing design decision: the security state lives on the physical
// database connection (session-scoped set_config), not in process-global or
// goroutine-local memory. Connections are reused across requests, so every
// checkout is bracketed by a Guard that writes the state before any
// tenant-scoped statement and unconditionally resets it before the
// connection returns to the pool.
package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the operational state of a tenant.
type Status string

const (
	StatusActive          Status = "active"
	StatusSuspended       Status = "suspended"
	StatusPendingDeletion Status = "pending_deletion"
)

// Operational reports whether requests for this tenant may be dispatched.
func (s Status) Operational() bool {
	return s == StatusActive
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusPendingDeletion:
		return true
	}
	return false
}

// Tenant is a row from the tenant directory. Read-only for request handling;
// only the platform admin API mutates it, under a bypass region.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type contextKey string

const (
	tenantKey contextKey = "tenant"
	connKey   contextKey = "tenant_conn"
)

// NewContext stores the validated tenant in the context.
func NewContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// FromContext extracts the tenant from the context.
// Returns nil if no tenant is set.
func FromContext(ctx context.Context) *Tenant {
	v, _ := ctx.Value(tenantKey).(*Tenant)
	return v
}

// NewConnContext stores the security-scoped database connection in the context.
func NewConnContext(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, connKey, conn)
}

// ConnFromContext extracts the security-scoped database connection.
// Returns nil if no connection is set. Every statement issued on this
// connection is filtered by the row-level security policies.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	v, _ := ctx.Value(connKey).(*pgxpool.Conn)
	return v
}
