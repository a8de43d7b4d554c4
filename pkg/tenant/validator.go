package tenant

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Validator confirms that a resolved tenant exists and is operational.
type Validator struct {
	Logger *slog.Logger
}

// Validate loads the tenant record through the given connection and checks
// its status. It must run after the guard has set the same tenant id on the
// connection: the directory's RLS policy lets a connection see exactly the
// row matching its own current tenant, so a returned row confirms both
// existence and correct channel wiring in one step.
//
// Failures are returned as *RejectionError. Storage faults are logged with
// full detail here and surfaced as RejectInternal with no detail attached
// for the caller to leak.
func (v *Validator) Validate(ctx context.Context, conn Conn, tenantID uuid.UUID) (*Tenant, error) {
	t, err := NewStore(conn).ByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &RejectionError{Reason: RejectNotFound, TenantID: tenantID}
		}
		v.Logger.Error("tenant validation lookup failed", "tenant_id", tenantID, "error", err)
		return nil, &RejectionError{Reason: RejectInternal, TenantID: tenantID, cause: err}
	}

	switch t.Status {
	case StatusActive:
		return t, nil
	case StatusSuspended:
		return nil, &RejectionError{Reason: RejectSuspended, TenantID: tenantID}
	case StatusPendingDeletion:
		return nil, &RejectionError{Reason: RejectPendingDeletion, TenantID: tenantID}
	default:
		v.Logger.Error("tenant has unknown status", "tenant_id", tenantID, "status", t.Status)
		return nil, &RejectionError{Reason: RejectInternal, TenantID: tenantID}
	}
}
