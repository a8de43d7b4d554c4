package tenant

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RejectReason classifies why a request was refused before dispatch.
type RejectReason string

const (
	// RejectMissing: no tenant identity could be resolved from the request.
	RejectMissing RejectReason = "missing"
	// RejectNotFound: the resolved tenant has no directory row visible to it.
	RejectNotFound RejectReason = "not_found"
	// RejectSuspended: the tenant exists but is suspended.
	RejectSuspended RejectReason = "suspended"
	// RejectPendingDeletion: the tenant exists but is scheduled for deletion.
	RejectPendingDeletion RejectReason = "pending_deletion"
	// RejectInternal: the validation lookup itself failed.
	RejectInternal RejectReason = "internal"
)

// RejectionError is the expected, user-facing refusal of a request. The
// coordinator translates it into an HTTP response; it never reaches
// business logic.
type RejectionError struct {
	Reason   RejectReason
	TenantID uuid.UUID
	cause    error
}

func (e *RejectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("tenant rejected (%s): %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("tenant rejected (%s)", e.Reason)
}

func (e *RejectionError) Unwrap() error { return e.cause }

// RejectionReason extracts the reject reason from err, or "" if err is not a
// RejectionError.
func RejectionReason(err error) RejectReason {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

// InvariantError reports misuse of the security guard: a state transition
// that, if tolerated, could leak one tenant's data into another's response.
// It is a programmer error, never recovered into a normal response, and the
// affected connection is destroyed rather than returned to the pool.
type InvariantError struct {
	Op string
}

func (e *InvariantError) Error() string {
	return "tenant: security invariant violated: " + e.Op
}
