// Package entry implements daybook entries, the tenant-scoped journal
// records at the heart of the product. All access goes through the request's
// scoped connection; the entries table's RLS policy confines every statement
// to the caller's tenant.
package entry

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a single daybook record.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	EntryDate time.Time `json:"entry_date"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
