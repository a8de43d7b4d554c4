package entry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/daybook/pkg/tenant"
)

const entryColumns = `id, tenant_id, author_id, entry_date, title, body, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.TenantID, &e.AuthorID, &e.EntryDate, &e.Title, &e.Body, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Store reads and writes entries through a tenant-scoped connection.
type Store struct {
	conn tenant.Conn
}

// NewStore creates an entry Store over the given scoped connection.
func NewStore(conn tenant.Conn) *Store {
	return &Store{conn: conn}
}

// ByID fetches an entry by id within the current tenant.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	return scanEntry(row)
}

// ListAfter returns up to limit entries created strictly before the given
// keyset position, newest first. A zero position starts from the top.
func (s *Store) ListAfter(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]Entry, error) {
	sql := `SELECT ` + entryColumns + ` FROM entries
		 ORDER BY created_at DESC, id DESC LIMIT $1`
	args := []any{limit}
	if !after.IsZero() {
		sql = `SELECT ` + entryColumns + ` FROM entries
		 WHERE (created_at, id) < ($2, $3)
		 ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, after, afterID)
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

// Create inserts an entry. The tenant_id must match the connection's current
// tenant or the RLS policy rejects the insert.
func (s *Store) Create(ctx context.Context, tenantID, authorID uuid.UUID, entryDate time.Time, title, body string) (*Entry, error) {
	row := s.conn.QueryRow(ctx,
		`INSERT INTO entries (tenant_id, author_id, entry_date, title, body)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+entryColumns,
		tenantID, authorID, entryDate, title, body)
	return scanEntry(row)
}

// Update replaces an entry's title and body.
func (s *Store) Update(ctx context.Context, id uuid.UUID, title, body string) (*Entry, error) {
	row := s.conn.QueryRow(ctx,
		`UPDATE entries SET title = $2, body = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+entryColumns,
		id, title, body)
	return scanEntry(row)
}

// Delete removes an entry.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
