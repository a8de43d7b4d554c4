package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store provides access to the tenant directory. Reads on a tenant-scoped
// connection see only the row matching the connection's own current tenant;
// writes require an open bypass region (the directory's RLS policies make
// them fail otherwise).
type Store struct {
	conn Conn
}

// NewStore creates a tenant Store over the given connection.
func NewStore(conn Conn) *Store {
	return &Store{conn: conn}
}

const tenantColumns = `id, slug, name, status, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ByID fetches a tenant by id.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// BySlug fetches a tenant by slug.
func (s *Store) BySlug(ctx context.Context, slug string) (*Tenant, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

// List returns tenants ordered by creation time, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Tenant, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// Count returns the total number of tenants visible on this connection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n)
	return n, err
}

// Create inserts a new tenant in ACTIVE status. Bypass-only.
func (s *Store) Create(ctx context.Context, name, slug string) (*Tenant, error) {
	row := s.conn.QueryRow(ctx,
		`INSERT INTO tenants (name, slug, status) VALUES ($1, $2, $3)
		 RETURNING `+tenantColumns,
		name, slug, StatusActive)
	return scanTenant(row)
}

// SetStatus updates a tenant's operational status. Bypass-only.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Tenant, error) {
	row := s.conn.QueryRow(ctx,
		`UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1
		 RETURNING `+tenantColumns,
		id, status)
	return scanTenant(row)
}

// Delete removes a tenant row. Bypass-only; expected to be called only for
// tenants already in PENDING_DELETION after their data is purged.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
