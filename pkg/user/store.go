package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/daybook/internal/auth"
	"github.com/wisbric/daybook/pkg/tenant"
)

const userColumns = `id, tenant_id, email, display_name, role, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Store reads users through a tenant-scoped connection. The RLS policy on
// the users table restricts every query to the connection's current tenant,
// so none of these methods filter by tenant themselves.
type Store struct {
	conn tenant.Conn
}

// NewStore creates a user Store over the given scoped connection.
func NewStore(conn tenant.Conn) *Store {
	return &Store{conn: conn}
}

// ByID fetches a user by id within the current tenant.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// List returns the current tenant's users ordered by email.
func (s *Store) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

// Count returns the number of users visible on this connection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// Create inserts a user for the current tenant. The tenant_id must match the
// connection's current tenant or the RLS policy rejects the insert.
func (s *Store) Create(ctx context.Context, tenantID uuid.UUID, email, displayName, role, passwordHash string) (*User, error) {
	row := s.conn.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, display_name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		tenantID, strings.ToLower(email), displayName, role, passwordHash)
	return scanUser(row)
}

// SystemStore serves the two lookups authentication needs before any tenant
// context exists. Each call checks out its own connection and wraps the
// query in a bypass region that is closed before the connection is released.
type SystemStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSystemStore creates a SystemStore over the pool.
func NewSystemStore(pool *pgxpool.Pool, logger *slog.Logger) *SystemStore {
	return &SystemStore{pool: pool, logger: logger}
}

func (s *SystemStore) withBypass(ctx context.Context, fn func(conn tenant.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	guard := tenant.NewGuard(conn, s.logger)
	defer guard.Release(ctx)

	if err := guard.EnterBypass(ctx); err != nil {
		return fmt.Errorf("entering bypass region: %w", err)
	}
	defer func() {
		if err := guard.ExitBypass(ctx); err != nil {
			s.logger.Error("exiting bypass region", "error", err)
		}
	}()

	return fn(conn)
}

// ByEmail implements auth.CredentialStore. Login happens before the caller
// has a tenant, so the lookup spans all tenants.
func (s *SystemStore) ByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var creds auth.Credentials
	err := s.withBypass(ctx, func(conn tenant.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT id, tenant_id, email, display_name, role, password_hash
			 FROM users WHERE email = $1`,
			strings.ToLower(email))
		return row.Scan(&creds.UserID, &creds.TenantID, &creds.Email,
			&creds.DisplayName, &creds.Role, &creds.PasswordHash)
	})
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

// TenantForUser implements auth.TenantLookup: the tenant recorded on the
// user's own row, used as the lowest-priority tenant resolution source.
func (s *SystemStore) TenantForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var tid uuid.UUID
	err := s.withBypass(ctx, func(conn tenant.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT tenant_id FROM users WHERE id = $1`, userID).Scan(&tid)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return tid, nil
}
