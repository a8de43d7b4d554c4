package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Session variable keys read by the row-level security policies. A row is
// visible iff its tenant_id equals app.current_tenant, or app.bypass_rls is
// "on".
const (
	currentTenantKey = "app.current_tenant"
	bypassKey        = "app.bypass_rls"
)

// Conn is the subset of a pgx connection the security layer needs. It is
// satisfied by *pgxpool.Conn and pgx.Tx.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Channel is the connection-scoped security register backing the RLS
// policies: two keys, current tenant and bypass flag, visible only to
// statements on this physical connection.
//
// set_config is called with is_local=false so the value survives until
// explicitly reset, not just to transaction end; the Guard owns that reset.
type Channel struct {
	conn Conn
}

// NewChannel wraps a connection in a security channel.
func NewChannel(conn Conn) *Channel {
	return &Channel{conn: conn}
}

// SetTenant writes the current tenant onto the connection.
func (c *Channel) SetTenant(ctx context.Context, id uuid.UUID) error {
	if _, err := c.conn.Exec(ctx, "SELECT set_config($1, $2, false)", currentTenantKey, id.String()); err != nil {
		return fmt.Errorf("setting %s: %w", currentTenantKey, err)
	}
	return nil
}

// ClearTenant resets the current tenant to unset. Safe to call when already
// clear.
func (c *Channel) ClearTenant(ctx context.Context) error {
	if _, err := c.conn.Exec(ctx, "SELECT set_config($1, '', false)", currentTenantKey); err != nil {
		return fmt.Errorf("clearing %s: %w", currentTenantKey, err)
	}
	return nil
}

// SetBypass writes the bypass flag onto the connection.
func (c *Channel) SetBypass(ctx context.Context, on bool) error {
	v := "off"
	if on {
		v = "on"
	}
	if _, err := c.conn.Exec(ctx, "SELECT set_config($1, $2, false)", bypassKey, v); err != nil {
		return fmt.Errorf("setting %s: %w", bypassKey, err)
	}
	return nil
}

// CurrentTenant reads the tenant currently set on the connection. The second
// return value is false when no tenant is set.
func (c *Channel) CurrentTenant(ctx context.Context) (uuid.UUID, bool, error) {
	var raw *string
	err := c.conn.QueryRow(ctx, "SELECT current_setting($1, true)", currentTenantKey).Scan(&raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("reading %s: %w", currentTenantKey, err)
	}
	if raw == nil || *raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("malformed %s value %q: %w", currentTenantKey, *raw, err)
	}
	return id, true, nil
}

// BypassActive reads the bypass flag currently set on the connection.
func (c *Channel) BypassActive(ctx context.Context) (bool, error) {
	var raw *string
	err := c.conn.QueryRow(ctx, "SELECT current_setting($1, true)", bypassKey).Scan(&raw)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", bypassKey, err)
	}
	return raw != nil && *raw == "on", nil
}
