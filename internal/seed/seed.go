// Package seed bootstraps the platform administrator and, in dev mode, a
// demo tenant so a fresh database is immediately usable.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/wisbric/daybook/internal/auth"
	"github.com/wisbric/daybook/pkg/tenant"
)

// Options controls what Run seeds.
type Options struct {
	AdminEmail    string
	AdminPassword string
	DemoTenant    bool
}

// Run seeds the database. It is idempotent: existing rows are left alone.
// Everything here crosses tenant boundaries, so the whole run happens in one
// bypass region.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger, opts Options) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	guard := tenant.NewGuard(conn, logger)
	defer guard.Release(ctx)

	if err := guard.EnterBypass(ctx); err != nil {
		return fmt.Errorf("entering bypass region: %w", err)
	}
	defer func() {
		if err := guard.ExitBypass(ctx); err != nil {
			logger.Error("exiting bypass region after seeding", "error", err)
		}
	}()

	if opts.AdminEmail != "" && opts.AdminPassword != "" {
		if err := ensurePlatformAdmin(ctx, conn, logger, opts.AdminEmail, opts.AdminPassword); err != nil {
			return err
		}
	}

	if opts.DemoTenant {
		if err := ensureDemoTenant(ctx, conn, logger); err != nil {
			return err
		}
	}

	return nil
}

// ensurePlatformAdmin creates the platform tenant and operator account. The
// platform tenant exists only so the operator has a user row; it is never
// served tenant-scoped traffic.
func ensurePlatformAdmin(ctx context.Context, conn tenant.Conn, logger *slog.Logger, email, password string) error {
	platformID, err := ensureTenant(ctx, conn, "platform", "Platform")
	if err != nil {
		return err
	}

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking for platform admin: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	_, err = conn.Exec(ctx,
		`INSERT INTO users (tenant_id, email, display_name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		platformID, strings.ToLower(email), "Platform Admin", auth.RolePlatform, string(hash))
	if err != nil {
		return fmt.Errorf("creating platform admin: %w", err)
	}

	logger.Info("platform admin created", "email", email)
	return nil
}

func ensureDemoTenant(ctx context.Context, conn tenant.Conn, logger *slog.Logger) error {
	id, err := ensureTenant(ctx, conn, "demo", "Demo Organisation")
	if err != nil {
		return err
	}
	logger.Info("demo tenant ready", "tenant_id", id)
	return nil
}

func ensureTenant(ctx context.Context, conn tenant.Conn, slug, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := conn.QueryRow(ctx,
		`INSERT INTO tenants (slug, name, status) VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		 RETURNING id`,
		slug, name, tenant.StatusActive).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensuring tenant %q: %w", slug, err)
	}
	return id, nil
}
