package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Guard owns the security state of one checked-out connection for the
// duration of one request. It is the only code allowed to mutate the
// channel's keys, and it guarantees that both keys are reset before the
// connection goes back to the pool: on success, on error, on panic, and on
// request cancellation alike.
//
// A Guard is used by a single goroutine between checkout and release (the
// standard pool invariant), so it needs no locking.
type Guard struct {
	ch     *Channel
	logger *slog.Logger

	// release returns the connection to the pool; destroy closes it so the
	// pool never sees it again.
	release func()
	destroy func()

	bypassDepth int
	tenantSet   bool
	poisoned    bool
	released    bool
}

// NewGuard creates a Guard owning the security state of conn. The caller
// must call Release exactly once, typically via defer, before the request
// ends.
func NewGuard(conn *pgxpool.Conn, logger *slog.Logger) *Guard {
	return &Guard{
		ch:      NewChannel(conn),
		logger:  logger,
		release: conn.Release,
		destroy: func() {
			// Hijack removes the connection from the pool's bookkeeping;
			// closing it forces the pool to dial a fresh one later.
			_ = conn.Hijack().Close(context.Background())
		},
	}
}

// newGuard wires a Guard over an arbitrary channel and lifecycle funcs.
// Used by tests to observe release/destroy without a real pool.
func newGuard(ch *Channel, logger *slog.Logger, release, destroy func()) *Guard {
	return &Guard{ch: ch, logger: logger, release: release, destroy: destroy}
}

// Set writes the current tenant onto the connection and forces the bypass
// flag off. Calling Set on an already-set guard overwrites the previous
// tenant. Must precede every tenant-scoped statement.
func (g *Guard) Set(ctx context.Context, id uuid.UUID) error {
	if err := g.ch.SetTenant(ctx, id); err != nil {
		return err
	}
	if err := g.ch.SetBypass(ctx, false); err != nil {
		return err
	}
	g.bypassDepth = 0
	g.tenantSet = true
	return nil
}

// Clear resets the current tenant to unset. Calling Clear twice, or without
// a prior Set, is a no-op, never an error.
func (g *Guard) Clear(ctx context.Context) error {
	if !g.tenantSet {
		return nil
	}
	if err := g.ch.ClearTenant(ctx); err != nil {
		return err
	}
	g.tenantSet = false
	return nil
}

// EnterBypass opens a bypass region. Regions nest: the flag stays on until
// the outermost region exits.
func (g *Guard) EnterBypass(ctx context.Context) error {
	if g.bypassDepth == 0 {
		if err := g.ch.SetBypass(ctx, true); err != nil {
			return err
		}
	}
	g.bypassDepth++
	return nil
}

// ExitBypass closes the innermost bypass region. Exiting with no open region
// is a security invariant violation: the guard poisons the connection and
// returns an InvariantError. Continuing to use the guard afterwards is not
// possible; Release will destroy the connection.
func (g *Guard) ExitBypass(ctx context.Context) error {
	if g.bypassDepth == 0 {
		g.poisoned = true
		g.logger.Error("bypass exit without matching enter; connection will be destroyed")
		return &InvariantError{Op: "bypass exit without matching enter"}
	}
	g.bypassDepth--
	if g.bypassDepth == 0 {
		if err := g.ch.SetBypass(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

// BypassActive reports whether a bypass region is currently open.
func (g *Guard) BypassActive() bool {
	return g.bypassDepth > 0
}

// Poisoned reports whether the connection has been marked unsafe for reuse.
func (g *Guard) Poisoned() bool {
	return g.poisoned
}

// Release resets both security keys and returns the connection to the pool.
// Idempotent. It runs on a cancellation-immune context so a timed-out
// request still gets its state wiped, and it destroys the connection instead
// of pooling it whenever the reset cannot be confirmed.
func (g *Guard) Release(ctx context.Context) {
	if g.released {
		return
	}
	g.released = true

	if g.poisoned {
		g.destroy()
		return
	}

	// The request context may already be cancelled; cleanup must not be.
	ctx = context.WithoutCancel(ctx)

	if g.bypassDepth > 0 {
		g.logger.Error("bypass region left open at release", "depth", g.bypassDepth)
	}

	errTenant := g.ch.ClearTenant(ctx)
	errBypass := g.ch.SetBypass(ctx, false)
	if errTenant != nil || errBypass != nil {
		g.logger.Error("resetting security state failed; destroying connection",
			"tenant_err", errTenant, "bypass_err", errBypass)
		g.poisoned = true
		g.destroy()
		return
	}

	g.tenantSet = false
	g.bypassDepth = 0
	g.release()
}
