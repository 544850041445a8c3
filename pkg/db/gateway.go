package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"billgate/pkg/apikey"
	"billgate/pkg/scope"
)

// unscopedAttempts counts data-gateway calls made without a bound tenant
// context. Any non-zero value is a bug in the handler pipeline.
var unscopedAttempts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "billgate_unscoped_query_attempts_total",
	Help: "Data gateway calls rejected because no tenant context was bound.",
})

// ErrNoDatabase means the gateway was built without a Postgres pool
// (in-memory dev mode); tenant-scoped queries need one.
var ErrNoDatabase = errors.New("database not configured")

// Gateway is the only data-access path for tenant-scoped tables. It takes
// no tenant parameter: the tenant comes from the bound request scope, so
// domain code cannot pass the wrong one. Calls without a bound scope fail
// with scope.ErrNoActiveContext before touching the pool.
type Gateway struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

func NewGateway(pool *pgxpool.Pool, log *zap.SugaredLogger) *Gateway {
	return &Gateway{pool: pool, log: log}
}

// Scope returns the bound tenant id and mode for explicit predicates
// (`WHERE tenant_id=$1 AND livemode=$2`).
func (g *Gateway) Scope(ctx context.Context) (string, apikey.Mode, error) {
	p, err := scope.Current(ctx)
	if err != nil {
		g.reject()
		return "", 0, err
	}
	return p.Tenant.ID, p.Mode, nil
}

// WithTx runs fn inside a transaction whose app.tenant_id and app.mode
// settings drive Postgres row-level security, so every statement in fn is
// filtered to the bound tenant even if its SQL carries no predicate.
func (g *Gateway) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	p, err := scope.Current(ctx)
	if err != nil {
		g.reject()
		return err
	}
	if g.pool == nil {
		return ErrNoDatabase
	}
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true), set_config('app.mode', $2, true)",
		p.Tenant.ID, p.Mode.String()); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("set tenant scope: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (g *Gateway) reject() {
	unscopedAttempts.Inc()
	g.log.Errorw("data gateway call without bound tenant context")
}
