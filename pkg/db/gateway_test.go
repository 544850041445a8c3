package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"billgate/pkg/authn"
	"billgate/pkg/scope"
	"billgate/pkg/tenants"
)

// The nil pool proves rejection happens before any pool access: these
// calls would panic if the gateway reached for a connection first.

func TestScopeUnboundIsRejected(t *testing.T) {
	g := NewGateway(nil, zap.NewNop().Sugar())
	_, _, err := g.Scope(context.Background())
	assert.ErrorIs(t, err, scope.ErrNoActiveContext)
}

func TestWithTxUnboundIsRejected(t *testing.T) {
	g := NewGateway(nil, zap.NewNop().Sugar())
	err := g.WithTx(context.Background(), func(pgx.Tx) error {
		t.Fatal("transaction body ran without bound tenant")
		return nil
	})
	assert.ErrorIs(t, err, scope.ErrNoActiveContext)
}

// A bound principal over a poolless gateway (in-memory dev mode) must get
// an explicit error, not a nil dereference.
func TestWithTxWithoutPoolIsExplicitError(t *testing.T) {
	g := NewGateway(nil, zap.NewNop().Sugar())
	ctx := scope.Bind(context.Background(), &authn.Principal{
		Tenant: tenants.Tenant{ID: "t-1", Active: true},
	})
	assert.NotPanics(t, func() {
		err := g.WithTx(ctx, func(pgx.Tx) error {
			t.Fatal("transaction body ran without a database")
			return nil
		})
		assert.ErrorIs(t, err, ErrNoDatabase)
	})
}
