// Package scope binds the resolved Principal to the lifetime of one request.
//
// Binding rides the request's context.Context, so the single-request
// ownership invariant holds by construction: a binding is visible only to
// code reached through the derived context, concurrent requests can never
// observe each other's principal, and release happens on every exit path
// (completion, panic, cancellation) when the request context dies. Business
// logic cannot construct or replace a binding; it can only ask for the
// current one.
package scope

import (
	"context"
	"errors"

	"billgate/pkg/authn"
)

// ErrNoActiveContext means a tenant-scoped operation ran outside a bound
// request. This is a programming error (a missing authentication step),
// not a client mistake; callers surface it as a server error.
var ErrNoActiveContext = errors.New("no active tenant context")

type ctxPrincipalKey struct{}

// Bind attaches the principal to a derived context. Nested binds shadow the
// parent binding and restore it implicitly when the nested context is
// discarded.
func Bind(ctx context.Context, p *authn.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// Detach returns a context without any principal binding, for background
// work spawned from a request that must explicitly opt out of its tenant
// scope.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, (*authn.Principal)(nil))
}

// Current returns the principal bound to this request, or
// ErrNoActiveContext when none is bound.
func Current(ctx context.Context) (*authn.Principal, error) {
	v := ctx.Value(ctxPrincipalKey{})
	if v == nil {
		return nil, ErrNoActiveContext
	}
	p, ok := v.(*authn.Principal)
	if !ok || p == nil {
		return nil, ErrNoActiveContext
	}
	return p, nil
}

// TenantID is a convenience accessor for the bound tenant's id.
func TenantID(ctx context.Context) (string, error) {
	p, err := Current(ctx)
	if err != nil {
		return "", err
	}
	return p.Tenant.ID, nil
}
