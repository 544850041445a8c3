package authn

import (
	"context"
	"crypto/subtle"
	"errors"

	"billgate/pkg/apikey"
	"billgate/pkg/tenants"
)

// Resolver turns classified credentials into principals against the
// credential store.
type Resolver struct {
	store tenants.Store
}

func NewResolver(store tenants.Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveAPIKey maps a classified API key to its owning tenant. The key's
// prefix family alone decides the resolved mode; a test key never grants
// live access and vice versa.
func (r *Resolver) ResolveAPIKey(ctx context.Context, tok apikey.Classified) (*Principal, error) {
	t, err := r.store.LookupByAPIKey(ctx, tok.Raw)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return nil, ErrUnknownCredential
		}
		return nil, err
	}
	// Constant-time confirmation against the slot the store matched.
	// Also a defensive check that the slot family agrees with the prefix:
	// disagreement means a torn or corrupted record.
	matched := false
	for _, s := range tenants.Slots {
		v := t.Key(s)
		if v == "" || len(v) != len(tok.Raw) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(v), []byte(tok.Raw)) == 1 {
			if s.Mode() != tok.Mode {
				return nil, ErrModeMismatch
			}
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrUnknownCredential
	}
	if !t.Active {
		return nil, ErrTenantDisabled
	}
	return &Principal{Tenant: t, Mode: tok.Mode, Scheme: SchemeAPIKey}, nil
}

// ResolveDashboardToken verifies a dashboard token and re-fetches the user
// and tenant so disablement and role changes take effect immediately rather
// than at token expiry.
func (r *Resolver) ResolveDashboardToken(ctx context.Context, raw string) (*Principal, error) {
	tid, err := peekTenantID(raw)
	if err != nil {
		return nil, err
	}
	t, err := r.store.GetTenant(ctx, tid)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	claims, err := verifyDashboardToken(raw, t.SigningSecret)
	if err != nil {
		return nil, err
	}
	// A forged token signed under another tenant's secret fails signature
	// verification above; this guards the inverse mismatch.
	if claims.TenantID != t.ID {
		return nil, ErrInvalidToken
	}
	if !t.Active {
		return nil, ErrTenantDisabled
	}
	u, err := r.store.GetUser(ctx, t.ID, claims.UserID)
	if err != nil {
		if errors.Is(err, tenants.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrInvalidToken
	}
	// Live role from the store, not the stale claim.
	return &Principal{Tenant: t, User: &u, Mode: claims.Mode, Role: u.Role, Scheme: SchemeDashboard}, nil
}
