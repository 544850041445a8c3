package tenants

import (
	"context"
	"crypto/rand"
	"errors"

	"billgate/pkg/apikey"
)

var (
	ErrNotFound     = errors.New("tenant not found")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the credential store: the leaf dependency every other identity
// component is built on. Reads dominate; the only writers are registration,
// key regeneration/revocation and role/activation changes.
type Store interface {
	// LookupByAPIKey finds the tenant owning a credential across all four
	// slots. Activation is NOT filtered here; the resolver distinguishes
	// unknown credentials from disabled tenants.
	LookupByAPIKey(ctx context.Context, raw string) (Tenant, error)

	GetTenant(ctx context.Context, id string) (Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)

	GetUser(ctx context.Context, tenantID, userID string) (User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (User, error)

	CreateTenant(ctx context.Context, t Tenant) error
	CreateUser(ctx context.Context, u User) error

	// RegenerateKeys atomically replaces both slots of the given mode and
	// returns the freshly minted pair. The old values stop authenticating
	// the moment this call returns; there is no overlap window.
	RegenerateKeys(ctx context.Context, tenantID string, mode apikey.Mode) (KeyPair, error)

	// RevokeKeys clears both slots of the given mode without minting
	// replacements.
	RevokeKeys(ctx context.Context, tenantID string, mode apikey.Mode) error

	SetActive(ctx context.Context, tenantID string, active bool) error
	SetWebhook(ctx context.Context, tenantID, url, secret string) error
	TouchUserLogin(ctx context.Context, userID string) error
}

// SlotsFor returns the public/secret slot pair for a mode.
func SlotsFor(mode apikey.Mode) (KeySlot, KeySlot) {
	if mode == apikey.Test {
		return SlotTestPublic, SlotTestSecret
	}
	return SlotLivePublic, SlotLiveSecret
}

// NewSigningSecret mints 32 bytes of random material for dashboard-token
// signing. Each tenant gets its own secret at registration.
func NewSigningSecret() []byte {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return b
}

// MintPair generates a fresh public/secret credential pair for a mode.
func MintPair(mode apikey.Mode) (KeyPair, error) {
	pub, sec := SlotsFor(mode)
	p, err := apikey.Generate(pub.Prefix())
	if err != nil {
		return KeyPair{}, err
	}
	s, err := apikey.Generate(sec.Prefix())
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: p, Secret: s}, nil
}
