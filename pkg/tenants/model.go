package tenants

import (
	"time"

	"billgate/pkg/apikey"
)

// Role orders dashboard user permissions: Developer < Admin < Owner.
type Role int8

const (
	RoleDeveloper Role = iota
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	default:
		return "developer"
	}
}

// ParseRole maps the stored string form back to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "owner":
		return RoleOwner, true
	case "admin":
		return RoleAdmin, true
	case "developer":
		return RoleDeveloper, true
	}
	return 0, false
}

// KeySlot identifies one of the four credential slots on a tenant.
type KeySlot uint8

const (
	SlotLivePublic KeySlot = iota
	SlotLiveSecret
	SlotTestPublic
	SlotTestSecret
)

func (s KeySlot) String() string {
	switch s {
	case SlotLivePublic:
		return "live_public"
	case SlotLiveSecret:
		return "live_secret"
	case SlotTestPublic:
		return "test_public"
	default:
		return "test_secret"
	}
}

// Prefix returns the credential family minted into this slot.
func (s KeySlot) Prefix() string {
	switch s {
	case SlotLivePublic:
		return apikey.PrefixLivePublic
	case SlotLiveSecret:
		return apikey.PrefixLiveSecret
	case SlotTestPublic:
		return apikey.PrefixTestPublic
	default:
		return apikey.PrefixTestSecret
	}
}

// Mode returns the data partition this slot belongs to.
func (s KeySlot) Mode() apikey.Mode {
	if s == SlotTestPublic || s == SlotTestSecret {
		return apikey.Test
	}
	return apikey.Live
}

// Slots lists all four credential slots.
var Slots = []KeySlot{SlotLivePublic, SlotLiveSecret, SlotTestPublic, SlotTestSecret}

// KeyPair is the publishable/secret pair for one mode, returned by
// regeneration so the caller can show the new values exactly once.
type KeyPair struct {
	Public string
	Secret string
}

// Tenant represents one isolated customer organization.
type Tenant struct {
	ID          string // uuid
	Slug        string
	CompanyName string
	Email       string

	// Credential slots. Empty string means revoked.
	LivePublicKey string
	LiveSecretKey string
	TestPublicKey string
	TestSecretKey string

	// SigningSecret signs/verifies this tenant's dashboard tokens.
	SigningSecret []byte

	Active      bool
	DefaultMode apikey.Mode

	// Carried through unchanged; not interpreted by the identity core.
	WebhookURL         string
	WebhookSecret      string
	StripeAccountID    string
	StripeStatus       string
	PlatformFeePercent float64
	Metadata           map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the credential stored in the given slot.
func (t Tenant) Key(s KeySlot) string {
	switch s {
	case SlotLivePublic:
		return t.LivePublicKey
	case SlotLiveSecret:
		return t.LiveSecretKey
	case SlotTestPublic:
		return t.TestPublicKey
	default:
		return t.TestSecretKey
	}
}

// User is a dashboard login belonging to exactly one tenant.
type User struct {
	ID           string // uuid
	TenantID     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Active       bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}
