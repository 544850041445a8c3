// Package authn resolves inbound credentials into a request-scoped Principal.
package authn

import (
	"billgate/pkg/apikey"
	"billgate/pkg/tenants"
)

// Scheme is the closed set of authentication mechanisms. Policy checks
// switch exhaustively on it rather than comparing header strings.
type Scheme uint8

const (
	SchemeAPIKey Scheme = iota
	SchemeDashboard
)

func (s Scheme) String() string {
	if s == SchemeDashboard {
		return "dashboard_token"
	}
	return "api_key"
}

// Principal is the fully-resolved identity acting for one request. It is
// constructed once by Authenticate, bound into the request scope, and
// discarded at request end; it must never be cached or shared across
// requests.
type Principal struct {
	Tenant tenants.Tenant
	// User is present only for dashboard-token authentication.
	User *tenants.User
	Mode apikey.Mode
	// Role is meaningful only when User is non-nil. Pure API-key
	// principals have no role and fail every role policy.
	Role   tenants.Role
	Scheme Scheme
}

// HasUser reports whether a dashboard user is attached.
func (p *Principal) HasUser() bool { return p != nil && p.User != nil }
