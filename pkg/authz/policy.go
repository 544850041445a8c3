// Package authz evaluates role/mode/scheme policies against a bound Principal.
package authz

import (
	"fmt"

	"billgate/pkg/apikey"
	"billgate/pkg/authn"
	"billgate/pkg/tenants"
)

// Policy is one authorization clause. Evaluation is pure; composition is
// logical AND via All.
type Policy interface {
	// Allow reports whether the principal satisfies the clause.
	Allow(p *authn.Principal) bool
	// Category names the clause kind (role/mode/scheme) for the 403
	// response. Internal detail stays out of it.
	Category() string
	fmt.Stringer
}

// ForbiddenError identifies the first failing clause. The String form is
// for logs; clients only ever see the Category.
type ForbiddenError struct {
	Clause Policy
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Clause.String()
}

// Require evaluates policies in order, short-circuiting on the first
// failure. Composite policies are flattened so the reported clause is the
// innermost failing one.
func Require(p *authn.Principal, policies ...Policy) error {
	for _, pol := range policies {
		if a, ok := pol.(allOf); ok {
			if err := Require(p, a...); err != nil {
				return err
			}
			continue
		}
		if !pol.Allow(p) {
			return &ForbiddenError{Clause: pol}
		}
	}
	return nil
}

// RoleAtLeast is satisfied when a dashboard user with role >= min is
// attached. Pure API-key principals carry no role and always fail.
func RoleAtLeast(min tenants.Role) Policy { return roleAtLeast{min} }

type roleAtLeast struct{ min tenants.Role }

func (r roleAtLeast) Allow(p *authn.Principal) bool {
	return p.HasUser() && p.Role >= r.min
}
func (r roleAtLeast) Category() string { return "role" }
func (r roleAtLeast) String() string   { return "role_at_least(" + r.min.String() + ")" }

// ModeIs is satisfied when the principal's resolved mode equals m.
func ModeIs(m apikey.Mode) Policy { return modeIs{m} }

type modeIs struct{ m apikey.Mode }

func (c modeIs) Allow(p *authn.Principal) bool { return p != nil && p.Mode == c.m }
func (c modeIs) Category() string              { return "mode" }
func (c modeIs) String() string                { return "mode_is(" + c.m.String() + ")" }

// SchemeIs is satisfied when the principal authenticated with scheme s.
// Key rotation, for example, demands the dashboard scheme so an API key
// cannot rotate itself.
func SchemeIs(s authn.Scheme) Policy { return schemeIs{s} }

type schemeIs struct{ s authn.Scheme }

func (c schemeIs) Allow(p *authn.Principal) bool { return p != nil && p.Scheme == c.s }
func (c schemeIs) Category() string              { return "scheme" }
func (c schemeIs) String() string                { return "scheme_is(" + c.s.String() + ")" }

// All composes clauses into a single AND policy.
func All(policies ...Policy) Policy { return allOf(policies) }

type allOf []Policy

func (a allOf) Allow(p *authn.Principal) bool {
	for _, pol := range a {
		if !pol.Allow(p) {
			return false
		}
	}
	return true
}

func (a allOf) Category() string {
	for _, pol := range a {
		return pol.Category()
	}
	return "policy"
}

func (a allOf) String() string {
	s := "all("
	for i, pol := range a {
		if i > 0 {
			s += ","
		}
		s += pol.String()
	}
	return s + ")"
}
