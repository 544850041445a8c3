package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billgate/pkg/apikey"
	"billgate/pkg/authn"
	"billgate/pkg/tenants"
)

func dashboardPrincipal(role tenants.Role, mode apikey.Mode) *authn.Principal {
	return &authn.Principal{
		Tenant: tenants.Tenant{ID: "t-1", Active: true},
		User:   &tenants.User{ID: "u-1", TenantID: "t-1", Role: role},
		Mode:   mode,
		Role:   role,
		Scheme: authn.SchemeDashboard,
	}
}

func apiKeyPrincipal(mode apikey.Mode) *authn.Principal {
	return &authn.Principal{
		Tenant: tenants.Tenant{ID: "t-1", Active: true},
		Mode:   mode,
		Scheme: authn.SchemeAPIKey,
	}
}

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		have, min tenants.Role
		allow     bool
	}{
		{tenants.RoleDeveloper, tenants.RoleDeveloper, true},
		{tenants.RoleDeveloper, tenants.RoleAdmin, false},
		{tenants.RoleDeveloper, tenants.RoleOwner, false},
		{tenants.RoleAdmin, tenants.RoleDeveloper, true},
		{tenants.RoleAdmin, tenants.RoleAdmin, true},
		{tenants.RoleAdmin, tenants.RoleOwner, false},
		{tenants.RoleOwner, tenants.RoleOwner, true},
		{tenants.RoleOwner, tenants.RoleDeveloper, true},
	}
	for _, c := range cases {
		err := Require(dashboardPrincipal(c.have, apikey.Live), RoleAtLeast(c.min))
		if c.allow {
			assert.NoError(t, err, "%s >= %s", c.have, c.min)
		} else {
			assert.Error(t, err, "%s >= %s", c.have, c.min)
		}
	}
}

func TestRoleAtLeastRejectsAPIKeyPrincipal(t *testing.T) {
	// API-key principals carry no user, so even the lowest role bar fails.
	err := Require(apiKeyPrincipal(apikey.Live), RoleAtLeast(tenants.RoleDeveloper))
	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "role", fe.Clause.Category())
}

func TestModeIs(t *testing.T) {
	assert.NoError(t, Require(apiKeyPrincipal(apikey.Test), ModeIs(apikey.Test)))

	err := Require(apiKeyPrincipal(apikey.Live), ModeIs(apikey.Test))
	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "mode", fe.Clause.Category())
}

func TestSchemeIs(t *testing.T) {
	assert.NoError(t, Require(dashboardPrincipal(tenants.RoleOwner, apikey.Live), SchemeIs(authn.SchemeDashboard)))

	// A matching tenant and mode do not rescue a wrong scheme.
	err := Require(apiKeyPrincipal(apikey.Live), SchemeIs(authn.SchemeDashboard))
	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "scheme", fe.Clause.Category())
}

func TestRequireShortCircuits(t *testing.T) {
	p := apiKeyPrincipal(apikey.Live)
	err := Require(p,
		SchemeIs(authn.SchemeDashboard), // fails first
		RoleAtLeast(tenants.RoleOwner),  // would also fail
		ModeIs(apikey.Test),
	)
	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "scheme", fe.Clause.Category())
	assert.Equal(t, "scheme_is(dashboard_token)", fe.Clause.String())
}

func TestRequireAllClausesPass(t *testing.T) {
	p := dashboardPrincipal(tenants.RoleOwner, apikey.Live)
	assert.NoError(t, Require(p,
		SchemeIs(authn.SchemeDashboard),
		RoleAtLeast(tenants.RoleAdmin),
		ModeIs(apikey.Live),
	))
}

func TestAllFlattensToInnermostClause(t *testing.T) {
	p := dashboardPrincipal(tenants.RoleDeveloper, apikey.Live)
	composite := All(SchemeIs(authn.SchemeDashboard), RoleAtLeast(tenants.RoleOwner))

	err := Require(p, composite)
	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	// The reported clause is the failing leaf, not the composite.
	assert.Equal(t, "role", fe.Clause.Category())
	assert.Equal(t, "role_at_least(owner)", fe.Clause.String())
}

func TestAllAsPlainPolicy(t *testing.T) {
	p := dashboardPrincipal(tenants.RoleOwner, apikey.Test)
	composite := All(RoleAtLeast(tenants.RoleAdmin), ModeIs(apikey.Test))
	assert.True(t, composite.Allow(p))
	assert.False(t, composite.Allow(apiKeyPrincipal(apikey.Test)))
}

func TestForbiddenErrorMessage(t *testing.T) {
	err := &ForbiddenError{Clause: RoleAtLeast(tenants.RoleAdmin)}
	assert.Equal(t, "forbidden: role_at_least(admin)", err.Error())
}
