package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"billgate/pkg/apikey"
	"billgate/pkg/authn"
	"billgate/pkg/authz"
	"billgate/pkg/scope"
	"billgate/pkg/tenants"
)

func newTenant(t *testing.T, store tenants.Store) tenants.Tenant {
	t.Helper()
	live, err := tenants.MintPair(apikey.Live)
	require.NoError(t, err)
	test, err := tenants.MintPair(apikey.Test)
	require.NoError(t, err)
	tn := tenants.Tenant{
		ID:            "11111111-1111-4111-8111-111111111111",
		Slug:          "acme",
		LivePublicKey: live.Public,
		LiveSecretKey: live.Secret,
		TestPublicKey: test.Public,
		TestSecretKey: test.Secret,
		SigningSecret: tenants.NewSigningSecret(),
		Active:        true,
	}
	require.NoError(t, store.CreateTenant(context.Background(), tn))
	return tn
}

// echoTenant writes the bound tenant id, or 500 when nothing is bound.
func echoTenant(w http.ResponseWriter, r *http.Request) {
	id, err := scope.TenantID(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(id))
}

func authHandler(store tenants.Store, public ...string) http.Handler {
	a := authn.NewAuthenticator(authn.NewResolver(store), zap.NewNop().Sugar())
	return Authenticate(a, public...)(http.HandlerFunc(echoTenant))
}

func TestAuthenticateBindsPrincipal(t *testing.T) {
	store := tenants.NewMemoryStore()
	tn := newTenant(t, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+tn.LiveSecretKey)
	rec := httptest.NewRecorder()
	authHandler(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tn.ID, rec.Body.String())
}

func TestAuthenticateRejectsWithGeneric401(t *testing.T) {
	store := tenants.NewMemoryStore()
	tn := newTenant(t, store)
	require.NoError(t, store.SetActive(context.Background(), tn.ID, false))

	unknown, err := apikey.Generate(apikey.PrefixLiveSecret)
	require.NoError(t, err)

	// Missing, unknown, malformed and disabled all produce the same body.
	for _, set := range []func(h http.Header){
		func(h http.Header) {},
		func(h http.Header) { h.Set("X-API-Key", unknown) },
		func(h http.Header) { h.Set("X-API-Key", "sk_live_nope") },
		func(h http.Header) { h.Set("Authorization", "Bearer "+tn.LiveSecretKey) },
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
		set(req.Header)
		rec := httptest.NewRecorder()
		authHandler(store).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized\n", rec.Body.String())
	}
}

func TestAuthenticatePublicPathsPassUnbound(t *testing.T) {
	store := tenants.NewMemoryStore()
	var bound bool
	h := Authenticate(
		authn.NewAuthenticator(authn.NewResolver(store), zap.NewNop().Sugar()),
		"/v1/register",
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := scope.Current(r.Context())
		bound = err == nil
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/metrics", "/.well-known/jwks.json", "/v1/register"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.False(t, bound, path)
	}
}

func TestRequireForbidsWithCategory(t *testing.T) {
	store := tenants.NewMemoryStore()
	tn := newTenant(t, store)
	a := authn.NewAuthenticator(authn.NewResolver(store), zap.NewNop().Sugar())

	h := Authenticate(a)(
		Require(zap.NewNop().Sugar(), authz.RoleAtLeast(tenants.RoleOwner))(
			http.HandlerFunc(echoTenant)))

	// API-key principal carries no role.
	req := httptest.NewRequest(http.MethodPost, "/v1/keys/regenerate", nil)
	req.Header.Set("X-API-Key", tn.LiveSecretKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden: role\n", rec.Body.String())
}

func TestRequireAllowsThrough(t *testing.T) {
	store := tenants.NewMemoryStore()
	tn := newTenant(t, store)
	u := tenants.User{ID: "u-1", TenantID: tn.ID, Email: "o@acme.test", Role: tenants.RoleOwner, Active: true}
	require.NoError(t, store.CreateUser(context.Background(), u))

	tok, err := authn.SignDashboardToken(tn, u, apikey.Live, time.Hour)
	require.NoError(t, err)

	a := authn.NewAuthenticator(authn.NewResolver(store), zap.NewNop().Sugar())
	h := Authenticate(a)(
		Require(zap.NewNop().Sugar(),
			authz.RoleAtLeast(tenants.RoleOwner),
			authz.SchemeIs(authn.SchemeDashboard))(
			http.HandlerFunc(echoTenant)))

	req := httptest.NewRequest(http.MethodPost, "/v1/keys/regenerate", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tn.ID, rec.Body.String())
}

func TestRequireWithoutBindingIsServerError(t *testing.T) {
	h := Require(zap.NewNop().Sugar(), authz.ModeIs(apikey.Live))(http.HandlerFunc(echoTenant))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
