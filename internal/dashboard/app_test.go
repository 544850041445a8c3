package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"billgate/pkg/apikey"
	"billgate/pkg/authn"
	"billgate/pkg/tenants"
)

func newApp(t *testing.T) (*App, tenants.Store) {
	t.Helper()
	store := tenants.NewMemoryStore()
	auth := authn.NewAuthenticator(authn.NewResolver(store), zap.NewNop().Sugar())
	return New(zap.NewNop().Sugar(), store, auth, Config{TokenTTL: time.Hour}), store
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func register(t *testing.T, h http.Handler) (tenantID, slug string, keys map[string]string) {
	t.Helper()
	rec, out := doJSON(t, h, http.MethodPost, "/v1/tenants/register", "", map[string]any{
		"company_name":   "Acme Corp",
		"email":          "billing@acme.test",
		"owner_email":    "owner@acme.test",
		"owner_password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tn := out["tenant"].(map[string]any)
	keys = map[string]string{}
	for k, v := range out["keys"].(map[string]any) {
		keys[k] = v.(string)
	}
	return tn["id"].(string), tn["slug"].(string), keys
}

func login(t *testing.T, h http.Handler, slug, email, password string) string {
	t.Helper()
	rec, out := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"tenant": slug, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return out["token"].(string)
}

func TestRegisterMintsFullCredentialSet(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()

	id, slug, keys := register(t, h)
	assert.Equal(t, "acme-corp", slug)

	for name, prefix := range map[string]string{
		"live_public": apikey.PrefixLivePublic,
		"live_secret": apikey.PrefixLiveSecret,
		"test_public": apikey.PrefixTestPublic,
		"test_secret": apikey.PrefixTestSecret,
	} {
		assert.True(t, strings.HasPrefix(keys[name], prefix), name)
	}

	tn, err := store.GetTenant(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, tn.Active)
	assert.NotEmpty(t, tn.SigningSecret)
	assert.True(t, strings.HasPrefix(tn.WebhookSecret, "whsec_"))
}

func TestRegisterValidation(t *testing.T) {
	app, _ := newApp(t)
	rec, _ := doJSON(t, app.Handler(), http.MethodPost, "/v1/tenants/register", "", map[string]any{
		"company_name": "Acme",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	app, _ := newApp(t)
	h := app.Handler()
	_, slug, _ := register(t, h)

	tok := login(t, h, slug, "owner@acme.test", "hunter2hunter2")

	rec, out := doJSON(t, h, http.MethodGet, "/v1/api-keys", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	masked := map[string]bool{}
	for _, e := range out["keys"].([]any) {
		entry := e.(map[string]any)
		masked[entry["type"].(string)] = entry["masked"].(bool)
		if entry["masked"].(bool) {
			assert.Contains(t, entry["key"], "****...")
		}
	}
	assert.False(t, masked["live_public"])
	assert.True(t, masked["live_secret"])
	assert.False(t, masked["test_public"])
	assert.True(t, masked["test_secret"])
}

func TestLoginFailuresAreUniform(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()
	id, slug, _ := register(t, h)

	hash, err := bcrypt.GenerateFromPassword([]byte("offpass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), tenants.User{
		ID: "u-off", TenantID: id, Email: "off@acme.test",
		PasswordHash: string(hash), Role: tenants.RoleAdmin, Active: false,
	}))

	// Unknown tenant, unknown user, wrong password and deactivated user
	// all produce the same response.
	for _, in := range []map[string]any{
		{"tenant": "no-such", "email": "owner@acme.test", "password": "hunter2hunter2"},
		{"tenant": slug, "email": "who@acme.test", "password": "hunter2hunter2"},
		{"tenant": slug, "email": "owner@acme.test", "password": "wrong"},
		{"tenant": slug, "email": "off@acme.test", "password": "offpass"},
	} {
		rec, _ := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", in)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials\n", rec.Body.String())
	}
}

func TestRegenerateRequiresDashboardScheme(t *testing.T) {
	app, _ := newApp(t)
	h := app.Handler()
	_, _, keys := register(t, h)

	// A live secret key authenticates but cannot rotate itself.
	req := httptest.NewRequest(http.MethodPost, "/v1/api-keys/regenerate",
		strings.NewReader(`{"mode":"live","confirm":true}`))
	req.Header.Set("X-API-Key", keys["live_secret"])
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden: role\n", rec.Body.String())
}

func TestRegenerateInvalidatesOldKeys(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()
	id, slug, keys := register(t, h)
	tok := login(t, h, slug, "owner@acme.test", "hunter2hunter2")

	rec, out := doJSON(t, h, http.MethodPost, "/v1/api-keys/regenerate", tok,
		map[string]any{"mode": "live", "confirm": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fresh := out["keys"].(map[string]any)
	assert.NotEqual(t, keys["live_secret"], fresh["live_secret"])

	_, err := store.LookupByAPIKey(context.Background(), keys["live_secret"])
	assert.ErrorIs(t, err, tenants.ErrNotFound)

	tn, err := store.LookupByAPIKey(context.Background(), fresh["live_secret"].(string))
	require.NoError(t, err)
	assert.Equal(t, id, tn.ID)

	// Test-mode pair is untouched.
	_, err = store.LookupByAPIKey(context.Background(), keys["test_secret"])
	assert.NoError(t, err)
}

func TestRegenerateDemandsConfirmation(t *testing.T) {
	app, _ := newApp(t)
	h := app.Handler()
	_, slug, _ := register(t, h)
	tok := login(t, h, slug, "owner@acme.test", "hunter2hunter2")

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/api-keys/regenerate", tok,
		map[string]any{"mode": "live"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/api-keys/regenerate", tok,
		map[string]any{"mode": "production", "confirm": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevokeDisablesMode(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()
	_, slug, keys := register(t, h)
	tok := login(t, h, slug, "owner@acme.test", "hunter2hunter2")

	rec, out := doJSON(t, h, http.MethodPost, "/v1/api-keys/revoke", tok,
		map[string]any{"mode": "test", "confirm": true, "reason": "leaked in CI logs"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []any{"test_public", "test_secret"}, out["revoked"].([]any))

	_, err := store.LookupByAPIKey(context.Background(), keys["test_secret"])
	assert.ErrorIs(t, err, tenants.ErrNotFound)
	_, err = store.LookupByAPIKey(context.Background(), keys["live_secret"])
	assert.NoError(t, err)
}

func TestNonOwnerCannotRotate(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()
	id, slug, _ := register(t, h)

	hash, err := bcrypt.GenerateFromPassword([]byte("devpass123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), tenants.User{
		ID: "u-dev", TenantID: id, Email: "dev@acme.test",
		PasswordHash: string(hash), Role: tenants.RoleDeveloper, Active: true,
	}))
	tok := login(t, h, slug, "dev@acme.test", "devpass123")

	// Developers may not even list keys; admins can, owners rotate.
	rec, _ := doJSON(t, h, http.MethodGet, "/v1/api-keys", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/api-keys/regenerate", tok,
		map[string]any{"mode": "all", "confirm": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetActiveRoundTrip(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()
	id, slug, _ := register(t, h)
	tok := login(t, h, slug, "owner@acme.test", "hunter2hunter2")

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/tenants/active", tok,
		map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)

	tn, err := store.GetTenant(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, tn.Active)

	// The disabled tenant cannot log in again.
	rec, _ = doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"tenant": slug, "email": "owner@acme.test", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetWebhookMintsSecret(t *testing.T) {
	app, store := newApp(t)
	h := app.Handler()
	id, slug, _ := register(t, h)
	tok := login(t, h, slug, "owner@acme.test", "hunter2hunter2")

	rec, out := doJSON(t, h, http.MethodPut, "/v1/webhook", tok,
		map[string]any{"url": "https://acme.test/hooks/billing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(out["secret"].(string), "whsec_"))

	tn, err := store.GetTenant(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test/hooks/billing", tn.WebhookURL)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-corp", slugify("  Acme  Corp  "))
	assert.Equal(t, "acme-42", slugify("Acme, #42!"))
	assert.Equal(t, "", slugify("!!!"))
}
