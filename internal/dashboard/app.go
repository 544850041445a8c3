// Package dashboard is the back-office API: tenant registration, login and
// credential lifecycle. Every mutating route is guarded; key rotation
// specifically demands the dashboard-token scheme so an API key can never
// rotate itself.
package dashboard

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"billgate/pkg/authn"
	"billgate/pkg/authz"
	"billgate/pkg/middleware"
	"billgate/pkg/tenants"
)

type Config struct {
	TokenTTL time.Duration
}

type App struct {
	log   *zap.SugaredLogger
	store tenants.Store
	auth  *authn.Authenticator
	cfg   Config
}

func New(log *zap.SugaredLogger, store tenants.Store, auth *authn.Authenticator, cfg Config) *App {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &App{log: log, store: store, auth: auth, cfg: cfg}
}

// Handler builds the dashboard router.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.Metrics())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Public: registration and login happen before any principal exists.
	r.Post("/v1/tenants/register", a.handleRegister)
	r.Post("/v1/auth/login", a.handleLogin)

	// Protected credential lifecycle.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Authenticate(a.auth))
		pr.With(middleware.Require(a.log, authz.RoleAtLeast(tenants.RoleAdmin))).
			Get("/v1/api-keys", a.handleListKeys)
		pr.With(middleware.Require(a.log,
			authz.RoleAtLeast(tenants.RoleOwner),
			authz.SchemeIs(authn.SchemeDashboard))).
			Post("/v1/api-keys/regenerate", a.handleRegenerateKeys)
		pr.With(middleware.Require(a.log,
			authz.RoleAtLeast(tenants.RoleOwner),
			authz.SchemeIs(authn.SchemeDashboard))).
			Post("/v1/api-keys/revoke", a.handleRevokeKeys)
		pr.With(middleware.Require(a.log,
			authz.RoleAtLeast(tenants.RoleAdmin),
			authz.SchemeIs(authn.SchemeDashboard))).
			Put("/v1/webhook", a.handleSetWebhook)
		pr.With(middleware.Require(a.log,
			authz.RoleAtLeast(tenants.RoleOwner),
			authz.SchemeIs(authn.SchemeDashboard))).
			Post("/v1/tenants/active", a.handleSetActive)
	})
	return r
}
