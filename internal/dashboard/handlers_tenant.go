package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"billgate/pkg/apikey"
	"billgate/pkg/problems"
	"billgate/pkg/scope"
	"billgate/pkg/tenants"
)

// handleRegister creates a tenant with all four credential slots, a webhook
// secret, a signing secret and an owner user. Secret keys are returned in
// full exactly once.
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CompanyName   string `json:"company_name"`
		Email         string `json:"email"`
		OwnerEmail    string `json:"owner_email"`
		OwnerPassword string `json:"owner_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		in.CompanyName == "" || in.Email == "" || in.OwnerEmail == "" || in.OwnerPassword == "" {
		problems.Write(w, http.StatusBadRequest, "invalid-request",
			"company_name, email, owner_email and owner_password are required")
		return
	}

	live, err := tenants.MintPair(apikey.Live)
	if err != nil {
		a.internal(w, "mint live keys", err)
		return
	}
	test, err := tenants.MintPair(apikey.Test)
	if err != nil {
		a.internal(w, "mint test keys", err)
		return
	}
	whSecret, err := apikey.Generate("whsec_")
	if err != nil {
		a.internal(w, "mint webhook secret", err)
		return
	}

	t := tenants.Tenant{
		ID:            uuid.NewString(),
		Slug:          a.uniqueSlug(r, in.CompanyName),
		CompanyName:   in.CompanyName,
		Email:         in.Email,
		LivePublicKey: live.Public,
		LiveSecretKey: live.Secret,
		TestPublicKey: test.Public,
		TestSecretKey: test.Secret,
		SigningSecret: tenants.NewSigningSecret(),
		Active:        true,
		DefaultMode:   apikey.Test,
		WebhookSecret: whSecret,
		StripeStatus:  "pending",
	}
	if err := a.store.CreateTenant(r.Context(), t); err != nil {
		a.internal(w, "create tenant", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		a.internal(w, "hash password", err)
		return
	}
	owner := tenants.User{
		ID:           uuid.NewString(),
		TenantID:     t.ID,
		Email:        in.OwnerEmail,
		PasswordHash: string(hash),
		Role:         tenants.RoleOwner,
		Active:       true,
	}
	if err := a.store.CreateUser(r.Context(), owner); err != nil {
		a.internal(w, "create owner", err)
		return
	}

	a.log.Infow("tenant registered", "tenant", t.ID, "slug", t.Slug)
	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant": map[string]any{"id": t.ID, "slug": t.Slug},
		"keys": map[string]string{
			"live_public": live.Public,
			"live_secret": live.Secret,
			"test_public": test.Public,
			"test_secret": test.Secret,
		},
		"webhook_secret": whSecret,
		"warning":        "Store secret keys now; they will be masked on every later read.",
	})
}

// handleSetActive soft-enables or disables the bound tenant. Disablement
// takes effect on the next authentication attempt; in-flight requests keep
// their bound context.
func (a *App) handleSetActive(w http.ResponseWriter, r *http.Request) {
	p, err := scope.Current(r.Context())
	if err != nil {
		a.internal(w, "missing principal", err)
		return
	}
	var in struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Active == nil {
		problems.Write(w, http.StatusBadRequest, "invalid-request", "active is required")
		return
	}
	if err := a.store.SetActive(r.Context(), p.Tenant.ID, *in.Active); err != nil {
		a.internal(w, "set active", err)
		return
	}
	a.log.Warnw("tenant activation changed", "tenant", p.Tenant.ID, "active", *in.Active)
	writeJSON(w, http.StatusOK, map[string]any{"active": *in.Active})
}

// handleSetWebhook stores the webhook target and mints a fresh secret.
func (a *App) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	p, err := scope.Current(r.Context())
	if err != nil {
		a.internal(w, "missing principal", err)
		return
	}
	var in struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.URL == "" {
		problems.Write(w, http.StatusBadRequest, "invalid-request", "url is required")
		return
	}
	secret, err := apikey.Generate("whsec_")
	if err != nil {
		a.internal(w, "mint webhook secret", err)
		return
	}
	if err := a.store.SetWebhook(r.Context(), p.Tenant.ID, in.URL, secret); err != nil {
		a.internal(w, "set webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": in.URL, "secret": secret})
}

func (a *App) uniqueSlug(r *http.Request, name string) string {
	base := slugify(name)
	slug := base
	for i := 0; i < 5; i++ {
		if _, err := a.store.GetTenantBySlug(r.Context(), slug); err != nil {
			return slug
		}
		slug = base + "-" + uuid.NewString()[:8]
	}
	return slug
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func (a *App) internal(w http.ResponseWriter, msg string, err error) {
	a.log.Errorw(msg, "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
