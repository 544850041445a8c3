package dashboard

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"billgate/pkg/authn"
	"billgate/pkg/problems"
)

// handleLogin verifies an email/password pair for a tenant and issues a
// signed dashboard token. The response for any failure is identical so the
// endpoint cannot confirm which part was wrong.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Tenant   string `json:"tenant"` // slug
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		in.Tenant == "" || in.Email == "" || in.Password == "" {
		problems.Write(w, http.StatusBadRequest, "invalid-request",
			"tenant, email and password are required")
		return
	}

	deny := func() {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}

	t, err := a.store.GetTenantBySlug(r.Context(), in.Tenant)
	if err != nil || !t.Active {
		deny()
		return
	}
	u, err := a.store.GetUserByEmail(r.Context(), t.ID, in.Email)
	if err != nil || !u.Active {
		deny()
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		deny()
		return
	}

	token, err := authn.SignDashboardToken(t, u, t.DefaultMode, a.cfg.TokenTTL)
	if err != nil {
		a.internal(w, "sign token", err)
		return
	}
	if err := a.store.TouchUserLogin(r.Context(), u.ID); err != nil {
		a.log.Warnw("touch last login failed", "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(a.cfg.TokenTTL.Seconds()),
		"user": map[string]any{
			"id":    u.ID,
			"email": u.Email,
			"role":  u.Role.String(),
		},
	})
}
