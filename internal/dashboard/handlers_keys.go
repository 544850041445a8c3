package dashboard

import (
	"encoding/json"
	"net/http"

	"billgate/pkg/apikey"
	"billgate/pkg/problems"
	"billgate/pkg/scope"
	"billgate/pkg/tenants"
)

// handleListKeys returns the tenant's credentials with secrets masked.
func (a *App) handleListKeys(w http.ResponseWriter, r *http.Request) {
	p, err := scope.Current(r.Context())
	if err != nil {
		a.internal(w, "missing principal", err)
		return
	}
	// Re-fetch so a just-regenerated pair is reflected.
	t, err := a.store.GetTenant(r.Context(), p.Tenant.ID)
	if err != nil {
		a.internal(w, "load tenant", err)
		return
	}
	type entry struct {
		Type   string `json:"type"`
		Key    string `json:"key"`
		Masked bool   `json:"masked"`
	}
	var keys []entry
	for _, s := range tenants.Slots {
		v := t.Key(s)
		if v == "" {
			keys = append(keys, entry{Type: s.String(), Key: "", Masked: false})
			continue
		}
		if s == tenants.SlotLiveSecret || s == tenants.SlotTestSecret {
			keys = append(keys, entry{Type: s.String(), Key: apikey.Mask(v), Masked: true})
		} else {
			keys = append(keys, entry{Type: s.String(), Key: v, Masked: false})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":    keys,
		"warning": "Secret keys are masked. Store them securely when first generated.",
	})
}

type keyMutation struct {
	Mode    string `json:"mode"` // live | test | all
	Confirm bool   `json:"confirm"`
}

func (m keyMutation) modes() []apikey.Mode {
	switch m.Mode {
	case "live":
		return []apikey.Mode{apikey.Live}
	case "test":
		return []apikey.Mode{apikey.Test}
	case "all", "":
		return []apikey.Mode{apikey.Live, apikey.Test}
	}
	return nil
}

// handleRegenerateKeys atomically replaces the selected slots. Old values
// stop authenticating the moment the store update lands.
func (a *App) handleRegenerateKeys(w http.ResponseWriter, r *http.Request) {
	p, err := scope.Current(r.Context())
	if err != nil {
		a.internal(w, "missing principal", err)
		return
	}
	var in keyMutation
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		problems.Write(w, http.StatusBadRequest, "invalid-request", "malformed body")
		return
	}
	if !in.Confirm {
		problems.Write(w, http.StatusBadRequest, "confirmation-required",
			`set "confirm": true to regenerate keys; old keys are invalidated immediately`)
		return
	}
	modes := in.modes()
	if modes == nil {
		problems.Write(w, http.StatusBadRequest, "invalid-request", `mode must be "live", "test" or "all"`)
		return
	}

	out := map[string]string{}
	for _, m := range modes {
		pair, err := a.store.RegenerateKeys(r.Context(), p.Tenant.ID, m)
		if err != nil {
			a.internal(w, "regenerate keys", err)
			return
		}
		out[m.String()+"_public"] = pair.Public
		out[m.String()+"_secret"] = pair.Secret
	}
	a.log.Warnw("api keys regenerated", "tenant", p.Tenant.ID, "mode", in.Mode, "actor", p.User.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":    out,
		"warning": "Old keys have been invalidated. Update your integrations immediately.",
	})
}

// handleRevokeKeys clears the selected slots without minting replacements,
// for security incidents ahead of a regenerate.
func (a *App) handleRevokeKeys(w http.ResponseWriter, r *http.Request) {
	p, err := scope.Current(r.Context())
	if err != nil {
		a.internal(w, "missing principal", err)
		return
	}
	var in struct {
		keyMutation
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		problems.Write(w, http.StatusBadRequest, "invalid-request", "malformed body")
		return
	}
	if !in.Confirm {
		problems.Write(w, http.StatusBadRequest, "confirmation-required",
			`set "confirm": true to revoke keys; API access stops until regeneration`)
		return
	}
	modes := in.modes()
	if modes == nil {
		problems.Write(w, http.StatusBadRequest, "invalid-request", `mode must be "live", "test" or "all"`)
		return
	}

	var revoked []string
	for _, m := range modes {
		if err := a.store.RevokeKeys(r.Context(), p.Tenant.ID, m); err != nil {
			a.internal(w, "revoke keys", err)
			return
		}
		revoked = append(revoked, m.String()+"_public", m.String()+"_secret")
	}
	a.log.Warnw("api keys revoked", "tenant", p.Tenant.ID, "mode", in.Mode, "reason", in.Reason, "actor", p.User.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"revoked": revoked,
		"warning": "API access is disabled for the revoked mode until keys are regenerated.",
	})
}
