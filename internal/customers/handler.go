package customers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"billgate/pkg/problems"
	"billgate/pkg/scope"
)

// RegisterHTTP mounts customer routes. The router is expected to sit behind
// the authentication middleware; list/create need no extra policy beyond a
// bound principal.
func RegisterHTTP(r chi.Router, repo *Repo, log *zap.SugaredLogger) {
	r.Get("/v1/customers", func(w http.ResponseWriter, req *http.Request) {
		out, err := repo.List(req.Context())
		if err != nil {
			writeErr(w, log, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"customers": out})
	})

	r.Post("/v1/customers", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.Email == "" {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "email is required")
			return
		}
		c, err := repo.Create(req.Context(), in.Email, in.Name)
		if err != nil {
			writeErr(w, log, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(c)
	})
}

func writeErr(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	if errors.Is(err, scope.ErrNoActiveContext) {
		// Missing authentication step; surfaced loudly by the gateway.
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	log.Errorw("customers query failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
