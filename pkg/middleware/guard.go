package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"billgate/pkg/authz"
	"billgate/pkg/scope"
)

// Require guards a route with authorization policies. The 403 names only
// the failed policy category; the exact clause goes to the log. A missing
// binding here means the pipeline skipped authentication, which is a
// server bug, not a client error.
func Require(log *zap.SugaredLogger, policies ...authz.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := scope.Current(r.Context())
			if err != nil {
				log.Errorw("authorization check without bound principal", "path", r.URL.Path)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if err := authz.Require(p, policies...); err != nil {
				var fe *authz.ForbiddenError
				if errors.As(err, &fe) {
					authFailures.WithLabelValues("authorize").Inc()
					log.Infow("forbidden", "clause", fe.Clause.String(), "tenant", p.Tenant.ID, "path", r.URL.Path)
					http.Error(w, "forbidden: "+fe.Clause.Category(), http.StatusForbidden)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
