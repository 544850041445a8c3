package middleware

import (
	"net/http"
	"strings"

	"billgate/pkg/authn"
	"billgate/pkg/scope"
)

// Authenticate resolves the request's credentials and binds the resulting
// principal into the request context. Every failure is a bare 401; the
// reason stays in the logs so credentials cannot be probed one check at a
// time. Health, metrics and other public paths pass through unbound.
func Authenticate(a *authn.Authenticator, public ...string) func(http.Handler) http.Handler {
	skip := map[string]struct{}{"/healthz": {}, "/metrics": {}}
	for _, p := range public {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok || strings.HasPrefix(r.URL.Path, "/.well-known/") {
				next.ServeHTTP(w, r)
				return
			}
			p, err := a.Authenticate(r.Context(), r.Header)
			if err != nil {
				authFailures.WithLabelValues("authenticate").Inc()
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(scope.Bind(r.Context(), p)))
		})
	}
}
