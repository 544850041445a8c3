package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billgate/pkg/scope"
)

// Usage records one usage_events row per authenticated request. Recording
// is best-effort and happens after the response is written; it never blocks
// or fails the request. Unauthenticated requests leave no row.
func Usage(pool *pgxpool.Pool, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if pool == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			p, err := scope.Current(r.Context())
			if err != nil {
				return
			}
			actor := ""
			if p.HasUser() {
				actor = p.User.ID
			}
			// The request context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err = pool.Exec(ctx, `INSERT INTO usage_events
			  (tenant_id,method,path,mode,scheme,actor,request_id,status_code,duration_ms,started_at)
			  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				p.Tenant.ID, r.Method, r.URL.Path, p.Mode.String(), p.Scheme.String(),
				actor, RequestIDFrom(r.Context()), rec.status,
				time.Since(start).Milliseconds(), start)
			if err != nil {
				log.Warnw("usage event insert failed", "err", err)
			}
		})
	}
}
