package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billgate/internal/customers"
	"billgate/pkg/authn"
	"billgate/pkg/config"
	pdb "billgate/pkg/db"
	"billgate/pkg/logger"
	"billgate/pkg/middleware"
	"billgate/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	pool := pdb.MustConnect(cfg, log)
	rdb := pdb.MustRedis(cfg, log)

	var store tenants.Store
	if pool != nil {
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		store = tenants.NewPostgresStore(pool, log)
	} else {
		store = tenants.NewMemoryStore()
	}
	if rdb != nil {
		store = tenants.NewCachedStore(store, rdb, cfg.CredentialCacheTTL, log)
	}
	if cfg.SeedFile != "" {
		if err := tenants.SeedFromFile(context.Background(), store, cfg.SeedFile); err != nil {
			log.Fatalw("seed", "err", err)
		}
	}

	auth := authn.NewAuthenticator(authn.NewResolver(store), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing("billgate-api"))
	r.Use(middleware.Metrics())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Authenticate(auth))
	r.Use(middleware.Usage(pool, log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if pool != nil {
		gw := pdb.NewGateway(pool, log)
		customers.RegisterHTTP(r, customers.NewRepo(gw), log)
	} else {
		log.Warnw("customer routes disabled: DATABASE_URL not set")
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infow("api-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Infow("api-service stopped")
}
