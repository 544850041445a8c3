package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billgate/internal/dashboard"
	"billgate/pkg/authn"
	"billgate/pkg/config"
	pdb "billgate/pkg/db"
	"billgate/pkg/logger"
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
	app := dashboard.New(log, store, auth, dashboard.Config{TokenTTL: cfg.TokenTTL})

	srv := &http.Server{Addr: cfg.DashboardAddr, Handler: app.Handler()}
	go func() {
		log.Infow("dashboard-service listening", "addr", cfg.DashboardAddr)
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
	log.Infow("dashboard-service stopped")
}
