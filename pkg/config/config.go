package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env           string
	HTTPAddr      string // api-service
	DashboardAddr string // dashboard-service

	// Dashboard tokens
	TokenTTL time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string

	// Dev-only YAML tenant seed for the in-memory store
	SeedFile string

	CredentialCacheTTL time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                env("BILLGATE_ENV", "dev"),
		HTTPAddr:           env("BILLGATE_HTTP_ADDR", ":8080"),
		DashboardAddr:      env("BILLGATE_DASHBOARD_ADDR", ":8082"),
		TokenTTL:           envDur("TOKEN_TTL_SEC", 3600) * time.Second,
		RedisURL:           env("REDIS_URL", ""),
		DatabaseURL:        env("DATABASE_URL", ""),
		SeedFile:           env("TENANT_SEED_FILE", ""),
		CredentialCacheTTL: envDur("CREDENTIAL_CACHE_TTL_SEC", 60) * time.Second,
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory credential store for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i)
		}
		log.Printf("[WARN] %s=%q is not a positive integer; using %d", k, v, def)
	}
	return time.Duration(def)
}
