package tenants

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billgate/pkg/apikey"
)

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresStore constructs a PostgreSQL-backed credential store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tenants (
  id uuid PRIMARY KEY,
  slug text UNIQUE NOT NULL,
  company_name text NOT NULL,
  email text UNIQUE NOT NULL,
  live_public_key text UNIQUE,
  live_secret_key text UNIQUE,
  test_public_key text UNIQUE,
  test_secret_key text UNIQUE,
  signing_secret bytea NOT NULL,
  active boolean NOT NULL DEFAULT true,
  default_mode text NOT NULL DEFAULT 'test',
  webhook_url text DEFAULT '',
  webhook_secret text DEFAULT '',
  stripe_account_id text DEFAULT '',
  stripe_status text DEFAULT 'pending',
  platform_fee_percent numeric(5,2) NOT NULL DEFAULT 15.00,
  metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS tenant_users (
  id uuid PRIMARY KEY,
  tenant_id uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  email text NOT NULL,
  password_hash text NOT NULL,
  first_name text DEFAULT '',
  last_name text DEFAULT '',
  role text NOT NULL DEFAULT 'developer',
  active boolean NOT NULL DEFAULT true,
  last_login timestamptz,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  UNIQUE (tenant_id, email)
);
CREATE TABLE IF NOT EXISTS customers (
  id uuid PRIMARY KEY,
  tenant_id uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  email text NOT NULL,
  name text DEFAULT '',
  livemode boolean NOT NULL DEFAULT false,
  created_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS customers_tenant_mode_idx ON customers(tenant_id, livemode);
CREATE TABLE IF NOT EXISTS usage_events (
  id BIGSERIAL PRIMARY KEY,
  tenant_id uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
  method text,
  path text,
  mode text,
  scheme text,
  actor text,
  request_id text,
  status_code int,
  duration_ms int,
  started_at timestamptz NOT NULL DEFAULT NOW()
);
-- Row-level security: every tenant-scoped table is filtered by the
-- app.tenant_id setting established per transaction by the data gateway.
ALTER TABLE customers ENABLE ROW LEVEL SECURITY;
DO $$
BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE tablename='customers' AND policyname='customers_tenant_isolation') THEN
    CREATE POLICY customers_tenant_isolation ON customers
      USING (tenant_id = current_setting('app.tenant_id')::uuid);
  END IF;
END $$;
`)
	return err
}

const tenantCols = `id,slug,company_name,email,
  COALESCE(live_public_key,''),COALESCE(live_secret_key,''),
  COALESCE(test_public_key,''),COALESCE(test_secret_key,''),
  signing_secret,active,default_mode,
  COALESCE(webhook_url,''),COALESCE(webhook_secret,''),
  COALESCE(stripe_account_id,''),COALESCE(stripe_status,''),
  platform_fee_percent,metadata,created_at,updated_at`

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	var mode string
	var metaJSON []byte
	if err := row.Scan(&t.ID, &t.Slug, &t.CompanyName, &t.Email,
		&t.LivePublicKey, &t.LiveSecretKey, &t.TestPublicKey, &t.TestSecretKey,
		&t.SigningSecret, &t.Active, &mode,
		&t.WebhookURL, &t.WebhookSecret,
		&t.StripeAccountID, &t.StripeStatus,
		&t.PlatformFeePercent, &metaJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	if m, ok := apikey.ParseMode(mode); ok {
		t.DefaultMode = m
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &t.Metadata)
	}
	return t, nil
}

func (p *pgStore) LookupByAPIKey(ctx context.Context, raw string) (Tenant, error) {
	if raw == "" {
		return Tenant{}, ErrNotFound
	}
	row := p.dbPool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants
	  WHERE live_public_key=$1 OR live_secret_key=$1 OR test_public_key=$1 OR test_secret_key=$1`, raw)
	return scanTenant(row)
}

func (p *pgStore) GetTenant(ctx context.Context, id string) (Tenant, error) {
	return scanTenant(p.dbPool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants WHERE id=$1`, id))
}

func (p *pgStore) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	return scanTenant(p.dbPool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants WHERE slug=$1`, slug))
}

const userCols = `id,tenant_id,email,password_hash,COALESCE(first_name,''),COALESCE(last_name,''),role,active,last_login,created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &role, &u.Active, &u.LastLogin, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if r, ok := ParseRole(role); ok {
		u.Role = r
	}
	return u, nil
}

func (p *pgStore) GetUser(ctx context.Context, tenantID, userID string) (User, error) {
	return scanUser(p.dbPool.QueryRow(ctx, `SELECT `+userCols+` FROM tenant_users WHERE tenant_id=$1 AND id=$2`, tenantID, userID))
}

func (p *pgStore) GetUserByEmail(ctx context.Context, tenantID, email string) (User, error) {
	return scanUser(p.dbPool.QueryRow(ctx, `SELECT `+userCols+` FROM tenant_users WHERE tenant_id=$1 AND email=$2`, tenantID, email))
}

func (p *pgStore) CreateTenant(ctx context.Context, t Tenant) error {
	meta, _ := json.Marshal(t.Metadata)
	if t.Metadata == nil {
		meta = []byte(`{}`)
	}
	_, err := p.dbPool.Exec(ctx, `INSERT INTO tenants
	  (id,slug,company_name,email,live_public_key,live_secret_key,test_public_key,test_secret_key,
	   signing_secret,active,default_mode,webhook_url,webhook_secret,stripe_account_id,stripe_status,
	   platform_fee_percent,metadata)
	  VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		t.ID, t.Slug, t.CompanyName, t.Email,
		t.LivePublicKey, t.LiveSecretKey, t.TestPublicKey, t.TestSecretKey,
		t.SigningSecret, t.Active, t.DefaultMode.String(),
		t.WebhookURL, t.WebhookSecret, t.StripeAccountID, t.StripeStatus,
		t.PlatformFeePercent, meta)
	return err
}

func (p *pgStore) CreateUser(ctx context.Context, u User) error {
	_, err := p.dbPool.Exec(ctx, `INSERT INTO tenant_users
	  (id,tenant_id,email,password_hash,first_name,last_name,role,active)
	  VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role.String(), u.Active)
	return err
}

// RegenerateKeys swaps both slots of one mode in a single UPDATE so a
// concurrent authentication sees either the old pair or the new pair,
// never a torn mix.
func (p *pgStore) RegenerateKeys(ctx context.Context, tenantID string, mode apikey.Mode) (KeyPair, error) {
	pair, err := MintPair(mode)
	if err != nil {
		return KeyPair{}, err
	}
	pub, sec := "live_public_key", "live_secret_key"
	if mode == apikey.Test {
		pub, sec = "test_public_key", "test_secret_key"
	}
	tag, err := p.dbPool.Exec(ctx,
		`UPDATE tenants SET `+pub+`=$1, `+sec+`=$2, updated_at=NOW() WHERE id=$3`,
		pair.Public, pair.Secret, tenantID)
	if err != nil {
		return KeyPair{}, err
	}
	if tag.RowsAffected() == 0 {
		return KeyPair{}, ErrNotFound
	}
	return pair, nil
}

func (p *pgStore) RevokeKeys(ctx context.Context, tenantID string, mode apikey.Mode) error {
	pub, sec := "live_public_key", "live_secret_key"
	if mode == apikey.Test {
		pub, sec = "test_public_key", "test_secret_key"
	}
	tag, err := p.dbPool.Exec(ctx,
		`UPDATE tenants SET `+pub+`=NULL, `+sec+`=NULL, updated_at=NOW() WHERE id=$1`, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgStore) SetActive(ctx context.Context, tenantID string, active bool) error {
	tag, err := p.dbPool.Exec(ctx, `UPDATE tenants SET active=$1, updated_at=NOW() WHERE id=$2`, active, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgStore) SetWebhook(ctx context.Context, tenantID, url, secret string) error {
	tag, err := p.dbPool.Exec(ctx, `UPDATE tenants SET webhook_url=$1, webhook_secret=$2, updated_at=NOW() WHERE id=$3`, url, secret, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgStore) TouchUserLogin(ctx context.Context, userID string) error {
	_, err := p.dbPool.Exec(ctx, `UPDATE tenant_users SET last_login=NOW() WHERE id=$1`, userID)
	return err
}
