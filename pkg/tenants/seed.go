package tenants

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"billgate/pkg/apikey"
)

// seedEntry is one tenant in a YAML seed file, used for dev bring-up.
type seedEntry struct {
	ID            string `yaml:"id"`
	Slug          string `yaml:"slug"`
	CompanyName   string `yaml:"company_name"`
	Email         string `yaml:"email"`
	SigningSecret string `yaml:"signing_secret"` // base64; generated when empty
	OwnerEmail    string `yaml:"owner_email"`
	OwnerPassword string `yaml:"owner_password"`
	Mode          string `yaml:"mode"`
}

// SeedFromFile loads tenants (and their owner users) from a YAML file into
// the store. Missing credentials and secrets are minted. Idempotent enough
// for dev: entries whose slug already exists are skipped.
func SeedFromFile(ctx context.Context, store Store, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var entries []seedEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	for _, e := range entries {
		if _, err := store.GetTenantBySlug(ctx, e.Slug); err == nil {
			continue
		}
		t, owner, err := buildSeedTenant(e)
		if err != nil {
			return fmt.Errorf("seed %q: %w", e.Slug, err)
		}
		if err := store.CreateTenant(ctx, t); err != nil {
			return fmt.Errorf("seed %q: %w", e.Slug, err)
		}
		if owner != nil {
			if err := store.CreateUser(ctx, *owner); err != nil {
				return fmt.Errorf("seed %q owner: %w", e.Slug, err)
			}
		}
	}
	return nil
}

func buildSeedTenant(e seedEntry) (Tenant, *User, error) {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	var secret []byte
	if e.SigningSecret != "" {
		dec, err := base64.StdEncoding.DecodeString(e.SigningSecret)
		if err != nil {
			return Tenant{}, nil, fmt.Errorf("signing_secret: %w", err)
		}
		secret = dec
	} else {
		secret = NewSigningSecret()
	}
	mode := apikey.Test
	if m, ok := apikey.ParseMode(e.Mode); ok {
		mode = m
	}
	live, err := MintPair(apikey.Live)
	if err != nil {
		return Tenant{}, nil, err
	}
	test, err := MintPair(apikey.Test)
	if err != nil {
		return Tenant{}, nil, err
	}
	t := Tenant{
		ID:            id,
		Slug:          e.Slug,
		CompanyName:   e.CompanyName,
		Email:         e.Email,
		LivePublicKey: live.Public,
		LiveSecretKey: live.Secret,
		TestPublicKey: test.Public,
		TestSecretKey: test.Secret,
		SigningSecret: secret,
		Active:        true,
		DefaultMode:   mode,
		StripeStatus:  "pending",
	}
	if e.OwnerEmail == "" {
		return t, nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(e.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return Tenant{}, nil, err
	}
	owner := &User{
		ID:           uuid.NewString(),
		TenantID:     id,
		Email:        e.OwnerEmail,
		PasswordHash: string(hash),
		Role:         RoleOwner,
		Active:       true,
	}
	return t, owner, nil
}
