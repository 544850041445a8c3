package tenants

import (
	"context"
	"sync"
	"time"

	"billgate/pkg/apikey"
)

// memStore is an in-memory Store used in dev bring-up and tests.
type memStore struct {
	mu    sync.RWMutex
	byID  map[string]Tenant
	users map[string]User // key: user id
}

// NewMemoryStore returns an empty in-memory credential store.
func NewMemoryStore() Store {
	return &memStore{byID: map[string]Tenant{}, users: map[string]User{}}
}

func (m *memStore) LookupByAPIKey(ctx context.Context, raw string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if raw == "" {
		return Tenant{}, ErrNotFound
	}
	for _, t := range m.byID {
		for _, s := range Slots {
			if t.Key(s) != "" && t.Key(s) == raw {
				return t, nil
			}
		}
	}
	return Tenant{}, ErrNotFound
}

func (m *memStore) GetTenant(ctx context.Context, id string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return Tenant{}, ErrNotFound
}

func (m *memStore) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.byID {
		if t.Slug == slug {
			return t, nil
		}
	}
	return Tenant{}, ErrNotFound
}

func (m *memStore) GetUser(ctx context.Context, tenantID, userID string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[userID]; ok && u.TenantID == tenantID {
		return u, nil
	}
	return User{}, ErrUserNotFound
}

func (m *memStore) GetUserByEmail(ctx context.Context, tenantID, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memStore) CreateTenant(ctx context.Context, t Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	m.byID[t.ID] = t
	return nil
}

func (m *memStore) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) RegenerateKeys(ctx context.Context, tenantID string, mode apikey.Mode) (KeyPair, error) {
	pair, err := MintPair(mode)
	if err != nil {
		return KeyPair{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[tenantID]
	if !ok {
		return KeyPair{}, ErrNotFound
	}
	if mode == apikey.Test {
		t.TestPublicKey, t.TestSecretKey = pair.Public, pair.Secret
	} else {
		t.LivePublicKey, t.LiveSecretKey = pair.Public, pair.Secret
	}
	t.UpdatedAt = time.Now()
	m.byID[tenantID] = t
	return pair, nil
}

func (m *memStore) RevokeKeys(ctx context.Context, tenantID string, mode apikey.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[tenantID]
	if !ok {
		return ErrNotFound
	}
	if mode == apikey.Test {
		t.TestPublicKey, t.TestSecretKey = "", ""
	} else {
		t.LivePublicKey, t.LiveSecretKey = "", ""
	}
	t.UpdatedAt = time.Now()
	m.byID[tenantID] = t
	return nil
}

func (m *memStore) SetActive(ctx context.Context, tenantID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[tenantID]
	if !ok {
		return ErrNotFound
	}
	t.Active = active
	t.UpdatedAt = time.Now()
	m.byID[tenantID] = t
	return nil
}

func (m *memStore) SetWebhook(ctx context.Context, tenantID, url, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[tenantID]
	if !ok {
		return ErrNotFound
	}
	t.WebhookURL, t.WebhookSecret = url, secret
	t.UpdatedAt = time.Now()
	m.byID[tenantID] = t
	return nil
}

func (m *memStore) TouchUserLogin(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	m.users[userID] = u
	return nil
}
