package tenants

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"billgate/pkg/apikey"
)

// cachedStore decorates a Store with a Redis read-through cache on the hot
// credential-lookup path. Mutations invalidate synchronously before they
// return, so regeneration keeps its no-overlap guarantee: by the time
// RegenerateKeys completes, the old values are gone from both the database
// and the cache. The TTL is a backstop, not the invalidation mechanism.
//
// Invalidation writes a tombstone rather than deleting, and repopulation
// uses SET NX: a lookup that read the store before a mutation committed
// cannot write its stale snapshot over the tombstone afterwards. Lookups
// during the tombstone window fall through to the store uncached.
type cachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

// NewCachedStore wraps inner with a Redis credential-lookup cache.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, log *zap.SugaredLogger) Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &cachedStore{Store: inner, rdb: rdb, ttl: ttl, log: log}
}

// Raw credentials never appear as Redis keys; only their digests do.
func keyDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "bg:akey:" + hex.EncodeToString(sum[:])
}

// tombstone occupies an invalidated digest long enough to outlive any
// lookup that was already in flight when the invalidation ran.
const (
	tombstone    = "\x00gone"
	tombstoneTTL = 10 * time.Second
)

func (c *cachedStore) LookupByAPIKey(ctx context.Context, raw string) (Tenant, error) {
	k := keyDigest(raw)
	if b, err := c.rdb.Get(ctx, k).Bytes(); err == nil && string(b) != tombstone {
		var t Tenant
		if json.Unmarshal(b, &t) == nil {
			return t, nil
		}
	}
	t, err := c.Store.LookupByAPIKey(ctx, raw)
	if err != nil {
		return Tenant{}, err
	}
	if b, err := json.Marshal(t); err == nil {
		// NX: never overwrite a tombstone (or a fresher entry) with a
		// snapshot that may predate a concurrent mutation.
		if err := c.rdb.SetNX(ctx, k, b, c.ttl).Err(); err != nil {
			c.log.Warnw("credential cache set failed", "err", err)
		}
	}
	return t, nil
}

// invalidate tombstones every cached entry that could resolve to this
// tenant.
func (c *cachedStore) invalidate(ctx context.Context, t Tenant) {
	pipe := c.rdb.Pipeline()
	for _, s := range Slots {
		if v := t.Key(s); v != "" {
			pipe.Set(ctx, keyDigest(v), tombstone, tombstoneTTL)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warnw("credential cache invalidation failed", "err", err)
	}
}

func (c *cachedStore) RegenerateKeys(ctx context.Context, tenantID string, mode apikey.Mode) (KeyPair, error) {
	old, err := c.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return KeyPair{}, err
	}
	pair, err := c.Store.RegenerateKeys(ctx, tenantID, mode)
	if err != nil {
		return KeyPair{}, err
	}
	c.invalidate(ctx, old)
	return pair, nil
}

func (c *cachedStore) RevokeKeys(ctx context.Context, tenantID string, mode apikey.Mode) error {
	old, err := c.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := c.Store.RevokeKeys(ctx, tenantID, mode); err != nil {
		return err
	}
	c.invalidate(ctx, old)
	return nil
}

func (c *cachedStore) SetActive(ctx context.Context, tenantID string, active bool) error {
	old, err := c.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := c.Store.SetActive(ctx, tenantID, active); err != nil {
		return err
	}
	c.invalidate(ctx, old)
	return nil
}

func (c *cachedStore) SetWebhook(ctx context.Context, tenantID, url, secret string) error {
	old, err := c.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := c.Store.SetWebhook(ctx, tenantID, url, secret); err != nil {
		return err
	}
	c.invalidate(ctx, old)
	return nil
}
