package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "tasks:snapshot"

// SnapshotCache keeps the serialized current task collection in Redis so
// connect-time syncs and read endpoints skip re-marshaling the full list.
// The cache is evicted on every successful mutation. A nil client disables
// caching entirely; Redis failures never fail a read.
type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSnapshotCache creates a cache using the provided Redis client and TTL.
// A TTL of zero keeps entries until the next eviction.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl < 0 {
		ttl = 0
	}
	return &SnapshotCache{redis: client, ttl: ttl}
}

// Get returns the cached snapshot bytes, or false on miss or any Redis error.
func (c *SnapshotCache) Get(ctx context.Context) ([]byte, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors drop the entry so a stale snapshot cannot
			// outlive the incident.
			_ = c.redis.Del(ctx, snapshotKey).Err()
		}
		return nil, false
	}
	return data, true
}

// Set stores the serialized snapshot. Failures are ignored; the next read
// falls back to the store.
func (c *SnapshotCache) Set(ctx context.Context, data []byte) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Set(ctx, snapshotKey, data, c.ttl).Err()
}

// Evict drops the cached snapshot. Called after every successful mutation.
func (c *SnapshotCache) Evict(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, snapshotKey).Err()
}
