package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const SnapshotKey = "ledger:snapshot"

// kv is the subset of the redis client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisSnapshotCache struct {
	client kv
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

func (c *RedisSnapshotCache) Get(ctx context.Context) (*Snapshot, bool, error) {
	val, err := c.client.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(val, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, value *Snapshot, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, SnapshotKey, payload, ttl).Err()
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, SnapshotKey).Err()
}
