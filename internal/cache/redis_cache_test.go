package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/backend/internal/domain"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisSnapshotCacheRoundTrip(t *testing.T) {
	kv := newFakeKV()
	c := &RedisSnapshotCache{client: kv}
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	taken := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set(ctx, &Snapshot{
		Ledger:  map[string]domain.JobSummary{"J1": {JobNo: "J1", Overall: 10, SoldQty: 2.5, CurrentQty: 7.5}},
		TakenAt: taken,
	}, time.Minute))
	assert.Equal(t, time.Minute, kv.ttls[SnapshotKey])

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7.5, got.Ledger["J1"].CurrentQty)
	assert.True(t, taken.Equal(got.TakenAt))

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopSnapshotCache(t *testing.T) {
	var c SnapshotCache = NoopSnapshotCache{}
	require.NoError(t, c.Set(context.Background(), &Snapshot{}, time.Second))
	_, ok, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
