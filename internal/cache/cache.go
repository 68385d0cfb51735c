package cache

import (
	"context"
	"time"

	"tradeledger/backend/internal/domain"
)

// Snapshot is the cached form of an aggregated ledger.
type Snapshot struct {
	Ledger  map[string]domain.JobSummary `msgpack:"ledger"`
	TakenAt time.Time                    `msgpack:"taken_at"`
}

type SnapshotCache interface {
	Get(ctx context.Context) (*Snapshot, bool, error)
	Set(ctx context.Context, value *Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context) (*Snapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ *Snapshot, _ time.Duration) error {
	return nil
}

func (NoopSnapshotCache) Invalidate(_ context.Context) error {
	return nil
}
