package store

import (
	"context"
	"time"
)

// Snapshot is the last successful fetch of one cache key.
type Snapshot struct {
	ID      string    `db:"id"`
	Key     string    `db:"cache_key"`
	Kind    string    `db:"kind"`
	Data    []byte    `db:"data"`
	SavedAt time.Time `db:"-"`

	SavedAtNano int64 `db:"saved_at"`
}

// Store defines the persistence interface for cache snapshots.
type Store interface {
	SaveSnapshot(ctx context.Context, kind, key string, data []byte, at time.Time) error
	LoadSnapshot(ctx context.Context, key string) (data []byte, at time.Time, ok bool, err error)
	ListSnapshots(ctx context.Context, kind string) ([]Snapshot, error)
	DeleteSnapshots(ctx context.Context, kind string) error
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
