package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nhle/giftcard-console/internal/store"
)

// NewTestStore opens an in-memory snapshot store with all migrations
// applied and closes it when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(store.MemoryPath)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedSnapshot persists v as the JSON snapshot of key, as a previous
// session would have left it.
func SeedSnapshot(t *testing.T, s *store.SQLiteStore, kind, key string, v any, at time.Time) {
	t.Helper()

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encoding snapshot %s: %v", key, err)
	}
	if err := s.SaveSnapshot(context.Background(), kind, key, raw, at); err != nil {
		t.Fatalf("seeding snapshot %s: %v", key, err)
	}
}
