package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/store"
	"github.com/nhle/giftcard-console/tests/testutil"
)

func TestMigrationsApplied(t *testing.T) {
	s := testutil.NewTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.SaveSnapshot(ctx, "notifications", "notifications:abc", []byte(`{"items":[]}`), at))

	data, savedAt, ok, err := s.LoadSnapshot(ctx, "notifications:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[]}`, string(data))
	assert.True(t, at.Equal(savedAt))

	_, _, ok, err = s.LoadSnapshot(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveSnapshotReplacesKey(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveSnapshot(ctx, "count", "count", []byte(`1`), now))
	require.NoError(t, s.SaveSnapshot(ctx, "count", "count", []byte(`2`), now.Add(time.Second)))

	snaps, err := s.ListSnapshots(ctx, "count")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "2", string(snaps[0].Data))
}

func TestDeleteAndPruneSnapshots(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(48 * time.Hour)

	require.NoError(t, s.SaveSnapshot(ctx, "a", "a:1", []byte(`1`), old))
	require.NoError(t, s.SaveSnapshot(ctx, "a", "a:2", []byte(`2`), recent))
	require.NoError(t, s.SaveSnapshot(ctx, "b", "b:1", []byte(`3`), recent))

	n, err := s.PruneSnapshots(ctx, old.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.DeleteSnapshots(ctx, "a"))
	all, err := s.ListSnapshots(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b:1", all[0].Key)

	require.NoError(t, s.DeleteSnapshots(ctx, ""))
	all, err = s.ListSnapshots(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStoreReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "k", "k", []byte(`"v"`), time.Now()))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, _, ok, err := reopened.LoadSnapshot(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"v"`, string(data))
}
