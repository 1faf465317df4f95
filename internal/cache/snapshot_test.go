package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/tests/testutil"
)

func TestWarmStartFromSQLiteSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := testutil.NewTestStore(t)

	key := cache.NewKey(model.KindUnreadCount, nil)
	testutil.SeedSnapshot(t, s, model.KindUnreadCount, key.String(), 41, now.Add(-time.Hour))

	c := cache.New(
		cache.WithClock(func() time.Time { return now }),
		cache.WithSnapshots(s),
	)
	t.Cleanup(c.Close)

	release := make(chan struct{})
	done := make(chan struct{})
	res, err := cache.Fetch(context.Background(), c, key, func(context.Context) (int, error) {
		defer close(done)
		<-release
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 41, res.Data)
	assert.True(t, res.Stale)

	close(release)
	<-done
	assert.Eventually(t, func() bool {
		got, ok := cache.Peek[int](c, key)
		return ok && got.Data == 42
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		raw, _, ok, err := s.LoadSnapshot(context.Background(), key.String())
		return err == nil && ok && string(raw) == "42"
	}, time.Second, 5*time.Millisecond)
}
