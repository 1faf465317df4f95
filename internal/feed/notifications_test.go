package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/metrics"
	"github.com/nhle/giftcard-console/internal/model"
)

type harness struct {
	backend *fakeBackend
	clock   *testClock
	feed    *NotificationFeed
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(clock)
	t.Cleanup(c.Close)
	m := metrics.New()
	return &harness{
		backend: backend,
		clock:   clock,
		metrics: m,
		feed:    NewNotificationFeed(backend, c, Config{Clock: clock.Now, Metrics: m}),
	}
}

func ids(items []model.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func occurrences(items []model.Notification, id string) int {
	count := 0
	for _, n := range items {
		if n.ID == id {
			count++
		}
	}
	return count
}

func TestInitialLoadWithNoNotifications(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	view, err := h.feed.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Empty())
	assert.Equal(t, 0, view.Pagination.Total)
	assert.Equal(t, 0, view.Pagination.TotalPages)

	count, err := h.feed.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPushedNotificationAppearsOnceOnTop(t *testing.T) {
	h := newHarness(t, seeded(3, 1))
	ctx := context.Background()

	_, err := h.feed.Load(ctx)
	require.NoError(t, err)
	before, err := h.feed.UnreadCount(ctx)
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	n1 := notification("n1", false)
	h.backend.addNotification(n1)
	h.feed.PushNotification(n1)

	view, err := h.feed.Load(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, view.Items)
	assert.Equal(t, "n1", view.Items[0].ID)
	assert.Equal(t, 1, occurrences(view.Items, "n1"))
	assert.Equal(t, 4, view.Pagination.Total)
	assert.Equal(t, 3, view.ServerTotal)

	after, ok := h.feed.PeekUnreadCount()
	require.True(t, ok)
	assert.Equal(t, before+1, after)

	// a duplicate delivery changes nothing
	h.feed.PushNotification(n1)
	again, _ := h.feed.PeekUnreadCount()
	assert.Equal(t, after, again)

	// once a fetch reflects the record it is shown from the page alone
	h.clock.Advance(time.Second)
	view, err = h.feed.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, occurrences(view.Items, "n1"))
	assert.Equal(t, 4, view.Pagination.Total)
	assert.Zero(t, h.feed.Overlay().Len())
}

func TestPushOfAlreadyFetchedRecordIsIgnored(t *testing.T) {
	h := newHarness(t, seeded(2, 2))
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)
	count, _ := h.feed.UnreadCount(ctx)

	h.feed.PushNotification(notification("seed-1", false))

	after, _ := h.feed.PeekUnreadCount()
	assert.Equal(t, count, after)
	assert.Zero(t, h.feed.Overlay().Len())
}

func TestUnreadCountMatchesRecordsAfterReconciliation(t *testing.T) {
	h := newHarness(t, seeded(5, 2))
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)
	_, _ = h.feed.UnreadCount(ctx)

	for i := 0; i < 15; i++ {
		h.clock.Advance(time.Millisecond)
		n := notification(fmt.Sprintf("push-%d", i), i%3 == 0)
		h.backend.addNotification(n)
		h.feed.PushNotification(n)

		view, ok := h.feed.Peek()
		require.True(t, ok)
		seen := map[string]bool{}
		for _, id := range ids(view.Items) {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Equal(t, DefaultOverlaySize, h.feed.Overlay().Len())

	h.clock.Advance(time.Second)
	view, err := h.feed.Refresh(ctx)
	require.NoError(t, err)
	count, err := h.feed.RefreshUnreadCount(ctx)
	require.NoError(t, err)

	h.backend.mu.Lock()
	all := append([]model.Notification(nil), h.backend.notifications...)
	h.backend.mu.Unlock()
	assert.Equal(t, model.CountUnread(all), count)
	assert.Len(t, view.Items, model.DefaultPageSize)
	assert.Equal(t, len(all), view.Pagination.Total)
}

func TestMarkAllReadRoundTrip(t *testing.T) {
	h := newHarness(t, seeded(4, 3))
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)

	pushed := notification("n9", false)
	h.backend.addNotification(pushed)
	h.feed.PushNotification(pushed)

	require.NoError(t, h.feed.MarkAllRead(ctx))

	count, ok := h.feed.PeekUnreadCount()
	require.True(t, ok)
	assert.Zero(t, count)

	view, err := h.feed.Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, model.CountUnread(view.Items))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MutationCounter(OpMarkAllRead, metrics.OutcomeSuccess)))
}

func TestMarkAllReadIsNotUndoneByOlderRevalidation(t *testing.T) {
	h := newHarness(t, seeded(3, 3))
	ctx := context.Background()
	_, err := h.feed.Load(ctx)
	require.NoError(t, err)
	_, err = h.feed.UnreadCount(ctx)
	require.NoError(t, err)

	h.feed.cache.Invalidate(model.KindNotifications)
	held, release := h.backend.holdNextList()
	stale, err := h.feed.Load(ctx)
	require.NoError(t, err)
	require.True(t, stale.Stale)
	<-held

	require.NoError(t, h.feed.MarkAllRead(ctx))
	release()
	h.feed.cache.Close()

	view, ok := h.feed.Peek()
	require.True(t, ok)
	assert.Zero(t, model.CountUnread(view.Items))
	assert.False(t, view.Stale)

	count, ok := h.feed.PeekUnreadCount()
	require.True(t, ok)
	assert.Zero(t, count)
}

func TestMarkReadUpdatesRecord(t *testing.T) {
	h := newHarness(t, seeded(2, 2))
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)

	require.NoError(t, h.feed.MarkRead(ctx, "seed-1"))

	view, ok := h.feed.Peek()
	require.True(t, ok)
	for _, n := range view.Items {
		if n.ID == "seed-1" {
			assert.True(t, n.IsRead)
			assert.NotNil(t, n.ReadAt)
		}
	}
	count, _ := h.feed.PeekUnreadCount()
	assert.Equal(t, 1, count)
}

func TestDeleteRoundTrip(t *testing.T) {
	h := newHarness(t, seeded(3, 1))
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)

	require.NoError(t, h.feed.Delete(ctx, "seed-2"))

	view, err := h.feed.Refresh(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(view.Items), "seed-2")
	assert.Equal(t, 2, view.Pagination.Total)
}

func TestFailedMutationLeavesCacheUntouched(t *testing.T) {
	h := newHarness(t, seeded(3, 3))
	ctx := context.Background()
	before, err := h.feed.Load(ctx)
	require.NoError(t, err)
	count, _ := h.feed.UnreadCount(ctx)

	h.backend.failWith(errors.New("server exploded"))
	err = h.feed.MarkAllRead(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server exploded")

	after, ok := h.feed.Peek()
	require.True(t, ok)
	assert.Equal(t, before.Items, after.Items)
	assert.False(t, after.Stale)
	stillCount, _ := h.feed.PeekUnreadCount()
	assert.Equal(t, count, stillCount)
	assert.False(t, h.feed.Pending(""))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MutationCounter(OpMarkAllRead, metrics.OutcomeFailure)))
}

func TestPendingWhileMutationInFlight(t *testing.T) {
	backend := seeded(2, 2)
	backend.block = make(chan struct{})
	h := newHarness(t, backend)
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)

	done := make(chan error, 1)
	go func() { done <- h.feed.Delete(ctx, "seed-1") }()

	require.Eventually(t, func() bool { return h.feed.Pending("seed-1") }, time.Second, time.Millisecond)
	assert.Error(t, h.feed.Delete(ctx, "seed-1"), "second delete of the same record is refused")

	close(backend.block)
	require.NoError(t, <-done)
	assert.False(t, h.feed.Pending("seed-1"))
}

func TestPageBeyondLastIsEmpty(t *testing.T) {
	h := newHarness(t, seeded(45, 0))
	ctx := context.Background()

	first, err := h.feed.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, first.Pagination.TotalPages)

	h.feed.SetPage(first.Pagination.TotalPages + 1)
	view, err := h.feed.Load(ctx)
	require.NoError(t, err)
	assert.True(t, view.Empty())
	assert.Equal(t, first.Pagination.Total, view.Pagination.Total)
}

func TestResetFiltersRestoresDefaults(t *testing.T) {
	h := newHarness(t, seeded(25, 5))
	ctx := context.Background()

	h.feed.SetFilter(model.NotificationFilter{Page: 2, Limit: 10, UnreadOnly: true, Search: "Order", Type: model.NotificationOrderCreated})
	filtered, err := h.feed.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)

	h.feed.ResetFilters()
	assert.Equal(t, model.DefaultNotificationFilter(), h.feed.Filter())

	view, err := h.feed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Pagination.Page)
	assert.Equal(t, 25, view.Pagination.Total)
	assert.Len(t, view.Items, model.DefaultPageSize)
}

func TestOverlayOnlyOnDefaultFirstPage(t *testing.T) {
	h := newHarness(t, seeded(30, 0))
	ctx := context.Background()
	_, _ = h.feed.Load(ctx)

	h.feed.PushNotification(notification("live", false))
	require.Equal(t, 1, h.feed.Overlay().Len())

	h.feed.SetPage(2)
	assert.Zero(t, h.feed.Overlay().Len(), "filter change clears the overlay")

	view, err := h.feed.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(view.Items), "live")
}

func TestLatestIgnoresActiveFilter(t *testing.T) {
	h := newHarness(t, seeded(5, 5))
	ctx := context.Background()
	h.feed.SetFilter(model.NotificationFilter{Search: "nothing matches"})

	view, err := h.feed.Latest(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Items, 5)
	assert.Equal(t, "nothing matches", h.feed.Filter().Search)
}

func TestFilteredRefreshKeepsPushForLatest(t *testing.T) {
	h := newHarness(t, seeded(3, 0))
	ctx := context.Background()
	_, err := h.feed.Latest(ctx)
	require.NoError(t, err)

	h.feed.SetFilter(model.NotificationFilter{UnreadOnly: true})
	pushed := notification("n1", false)
	h.feed.PushNotification(pushed)
	h.backend.addNotification(pushed)
	h.feed.cache.Invalidate(model.KindNotifications)

	h.clock.Advance(time.Second)
	filtered, err := h.feed.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, ids(filtered.Items))
	assert.Equal(t, 1, h.feed.Overlay().Len(), "only a first-page fetch settles the overlay")

	latest, ok := h.feed.PeekLatest()
	require.True(t, ok)
	assert.Equal(t, 1, occurrences(latest.Items, "n1"))
	assert.Equal(t, "n1", latest.Items[0].ID)
}

func TestSetUnreadCountFromPush(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.feed.SetUnreadCount(12)
	count, ok := h.feed.PeekUnreadCount()
	require.True(t, ok)
	assert.Equal(t, 12, count)

	h.feed.SetUnreadCount(-1)
	count, _ = h.feed.PeekUnreadCount()
	assert.Zero(t, count)
}

func TestPreferences(t *testing.T) {
	h := newHarness(t, &fakeBackend{prefs: model.NotificationPreferences{InAppEnabled: true}})
	ctx := context.Background()

	prefs, err := h.feed.Preferences(ctx)
	require.NoError(t, err)
	assert.True(t, prefs.InAppEnabled)

	saved, err := h.feed.UpdatePreferences(ctx, model.NotificationPreferences{EmailEnabled: true})
	require.NoError(t, err)
	assert.True(t, saved.EmailEnabled)

	cached, err := h.feed.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, cached)
}
