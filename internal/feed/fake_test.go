package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/model"
)

var errNotFound = errors.New("not found")

// fakeBackend is an in-memory notification and activity API with real
// filtering and paging.
type fakeBackend struct {
	mu            sync.Mutex
	notifications []model.Notification // newest first
	logs          []model.ActivityLog
	prefs         model.NotificationPreferences
	fail          error
	block         chan struct{}
	listCalls     int

	// holdList, when set, parks the next list call after it has read the
	// data, signalling listHeld first.
	holdList chan struct{}
	listHeld chan struct{}
}

func (b *fakeBackend) holdNextList() (held <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holdList = make(chan struct{})
	b.listHeld = make(chan struct{})
	hold := b.holdList
	return b.listHeld, func() { close(hold) }
}

func (b *fakeBackend) addNotification(n model.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append([]model.Notification{n}, b.notifications...)
}

func (b *fakeBackend) addLog(a model.ActivityLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append([]model.ActivityLog{a}, b.logs...)
}

func (b *fakeBackend) failWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = err
}

func (b *fakeBackend) mutation() error {
	b.mu.Lock()
	block := b.block
	err := b.fail
	b.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func page[T any](items []T, p, limit int) model.Page[T] {
	total := len(items)
	start := (p - 1) * limit
	out := []T{}
	if start < total {
		end := start + limit
		if end > total {
			end = total
		}
		out = append(out, items[start:end]...)
	}
	return model.Page[T]{Items: out, Pagination: model.Pagination{
		Page:       p,
		Limit:      limit,
		Total:      total,
		TotalPages: model.TotalPagesFor(total, limit),
	}}
}

func (b *fakeBackend) ListNotifications(_ context.Context, f model.NotificationFilter) (model.Page[model.Notification], error) {
	b.mu.Lock()
	res := b.listNotificationsLocked(f)
	hold, held := b.holdList, b.listHeld
	b.holdList, b.listHeld = nil, nil
	b.mu.Unlock()

	if hold != nil {
		close(held)
		<-hold
	}
	return res, nil
}

func (b *fakeBackend) listNotificationsLocked(f model.NotificationFilter) model.Page[model.Notification] {
	b.listCalls++
	f = f.Normalize()
	var matched []model.Notification
	for _, n := range b.notifications {
		if f.UnreadOnly && n.IsRead {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.Search != "" && !strings.Contains(n.Title, f.Search) {
			continue
		}
		matched = append(matched, n)
	}
	return page(matched, f.Page, f.Limit)
}

func (b *fakeBackend) UnreadCount(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.CountUnread(b.notifications), nil
}

func (b *fakeBackend) MarkNotificationRead(_ context.Context, id string) error {
	if err := b.mutation(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.notifications {
		if n.ID == id {
			b.notifications[i] = n.MarkRead(time.Now())
			return nil
		}
	}
	return errNotFound
}

func (b *fakeBackend) MarkAllNotificationsRead(context.Context) error {
	if err := b.mutation(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.notifications {
		b.notifications[i] = n.MarkRead(time.Now())
	}
	return nil
}

func (b *fakeBackend) DeleteNotification(_ context.Context, id string) error {
	if err := b.mutation(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.notifications {
		if n.ID == id {
			b.notifications = append(b.notifications[:i], b.notifications[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (b *fakeBackend) GetPreferences(context.Context) (model.NotificationPreferences, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prefs, nil
}

func (b *fakeBackend) UpdatePreferences(_ context.Context, p model.NotificationPreferences) (model.NotificationPreferences, error) {
	if err := b.mutation(); err != nil {
		return model.NotificationPreferences{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefs = p
	return p, nil
}

func (b *fakeBackend) ListActivityLogs(_ context.Context, f model.ActivityFilter) (model.Page[model.ActivityLog], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f = f.Normalize()
	var matched []model.ActivityLog
	for _, a := range b.logs {
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		matched = append(matched, a)
	}
	return page(matched, f.Page, f.Limit), nil
}

func (b *fakeBackend) GetActivityLog(_ context.Context, id string) (model.ActivityLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.logs {
		if a.ID == id {
			return a, nil
		}
	}
	return model.ActivityLog{}, errNotFound
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func notification(id string, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Type:      model.NotificationOrderCreated,
		Title:     "Order " + id,
		IsRead:    read,
		CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func seeded(n, unread int) *fakeBackend {
	b := &fakeBackend{}
	for i := n; i >= 1; i-- {
		b.notifications = append(b.notifications, notification(fmt.Sprintf("seed-%d", i), i > unread))
	}
	return b
}

func newTestCache(clock *testClock) *cache.Client {
	return cache.New(cache.WithClock(clock.Now))
}
