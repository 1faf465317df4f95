package feed

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/model"
)

// NotificationAPI is the slice of the REST client the notification feed
// uses.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, f model.NotificationFilter) (model.Page[model.Notification], error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	GetPreferences(ctx context.Context) (model.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, p model.NotificationPreferences) (model.NotificationPreferences, error)
}

// Mutation names, used for pending state and metrics.
const (
	OpMarkRead          = "mark_read"
	OpMarkAllRead       = "mark_all_read"
	OpDelete            = "delete"
	OpUpdatePreferences = "update_preferences"
)

// allTarget is the pending key of mutations without a single target.
const allTarget = "*"

var (
	unreadKey = cache.NewKey(model.KindUnreadCount, nil)
	prefsKey  = cache.NewKey(model.KindPreferences, nil)
)

// NotificationFeed is the notification list, unread count and
// preferences as the views see them.
type NotificationFeed struct {
	*pager[model.Notification, model.NotificationFilter]

	api NotificationAPI

	mu      sync.Mutex
	pending map[string]string
}

// NewNotificationFeed creates a feed over api backed by c.
func NewNotificationFeed(api NotificationAPI, c *cache.Client, cfg Config) *NotificationFeed {
	cfg = cfg.norm()
	return &NotificationFeed{
		pager: newPager(
			model.KindNotifications,
			c,
			model.DefaultNotificationFilter(),
			model.NotificationID,
			api.ListNotifications,
			cfg,
		),
		api:     api,
		pending: make(map[string]string),
	}
}

// SetPage moves to page, keeping the other predicates.
func (f *NotificationFeed) SetPage(page int) {
	filter := f.Filter()
	filter.Page = page
	f.SetFilter(filter)
}

// Latest returns the default first page with pushed records on top, as
// shown by the bell dropdown. It does not touch the active filter.
func (f *NotificationFeed) Latest(ctx context.Context) (View[model.Notification], error) {
	first := f.firstPage()
	res, err := cache.Fetch(ctx, f.cache, f.key(first), f.fetcher(first))
	if err != nil {
		return View[model.Notification]{Items: []model.Notification{}, Err: err}, err
	}
	return f.view(first, res), nil
}

// PeekLatest renders the cached default first page without fetching.
func (f *NotificationFeed) PeekLatest() (View[model.Notification], bool) {
	first := f.firstPage()
	res, ok := cache.Peek[model.Page[model.Notification]](f.cache, f.key(first))
	if !ok {
		return View[model.Notification]{}, false
	}
	return f.view(first, res), true
}

// UnreadCount reads the unread count through the cache.
func (f *NotificationFeed) UnreadCount(ctx context.Context) (int, error) {
	res, err := cache.Fetch(ctx, f.cache, unreadKey, f.api.UnreadCount)
	if err != nil {
		return 0, err
	}
	return res.Data, nil
}

// RefreshUnreadCount refetches the unread count.
func (f *NotificationFeed) RefreshUnreadCount(ctx context.Context) (int, error) {
	res, err := cache.Refetch(ctx, f.cache, unreadKey, f.api.UnreadCount)
	if err != nil {
		return res.Data, err
	}
	return res.Data, nil
}

// PeekUnreadCount returns the cached unread count without fetching.
func (f *NotificationFeed) PeekUnreadCount() (int, bool) {
	res, ok := cache.Peek[int](f.cache, unreadKey)
	return res.Data, ok
}

// SetUnreadCount stores a count pushed by the server.
func (f *NotificationFeed) SetUnreadCount(count int) {
	if count < 0 {
		count = 0
	}
	cache.SetData(f.cache, unreadKey, count)
}

// PushNotification merges a pushed notification. A record already shown
// is ignored. An unread record bumps the cached unread count once.
func (f *NotificationFeed) PushNotification(n model.Notification) {
	if f.cachedContains(n.ID) {
		return
	}
	if !f.overlay.Add(n, f.cfg.Clock()) {
		return
	}
	if !n.IsRead {
		cache.Update(f.cache, unreadKey, func(count int) int { return count + 1 })
	}
}

// MarkRead marks one notification read.
func (f *NotificationFeed) MarkRead(ctx context.Context, id string) error {
	return f.mutate(ctx, OpMarkRead, id, func(ctx context.Context) error {
		return f.api.MarkNotificationRead(ctx, id)
	}, func() {
		now := f.cfg.Clock()
		f.overlay.Update(id, func(n model.Notification) model.Notification { return n.MarkRead(now) })
	})
}

// MarkAllRead marks every notification read.
func (f *NotificationFeed) MarkAllRead(ctx context.Context) error {
	return f.mutate(ctx, OpMarkAllRead, allTarget, f.api.MarkAllNotificationsRead, func() {
		now := f.cfg.Clock()
		f.overlay.UpdateAll(func(n model.Notification) model.Notification { return n.MarkRead(now) })
	})
}

// Delete removes one notification.
func (f *NotificationFeed) Delete(ctx context.Context, id string) error {
	return f.mutate(ctx, OpDelete, id, func(ctx context.Context) error {
		return f.api.DeleteNotification(ctx, id)
	}, func() {
		f.overlay.Remove(id)
	})
}

// Pending reports whether a mutation on id is in flight. Use "" to ask
// about mark-all-read.
func (f *NotificationFeed) Pending(id string) bool {
	if id == "" {
		id = allTarget
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[id]
	return ok
}

// mutate runs call with the target marked pending. On success it applies
// the local correction, invalidates the notification kinds and refetches
// the active view and the unread count. On failure nothing local changes.
func (f *NotificationFeed) mutate(
	ctx context.Context,
	op, target string,
	call func(context.Context) error,
	onSuccess func(),
) error {
	f.mu.Lock()
	if _, busy := f.pending[target]; busy {
		f.mu.Unlock()
		return fmt.Errorf("%s: already in progress", op)
	}
	f.pending[target] = op
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.pending, target)
		f.mu.Unlock()
	}()

	err := call(ctx)
	f.cfg.Metrics.Mutation(op, err)
	if err != nil {
		f.cfg.Logger.Warn("mutation failed", zap.String("op", op), zap.String("target", target), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	onSuccess()
	f.cache.Invalidate(model.KindNotifications, model.KindUnreadCount)

	if _, err := f.Refresh(ctx); err != nil {
		f.cfg.Logger.Warn("refetch after mutation failed", zap.String("op", op), zap.Error(err))
	}
	if _, err := f.RefreshUnreadCount(ctx); err != nil {
		f.cfg.Logger.Warn("unread count refetch after mutation failed", zap.String("op", op), zap.Error(err))
	}
	return nil
}

// Preferences reads the notification preferences through the cache.
func (f *NotificationFeed) Preferences(ctx context.Context) (model.NotificationPreferences, error) {
	res, err := cache.Fetch(ctx, f.cache, prefsKey, f.api.GetPreferences)
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	return res.Data, nil
}

// UpdatePreferences saves p and caches what the server stored.
func (f *NotificationFeed) UpdatePreferences(
	ctx context.Context,
	p model.NotificationPreferences,
) (model.NotificationPreferences, error) {
	saved, err := f.api.UpdatePreferences(ctx, p)
	f.cfg.Metrics.Mutation(OpUpdatePreferences, err)
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("%s: %w", OpUpdatePreferences, err)
	}
	cache.SetData(f.cache, prefsKey, saved)
	return saved, nil
}
