package feed

import (
	"context"

	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/model"
)

// ActivityAPI is the slice of the REST client the activity feed uses.
type ActivityAPI interface {
	ListActivityLogs(ctx context.Context, f model.ActivityFilter) (model.Page[model.ActivityLog], error)
	GetActivityLog(ctx context.Context, id string) (model.ActivityLog, error)
}

// ActivityFeed is the admin activity log table plus the realtime feed of
// recently pushed entries. Activity logs are never mutated.
type ActivityFeed struct {
	*pager[model.ActivityLog, model.ActivityFilter]

	api    ActivityAPI
	recent *Overlay[model.ActivityLog]
}

// NewActivityFeed creates a feed over api backed by c.
func NewActivityFeed(api ActivityAPI, c *cache.Client, cfg Config) *ActivityFeed {
	cfg = cfg.norm()
	return &ActivityFeed{
		pager: newPager(
			model.KindActivityLogs,
			c,
			model.DefaultActivityFilter(),
			model.ActivityLogID,
			api.ListActivityLogs,
			cfg,
		),
		api:    api,
		recent: NewOverlay(cfg.OverlaySize, model.ActivityLogID),
	}
}

// SetPage moves to page, keeping the other predicates.
func (f *ActivityFeed) SetPage(page int) {
	filter := f.Filter()
	filter.Page = page
	f.SetFilter(filter)
}

// PushActivity merges a pushed entry into the table overlay and the
// realtime feed.
func (f *ActivityFeed) PushActivity(a model.ActivityLog) {
	now := f.cfg.Clock()
	f.recent.Add(a, now)
	if f.cachedContains(a.ID) {
		return
	}
	f.overlay.Add(a, now)
}

// Recent returns the most recently pushed entries, newest first. Fetches
// do not clear it.
func (f *ActivityFeed) Recent() []model.ActivityLog {
	return f.recent.Items()
}

// Get fetches one entry.
func (f *ActivityFeed) Get(ctx context.Context, id string) (model.ActivityLog, error) {
	return f.api.GetActivityLog(ctx, id)
}
