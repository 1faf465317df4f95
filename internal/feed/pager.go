package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/metrics"
	"github.com/nhle/giftcard-console/internal/model"
)

// Config holds the settings shared by every feed.
type Config struct {
	// OverlaySize bounds the realtime overlay. Zero means
	// DefaultOverlaySize.
	OverlaySize int

	// Clock replaces time.Now.
	Clock func() time.Time

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (c Config) norm() Config {
	if c.OverlaySize < 1 {
		c.OverlaySize = DefaultOverlaySize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	c.Logger = logging.OrNop(c.Logger)
	return c
}

// View is what a list view renders.
type View[T any] struct {
	Items []T

	// Pagination is the server pagination with the overlay's extra
	// records added to Total for display.
	Pagination model.Pagination

	// ServerTotal is the total the server reported.
	ServerTotal int

	Stale     bool
	UpdatedAt time.Time
	Err       error
}

// Empty reports whether there is nothing to render.
func (v View[T]) Empty() bool { return len(v.Items) == 0 }

// listFilter is the contract both filter types satisfy.
type listFilter[F any] interface {
	comparable
	Normalize() F
	IsDefaultFirstPage() bool
}

// pager holds a list view's filter state and turns cache reads into views
// with the realtime overlay applied.
type pager[T any, F listFilter[F]] struct {
	kind     string
	cache    *cache.Client
	fetch    func(context.Context, F) (model.Page[T], error)
	id       func(T) string
	overlay  *Overlay[T]
	defaults F
	cfg      Config

	mu     sync.Mutex
	filter F
}

func newPager[T any, F listFilter[F]](
	kind string,
	c *cache.Client,
	defaults F,
	id func(T) string,
	fetch func(context.Context, F) (model.Page[T], error),
	cfg Config,
) *pager[T, F] {
	return &pager[T, F]{
		kind:     kind,
		cache:    c,
		fetch:    fetch,
		id:       id,
		overlay:  NewOverlay(cfg.OverlaySize, id),
		defaults: defaults,
		cfg:      cfg,
		filter:   defaults,
	}
}

// Filter returns the active filter.
func (p *pager[T, F]) Filter() F {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// SetFilter replaces the active filter. Any change clears the overlay.
func (p *pager[T, F]) SetFilter(f F) {
	f = f.Normalize()
	p.mu.Lock()
	changed := f != p.filter
	p.filter = f
	p.mu.Unlock()

	if changed {
		p.overlay.Clear()
	}
}

// ResetFilters restores the default filter.
func (p *pager[T, F]) ResetFilters() {
	p.SetFilter(p.defaults)
}

// Overlay exposes the realtime overlay.
func (p *pager[T, F]) Overlay() *Overlay[T] { return p.overlay }

// Load reads the active filter's page through the cache.
func (p *pager[T, F]) Load(ctx context.Context) (View[T], error) {
	f := p.Filter()
	res, err := cache.Fetch(ctx, p.cache, p.key(f), p.fetcher(f))
	if err != nil {
		return View[T]{Items: []T{}, Err: err}, err
	}
	return p.view(f, res), nil
}

// Refresh refetches the active filter's page, bypassing staleness.
func (p *pager[T, F]) Refresh(ctx context.Context) (View[T], error) {
	f := p.Filter()
	res, err := cache.Refetch(ctx, p.cache, p.key(f), p.fetcher(f))
	if err != nil {
		v := p.view(f, res)
		v.Err = err
		return v, err
	}
	return p.view(f, res), nil
}

// Peek renders the active filter's cached page without fetching.
func (p *pager[T, F]) Peek() (View[T], bool) {
	f := p.Filter()
	res, ok := cache.Peek[model.Page[T]](p.cache, p.key(f))
	if !ok {
		return View[T]{}, false
	}
	return p.view(f, res), true
}

func (p *pager[T, F]) key(f F) cache.Key {
	return cache.NewKey(p.kind, f)
}

func (p *pager[T, F]) fetcher(f F) cache.Fetcher[model.Page[T]] {
	return func(ctx context.Context) (model.Page[T], error) {
		return p.fetch(ctx, f)
	}
}

// cachedContains reports whether the default first page currently cached
// holds a record with id.
func (p *pager[T, F]) cachedContains(id string) bool {
	res, ok := cache.Peek[model.Page[T]](p.cache, p.key(p.firstPage()))
	if !ok {
		return false
	}
	for _, item := range res.Data.Items {
		if p.id(item) == id {
			return true
		}
	}
	return false
}

// firstPage is the default filter at the active page size.
func (p *pager[T, F]) firstPage() F {
	f := p.Filter()
	if f.IsDefaultFirstPage() {
		return f
	}
	return p.defaults.Normalize()
}

func (p *pager[T, F]) view(f F, res cache.Result[model.Page[T]]) View[T] {
	items := dedupe(res.Data.Items, p.id)
	pag := res.Data.Pagination
	serverTotal := pag.Total

	// The overlay belongs to the default first page; only a fetch of that
	// page can show that a pushed record has reached the server's list.
	if f.IsDefaultFirstPage() {
		if !res.StartedAt.IsZero() {
			p.overlay.ClearBefore(res.StartedAt)
		}
		var extra int
		items, extra = p.overlay.Merge(items)
		if extra > 0 {
			pag.Total += extra
			pag.TotalPages = model.TotalPagesFor(pag.Total, pag.Limit)
		}
	}

	return View[T]{
		Items:       items,
		Pagination:  pag,
		ServerTotal: serverTotal,
		Stale:       res.Stale,
		UpdatedAt:   res.UpdatedAt,
		Err:         res.Err,
	}
}
