// Package cache is a process-wide query cache with per-kind staleness
// windows, stale-while-revalidate reads and shared in-flight fetches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/metrics"
)

// Policy is the freshness contract of a resource kind.
type Policy struct {
	// StaleTime is how long fetched data is served without a network call.
	StaleTime time.Duration

	// RefetchInterval is how often the data is force-refetched while in
	// use. Zero disables periodic refetch.
	RefetchInterval time.Duration
}

// DefaultPolicy applies to kinds without an explicit policy.
var DefaultPolicy = Policy{StaleTime: 30 * time.Second, RefetchInterval: 60 * time.Second}

// SnapshotStore persists successful fetches across runs.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, kind, key string, data []byte, at time.Time) error
	LoadSnapshot(ctx context.Context, key string) (data []byte, at time.Time, ok bool, err error)
	// DeleteSnapshots removes the snapshots of kind, or all when kind is "".
	DeleteSnapshots(ctx context.Context, kind string) error
}

// Notice reports that an entry changed.
type Notice struct {
	Kind string
	Key  string
}

// Result is what a read returns.
type Result[T any] struct {
	Data T

	// UpdatedAt is when Data was stored.
	UpdatedAt time.Time

	// StartedAt is when the fetch that produced Data began. Pushed items
	// received before it are reflected in Data.
	StartedAt time.Time

	// Stale is set when Data is outside its staleness window or was
	// invalidated.
	Stale bool

	// Err is the error of the latest fetch, if it failed.
	Err error
}

// Fetcher loads fresh data for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

type entry struct {
	kind        string
	data        any
	hasData     bool
	updatedAt   time.Time
	startedAt   time.Time
	invalidated bool
	err         error

	// storedSeq is the sequence of the fetch that produced data.
	// invalidSeq is the last sequence issued when the entry was
	// invalidated; fetches at or below it started before that.
	storedSeq  uint64
	invalidSeq uint64
}

type fetched struct {
	data      any
	updatedAt time.Time
	startedAt time.Time
}

// Client is the query cache. It is safe for concurrent use.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	group     singleflight.Group
	clock     func() time.Time
	snapshots SnapshotStore
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu            sync.Mutex
	entries       map[string]*entry
	policies      map[string]Policy
	defaultPolicy Policy
	generation    uint64
	seq           uint64
	subs          map[int]chan Notice
	nextSub       int
}

// Option customizes a Client.
type Option func(*Client)

// WithPolicy sets the policy of kind.
func WithPolicy(kind string, p Policy) Option {
	return func(c *Client) { c.policies[kind] = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.clock = now }
}

// WithSnapshots persists fetches in store and seeds cold reads from it.
func WithSnapshots(store SnapshotStore) Option {
	return func(c *Client) { c.snapshots = store }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(logger) }
}

// WithMetrics counts lookups and fetches.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates an empty cache.
func New(opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ctx:           ctx,
		cancel:        cancel,
		clock:         time.Now,
		logger:        zap.NewNop(),
		entries:       make(map[string]*entry),
		policies:      make(map[string]Policy),
		defaultPolicy: DefaultPolicy,
		subs:          make(map[int]chan Notice),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels in-flight fetches and waits for background
// revalidations to return.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

// Policy returns the policy of kind.
func (c *Client) Policy(kind string) Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.policies[kind]; ok {
		return p
	}
	return c.defaultPolicy
}

// Fetch reads key. Fresh data is returned as is. Stale data is returned
// and revalidated in the background. Without data a snapshot seeds a
// stale result, otherwise the call blocks on a fetch shared with every
// concurrent reader of key.
func Fetch[T any](ctx context.Context, c *Client, key Key, fetch Fetcher[T]) (Result[T], error) {
	k := key.String()

	c.mu.Lock()
	if e := c.entries[k]; e != nil && e.hasData {
		if res, ok := resultOf[T](e); ok {
			res.Stale = c.isStaleLocked(e, c.clock())
			c.mu.Unlock()
			if !res.Stale {
				c.metrics.CacheLookup(key.Kind, metrics.LookupHit)
				return res, nil
			}
			c.metrics.CacheLookup(key.Kind, metrics.LookupStale)
			revalidate(c, key, fetch)
			return res, nil
		}
	}
	c.mu.Unlock()

	if res, ok := seedFromSnapshot[T](ctx, c, key); ok {
		c.metrics.CacheLookup(key.Kind, metrics.LookupStale)
		revalidate(c, key, fetch)
		return res, nil
	}

	c.metrics.CacheLookup(key.Kind, metrics.LookupMiss)
	return load(ctx, c, key, fetch)
}

// Refetch fetches key now. It never joins a fetch that was already in
// flight, since that one may predate the change the caller wants to see;
// concurrent readers arriving later share the new request.
func Refetch[T any](ctx context.Context, c *Client, key Key, fetch Fetcher[T]) (Result[T], error) {
	c.group.Forget(key.String())
	return load(ctx, c, key, fetch)
}

// Peek returns the cached data of key without fetching.
func Peek[T any](c *Client, key Key) (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key.String()]
	if e == nil || !e.hasData {
		return Result[T]{}, false
	}
	res, ok := resultOf[T](e)
	if !ok {
		return Result[T]{}, false
	}
	res.Stale = c.isStaleLocked(e, c.clock())
	return res, true
}

// SetData stores data for key as if it had just been fetched.
func SetData[T any](c *Client, key Key, data T) {
	k := key.String()
	now := c.clock()

	c.mu.Lock()
	e := c.entryLocked(k, key.Kind)
	e.data = data
	e.hasData = true
	e.updatedAt = now
	e.startedAt = now
	e.invalidated = false
	e.err = nil
	c.mu.Unlock()

	c.persist(key.Kind, k, data, now)
	c.notify(key.Kind, k)
}

// Update replaces the cached data of key with fn(data). It does nothing
// and returns false when key holds no data. Staleness is unchanged.
func Update[T any](c *Client, key Key, fn func(T) T) bool {
	k := key.String()

	c.mu.Lock()
	e := c.entries[k]
	if e == nil || !e.hasData {
		c.mu.Unlock()
		return false
	}
	cur, ok := e.data.(T)
	if !ok {
		c.mu.Unlock()
		return false
	}
	e.data = fn(cur)
	c.mu.Unlock()

	c.notify(key.Kind, k)
	return true
}

// Invalidate marks every entry of the given kinds stale. The data stays
// readable; the next read revalidates.
func (c *Client) Invalidate(kinds ...string) {
	want := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		want[kind] = true
	}

	var changed []Notice
	c.mu.Lock()
	for k, e := range c.entries {
		if !want[e.kind] {
			continue
		}
		e.invalidSeq = c.seq
		if !e.invalidated {
			e.invalidated = true
			changed = append(changed, Notice{Kind: e.kind, Key: k})
		}
	}
	c.mu.Unlock()

	for _, n := range changed {
		c.notify(n.Kind, n.Key)
	}
}

// Clear drops every entry and snapshot. Fetches in flight are discarded
// when they complete.
func (c *Client) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.generation++
	c.mu.Unlock()

	if c.snapshots != nil {
		if err := c.snapshots.DeleteSnapshots(c.ctx, ""); err != nil {
			c.logger.Warn("clearing snapshots failed", zap.Error(err))
		}
	}
	c.notify("", "")
}

// Subscribe returns a channel receiving a Notice for every change, and a
// func that unsubscribes. Notices are dropped when the receiver lags.
func (c *Client) Subscribe() (<-chan Notice, func()) {
	ch := make(chan Notice, 64)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Client) notify(kind, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- Notice{Kind: kind, Key: key}:
		default:
		}
	}
}

func (c *Client) entryLocked(k, kind string) *entry {
	e := c.entries[k]
	if e == nil {
		e = &entry{kind: kind}
		c.entries[k] = e
	}
	return e
}

func (c *Client) isStaleLocked(e *entry, now time.Time) bool {
	if e.invalidated {
		return true
	}
	p, ok := c.policies[e.kind]
	if !ok {
		p = c.defaultPolicy
	}
	return now.Sub(e.updatedAt) >= p.StaleTime
}

func resultOf[T any](e *entry) (Result[T], bool) {
	data, ok := e.data.(T)
	if !ok {
		return Result[T]{}, false
	}
	return Result[T]{
		Data:      data,
		UpdatedAt: e.updatedAt,
		StartedAt: e.startedAt,
		Err:       e.err,
	}, true
}

// load runs fetch through the singleflight group. The fetch itself runs on
// the client's context so a caller giving up does not abort it.
func load[T any](ctx context.Context, c *Client, key Key, fetch Fetcher[T]) (Result[T], error) {
	k := key.String()
	ch := c.group.DoChan(k, func() (any, error) {
		return c.run(key.Kind, k, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	})

	select {
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			prev, _ := Peek[T](c, key)
			prev.Err = r.Err
			return prev, r.Err
		}
		f := r.Val.(fetched)
		data, ok := f.data.(T)
		if !ok {
			return Result[T]{}, errors.New("cache: fetched value has unexpected type")
		}
		return Result[T]{Data: data, UpdatedAt: f.updatedAt, StartedAt: f.startedAt}, nil
	}
}

func (c *Client) run(kind, k string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	gen := c.generation
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	started := c.clock()
	data, err := fn(c.ctx)
	c.metrics.Fetch(kind, err)
	now := c.clock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return fetched{data: data, updatedAt: now, startedAt: started}, nil
	}
	e := c.entryLocked(k, kind)
	if seq < e.storedSeq {
		// A fetch that started later already landed; keep it.
		cur := fetched{data: e.data, updatedAt: e.updatedAt, startedAt: e.startedAt}
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		c.logger.Debug("discarding superseded fetch", zap.String("kind", kind))
		return cur, nil
	}
	if err != nil {
		e.err = err
		c.mu.Unlock()
		c.logger.Warn("fetch failed", zap.String("kind", kind), zap.Error(err))
		c.notify(kind, k)
		return nil, err
	}
	e.data = data
	e.hasData = true
	e.updatedAt = now
	e.startedAt = started
	e.invalidated = seq <= e.invalidSeq
	e.err = nil
	e.storedSeq = seq
	c.mu.Unlock()

	c.persist(kind, k, data, now)
	c.notify(kind, k)
	return fetched{data: data, updatedAt: now, startedAt: started}, nil
}

func revalidate[T any](c *Client, key Key, fetch Fetcher[T]) {
	if c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = load(c.ctx, c, key, fetch)
	}()
}

func (c *Client) persist(kind, k string, data any, at time.Time) {
	if c.snapshots == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("encoding snapshot failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	if err := c.snapshots.SaveSnapshot(c.ctx, kind, k, raw, at); err != nil {
		c.logger.Warn("saving snapshot failed", zap.String("kind", kind), zap.Error(err))
	}
}

// seedFromSnapshot loads a persisted snapshot into the cache as stale
// data. Unreadable snapshots count as misses.
func seedFromSnapshot[T any](ctx context.Context, c *Client, key Key) (Result[T], bool) {
	if c.snapshots == nil {
		return Result[T]{}, false
	}
	k := key.String()
	raw, at, ok, err := c.snapshots.LoadSnapshot(ctx, k)
	if err != nil {
		c.logger.Warn("loading snapshot failed", zap.String("kind", key.Kind), zap.Error(err))
		return Result[T]{}, false
	}
	if !ok {
		return Result[T]{}, false
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		c.logger.Warn("ignoring malformed snapshot", zap.String("kind", key.Kind), zap.Error(err))
		return Result[T]{}, false
	}

	c.mu.Lock()
	e := c.entryLocked(k, key.Kind)
	if !e.hasData {
		e.data = data
		e.hasData = true
		e.updatedAt = at
		e.startedAt = at
		e.invalidated = true
	}
	c.mu.Unlock()

	return Result[T]{Data: data, UpdatedAt: at, StartedAt: at, Stale: true}, true
}
