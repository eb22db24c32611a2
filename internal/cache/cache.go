// Package cache is a tag-based cache of REST query results. Fresh entries
// are served without a request, concurrent misses on the same key share one
// request, and mutations invalidate tags so watched queries refetch.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
)

// Fetcher performs the request for a query and returns the unwrapped
// payload.
type Fetcher func(ctx context.Context) ([]byte, error)

type Query struct {
	Key   string
	Tags  []Tag
	Fetch Fetcher
}

// Facets describe the last request made for a key.
type Facets struct {
	Loading   bool
	Err       error
	HasData   bool
	FetchedAt time.Time
}

type watcher struct {
	q  Query
	fn func([]byte, error)
}

type Cache struct {
	backend Backend
	ttl     time.Duration
	metrics *metrics.ClientMetrics
	now     func() time.Time
	group   singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	facets   map[string]Facets
	watchers map[int]watcher
	nextID   int
	epochs   map[Tag]uint64

	// storeMu orders stores of fetched data against invalidations, so a
	// fetch that straddles an invalidation never stores its result as fresh.
	storeMu sync.Mutex
}

func New(b Backend, ttl time.Duration, m *metrics.ClientMetrics) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		backend:  b,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		facets:   make(map[string]Facets),
		watchers: make(map[int]watcher),
		epochs:   make(map[Tag]uint64),
	}
}

// Query returns fresh cached data or fetches it. When the fetch fails the
// error is returned together with whatever stale data is cached.
func (c *Cache) Query(ctx context.Context, q Query) ([]byte, error) {
	e, ok := c.lookup(ctx, q.Key)
	if ok && !e.Invalidated && c.now().Sub(e.FetchedAt) < c.ttl {
		c.count(q, "hit")
		return e.Data, nil
	}
	if ok {
		c.count(q, "stale")
	} else {
		c.count(q, "miss")
	}

	data, err := c.fetch(ctx, q)
	if err != nil {
		return e.Data, err
	}
	return data, nil
}

// Refetch ignores freshness and always issues the request.
func (c *Cache) Refetch(ctx context.Context, q Query) ([]byte, error) {
	data, err := c.fetch(ctx, q)
	if err != nil {
		e, _ := c.lookup(ctx, q.Key)
		return e.Data, err
	}
	return data, nil
}

// Mutate runs do and, when it succeeds, invalidates tags.
func (c *Cache) Mutate(ctx context.Context, tags []Tag, do Fetcher) ([]byte, error) {
	data, err := do(ctx)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := c.Invalidate(ctx, tags...); err != nil {
			logging.Log.Warnf("CACHE: invalidation after mutation failed: %v", err)
		}
	}
	return data, nil
}

// Invalidate marks entries with any of tags stale and refetches every
// watched query carrying one of them in the background.
func (c *Cache) Invalidate(ctx context.Context, tags ...Tag) error {
	c.storeMu.Lock()
	c.mu.Lock()
	for _, t := range tags {
		c.epochs[t]++
	}
	c.mu.Unlock()
	keys, err := c.backend.Invalidate(ctx, tags...)
	c.storeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to invalidate %v: %w", tags, err)
	}
	logging.Log.Debugf("CACHE: invalidated %v (%d keys)", tags, len(keys))

	c.mu.Lock()
	var due []watcher
	for _, w := range c.watchers {
		if slices.ContainsFunc(w.q.Tags, func(t Tag) bool { return slices.Contains(tags, t) }) {
			due = append(due, w)
		}
	}
	c.mu.Unlock()

	for _, w := range due {
		c.wg.Add(1)
		go func(w watcher) {
			defer c.wg.Done()
			data, err := c.Refetch(c.ctx, w.q)
			if c.ctx.Err() != nil {
				return
			}
			w.fn(data, err)
		}(w)
	}
	return nil
}

// Watch calls fn with the result of every refetch of q caused by an
// invalidation. The returned function stops watching.
func (c *Cache) Watch(q Query, fn func([]byte, error)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.watchers[id] = watcher{q: q, fn: fn}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.watchers, id)
	}
}

func (c *Cache) Facets(key string) Facets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facets[key]
}

// Close stops background refetches and closes the backend.
func (c *Cache) Close() error {
	c.cancel()
	c.wg.Wait()
	return c.backend.Close()
}

func (c *Cache) lookup(ctx context.Context, key string) (Entry, bool) {
	e, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		logging.Log.Warnf("CACHE: backend read for %s failed: %v", key, err)
		return Entry{}, false
	}
	return e, ok
}

func (c *Cache) fetch(ctx context.Context, q Query) ([]byte, error) {
	c.mu.Lock()
	f := c.facets[q.Key]
	f.Loading = true
	c.facets[q.Key] = f
	c.mu.Unlock()

	// Requests started after an invalidation never join one started before it.
	epoch := c.epoch(q.Tags)
	v, err, _ := c.group.Do(fmt.Sprintf("%s@%d", q.Key, epoch), func() (any, error) {
		data, err := q.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, q, epoch, data)
		return data, nil
	})

	c.mu.Lock()
	f = c.facets[q.Key]
	f.Loading = false
	f.Err = err
	if err == nil {
		f.HasData = true
		f.FetchedAt = c.now()
	}
	c.facets[q.Key] = f
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// store saves data unless q's tags were invalidated since epoch was taken.
func (c *Cache) store(ctx context.Context, q Query, epoch uint64, data []byte) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	if c.epoch(q.Tags) != epoch {
		logging.Log.Debugf("CACHE: %s was invalidated while fetching, not storing", q.Key)
		return
	}
	if err := c.backend.Set(ctx, q.Key, Entry{Data: data, FetchedAt: c.now()}, q.Tags); err != nil {
		logging.Log.Warnf("CACHE: failed to store %s: %v", q.Key, err)
	}
}

// epoch sums the invalidation counters of tags. Counters only grow, so
// the sum changes whenever any of them does.
func (c *Cache) epoch(tags []Tag) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum uint64
	for _, t := range tags {
		sum += c.epochs[t]
	}
	return sum
}

func (c *Cache) count(q Query, result string) {
	tag := "none"
	if len(q.Tags) > 0 {
		tag = string(q.Tags[0])
	}
	c.metrics.CacheLookups.WithLabelValues(tag, result).Inc()
}

// Load runs q through c and decodes the payload into T. On failure the
// decoded stale value, if any, is returned with the error.
func Load[T any](ctx context.Context, c *Cache, q Query) (T, error) {
	return Decode[T](c.Query(ctx, q))
}

// Reload is Load without the freshness check.
func Reload[T any](ctx context.Context, c *Cache, q Query) (T, error) {
	return Decode[T](c.Refetch(ctx, q))
}

// Decode is the typed form of a watcher callback's arguments.
func Decode[T any](data []byte, err error) (T, error) {
	var v T
	if len(data) == 0 {
		return v, err
	}
	if derr := json.Unmarshal(data, &v); derr != nil {
		if err != nil {
			return v, err
		}
		return v, fmt.Errorf("failed to decode cached payload: %w", derr)
	}
	return v, err
}
