package blobcache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/metrics"
)

// FetchFunc produces the payload for a missing entry.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Stats counts cache activity for one namespace.
type Stats struct {
	Hits   int `json:"hits" yaml:"hits"`
	Misses int `json:"misses" yaml:"misses"`
	Writes int `json:"writes" yaml:"writes"`
}

// Cache wraps a Store with get-or-fetch semantics. It is not safe for
// concurrent use.
type Cache struct {
	store   Store
	metrics *metrics.Metrics
	stats   map[Namespace]*Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records lookups in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		stats: make(map[Namespace]*Stats),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrFetch returns the payload stored under key. On a miss it calls fetch
// exactly once, persists the result, and returns it. A fetch error is
// returned as-is and nothing is written.
func (c *Cache) GetOrFetch(ctx context.Context, ns Namespace, key string, fetch FetchFunc) ([]byte, error) {
	st := c.nsStats(ns)

	payload, err := c.store.Get(ctx, ns, key)
	switch {
	case err == nil:
		st.Hits++
		c.metrics.ObserveCacheLookup(string(ns), true)
		zap.L().Debug("cache hit", zap.String("namespace", string(ns)), zap.String("key", key))
		return payload, nil
	case !errors.Is(err, ErrNotFound):
		return nil, eris.Wrapf(err, "blobcache: get %s/%s", ns, key)
	}

	st.Misses++
	c.metrics.ObserveCacheLookup(string(ns), false)

	payload, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, eris.Errorf("blobcache: refusing to store invalid JSON under %s/%s", ns, key)
	}

	if err := c.store.Put(ctx, ns, key, payload); err != nil {
		return nil, eris.Wrapf(err, "blobcache: put %s/%s", ns, key)
	}
	st.Writes++
	return payload, nil
}

// Lookup reads an entry without fetching. It returns ErrNotFound on a miss.
func (c *Cache) Lookup(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	payload, err := c.store.Get(ctx, ns, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "blobcache: get %s/%s", ns, key)
	}
	return payload, nil
}

// Stats returns a snapshot of per-namespace counters.
func (c *Cache) Stats() map[Namespace]Stats {
	out := make(map[Namespace]Stats, len(c.stats))
	for ns, st := range c.stats {
		out[ns] = *st
	}
	return out
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) nsStats(ns Namespace) *Stats {
	st, ok := c.stats[ns]
	if !ok {
		st = &Stats{}
		c.stats[ns] = st
	}
	return st
}
