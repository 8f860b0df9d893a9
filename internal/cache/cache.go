// Package cache is a small keyed TTL cache for upstream readings. Expired
// entries are kept for a grace period and served when a reload fails, and
// concurrent loads of one key are collapsed into a single upstream call.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// Config holds cache settings.
type Config struct {
	// TTL is how long an entry is served without reloading.
	TTL time.Duration

	// StaleTTL is how long after fetch an entry may still stand in for a
	// failed reload. Values below TTL are raised to TTL.
	StaleTTL time.Duration

	Clock clockwork.Clock
}

// Cache maps keys to the latest loaded *T.
type Cache[T any] struct {
	ttl      time.Duration
	staleTTL time.Duration
	clock    clockwork.Clock
	group    singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[T]
}

type entry[T any] struct {
	value     *T
	fetchedAt time.Time
}

// New creates an empty cache.
func New[T any](cfg Config) *Cache[T] {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache[T]{
		ttl:      cfg.TTL,
		staleTTL: max(cfg.StaleTTL, cfg.TTL),
		clock:    clock,
		entries:  make(map[string]entry[T]),
	}
}

// Get returns the cached value for key, calling load when it is missing or
// expired. If load fails and an entry younger than StaleTTL exists, that
// entry is returned with stale set and a nil error. Concurrent callers for
// the same key share one load, run with the first caller's context.
func (c *Cache[T]) Get(ctx context.Context, key string, load func(context.Context) (*T, error)) (value *T, stale bool, err error) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(e.fetchedAt.Add(c.ttl)) {
		return e.value, false, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = entry[T]{value: loaded, fetchedAt: c.clock.Now()}
		c.mu.Unlock()
		return loaded, nil
	})
	if err == nil {
		return v.(*T), false, nil
	}

	c.mu.RLock()
	e, ok = c.entries[key]
	c.mu.RUnlock()
	if ok && c.clock.Now().Before(e.fetchedAt.Add(c.staleTTL)) {
		return e.value, true, nil
	}
	return nil, false, err
}

// FetchedAt reports when key was last loaded.
func (c *Cache[T]) FetchedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.fetchedAt, ok
}

// Purge drops every entry.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Stats describes the cache contents at one instant.
type Stats struct {
	Entries     int
	Fresh       int
	Expired     int
	NewestFetch time.Time
}

// Stats counts fresh and expired entries.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock.Now()
	s := Stats{Entries: len(c.entries)}
	for _, e := range c.entries {
		if now.Before(e.fetchedAt.Add(c.ttl)) {
			s.Fresh++
		} else {
			s.Expired++
		}
		if e.fetchedAt.After(s.NewestFetch) {
			s.NewestFetch = e.fetchedAt
		}
	}
	return s
}
