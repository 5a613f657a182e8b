package rates

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock abstracts the current time so cache expiry can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FetchFunc loads a fresh value and reports when it was fetched upstream.
type FetchFunc[T any] func(ctx context.Context) (T, time.Time, error)

// TTLCache holds one value for at most ttl after it was fetched.
// An expired or empty cache refetches synchronously; concurrent callers share
// one in-flight fetch. A failed fetch never falls back to the expired value.
type TTLCache[T any] struct {
	fetch FetchFunc[T]
	ttl   time.Duration
	clock Clock

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	loaded    bool

	group singleflight.Group
}

// NewTTLCache creates a cache around fetch. A nil clock uses SystemClock.
func NewTTLCache[T any](fetch FetchFunc[T], ttl time.Duration, clock Clock) *TTLCache[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TTLCache[T]{fetch: fetch, ttl: ttl, clock: clock}
}

// Get returns the cached value while fresh, otherwise fetches a new one.
func (c *TTLCache[T]) Get(ctx context.Context) (T, error) {
	if v, ok := c.Peek(); ok {
		return v, nil
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// Another caller may have refreshed while we waited.
		if v, ok := c.Peek(); ok {
			return v, nil
		}
		v, fetchedAt, err := c.fetch(ctx)
		if err != nil {
			return v, err
		}
		c.Set(v, fetchedAt)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Peek returns the cached value without fetching. ok is false when the cache
// is empty or expired.
func (c *TTLCache[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded || !c.fresh(c.clock.Now()) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v as fetched at fetchedAt. A zero fetchedAt means now.
func (c *TTLCache[T]) Set(v T, fetchedAt time.Time) {
	if fetchedAt.IsZero() {
		fetchedAt = c.clock.Now()
	}
	c.mu.Lock()
	c.value = v
	c.fetchedAt = fetchedAt
	c.loaded = true
	c.mu.Unlock()
}

// Invalidate drops the cached value.
func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.loaded = false
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// FetchedAt returns when the cached value was fetched, or zero when empty.
func (c *TTLCache[T]) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

func (c *TTLCache[T]) fresh(now time.Time) bool {
	return now.Sub(c.fetchedAt) < c.ttl
}
