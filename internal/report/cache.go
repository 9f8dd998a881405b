package report

import (
	"context"
	"time"

	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/ttlcache"
)

const DefaultTTL = 300 * time.Second

// Cache holds the last built Metrics for a fixed TTL. The server serves one
// plan per process, so there is a single slot.
type Cache struct {
	builder  *Builder
	slot     *ttlcache.Slot[Metrics]
	ttl      time.Duration
	now      func() time.Time
	observer Observer
}

func NewCache(builder *Builder, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		builder:  builder,
		slot:     ttlcache.New[Metrics](builder.now),
		ttl:      ttl,
		now:      builder.now,
		observer: builder.observer,
	}
}

// Get returns the cached Metrics for plan, rebuilding once the TTL has passed.
// Concurrent misses share one rebuild.
func (c *Cache) Get(ctx context.Context, plan string) Metrics {
	if m, ok := c.slot.Get(); ok {
		if m.Plan == plan {
			c.observer.ObserveCache(true)
			return m
		}
		c.slot.Invalidate()
	}
	c.observer.ObserveCache(false)

	m, err := c.slot.Load(ctx, func(ctx context.Context) (Metrics, time.Time, error) {
		m := c.builder.Build(ctx, plan)
		return m, c.now().Add(c.ttl), nil
	})
	if err == nil {
		return m
	}
	// The caller gave up waiting on the rebuild.
	if stale, ok := c.slot.Stale(); ok && stale.Plan == plan {
		return stale
	}
	return newMetrics(plan, c.now(), nil, domain.DefaultMinutesRemaining, nil)
}

// Invalidate forces the next Get to rebuild.
func (c *Cache) Invalidate() {
	c.slot.Invalidate()
}

// ExpiresAt returns when the cached Metrics go stale.
func (c *Cache) ExpiresAt() time.Time {
	return c.slot.ExpiresAt()
}
