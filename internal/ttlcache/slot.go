// Package ttlcache holds single-value caches with an explicit expiry.
//
// A Slot keeps its last value after expiry so callers can fall back to
// stale data, and collapses concurrent refreshes into one fill call.
package ttlcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const flightKey = "slot"

// FillFunc produces a fresh value and the instant it stops being fresh.
type FillFunc[T any] func(ctx context.Context) (T, time.Time, error)

type Slot[T any] struct {
	mu        sync.Mutex
	value     T
	has       bool
	expiresAt time.Time
	now       func() time.Time

	group singleflight.Group
}

// New returns an empty slot. A nil clock means time.Now.
func New[T any](now func() time.Time) *Slot[T] {
	if now == nil {
		now = time.Now
	}
	return &Slot[T]{now: now}
}

// Get returns the value while it is fresh.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.has && s.now().Before(s.expiresAt) {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Stale returns the last stored value, fresh or not.
func (s *Slot[T]) Stale() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Set stores v until expiresAt.
func (s *Slot[T]) Set(v T, expiresAt time.Time) {
	s.mu.Lock()
	s.value = v
	s.has = true
	s.expiresAt = expiresAt
	s.mu.Unlock()
}

// Invalidate expires the slot. The value stays available through Stale.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// ExpiresAt returns the expiry of the current value.
func (s *Slot[T]) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Load returns the fresh value or refills the slot. Concurrent callers that
// miss share one in-flight fill. The fill runs detached from the caller's
// cancellation so one impatient caller cannot fail the others; each caller
// still stops waiting when its own ctx is done.
func (s *Slot[T]) Load(ctx context.Context, fill FillFunc[T]) (T, error) {
	if v, ok := s.Get(); ok {
		return v, nil
	}

	fillCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey, func() (any, error) {
		if v, ok := s.Get(); ok {
			return v, nil
		}
		v, expiresAt, err := fill(fillCtx)
		if err != nil {
			return v, err
		}
		s.Set(v, expiresAt)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
