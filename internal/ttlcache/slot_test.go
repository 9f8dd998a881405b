package ttlcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)}
}

func TestSlot_GetRespectsExpiry(t *testing.T) {
	clock := newClock()
	s := New[int](clock.Now)

	_, ok := s.Get()
	assert.False(t, ok, "empty slot")

	s.Set(42, clock.Now().Add(time.Minute))
	v, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clock.Advance(time.Minute)
	_, ok = s.Get()
	assert.False(t, ok, "expiry instant is exclusive")

	v, ok = s.Stale()
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestSlot_Invalidate(t *testing.T) {
	clock := newClock()
	s := New[string](clock.Now)
	s.Set("v", clock.Now().Add(time.Hour))

	s.Invalidate()

	_, ok := s.Get()
	assert.False(t, ok)
	v, ok := s.Stale()
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSlot_LoadCachesUntilExpiry(t *testing.T) {
	clock := newClock()
	s := New[int](clock.Now)
	var calls int

	fill := func(context.Context) (int, time.Time, error) {
		calls++
		return calls, clock.Now().Add(5 * time.Minute), nil
	}

	v, err := s.Load(context.Background(), fill)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(4 * time.Minute)
	v, err = s.Load(context.Background(), fill)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "still fresh")

	clock.Advance(time.Minute)
	v, err = s.Load(context.Background(), fill)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "refilled after expiry")
}

func TestSlot_LoadErrorKeepsStale(t *testing.T) {
	clock := newClock()
	s := New[int](clock.Now)
	s.Set(7, clock.Now())

	boom := errors.New("boom")
	_, err := s.Load(context.Background(), func(context.Context) (int, time.Time, error) {
		return 0, time.Time{}, boom
	})
	require.ErrorIs(t, err, boom)

	v, ok := s.Stale()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestSlot_LoadCollapsesConcurrentMisses(t *testing.T) {
	s := New[int](nil)
	var calls atomic.Int32
	release := make(chan struct{})

	fill := func(context.Context) (int, time.Time, error) {
		calls.Add(1)
		<-release
		return 99, time.Now().Add(time.Hour), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.Load(context.Background(), fill)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "one fill for all concurrent misses")
	for _, v := range results {
		assert.Equal(t, 99, v)
	}
}

func TestSlot_LoadCallerCancellation(t *testing.T) {
	s := New[int](nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx, func(context.Context) (int, time.Time, error) {
		<-release
		return 1, time.Now().Add(time.Hour), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
