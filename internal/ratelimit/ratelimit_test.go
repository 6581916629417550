package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances instantly whenever something waits on it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waited []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waited = append(c.waited, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// blockedClock never fires, for cancellation tests.
type blockedClock struct{ now time.Time }

func (c *blockedClock) Now() time.Time                       { return c.now }
func (c *blockedClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func TestLimiterSpacesCalls(t *testing.T) {
	clock := newFakeClock()
	l := New(BackendReplicate, 15*time.Second, clock)

	for i := 0; i < 4; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}

	assert.Equal(t, []time.Duration{15 * time.Second, 15 * time.Second, 15 * time.Second}, clock.waited)
}

func TestLimiterDoesNotWaitAfterIdleInterval(t *testing.T) {
	clock := newFakeClock()
	l := New(BackendReplicate, 10*time.Second, clock)

	require.NoError(t, l.Wait(context.Background()))
	clock.mu.Lock()
	clock.now = clock.now.Add(time.Minute)
	clock.mu.Unlock()
	require.NoError(t, l.Wait(context.Background()))

	assert.Empty(t, clock.waited)
}

func TestLimiterZeroIntervalNeverWaits(t *testing.T) {
	clock := newFakeClock()
	l := New("none", 0, clock)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Empty(t, clock.waited)

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Wait(context.Background()))
	assert.Equal(t, "", nilLimiter.Name())
}

func TestLimiterHonoursContext(t *testing.T) {
	l := New(BackendOpenAI, time.Hour, &blockedClock{now: time.Now()})
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistrySharesLimiterPerBackend(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(map[string]time.Duration{BackendOpenAI: 0}, 15*time.Second, clock)

	a := reg.For(BackendReplicate)
	b := reg.For(BackendReplicate)
	assert.Same(t, a, b)
	assert.Equal(t, BackendReplicate, a.Name())

	require.NoError(t, a.Wait(context.Background()))
	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, []time.Duration{15 * time.Second}, clock.waited)

	o := reg.For(BackendOpenAI)
	require.NoError(t, o.Wait(context.Background()))
	require.NoError(t, o.Wait(context.Background()))
	assert.Len(t, clock.waited, 1)
}
