package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backend names whose calls share one limiter.
const (
	BackendReplicate = "replicate"
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
)

// DefaultInterval spaces consecutive calls to a shared generation backend.
const DefaultInterval = 15 * time.Second

// Clock abstracts time so pacing can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Limiter spaces calls to one backend at a fixed interval. A nil Limiter
// or one built with a zero interval never waits.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	clock   Clock
}

// New creates a limiter that admits one call per interval.
func New(name string, interval time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock
	}
	l := &Limiter{name: name, clock: clock}
	if interval > 0 {
		l.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return l
}

// Name returns the backend name the limiter paces.
func (l *Limiter) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}

	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("rate limiter %s: reservation refused", l.name)
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		r.CancelAt(l.clock.Now())
		return ctx.Err()
	case <-l.clock.After(delay):
		return nil
	}
}

// Registry hands out one shared Limiter per backend.
type Registry struct {
	mu        sync.Mutex
	clock     Clock
	fallback  time.Duration
	intervals map[string]time.Duration
	limiters  map[string]*Limiter
}

// NewRegistry creates a registry. Backends missing from intervals use
// fallback.
func NewRegistry(intervals map[string]time.Duration, fallback time.Duration, clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	return &Registry{
		clock:     clock,
		fallback:  fallback,
		intervals: intervals,
		limiters:  make(map[string]*Limiter),
	}
}

// For returns the limiter for backend, creating it on first use.
func (r *Registry) For(backend string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[backend]; ok {
		return l
	}
	interval, ok := r.intervals[backend]
	if !ok {
		interval = r.fallback
	}
	l := New(backend, interval, r.clock)
	r.limiters[backend] = l
	return l
}
