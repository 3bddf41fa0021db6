// Package gate provides the concurrency-control primitives the
// orchestrator uses to bound in-flight attempts and to pace generator
// requests per model.
package gate

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrContextCanceled is returned when the context is canceled while
// waiting to acquire a resource.
var ErrContextCanceled = errors.New("context canceled while waiting for gate")

// Semaphore bounds the number of concurrently in-flight operations.
type Semaphore struct {
	tickets chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity. A
// non-positive capacity disables limiting (Acquire/Release become no-ops).
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		return nil
	}
	return &Semaphore{tickets: make(chan struct{}, capacity)}
}

// Acquire blocks until a ticket is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}
	select {
	case s.tickets <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrContextCanceled
	}
}

// Release returns a ticket to the semaphore.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	select {
	case <-s.tickets:
	default:
		// Release without a matching Acquire; ignore rather than deadlock.
	}
}

// PerModelThrottle rate-limits requests on a per-model basis, used to
// pace generator calls so a single provider is never hammered across many
// concurrent attempts.
type PerModelThrottle struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewPerModelThrottle creates a throttle allowing ratePerMin requests per
// minute per model name, with the given burst. A non-positive ratePerMin
// disables limiting.
func NewPerModelThrottle(ratePerMin, burst int) *PerModelThrottle {
	if ratePerMin <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &PerModelThrottle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(ratePerMin) / 60.0),
		burst:    burst,
	}
}

func (t *PerModelThrottle) limiterFor(model string) *rate.Limiter {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	l, ok := t.limiters[model]
	t.mu.RUnlock()
	if ok {
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok = t.limiters[model]; ok {
		return l
	}
	l = rate.NewLimiter(t.limit, t.burst)
	t.limiters[model] = l
	return l
}

// Acquire waits for a token for the given model, or returns ctx.Err() if
// canceled first.
func (t *PerModelThrottle) Acquire(ctx context.Context, model string) error {
	if t == nil {
		return nil
	}
	limiter := t.limiterFor(model)
	if limiter.Allow() {
		return nil
	}
	return limiter.Wait(ctx)
}

// Gate combines a concurrency semaphore with a per-model throttle into
// the single acquire/release pair the orchestrator wraps around each
// attempt, from before generation until the attempt's result is recorded.
type Gate struct {
	sem      *Semaphore
	throttle *PerModelThrottle
}

// New creates a Gate bounding concurrency at maxConcurrent (<=0 disables)
// and pacing generator calls at ratePerMin requests/minute per model
// (<=0 disables).
func New(maxConcurrent, ratePerMin int) *Gate {
	return &Gate{
		sem:      NewSemaphore(maxConcurrent),
		throttle: NewPerModelThrottle(ratePerMin, 1),
	}
}

// Acquire acquires both the concurrency slot and the model's rate token.
// On throttle failure, the concurrency slot is released before returning.
func (g *Gate) Acquire(ctx context.Context, model string) error {
	if err := g.sem.Acquire(ctx); err != nil {
		return err
	}
	if err := g.throttle.Acquire(ctx, model); err != nil {
		g.sem.Release()
		return err
	}
	return nil
}

// Release releases the concurrency slot. The per-model throttle has no
// explicit release.
func (g *Gate) Release() {
	g.sem.Release()
}
