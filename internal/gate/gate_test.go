package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	var inFlight int32
	var maxSeen int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			require.NoError(t, sem.Acquire(ctx))
			defer sem.Release()

			n := atomic.AddInt32(&inFlight, 1)
			for {
				cur := atomic.LoadInt32(&maxSeen)
				if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(maxSeen), 2)
}

func TestSemaphoreNilIsUnbounded(t *testing.T) {
	var sem *Semaphore
	assert.NoError(t, sem.Acquire(context.Background()))
	sem.Release() // must not panic
}

func TestSemaphoreAcquireRespectsCancellation(t *testing.T) {
	sem := NewSemaphore(1)
	require.NoError(t, sem.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sem.Acquire(ctx)
	assert.ErrorIs(t, err, ErrContextCanceled)
}

func TestGateAcquireRelease(t *testing.T) {
	g := New(1, 0) // unlimited rate, bounded concurrency
	ctx := context.Background()
	require.NoError(t, g.Acquire(ctx, "model-a"))
	g.Release()
	require.NoError(t, g.Acquire(ctx, "model-a"))
	g.Release()
}

func TestPerModelThrottleDisabledWhenNonPositive(t *testing.T) {
	throttle := NewPerModelThrottle(0, 0)
	assert.Nil(t, throttle)
	assert.NoError(t, throttle.Acquire(context.Background(), "any"))
}
