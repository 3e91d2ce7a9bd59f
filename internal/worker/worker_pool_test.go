package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	wp := NewWorkerPool(3, 2, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	var (
		done atomic.Int32
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, wp.Submit(context.Background(), func() {
			defer wg.Done()
			done.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(50), done.Load())
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	wp := NewWorkerPool(2, 10, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	var (
		current, peak atomic.Int32
		wg            sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, wp.Submit(context.Background(), func() {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	wp := NewWorkerPool(1, 1, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	require.NoError(t, wp.Submit(context.Background(), func() { panic("boom") }))

	ran := make(chan struct{})
	require.NoError(t, wp.Submit(context.Background(), func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestSubmitHonorsContext(t *testing.T) {
	wp := NewWorkerPool(1, 0, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, wp.Submit(context.Background(), func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// The only worker is busy and the queue is unbuffered.
	err := wp.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitAfterStop(t *testing.T) {
	wp := NewWorkerPool(1, 1, zerolog.Nop())
	wp.Start()
	wp.Stop()

	err := wp.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolStopped)
}
