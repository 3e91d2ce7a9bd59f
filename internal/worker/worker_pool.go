package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type Task func()

// WorkerPool runs submitted tasks on a fixed number of goroutines.
// Submit blocks while the queue is full instead of dropping work.
type WorkerPool struct {
	tasks       chan Task
	wg          sync.WaitGroup
	busyWorkers atomic.Int64
	maxWorkers  int
	logger      zerolog.Logger

	// mu guards the lifecycle flags. Workers never take it, so a Submit
	// blocked on a full queue cannot stall the workers draining it.
	mu       sync.RWMutex
	started  bool
	stopped  bool
	shutdown chan struct{}
}

func NewWorkerPool(maxWorkers, queueSize int, logger zerolog.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &WorkerPool{
		tasks:      make(chan Task, queueSize),
		maxWorkers: maxWorkers,
		logger:     logger,
		shutdown:   make(chan struct{}),
	}
}

func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started {
		return
	}
	wp.started = true

	for i := 0; i < wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.logger.Info().Int("max_workers", wp.maxWorkers).Msg("Worker pool started")
}

// Stop lets queued tasks finish and waits for the workers to exit.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.shutdown)
	close(wp.tasks)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.logger.Info().Msg("Worker pool stopped")
}

// Submit enqueues task, waiting for queue space until ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdown:
		return ErrPoolStopped
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug().Int("worker_id", id).Msg("Worker started")

	for task := range wp.tasks {
		wp.run(id, task)
	}

	wp.logger.Debug().Int("worker_id", id).Msg("Worker stopped")
}

func (wp *WorkerPool) run(id int, task Task) {
	wp.busyWorkers.Add(1)

	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error().
				Int("worker_id", id).
				Interface("panic", r).
				Msg("Worker recovered from panic")
		}

		wp.busyWorkers.Add(-1)
	}()

	task()
}

func (wp *WorkerPool) GetBusyWorkers() int {
	return int(wp.busyWorkers.Load())
}

func (wp *WorkerPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"busy_workers":   wp.GetBusyWorkers(),
		"max_workers":    wp.maxWorkers,
		"queue_length":   len(wp.tasks),
		"queue_capacity": cap(wp.tasks),
	}
}
