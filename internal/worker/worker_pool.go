package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPoolStopped is returned by Submit once the pool has been stopped.
var ErrPoolStopped = errors.New("worker pool stopped")

type Task func()

// WorkerPool runs tasks on a fixed set of goroutines. Submit blocks
// briefly when the buffer is full rather than dropping work, and refuses
// tasks once Stop has been called.
type WorkerPool struct {
	tasks      chan Task
	wg         sync.WaitGroup
	busy       int
	maxWorkers int
	logger     zerolog.Logger
	mu         sync.RWMutex

	stopMu  sync.RWMutex
	stopped bool
}

func NewWorkerPool(maxWorkers int, logger zerolog.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		tasks:      make(chan Task, maxWorkers*10),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) error {
	for i := 0; i < wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.logger.Info().Int("max_workers", wp.maxWorkers).Msg("Worker pool started")
	return nil
}

func (wp *WorkerPool) Stop() error {
	wp.stopMu.Lock()
	if wp.stopped {
		wp.stopMu.Unlock()
		return nil
	}
	wp.stopped = true
	wp.stopMu.Unlock()

	close(wp.tasks)
	wp.wg.Wait()

	wp.logger.Info().Msg("Worker pool stopped")
	return nil
}

// Submit hands the task to a worker. The read lock is held across the
// send so Stop cannot close the channel underneath an in-flight Submit.
func (wp *WorkerPool) Submit(task Task) error {
	wp.stopMu.RLock()
	defer wp.stopMu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.tasks <- task:
		return nil
	default:
		wp.logger.Warn().Msg("Worker pool task queue is full")
		select {
		case wp.tasks <- task:
			return nil
		case <-time.After(1 * time.Second):
			return errors.New("worker pool task queue is full")
		}
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.tasks {
		wp.mu.Lock()
		wp.busy++
		wp.mu.Unlock()

		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error().
						Int("worker_id", id).
						Interface("panic", r).
						Msg("Worker recovered from panic")
				}

				wp.mu.Lock()
				wp.busy--
				wp.mu.Unlock()
			}()

			task()
		}()
	}
}

func (wp *WorkerPool) GetActiveWorkers() int {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.busy
}

func (wp *WorkerPool) GetQueueLength() int {
	return len(wp.tasks)
}
