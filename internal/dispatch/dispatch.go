// Package dispatch runs best-effort side effects off the request path.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Queue is a bounded task queue served by a fixed set of workers.
// Submit never blocks; tasks that don't fit are dropped.
type Queue struct {
	jobs    chan job
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// OnDrop is called with the task name when a task is dropped.
	OnDrop func(name string)
}

// New starts a queue with the given number of workers and buffer size.
// Each task runs with its own timeout.
func New(workers, size int, timeout time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}

	q := &Queue{
		jobs:    make(chan job, size),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Submit enqueues fn. It reports whether the task was accepted.
func (q *Queue) Submit(name string, fn Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		slog.Warn("dispatch queue closed, dropping task", "task", name)
		q.dropped(name)
		return false
	}

	select {
	case q.jobs <- job{name: name, fn: fn}:
		return true
	default:
		slog.Warn("dispatch queue full, dropping task", "task", name)
		q.dropped(name)
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch task panicked", "task", j.name, "panic", r)
		}
	}()

	if err := j.fn(ctx); err != nil {
		slog.Warn("dispatch task failed", "task", j.name, "error", err)
	}
}

func (q *Queue) dropped(name string) {
	if q.OnDrop != nil {
		q.OnDrop(name)
	}
}
