package store

import "sync"

// Scheduler runs fn on a later tick. The caller never observes the outcome.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(fn func())

// Schedule implements Scheduler.
func (f SchedulerFunc) Schedule(fn func()) {
	if f != nil && fn != nil {
		f(fn)
	}
}

// GoScheduler runs each task on its own goroutine.
type GoScheduler struct{}

// Schedule implements Scheduler.
func (GoScheduler) Schedule(fn func()) {
	if fn == nil {
		return
	}
	go fn()
}

// QueueScheduler holds tasks until Drain is called. It suits event loops and
// tests that need deterministic control over the next tick.
type QueueScheduler struct {
	mu      sync.Mutex
	pending []func()
}

// NewQueueScheduler returns an empty queue.
func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{}
}

// Schedule implements Scheduler.
func (q *QueueScheduler) Schedule(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Pending reports the number of queued tasks.
func (q *QueueScheduler) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs queued tasks in FIFO order, including tasks scheduled while
// draining, and returns how many ran.
func (q *QueueScheduler) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return ran
		}
		task := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		task()
		ran++
	}
}
