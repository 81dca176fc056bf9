// Package queue provides an unbounded, thread-safe FIFO hand-off from many
// producers to one consumer with cooperative shutdown.
//
// Push never blocks and never fails. Pop blocks until an item is available or
// the queue has been shut down and drained. Shutdown does not discard items:
// everything pushed, before or after Shutdown, is still returned by Pop until
// the queue is empty.
package queue

import (
	"sync"

	"github.com/c360/sensorstreams/errors"
)

// Queue is an unbounded multi-producer, single-consumer FIFO.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []T
	head     int
	finished bool

	stats   *Statistics // ALWAYS initialized for observability
	metrics *queueMetrics
}

// New creates an empty queue.
// Returns an error if metrics registration fails when requested.
func New[T any](options ...Option[T]) (*Queue[T], error) {
	opts := applyOptions(options...)

	var metrics *queueMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newQueueMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "Queue", "New", "metrics registration")
		}
	}

	q := &Queue[T]{
		items:   make([]T, 0, opts.initialCapacity),
		stats:   NewStatistics(),
		metrics: metrics,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Push appends item and wakes one waiting consumer.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	size := q.lenLocked()
	q.mu.Unlock()

	q.notEmpty.Signal()

	q.stats.Push()
	q.stats.UpdateSize(int64(size))
	if q.metrics != nil {
		q.metrics.recordPush(size)
	}
}

// Pop removes and returns the oldest item, blocking while the queue is empty
// and not shut down. It returns false only once the queue is shut down and empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	for q.lenLocked() == 0 && !q.finished {
		q.notEmpty.Wait()
	}

	if q.lenLocked() == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	return q.popLocked()
}

// TryPop returns the oldest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	if q.lenLocked() == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	return q.popLocked()
}

// popLocked removes the head item and releases the lock.
func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.compactLocked()
	size := q.lenLocked()
	q.mu.Unlock()

	q.stats.Pop()
	q.stats.UpdateSize(int64(size))
	if q.metrics != nil {
		q.metrics.recordPop(size)
	}
	return item, true
}

// Shutdown marks the queue finished and wakes every waiter. Idempotent.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	already := q.finished
	q.finished = true
	q.mu.Unlock()

	if !already {
		q.notEmpty.Broadcast()
	}
}

// Finished reports whether Shutdown has been called.
func (q *Queue[T]) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Stats returns queue statistics (always available for observability).
func (q *Queue[T]) Stats() *Statistics {
	return q.stats
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

// compactLocked reclaims the consumed prefix once it dominates the backing array.
func (q *Queue[T]) compactLocked() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head >= 1024 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		var zero T
		for i := n; i < len(q.items); i++ {
			q.items[i] = zero
		}
		q.items = q.items[:n]
		q.head = 0
	}
}
