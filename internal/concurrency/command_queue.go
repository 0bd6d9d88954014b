// File: internal/concurrency/command_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded multi-producer, single-consumer FIFO used as the reactor's
// command channel.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// CommandQueue is an unbounded FIFO. Push never blocks; TryPop never blocks.
// Items pushed by one goroutine are popped in push order. After Close all
// pushes fail and pending items are dropped.
type CommandQueue[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	closed bool
}

// NewCommandQueue returns an empty open queue.
func NewCommandQueue[T any]() *CommandQueue[T] {
	return &CommandQueue[T]{items: queue.New()}
}

// Push appends v. It returns false if the queue is closed.
func (q *CommandQueue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items.Add(v)
	return true
}

// TryPop removes the oldest item, if any.
func (q *CommandQueue[T]) TryPop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.items.Length() == 0 {
		return v, false
	}
	return q.items.Remove().(T), true
}

// Len reports the number of queued items.
func (q *CommandQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}
	return q.items.Length()
}

// Close rejects further pushes and drops queued items. Safe to call twice.
func (q *CommandQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = queue.New()
}

// Closed reports whether Close has been called.
func (q *CommandQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
