package queue

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrQueueEmpty = errors.New("queue is empty")

// FIFO is a first-in first-out queue safe for concurrent use.
type FIFO[T any] struct {
	mu    sync.Mutex
	items []T
}

func NewFIFO[T any](items ...T) *FIFO[T] {
	q := &FIFO[T]{items: make([]T, 0, len(items))}
	q.items = append(q.items, items...)
	return q
}

// Pop removes and returns the front element.
// If the queue is empty, it returns [ErrQueueEmpty].
func (q *FIFO[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, ErrQueueEmpty
	}

	v := q.items[0]
	q.items[0] = zero // Let it be collected.
	q.items = q.items[1:]

	return v, nil
}

func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
