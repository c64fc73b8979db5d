// Package queue provides a minimal generic FIFO used to drain batched
// download requests in order.
package queue

// FIFO is a first-in first-out queue backed by a slice.
//
// FIFO is not goroutine-safe; the transfer session is strictly
// single-threaded, so no locking is needed.
type FIFO[T any] struct {
	items []T
}

// New creates a FIFO with capacity preallocated for prealloc items.
func New[T any](prealloc int) *FIFO[T] {
	return &FIFO[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds an item to the tail of the queue.
func (q *FIFO[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the item at the head of the queue.
// The second return value is false when the queue is empty.
func (q *FIFO[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero // release the reference for the garbage collector
	q.items = q.items[1:]

	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *FIFO[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	return q.items[0], true
}

// Reset resets the queue to an empty state, reusing the underlying array.
func (q *FIFO[T]) Reset() {
	q.items = q.items[:0]
}

// IsEmpty returns true if the queue is empty.
func (q *FIFO[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *FIFO[T]) Len() int {
	return len(q.items)
}
