// Package eventq provides non-blocking channel sends and a bounded
// single-worker queue for fire-and-forget jobs.
package eventq

import (
	"context"
	"sync"
)

// Offer performs a non-blocking send.
// It returns true when the value was sent and false when the channel is full
// or closed.
func Offer[T any](ch chan<- T, value T) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case ch <- value:
		return true
	default:
		return false
	}
}

// Worker runs handle for each queued item on a single goroutine, in order.
type Worker[T any] struct {
	ch     chan T
	handle func(T)
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewWorker starts a worker with a queue of the given capacity.
func NewWorker[T any](capacity int, handle func(T)) *Worker[T] {
	if capacity < 1 {
		capacity = 1
	}
	w := &Worker[T]{
		ch:     make(chan T, capacity),
		handle: handle,
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker[T]) run() {
	defer close(w.done)
	for item := range w.ch {
		w.handle(item)
	}
}

// Offer enqueues item without blocking. It returns false when the queue is
// full or the worker was closed.
func (w *Worker[T]) Offer(item T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	return Offer(w.ch, item)
}

// Len is the number of items waiting.
func (w *Worker[T]) Len() int { return len(w.ch) }

// Close stops accepting items and waits until the queued ones are handled
// or ctx ends.
func (w *Worker[T]) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
