package queue

import (
	"context"
	"sync"
)

// MemoryQueue is an in-process queue backed by a buffered channel. It is used
// when no broker is configured and in tests.
type MemoryQueue struct {
	ch     chan Task
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 256
	}
	return &MemoryQueue{ch: make(chan Task, size), done: make(chan struct{})}
}

// Enqueue never waits for room: a full buffer is reported as ErrFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- t:
		return nil
	default:
		return ErrFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, fn func(ctx context.Context, t Task)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return ErrClosed
		case t := <-q.ch:
			fn(ctx, t)
		}
	}
}

// Len reports the number of buffered tasks.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}
