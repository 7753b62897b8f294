// Package queue carries side-effect work that must not block a request:
// tasks are enqueued by the request path and executed by a Worker with
// per-task retry.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)

// Task is one unit of deferred work.
type Task struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// NewTask marshals payload into a fresh task.
func NewTask(kind string, payload any, maxAttempts int) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Task{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     body,
		Attempt:     1,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}, nil
}

// RemainingAttempts is how many more times the task may run after this one.
func (t Task) RemainingAttempts() int {
	return max(0, t.MaxAttempts-t.Attempt)
}

// Queue is a FIFO of tasks. Consume blocks, handing each task to fn until
// ctx is done. A task is acknowledged once fn returns, whatever the result;
// retries are re-enqueued by the worker.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	Consume(ctx context.Context, fn func(ctx context.Context, t Task)) error
	Close() error
}
