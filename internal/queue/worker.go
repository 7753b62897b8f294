package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

// HandlerFunc executes one task. A returned error schedules a retry while
// attempts remain.
type HandlerFunc func(ctx context.Context, t Task) error

// Worker dispatches tasks to handlers registered by kind.
type Worker struct {
	queue    Queue
	logger   *zap.Logger
	handlers map[string]HandlerFunc

	baseDelay time.Duration
	maxDelay  time.Duration

	pending sync.WaitGroup
}

func NewWorker(q Queue, logger *zap.Logger) *Worker {
	return &Worker{
		queue:     q,
		logger:    logger,
		handlers:  make(map[string]HandlerFunc),
		baseDelay: time.Second,
		maxDelay:  time.Minute,
	}
}

// WithRetryDelay overrides the exponential retry delay bounds.
func (w *Worker) WithRetryDelay(base, maxDelay time.Duration) *Worker {
	w.baseDelay, w.maxDelay = base, maxDelay
	return w
}

// Handle registers fn for tasks of the given kind.
func (w *Worker) Handle(kind string, fn HandlerFunc) {
	w.handlers[kind] = fn
}

// Run consumes until ctx is done and then waits for scheduled retries to
// settle.
func (w *Worker) Run(ctx context.Context) error {
	err := w.queue.Consume(ctx, w.process)
	w.pending.Wait()
	return err
}

func (w *Worker) process(ctx context.Context, t Task) {
	log := w.logger.With(
		zap.String("task_id", t.ID),
		zap.String("kind", t.Kind),
		zap.Int("attempt", t.Attempt),
	)

	fn, ok := w.handlers[t.Kind]
	if !ok {
		log.Error("no handler for task kind, dropping")
		return
	}

	err := safeRun(ctx, fn, t)
	if err == nil {
		log.Debug("task done")
		return
	}

	remaining := t.RemainingAttempts()
	if remaining == 0 {
		log.Error("task failed, no attempts left", zap.Error(err), zap.Int("remaining_attempts", 0))
		return
	}
	log.Warn("task failed, retrying", zap.Error(err), zap.Int("remaining_attempts", remaining))

	next := t
	next.Attempt++
	w.schedule(ctx, next, w.delay(t.Attempt))
}

func (w *Worker) delay(attempt int) time.Duration {
	d := w.baseDelay
	for i := 1; i < attempt && d < w.maxDelay; i++ {
		d *= 2
	}
	return min(d, w.maxDelay)
}

func (w *Worker) schedule(ctx context.Context, t Task, after time.Duration) {
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		select {
		case <-ctx.Done():
			w.logger.Warn("shutdown before retry", zap.String("task_id", t.ID), zap.String("kind", t.Kind))
			return
		case <-time.After(after):
		}
		if err := w.queue.Enqueue(ctx, t); err != nil {
			w.logger.Error("re-enqueue failed", zap.String("task_id", t.ID), zap.Error(err))
		}
	}()
}

func safeRun(ctx context.Context, fn HandlerFunc, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &retry.PanicError{Value: r}
		}
	}()
	return fn(ctx, t)
}
