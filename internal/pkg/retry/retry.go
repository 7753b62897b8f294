// Package retry runs calls to external collaborators with a per-attempt
// timeout, bounded exponential backoff and panic recovery.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds one collaborator call. Retries is the number of attempts
// after the first, so Retries=2 means at most three calls.
type Policy struct {
	Timeout         time.Duration
	Retries         int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Timeout:         10 * time.Second,
		Retries:         2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// PanicError is returned when the wrapped call panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Do calls fn until it succeeds, returns a permanent error, the attempts are
// used up or ctx is done. It reports how many attempts were made.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (attempts int, err error) {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	var bo backoff.BackOff = backoff.WithMaxRetries(b, uint64(max(0, p.Retries)))
	bo = backoff.WithContext(bo, ctx)

	err = backoff.Retry(func() error {
		attempts++
		callErr := call(ctx, p.Timeout, fn)
		var pe *PanicError
		if errors.As(callErr, &pe) {
			return backoff.Permanent(callErr)
		}
		return callErr
	}, bo)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return attempts, err
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) (err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}
