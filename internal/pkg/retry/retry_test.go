package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(retries int) Policy {
	return Policy{Timeout: 50 * time.Millisecond, Retries: retries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoIsBounded(t *testing.T) {
	boom := errors.New("down")
	attempts, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestDoPermanent(t *testing.T) {
	boom := errors.New("rejected")
	attempts, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		return Permanent(boom)
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestDoTimeout(t *testing.T) {
	attempts, err := Do(context.Background(), fastPolicy(1), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

func TestDoRecoversPanic(t *testing.T) {
	attempts, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		panic("nil lock")
	})
	var pe *PanicError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, attempts)
}
