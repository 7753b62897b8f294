// Package kvstore is the expiring key-value store shared by every server
// instance, used for idempotency keys.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
