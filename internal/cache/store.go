package cache

import (
	"context"
	"time"
)

// Store is the key/value cache shared by the session layer. Implementations
// treat a missing or expired key as a miss, not an error.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
