package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// ListStorage defines list operations on a key/value store with per-key expiry.
// Index semantics follow Redis: 0 is the head, negative indices count from the tail.
type ListStorage interface {
	// LPush inserts values at the head of the list, creating it if needed.
	// Returns the list length after the push. An existing expiry is preserved.
	LPush(ctx context.Context, key string, values ...string) (int, error)

	// LTrim keeps only the elements in the inclusive range [start, stop]
	LTrim(ctx context.Context, key string, start, stop int) error

	// LRange returns the elements in the inclusive range [start, stop].
	// A missing key yields an empty slice.
	LRange(ctx context.Context, key string, start, stop int) ([]string, error)

	// Expire sets the time-to-live of the key. Returns ErrKeyNotFound for a missing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining time-to-live, 0 when the key has no expiry
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes the key
	Delete(ctx context.Context, key string) error
}
