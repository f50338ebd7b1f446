// Package storage defines the key-value record store the gateway persists
// through: idempotency records and delivery receipts. Implementations are
// injectable so the core logic has no direct I/O dependency.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no live record exists for a key.
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistence capability consumed by the gateway.
type Store interface {
	// Set writes value under key. A zero ttl means the record does not
	// expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound if the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
