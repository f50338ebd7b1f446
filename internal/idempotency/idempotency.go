// Package idempotency derives stable dedup keys for side-effecting jobs
// and runs those jobs at most once per key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marketbeam/taskgate/internal/storage"
)

// Key derives the dedup key for a logical job. The derivation is
// length-prefixed so no concatenation of fields can collide with another
// field split, and it is stable across process restarts: identical inputs
// always produce the identical 64-char hex digest, and changing any single
// input (payload bytes included) changes the key.
func Key(jobID, target, variant string, payload []byte) string {
	h := sha256.New()
	for _, field := range [][]byte{[]byte(jobID), []byte(target), []byte(variant), payload} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write(field)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// executedMarker is the record stored once a job has run.
var executedMarker = []byte("executed")

// Executor guarantees at-most-once execution per key, backed by a record
// store. Resubmitting the same logical job after a timeout is a no-op.
// Keys currently running are tracked in memory so concurrent calls with
// the same key cannot both slip past the record check.
type Executor struct {
	store storage.Store
	ttl   time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewExecutor creates an Executor. Records expire after ttl; zero means
// they are kept until deleted.
func NewExecutor(store storage.Store, ttl time.Duration) *Executor {
	return &Executor{
		store:    store,
		ttl:      ttl,
		inflight: make(map[string]struct{}),
	}
}

// Do runs fn unless a job with the same key already completed or is
// running right now. It reports whether fn was executed. A failed fn
// leaves no record, so the job can be retried with the same key.
func (e *Executor) Do(ctx context.Context, key string, fn func(context.Context) error) (bool, error) {
	record := "idempotency:" + key

	e.mu.Lock()
	if _, running := e.inflight[key]; running {
		e.mu.Unlock()
		return false, nil
	}
	e.inflight[key] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inflight, key)
		e.mu.Unlock()
	}()

	_, err := e.store.Get(ctx, record)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return false, fmt.Errorf("check idempotency record: %w", err)
	}

	if err := fn(ctx); err != nil {
		return false, err
	}

	if err := e.store.Set(ctx, record, executedMarker, e.ttl); err != nil {
		return true, fmt.Errorf("persist idempotency record: %w", err)
	}
	return true, nil
}
