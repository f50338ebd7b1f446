// Package memory is an in-process storage.Store for tests and single-node
// deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marketbeam/taskgate/internal/storage"
)

type record struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]record)}
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	rec := record{value: append([]byte(nil), value...)}
	if ttl > 0 {
		rec.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	if !rec.expiresAt.IsZero() && time.Now().After(rec.expiresAt) {
		s.mu.Lock()
		delete(s.records, key)
		s.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), rec.value...), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
