package store

import (
	"context"
	"sync"

	"github.com/l5yth/potato-mesh/internal/models"
)

// MemoryStore keeps the encoded checkpoint in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Load decodes the last saved document.
func (s *MemoryStore) Load(ctx context.Context) (*models.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeCheckpoint(s.data)
}

// Save stores an encoded copy so later mutations by the caller do not leak in.
func (s *MemoryStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
