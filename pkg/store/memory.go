package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and dry runs. Nothing survives
// a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	focus   map[string][]uuid.UUID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Record),
		focus:   make(map[string][]uuid.UUID),
	}
}

func (s *MemoryStore) GetRecord(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	clone.State = append([]byte(nil), rec.State...)
	return &clone, nil
}

func (s *MemoryStore) PutRecord(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	clone.State = append([]byte(nil), rec.State...)
	if existing, ok := s.records[rec.ID]; ok {
		clone.CreatedAt = existing.CreatedAt
	} else if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	clone.UpdatedAt = time.Now()
	s.records[rec.ID] = &clone
	return nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) FocusStack(_ context.Context, channel string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uuid.UUID(nil), s.focus[channel]...), nil
}

func (s *MemoryStore) PutFocusStack(_ context.Context, channel string, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		delete(s.focus, channel)
		return nil
	}
	s.focus[channel] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
