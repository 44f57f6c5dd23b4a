package sessionstore

import (
	"context"
	"sync"
)

// MemoryStore ne survit pas au processus (tests, mode watch éphémère).
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, ErrNoSession
	}
	cp := *s.snap
	cp.Cookies = append([]Cookie(nil), s.snap.Cookies...)
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	cp.Cookies = append([]Cookie(nil), snap.Cookies...)
	s.snap = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}
