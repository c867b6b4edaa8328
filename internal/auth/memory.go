package auth

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in memory and delegates refreshing.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Credentials
	fetcher Fetcher
}

// NewMemoryStore returns a store seeded with initial, which may be nil.
// Without a fetcher FetchNewCredentials reports no credentials.
func NewMemoryStore(initial *Credentials, fetcher Fetcher) *MemoryStore {
	s := &MemoryStore{fetcher: fetcher}
	if initial != nil {
		cp := *initial
		s.current = &cp
	}
	return s
}

func (s *MemoryStore) ProvideCredentials() *Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *MemoryStore) SetCredentials(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &c
}

// Clear forgets the current credentials.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *MemoryStore) FetchNewCredentials(ctx context.Context) (*Credentials, error) {
	if s.fetcher == nil {
		return nil, nil
	}
	return s.fetcher.FetchNewCredentials(ctx)
}
