package tokencache

import (
	"sync"
	"time"
)

// MemoryStore keeps the token cache in process memory. Used in tests and
// for cache-disabled runs; tokens are simply reissued after a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore creates an in-memory token cache
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Load returns a copy of the unexpired entries
func (s *MemoryStore) Load() (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		if e.Live(now) {
			out[id] = e
		}
	}
	return out, nil
}

// Save replaces the stored entries with the unexpired subset of the input
func (s *MemoryStore) Save(entries map[string]Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries = make(map[string]Entry, len(entries))
	for id, e := range entries {
		if e.Live(now) {
			s.entries[id] = e
		}
	}
	return nil
}
