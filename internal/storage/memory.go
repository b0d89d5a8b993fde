package storage

import "sync"

// MemoryStore keeps values in process memory. Useful for tests and for the
// "memory" backend where nothing should survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	*hub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string), hub: newHub()}
}

func (s *MemoryStore) Read(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Write(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	s.notify(key)
	return nil
}
