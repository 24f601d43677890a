package memstore

import (
	"sort"
	"sync"

	"guide/internal/domain"
)

// MemoryStore is a process-local parse cache, used when the on-disk cache is
// disabled or locked by another process.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]domain.CachedDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]domain.CachedDocument),
	}
}

func (s *MemoryStore) Get(key string) (domain.CachedDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.docs[key]
	if !ok {
		return domain.CachedDocument{}, false, nil
	}
	cached.Document = cached.Document.Clone()
	return cached, true, nil
}

func (s *MemoryStore) PutBatch(entries map[string]domain.CachedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cached := range entries {
		cached.Document = cached.Document.Clone()
		s.docs[key] = cached
	}
	return nil
}

func (s *MemoryStore) DeleteBatch(keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.docs, key)
	}
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for key := range s.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
