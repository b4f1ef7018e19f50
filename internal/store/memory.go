package store

import (
	"strings"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process KeyValueStore backed by go-cache. Entries
// never expire; the cache is used purely as a concurrent string map.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Get returns the value for key and whether it was present.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	value, found := m.cache.Get(key)
	if !found {
		return "", false, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", false, nil
	}
	return s, true, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.cache.Set(key, value, cache.NoExpiration)
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(key string) error {
	m.cache.Delete(key)
	return nil
}

// Keys returns all keys starting with prefix.
func (m *MemoryStore) Keys(prefix string) ([]string, error) {
	items := m.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
