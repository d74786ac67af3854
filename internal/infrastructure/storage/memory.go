package storage

import (
	"strings"
	"sync"
)

// MemoryAdapter is the ephemeral tier: an in-process map that vanishes on
// restart. It also serves as the fallback when the durable tier is
// unavailable.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryAdapter creates an empty in-memory store.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		data: make(map[string]string),
	}
}

// Probe always succeeds for the in-memory tier.
func (m *MemoryAdapter) Probe() bool {
	return true
}

// Get retrieves a value by key.
func (m *MemoryAdapter) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, exists := m.data[key]
	return value, exists, nil
}

// Set stores a value under key.
func (m *MemoryAdapter) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Remove deletes a key. Removing an absent key is not an error.
func (m *MemoryAdapter) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns all keys with the given prefix.
func (m *MemoryAdapter) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
