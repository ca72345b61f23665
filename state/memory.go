package state

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend keeps everything in a map. Used by tests and the memory store mode.
type MemoryBackend struct {
	mu sync.RWMutex
	db map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{db: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.db[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

// Apply takes the write lock once so readers never see half a batch.
func (m *MemoryBackend) Apply(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			delete(m.db, op.Key)
			continue
		}
		m.db[op.Key] = append([]byte(nil), op.Value...)
	}
	return nil
}

// Keys lists stored keys in byte order, tests use it to assert no stray writes.
func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.db))
	for k := range m.db {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }
