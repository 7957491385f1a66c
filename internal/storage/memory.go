package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a non-durable Store with the same session semantics as
// SQLiteStore. Writes become visible to later sessions on Close only.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Open acquires the store
func (m *MemoryStore) Open() (Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	return &memorySession{store: m, pending: make(map[string][]byte)}, nil
}

// Close marks the store closed; later Open calls fail
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of committed keys
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type memorySession struct {
	store   *MemoryStore
	pending map[string][]byte
	done    bool
}

func (ms *memorySession) lookup(key string) ([]byte, bool) {
	if data, ok := ms.pending[key]; ok {
		return data, true
	}
	data, ok := ms.store.data[key]
	return data, ok
}

func (ms *memorySession) Get(key string, v any) (bool, error) {
	if ms.done {
		return false, ErrClosed
	}

	data, ok := ms.lookup(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (ms *memorySession) Set(key string, v any) error {
	if ms.done {
		return ErrClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	ms.pending[key] = data
	return nil
}

func (ms *memorySession) Has(key string) (bool, error) {
	if ms.done {
		return false, ErrClosed
	}
	_, ok := ms.lookup(key)
	return ok, nil
}

func (ms *memorySession) Keys() ([]string, error) {
	if ms.done {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(ms.store.data)+len(ms.pending))
	for key := range ms.store.data {
		keys = append(keys, key)
	}
	for key := range ms.pending {
		if _, ok := ms.store.data[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (ms *memorySession) Close() error {
	if ms.done {
		return ErrClosed
	}
	for key, data := range ms.pending {
		ms.store.data[key] = data
	}
	ms.release()
	return nil
}

func (ms *memorySession) Rollback() error {
	if ms.done {
		return ErrClosed
	}
	ms.release()
	return nil
}

func (ms *memorySession) release() {
	ms.done = true
	ms.pending = nil
	ms.store.mu.Unlock()
}
