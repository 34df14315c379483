package embedcache

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryEntries = 10000

// MemoryStore keeps embeddings in process memory. When full, the oldest
// insertion is evicted first.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	data       map[string]memoryEntry
	order      []string
	now        func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryEntries
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		data:       make(map[string]memoryEntry),
		now:        time.Now,
	}
}

func (m *MemoryStore) Name() string { return BackendMemory }

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		e, ok := m.data[key]
		if !ok {
			continue
		}
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.data, key)
			continue
		}
		result[key] = e.value
	}
	return result, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, values map[string][]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}

	for key, value := range values {
		if _, ok := m.data[key]; !ok {
			m.order = append(m.order, key)
		}
		m.data[key] = memoryEntry{value: value, expires: expires}
	}

	for len(m.data) > m.maxEntries && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.data, oldest)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryStore) Close() error { return nil }
