package credential

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryKey struct {
	session uuid.UUID
	key     string
}

// MemoryStore keeps credentials in process memory. Credentials are lost when
// the portal restarts, which signs every browser out.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[memoryKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[memoryKey]string)}
}

func (m *MemoryStore) Get(_ context.Context, sessionID uuid.UUID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[memoryKey{sessionID, key}]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID uuid.UUID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[memoryKey{sessionID, key}] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, memoryKey{sessionID, key})
	return nil
}

// Len returns the number of stored values.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
