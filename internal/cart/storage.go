package cart

import (
	"context"
	"slices"
	"sync"
)

// Storage is durable key/value storage scoped to one shopper's device.
// Load returns nil data and a nil error when the key has never been written.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	// Update replaces the value under key with fn's result. Concurrent
	// updates of the same key are serialized: fn always sees the value the
	// previous update wrote. An error from fn aborts the update.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// MemoryStorage keeps values in process memory. It backs tests and the
// single-process development mode.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Load implements Storage.
func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.values[key]), nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = slices.Clone(data)
	return nil
}

// Update implements Storage.
func (m *MemoryStorage) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := fn(slices.Clone(m.values[key]))
	if err != nil {
		return err
	}
	m.values[key] = slices.Clone(data)
	return nil
}
