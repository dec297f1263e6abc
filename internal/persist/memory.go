package persist

import "sync"

// MemoryBlobs is an in-memory Blobs implementation. Used in tests and as a
// fallback when no durable path is configured; state does not survive
// restarts.
type MemoryBlobs struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory blob store.
func NewMemory() *MemoryBlobs {
	return &MemoryBlobs{blobs: make(map[string][]byte)}
}

// Read returns the blob stored under key, or ErrNotFound.
func (m *MemoryBlobs) Read(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores the blob under key, replacing any previous value.
func (m *MemoryBlobs) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryBlobs) Close() error {
	return nil
}
