package storage

import (
	"context"
	"sync"
)

// MemoryBlobStore keeps blobs in process memory. Data is lost on restart.
type MemoryBlobStore struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	versions map[string]int64
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte), versions: make(map[string]int64)}
}

func (m *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBlobStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), value...)
	m.versions[key]++
	return nil
}

func (m *MemoryBlobStore) GetVersion(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return append([]byte(nil), v...), m.versions[key], nil
}

func (m *MemoryBlobStore) PutIfVersion(_ context.Context, key string, value []byte, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[key] != version {
		return ErrVersionConflict
	}
	m.blobs[key] = append([]byte(nil), value...)
	m.versions[key]++
	return nil
}

func (m *MemoryBlobStore) Ping(context.Context) error { return nil }

func (m *MemoryBlobStore) Close() error { return nil }
