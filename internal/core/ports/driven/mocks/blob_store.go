package mocks

import (
	"context"
	"sync"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// MockBlobStore is a mock implementation of BlobStore for testing
type MockBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// Deleted records bucket/key pairs removed, in order
	Deleted []string

	// RemovedBuckets records buckets dropped entirely
	RemovedBuckets []string
}

// NewMockBlobStore creates a new MockBlobStore
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{objects: make(map[string][]byte)}
}

func key(bucket, k string) string { return bucket + "/" + k }

func (m *MockBlobStore) Put(ctx context.Context, bucket, k string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key(bucket, k)] = data
	return nil
}

func (m *MockBlobStore) Get(ctx context.Context, bucket, k string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key(bucket, k)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *MockBlobStore) Delete(ctx context.Context, bucket, k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key(bucket, k))
	m.Deleted = append(m.Deleted, key(bucket, k))
	return nil
}

func (m *MockBlobStore) Exists(ctx context.Context, bucket, k string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key(bucket, k)]
	return ok, nil
}

func (m *MockBlobStore) RemoveBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := bucket + "/"
	for k := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.objects, k)
		}
	}
	m.RemovedBuckets = append(m.RemovedBuckets, bucket)
	return nil
}
