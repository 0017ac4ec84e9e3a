package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// IndexCall records one filtered index mutation.
type IndexCall struct {
	Filter map[string]any
	Patch  map[string]any
	Index  string
	KBID   string
}

// MockSearchIndex is a mock implementation of SearchIndex for testing
type MockSearchIndex struct {
	mu       sync.RWMutex
	existing map[string]bool // index/kbID -> exists
	hits     []*driven.Hit

	// DeleteCalls and UpdateCalls record mutations in order
	DeleteCalls []IndexCall
	UpdateCalls []IndexCall

	// DroppedIndexes records DeleteIndex invocations as index/kbID
	DroppedIndexes []string

	// SearchErr, when set, fails Search calls
	SearchErr error
}

// NewMockSearchIndex creates a new MockSearchIndex
func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{existing: make(map[string]bool)}
}

// SetExists marks a partition as present for a knowledge base.
func (m *MockSearchIndex) SetExists(index, kbID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existing[index+"/"+kbID] = true
}

// SetHits seeds the result set returned by Search.
func (m *MockSearchIndex) SetHits(hits ...*driven.Hit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = hits
}

func (m *MockSearchIndex) IndexExists(ctx context.Context, index, kbID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.existing[index+"/"+kbID], nil
}

func (m *MockSearchIndex) Search(ctx context.Context, filter map[string]any, index string, kbIDs []string) ([]*driven.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return append([]*driven.Hit(nil), m.hits...), nil
}

func (m *MockSearchIndex) Update(ctx context.Context, filter, patch map[string]any, index, kbID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, IndexCall{Filter: filter, Patch: patch, Index: index, KBID: kbID})
	return nil
}

func (m *MockSearchIndex) Delete(ctx context.Context, filter map[string]any, index, kbID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, IndexCall{Filter: filter, Index: index, KBID: kbID})
	return nil
}

func (m *MockSearchIndex) DeleteIndex(ctx context.Context, index, kbID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DroppedIndexes = append(m.DroppedIndexes, fmt.Sprintf("%s/%s", index, kbID))
	return nil
}
