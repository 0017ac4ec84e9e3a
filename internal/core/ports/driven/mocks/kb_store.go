package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// MockKnowledgebaseStore is a mock implementation of KnowledgebaseStore for testing
type MockKnowledgebaseStore struct {
	mu  sync.RWMutex
	kbs map[string]*domain.Knowledgebase

	// SetPipelineTaskErr, when set, fails pointer persistence
	SetPipelineTaskErr error

	// FieldMapCleared records kb ids whose schema cache was dropped
	FieldMapCleared []string
}

// NewMockKnowledgebaseStore creates a new MockKnowledgebaseStore
func NewMockKnowledgebaseStore() *MockKnowledgebaseStore {
	return &MockKnowledgebaseStore{kbs: make(map[string]*domain.Knowledgebase)}
}

func (m *MockKnowledgebaseStore) Save(ctx context.Context, kb *domain.Knowledgebase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *kb
	m.kbs[kb.ID] = &cp
	return nil
}

func (m *MockKnowledgebaseStore) Get(ctx context.Context, id string) (*domain.Knowledgebase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kb, ok := m.kbs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *kb
	return &cp, nil
}

func (m *MockKnowledgebaseStore) GetByName(ctx context.Context, tenantID, name string) (*domain.Knowledgebase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, kb := range m.kbs {
		if kb.TenantID == tenantID && kb.Name == name {
			cp := *kb
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockKnowledgebaseStore) List(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Knowledgebase
	for _, kb := range m.kbs {
		if kb.TenantID == tenantID {
			cp := *kb
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockKnowledgebaseStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kbs, id)
	return nil
}

func (m *MockKnowledgebaseStore) SetPipelineTask(ctx context.Context, kbID string, kind domain.PipelineKind, taskID string, finishAt *time.Time) error {
	if m.SetPipelineTaskErr != nil {
		return m.SetPipelineTaskErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.kbs[kbID]
	if !ok {
		return domain.ErrNotFound
	}
	kb.SetTaskPointer(kind, taskID, finishAt)
	return nil
}

func (m *MockKnowledgebaseStore) ClearFieldMap(ctx context.Context, kbID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kb, ok := m.kbs[kbID]; ok {
		kb.FieldMap = nil
	}
	m.FieldMapCleared = append(m.FieldMapCleared, kbID)
	return nil
}
