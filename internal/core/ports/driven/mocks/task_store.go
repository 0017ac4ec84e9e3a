package mocks

import (
	"context"
	"sync"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// MockTaskStore is a mock implementation of TaskStore for testing
type MockTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task

	// CreateErr, when set, fails the next Create call
	CreateErr error
}

// NewMockTaskStore creates a new MockTaskStore
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[string]*domain.Task)}
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *MockTaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (m *MockTaskStore) ListByDoc(ctx context.Context, docID string) ([]*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.DocID == docID {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTaskStore) DeleteByDoc(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, task := range m.tasks {
		if task.DocID == docID {
			delete(m.tasks, id)
		}
	}
	return nil
}

func (m *MockTaskStore) UpdateProgress(ctx context.Context, id string, progress float32, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	task.Progress = progress
	task.ProgressMsg = msg
	return nil
}

// SetProgress seeds worker-reported progress on an existing task.
func (m *MockTaskStore) SetProgress(id string, progress float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok {
		task.Progress = progress
	}
}

// Count returns the number of ledger rows.
func (m *MockTaskStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}
