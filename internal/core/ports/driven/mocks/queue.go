package mocks

import (
	"context"
	"sync"

	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// MockParseQueue is a mock implementation of ParseQueue for testing
type MockParseQueue struct {
	mu   sync.Mutex
	jobs []*driven.ParseJob

	// Acked records acknowledged task ids
	Acked []string
}

// NewMockParseQueue creates a new MockParseQueue
func NewMockParseQueue() *MockParseQueue {
	return &MockParseQueue{}
}

// Enqueued returns the jobs enqueued so far.
func (m *MockParseQueue) Enqueued() []*driven.ParseJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*driven.ParseJob(nil), m.jobs...)
}

func (m *MockParseQueue) Enqueue(ctx context.Context, job *driven.ParseJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *MockParseQueue) Dequeue(ctx context.Context, timeoutSec int) (*driven.ParseJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return nil, nil
	}
	job := m.jobs[0]
	m.jobs = m.jobs[1:]
	return job, nil
}

func (m *MockParseQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, taskID)
	return nil
}

func (m *MockParseQueue) Ping(ctx context.Context) error { return nil }
func (m *MockParseQueue) Close() error                   { return nil }

// PipelineDispatch records one pipeline queue publication.
type PipelineDispatch struct {
	TenantID   string
	PipelineID string
	TaskID     string
	DocID      string
}

// MockPipelineQueue is a mock implementation of PipelineQueue for testing
type MockPipelineQueue struct {
	mu sync.Mutex

	// Dispatched records publications in order
	Dispatched []PipelineDispatch
}

// NewMockPipelineQueue creates a new MockPipelineQueue
func NewMockPipelineQueue() *MockPipelineQueue {
	return &MockPipelineQueue{}
}

func (m *MockPipelineQueue) Enqueue(ctx context.Context, tenantID, pipelineID, taskID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dispatched = append(m.Dispatched, PipelineDispatch{
		TenantID:   tenantID,
		PipelineID: pipelineID,
		TaskID:     taskID,
		DocID:      docID,
	})
	return nil
}

func (m *MockPipelineQueue) Ping(ctx context.Context) error { return nil }
func (m *MockPipelineQueue) Close() error                   { return nil }
