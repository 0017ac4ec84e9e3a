package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// KBStats tracks aggregate counter adjustments per knowledge base.
type KBStats struct {
	TokenNum int64
	ChunkNum int64
	Duration float64
}

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	tenants   map[string]string // kbID -> tenantID
	kbStats   map[string]*KBStats
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
		tenants:   make(map[string]string),
		kbStats:   make(map[string]*KBStats),
	}
}

// SetTenant maps a knowledge base to a tenant for GetTenantID lookups.
func (m *MockDocumentStore) SetTenant(kbID, tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[kbID] = tenantID
}

// KBStatsFor returns the accumulated aggregate deltas for a knowledge base.
func (m *MockDocumentStore) KBStatsFor(kbID string) KBStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.kbStats[kbID]; ok {
		return *s
	}
	return KBStats{}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.documents[doc.ID] = &cp
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockDocumentStore) ListByKB(ctx context.Context, kbID string, filter driven.DocumentFilter) ([]*domain.Document, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Document
	for _, doc := range m.documents {
		if doc.KBID != kbID {
			continue
		}
		if filter.Keywords != "" && !strings.Contains(strings.ToLower(doc.Name), strings.ToLower(filter.Keywords)) {
			continue
		}
		if len(filter.RunStatus) > 0 && !containsRun(filter.RunStatus, doc.Run) {
			continue
		}
		cp := *doc
		out = append(out, &cp)
	}
	total := len(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentStore) CountByKB(ctx context.Context, kbID string, runStatus []domain.RunStatus, parserID domain.ParserType) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, doc := range m.documents {
		if doc.KBID != kbID {
			continue
		}
		if parserID != "" && doc.ParserID != parserID {
			continue
		}
		if len(runStatus) > 0 && !containsRun(runStatus, doc.Run) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *MockDocumentStore) IncrementStats(ctx context.Context, docID, kbID string, tokenDelta, chunkDelta int64, durationDelta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc, ok := m.documents[docID]; ok {
		doc.TokenNum += tokenDelta
		doc.ChunkNum += chunkDelta
		doc.ProcessDuration += durationDelta
	}

	stats, ok := m.kbStats[kbID]
	if !ok {
		stats = &KBStats{}
		m.kbStats[kbID] = stats
	}
	stats.TokenNum += tokenDelta
	stats.ChunkNum += chunkDelta
	stats.Duration += durationDelta
	return nil
}

func (m *MockDocumentStore) GetTenantID(ctx context.Context, docID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[docID]
	if !ok {
		return "", domain.ErrNotFound
	}
	tenantID, ok := m.tenants[doc.KBID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return tenantID, nil
}

func containsRun(set []domain.RunStatus, s domain.RunStatus) bool {
	for _, r := range set {
		if r == s {
			return true
		}
	}
	return false
}
