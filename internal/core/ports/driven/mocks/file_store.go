package mocks

import (
	"context"
	"sync"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

type storedFile struct {
	bucket   string
	location string
	refs     int
}

// MockFileStore is a mock implementation of FileStore for testing
type MockFileStore struct {
	mu      sync.RWMutex
	links   map[string][]*driven.FileLink // docID -> links
	files   map[string]*storedFile        // fileID -> file
	folders map[string]bool               // kbName -> present
}

// NewMockFileStore creates a new MockFileStore
func NewMockFileStore() *MockFileStore {
	return &MockFileStore{
		links:   make(map[string][]*driven.FileLink),
		files:   make(map[string]*storedFile),
		folders: make(map[string]bool),
	}
}

// AddSharedRef bumps the reference count of a file so tests can model a
// blob linked by more than one document.
func (m *MockFileStore) AddSharedRef(fileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[fileID]; ok {
		f.refs++
	}
}

func (m *MockFileStore) LinkDocument(ctx context.Context, doc *domain.Document, bucket, location string) (*driven.FileLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fileID := domain.NewID()
	m.files[fileID] = &storedFile{bucket: bucket, location: location, refs: 1}
	link := &driven.FileLink{ID: domain.NewID(), FileID: fileID, DocumentID: doc.ID}
	m.links[doc.ID] = append(m.links[doc.ID], link)
	return link, nil
}

func (m *MockFileStore) GetByDocument(ctx context.Context, docID string) ([]*driven.FileLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*driven.FileLink(nil), m.links[docID]...), nil
}

func (m *MockFileStore) DeleteByDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, docID)
	return nil
}

func (m *MockFileStore) DeleteKBFile(ctx context.Context, fileID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return 0, nil
	}
	f.refs--
	if f.refs > 0 {
		return 0, nil
	}
	delete(m.files, fileID)
	return 1, nil
}

func (m *MockFileStore) StorageAddress(ctx context.Context, docID string) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	links := m.links[docID]
	if len(links) == 0 {
		return "", "", domain.ErrNotFound
	}
	f, ok := m.files[links[0].FileID]
	if !ok {
		return "", "", domain.ErrNotFound
	}
	return f.bucket, f.location, nil
}

func (m *MockFileStore) DeleteKBFolder(ctx context.Context, kbName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.folders, kbName)
	return nil
}
