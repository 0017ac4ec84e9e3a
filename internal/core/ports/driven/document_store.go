package driven

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// DocumentFilter narrows a knowledge-base document listing.
// A zero Limit means unbounded (the aggregate dispatcher lists every
// document of a knowledge base in one page).
type DocumentFilter struct {
	Keywords  string
	RunStatus []domain.RunStatus
	Types     []domain.FileType
	Suffixes  []string
	OrderBy   string
	Desc      bool
	Limit     int
	Offset    int
}

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByKB retrieves documents of a knowledge base with the total count
	ListByKB(ctx context.Context, kbID string, filter DocumentFilter) ([]*domain.Document, int, error)

	// Delete removes a document row
	Delete(ctx context.Context, id string) error

	// CountByKB counts documents matching the run states and parser
	CountByKB(ctx context.Context, kbID string, runStatus []domain.RunStatus, parserID domain.ParserType) (int, error)

	// IncrementStats adjusts the document's chunk/token/duration counters
	// and the owning knowledge base's aggregates by the same deltas.
	// Negative deltas roll a document's contribution back.
	IncrementStats(ctx context.Context, docID, kbID string, tokenDelta, chunkDelta int64, durationDelta float64) error

	// GetTenantID resolves the tenant owning a document through its
	// knowledge base
	GetTenantID(ctx context.Context, docID string) (string, error)
}
