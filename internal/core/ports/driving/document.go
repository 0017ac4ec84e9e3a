package driving

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// CreateDocumentRequest creates a virtual document inside a knowledge base.
type CreateDocumentRequest struct {
	KBID      string
	Name      string
	CreatedBy string
}

// ListDocumentsRequest filters a knowledge-base document listing.
type ListDocumentsRequest struct {
	Keywords  string
	RunStatus []domain.RunStatus
	Types     []domain.FileType
	Suffixes  []string
	OrderBy   string
	Desc      bool
	Page      int
	PageSize  int
}

// RunDocumentsRequest drives documents through the run-state machine.
// Delete requests a destructive rerun: counters and prior index entries
// are cleared before the new task is dispatched.
type RunDocumentsRequest struct {
	DocIDs []string
	Run    domain.RunStatus
	Delete bool
}

// ChangeParserRequest reassigns a document's parser or pipeline.
type ChangeParserRequest struct {
	DocID        string
	ParserID     domain.ParserType
	PipelineID   string
	ParserConfig map[string]any
}

// DocumentService orchestrates the document lifecycle: creation, run
// state, cancellation, deletion and the synchronization of the search
// index and blob store with those transitions.
type DocumentService interface {
	// Create makes a virtual document from knowledge-base defaults
	Create(ctx context.Context, req CreateDocumentRequest) (*domain.Document, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents of a knowledge base with total count.
	// Unknown run-status or type filter values are rejected.
	List(ctx context.Context, kbID string, req ListDocumentsRequest) ([]*domain.Document, int, error)

	// Run transitions documents into the requested run state and
	// dispatches parse or pipeline jobs for documents entering RUNNING.
	// Cancelling a document that is not RUNNING fails with ErrConflict.
	Run(ctx context.Context, req RunDocumentsRequest) error

	// Remove deletes documents with their tasks, index entries and
	// (reference-counted) blobs. Per-id failures are collected into a
	// BulkError; processing continues for the remaining ids.
	Remove(ctx context.Context, docIDs []string) error

	// ChangeAvailability toggles the availability flag of each document
	// in the index. Returns a per-id result map.
	ChangeAvailability(ctx context.Context, docIDs []string, available bool) (map[string]error, error)

	// Rename changes a document's display name; the suffix must not change
	Rename(ctx context.Context, docID, name string) error

	// SetMeta replaces a document's user metadata (scalar values only)
	SetMeta(ctx context.Context, docID string, meta map[string]any) error

	// ChangeParser reassigns the parser or pipeline and resets prior
	// processing state
	ChangeParser(ctx context.Context, req ChangeParserRequest) error
}
