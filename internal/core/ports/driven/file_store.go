package driven

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// FileLink ties a stored file to one document. A file may be linked to
// several documents; the underlying blob lives as long as any link to a
// knowledge-base file remains.
type FileLink struct {
	ID         string
	FileID     string
	DocumentID string
}

// FileStore handles the file records and file-to-document linkage layer.
type FileStore interface {
	// LinkDocument records that a document was created from a file,
	// creating the file row if needed.
	LinkDocument(ctx context.Context, doc *domain.Document, bucket, location string) (*FileLink, error)

	// GetByDocument retrieves the linkage rows for a document
	GetByDocument(ctx context.Context, docID string) ([]*FileLink, error)

	// DeleteByDocument removes a document's linkage rows
	DeleteByDocument(ctx context.Context, docID string) error

	// DeleteKBFile deletes the knowledge-base file row behind a link and
	// returns how many rows were removed. Zero means the file is still
	// referenced elsewhere and the blob must be kept.
	DeleteKBFile(ctx context.Context, fileID string) (int, error)

	// StorageAddress resolves a document's blob location
	StorageAddress(ctx context.Context, docID string) (bucket, location string, err error)

	// DeleteKBFolder removes the folder record grouping a knowledge
	// base's files
	DeleteKBFolder(ctx context.Context, kbName string) error
}
