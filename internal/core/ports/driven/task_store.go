package driven

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// TaskStore is the durable ledger of dispatched work units.
// Rows are created by the dispatcher; progress is written only by the
// external worker; rows are deleted by cancellation, document deletion
// or rerun-with-reset.
type TaskStore interface {
	// Create persists a new ledger entry
	Create(ctx context.Context, task *domain.Task) error

	// Get retrieves a task by ID
	Get(ctx context.Context, id string) (*domain.Task, error)

	// ListByDoc retrieves all tasks referencing a document
	ListByDoc(ctx context.Context, docID string) ([]*domain.Task, error)

	// DeleteByDoc removes every task referencing a document.
	// Deleting for a document with no tasks is a no-op, not an error.
	DeleteByDoc(ctx context.Context, docID string) error

	// UpdateProgress records worker-reported progress for a task
	UpdateProgress(ctx context.Context, id string, progress float32, msg string) error
}
