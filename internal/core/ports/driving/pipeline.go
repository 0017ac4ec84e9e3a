package driving

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// PipelineService dispatches knowledge-base-wide aggregate jobs
// (GraphRAG, RAPTOR, mind map) and tracks them through the pointer
// recorded on the knowledge base.
type PipelineService interface {
	// Run dispatches an aggregate task for the knowledge base, enforcing
	// at most one in-flight task per (kb, kind). Returns the new task id.
	Run(ctx context.Context, kind domain.PipelineKind, kbID string) (string, error)

	// Trace resolves the recorded pointer to the full task for progress
	// polling. Returns nil, nil when no pointer is set.
	Trace(ctx context.Context, kind domain.PipelineKind, kbID string) (*domain.Task, error)

	// Unbind clears the pointer bookkeeping for a kind. For GraphRAG it
	// also deletes the knowledge-graph artifacts from the index.
	Unbind(ctx context.Context, kind domain.PipelineKind, kbID string) error
}
