package driven

import (
	"context"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// KnowledgebaseStore handles knowledge base persistence (PostgreSQL)
type KnowledgebaseStore interface {
	// Save creates or updates a knowledge base
	Save(ctx context.Context, kb *domain.Knowledgebase) error

	// Get retrieves a knowledge base by ID
	Get(ctx context.Context, id string) (*domain.Knowledgebase, error)

	// GetByName retrieves a knowledge base by tenant and name
	GetByName(ctx context.Context, tenantID, name string) (*domain.Knowledgebase, error)

	// List retrieves knowledge bases for a tenant
	List(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error)

	// Delete removes a knowledge base row
	Delete(ctx context.Context, id string) error

	// SetPipelineTask records the most recently dispatched aggregate
	// task for a pipeline kind. Empty taskID with nil finishAt clears
	// the pointer pair.
	SetPipelineTask(ctx context.Context, kbID string, kind domain.PipelineKind, taskID string, finishAt *time.Time) error

	// ClearFieldMap drops the cached table schema for a knowledge base
	ClearFieldMap(ctx context.Context, kbID string) error
}
