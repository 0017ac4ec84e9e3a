package driving

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// CreateKBRequest creates a knowledge base for a tenant.
type CreateKBRequest struct {
	TenantID     string
	CreatedBy    string
	Name         string
	Description  string
	ParserID     domain.ParserType
	ParserConfig map[string]any
}

// UpdateKBRequest renames a knowledge base and adjusts its pagerank
// weight. A pagerank change is propagated to every index record of the
// knowledge base.
type UpdateKBRequest struct {
	KBID     string
	Name     string
	Pagerank int
}

// KnowledgebaseService manages knowledge bases and the read path over
// their extracted knowledge graphs.
type KnowledgebaseService interface {
	// Create makes a knowledge base, deduplicating the name per tenant
	Create(ctx context.Context, req CreateKBRequest) (*domain.Knowledgebase, error)

	// Get retrieves a knowledge base by ID
	Get(ctx context.Context, id string) (*domain.Knowledgebase, error)

	// List retrieves a tenant's knowledge bases
	List(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error)

	// Update renames and reweights a knowledge base
	Update(ctx context.Context, req UpdateKBRequest) (*domain.Knowledgebase, error)

	// Delete removes the knowledge base and cascades: documents, file
	// links, blobs, index partition, bucket
	Delete(ctx context.Context, id string) error

	// KnowledgeGraph builds the bounded, ranked graph view from index
	// artifacts. A missing partition yields an empty view, not an error.
	KnowledgeGraph(ctx context.Context, kbID string) (*domain.GraphView, error)
}
