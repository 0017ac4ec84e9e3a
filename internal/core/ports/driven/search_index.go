package driven

import "context"

// IndexName returns the search-index partition name for a tenant.
// Together with a kb_id filter it scopes every index operation.
func IndexName(tenantID string) string {
	return "corpora_" + tenantID
}

// Hit is one search-index record.
type Hit struct {
	ID     string
	Fields map[string]any
}

// SearchIndex handles chunk and graph-artifact records in the external
// search engine. Per-key operations are atomic; there are no cross-key
// transactions, so callers treat multi-step deletions as best-effort.
type SearchIndex interface {
	// IndexExists reports whether the tenant partition holds the
	// knowledge base
	IndexExists(ctx context.Context, index, kbID string) (bool, error)

	// Search retrieves records matching the field filter, most relevant
	// first
	Search(ctx context.Context, filter map[string]any, index string, kbIDs []string) ([]*Hit, error)

	// Update applies a field patch to all records matching the filter
	Update(ctx context.Context, filter, patch map[string]any, index, kbID string) error

	// Delete removes all records matching the filter. Deleting with no
	// matches is a no-op.
	Delete(ctx context.Context, filter map[string]any, index, kbID string) error

	// DeleteIndex drops the knowledge base's records from the partition
	// entirely
	DeleteIndex(ctx context.Context, index, kbID string) error
}
