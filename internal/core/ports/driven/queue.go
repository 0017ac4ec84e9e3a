package driven

import (
	"context"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
)

// ParseJob is the unit handed to the direct-parse queue: a snapshot of
// the document plus its blob address, so workers need no extra lookups.
type ParseJob struct {
	TaskID   string           `json:"task_id"`
	TenantID string           `json:"tenant_id"`
	Document *domain.Document `json:"document"`
	Bucket   string           `json:"bucket"`
	Location string           `json:"location"`
	Priority int              `json:"priority"`
}

// ParseQueue is the dispatch queue for documents without a configured
// pipeline. Backed by Redis Streams.
type ParseQueue interface {
	// Enqueue adds a parse job addressed by the document's blob location
	Enqueue(ctx context.Context, job *ParseJob) error

	// Dequeue retrieves the next job, waiting up to timeout seconds.
	// Returns nil, nil when none is available.
	Dequeue(ctx context.Context, timeoutSec int) (*ParseJob, error)

	// Ack acknowledges a consumed job
	Ack(ctx context.Context, taskID string) error

	// Ping checks queue health
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}

// PipelineQueue routes documents that carry a pipeline id to the
// pipeline execution engine. Backed by RabbitMQ.
type PipelineQueue interface {
	// Enqueue publishes a pipeline invocation for one document
	Enqueue(ctx context.Context, tenantID, pipelineID, taskID, docID string) error

	// Ping checks broker health
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}
