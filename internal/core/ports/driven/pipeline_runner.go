package driven

import "context"

// ParseResult is what a runner reports for one completed parse job.
type ParseResult struct {
	ChunkNum int64
	TokenNum int64
}

// PipelineRunner executes the actual chunking/parsing for a parse job.
// The algorithms themselves live outside this core; the worker treats
// the runner as opaque and only accounts for its result.
type PipelineRunner interface {
	Run(ctx context.Context, job *ParseJob) (*ParseResult, error)
}
