package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// Ensure pipelineService implements PipelineService
var _ driving.PipelineService = (*pipelineService)(nil)

// dispatchLeaseTTL bounds how long a knowledge-base-wide dispatch can
// hold its lease before it expires on its own.
const dispatchLeaseTTL = 30 * time.Second

// pipelineService dispatches knowledge-base-wide enrichment tasks and
// answers progress queries against the task ledger.
type pipelineService struct {
	kbStore       driven.KnowledgebaseStore
	documentStore driven.DocumentStore
	taskStore     driven.TaskStore
	searchIndex   driven.SearchIndex
	lock          driven.DistributedLock
	logger        *slog.Logger
}

// PipelineConfig holds dependencies for the pipeline service.
type PipelineConfig struct {
	KBStore       driven.KnowledgebaseStore
	DocumentStore driven.DocumentStore
	TaskStore     driven.TaskStore
	SearchIndex   driven.SearchIndex
	Lock          driven.DistributedLock
	Logger        *slog.Logger
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(cfg PipelineConfig) driving.PipelineService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &pipelineService{
		kbStore:       cfg.KBStore,
		documentStore: cfg.DocumentStore,
		taskStore:     cfg.TaskStore,
		searchIndex:   cfg.SearchIndex,
		lock:          cfg.Lock,
		logger:        logger,
	}
}

func dispatchLockName(kbID string, kind domain.PipelineKind) string {
	return fmt.Sprintf("pipeline-dispatch:%s:%s", kbID, kind)
}

// Run starts one knowledge-base-wide task of the given kind. At most one
// such task per (knowledge base, kind) may be in flight; a second call
// while the previous task is unfinished returns a conflict.
func (s *pipelineService) Run(ctx context.Context, kind domain.PipelineKind, kbID string) (string, error) {
	if !domain.ValidPipelineKind(kind) {
		return "", &domain.InvalidInputError{Field: "kind", Reason: fmt.Sprintf("invalid pipeline kind: %s", kind)}
	}

	kb, err := s.kbStore.Get(ctx, kbID)
	if err != nil {
		return "", fmt.Errorf("knowledgebase %s: %w", kbID, err)
	}

	// The check-then-set on the task pointer below is racy across
	// processes, so the whole dispatch runs under a short lease.
	acquired, err := s.lock.Acquire(ctx, dispatchLockName(kbID, kind), dispatchLeaseTTL)
	if err != nil {
		return "", fmt.Errorf("acquire dispatch lease: %w", err)
	}
	if !acquired {
		return "", fmt.Errorf("another %s dispatch for knowledgebase %s is in progress: %w", kind, kbID, domain.ErrConflict)
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), dispatchLockName(kbID, kind)); err != nil {
			s.logger.Warn("failed to release dispatch lease", "kb_id", kbID, "kind", kind, "error", err)
		}
	}()

	if taskID := kb.TaskPointer(kind); taskID != "" {
		prev, err := s.taskStore.Get(ctx, taskID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("previous task %s: %w", taskID, err)
		}
		if prev != nil && !prev.Terminal() {
			return "", fmt.Errorf("task %s of %s is not finished yet: %w", taskID, kind, domain.ErrConflict)
		}
	}

	docs, _, err := s.documentStore.ListByKB(ctx, kbID, driven.DocumentFilter{})
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("no documents in knowledgebase %s: %w", kbID, domain.ErrNotFound)
	}
	docIDs := make([]string, len(docs))
	for i, d := range docs {
		docIDs[i] = d.ID
	}

	// Aggregate tasks always queue at the default priority.
	task := domain.NewAggregateTask(kind.TaskType(), docIDs, 0)
	if err := s.taskStore.Create(ctx, task); err != nil {
		return "", fmt.Errorf("create %s task: %w", kind, err)
	}

	// The pointer is advisory: the task is already queued, so a failed
	// pointer update is logged and dispatch still succeeds.
	if err := s.kbStore.SetPipelineTask(ctx, kbID, kind, task.ID, nil); err != nil {
		s.logger.Warn("failed to record pipeline task pointer", "kb_id", kbID, "kind", kind, "task_id", task.ID, "error", err)
	}

	s.logger.Info("dispatched pipeline task", "kb_id", kbID, "kind", kind, "task_id", task.ID, "documents", len(docIDs))
	return task.ID, nil
}

// Trace returns the ledger row of the knowledge base's current task of
// the given kind, or nil when none was ever dispatched.
func (s *pipelineService) Trace(ctx context.Context, kind domain.PipelineKind, kbID string) (*domain.Task, error) {
	if !domain.ValidPipelineKind(kind) {
		return nil, &domain.InvalidInputError{Field: "kind", Reason: fmt.Sprintf("invalid pipeline kind: %s", kind)}
	}
	kb, err := s.kbStore.Get(ctx, kbID)
	if err != nil {
		return nil, fmt.Errorf("knowledgebase %s: %w", kbID, err)
	}
	taskID := kb.TaskPointer(kind)
	if taskID == "" {
		return nil, nil
	}
	task, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	return task, nil
}

// Unbind detaches the knowledge base from its current task of the given
// kind and, for graph construction, deletes the graph artifacts from the
// index.
func (s *pipelineService) Unbind(ctx context.Context, kind domain.PipelineKind, kbID string) error {
	if !domain.ValidPipelineKind(kind) {
		return &domain.InvalidInputError{Field: "kind", Reason: fmt.Sprintf("invalid pipeline kind: %s", kind)}
	}
	kb, err := s.kbStore.Get(ctx, kbID)
	if err != nil {
		// Nothing to detach from
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("knowledgebase %s: %w", kbID, err)
	}

	if kind == domain.PipelineGraphRAG {
		index := driven.IndexName(kb.TenantID)
		filter := map[string]any{
			"kb_id":               kbID,
			domain.GraphFieldKind: domain.GraphArtifactKinds,
		}
		if err := s.searchIndex.Delete(ctx, filter, index, kbID); err != nil {
			return fmt.Errorf("delete graph artifacts: %w", err)
		}
	}

	if err := s.kbStore.SetPipelineTask(ctx, kbID, kind, "", nil); err != nil {
		return fmt.Errorf("clear pipeline task pointer: %w", err)
	}
	return nil
}
