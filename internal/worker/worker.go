// Package worker consumes parse jobs from the dispatch queue and
// accounts for their results in the task ledger and document store.
// The parsing itself happens behind the PipelineRunner port; this
// package only claims jobs, runs them on a bounded pool and reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Config holds worker dependencies and tuning knobs.
type Config struct {
	Queue     driven.ParseQueue
	Runner    driven.PipelineRunner
	TaskStore driven.TaskStore
	DocStore  driven.DocumentStore

	// PoolSize bounds concurrent parse jobs. Defaults to half the CPUs.
	PoolSize int

	// PollTimeoutSec is how long one Dequeue call blocks. Defaults to 5.
	PollTimeoutSec int

	Logger *slog.Logger
}

// Worker pulls parse jobs off the queue and executes them concurrently.
type Worker struct {
	queue     driven.ParseQueue
	runner    driven.PipelineRunner
	taskStore driven.TaskStore
	docStore  driven.DocumentStore

	pool        *ants.Pool
	pollTimeout int
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// New creates a Worker with a bounded goroutine pool.
func New(cfg Config) (*Worker, error) {
	if cfg.Queue == nil || cfg.Runner == nil || cfg.TaskStore == nil || cfg.DocStore == nil {
		return nil, fmt.Errorf("worker: queue, runner, task store and document store are required")
	}

	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("worker: create pool: %w", err)
	}

	pollTimeout := cfg.PollTimeoutSec
	if pollTimeout <= 0 {
		pollTimeout = 5
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:       cfg.Queue,
		runner:      cfg.Runner,
		taskStore:   cfg.TaskStore,
		docStore:    cfg.DocStore,
		pool:        pool,
		pollTimeout: pollTimeout,
		logger:      logger,
	}, nil
}

// Run consumes jobs until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "pool_size", w.pool.Cap())

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			w.logger.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				w.drain()
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer w.wg.Done()
			w.process(ctx, job)
		})
		if submitErr != nil {
			w.wg.Done()
			w.logger.Error("submit failed", "task_id", job.TaskID, "error", submitErr)
		}
	}
}

// drain waits for in-flight jobs and releases the pool.
func (w *Worker) drain() {
	w.wg.Wait()
	w.pool.Release()
	w.logger.Info("worker stopped")
}

// process runs one parse job and reports its outcome. A vanished ledger
// row means the task was cancelled or its document deleted while the
// job was in flight; the result is dropped without any reporting.
func (w *Worker) process(ctx context.Context, job *driven.ParseJob) {
	started := time.Now()
	result, runErr := w.runner.Run(ctx, job)

	if _, err := w.taskStore.Get(ctx, job.TaskID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.logger.Info("task cancelled mid-flight, dropping result",
				"task_id", job.TaskID, "doc_id", job.Document.ID)
			w.ack(ctx, job.TaskID)
			return
		}
		w.logger.Error("task lookup failed", "task_id", job.TaskID, "error", err)
		return
	}

	if runErr != nil {
		w.reportFailure(ctx, job, runErr)
		w.ack(ctx, job.TaskID)
		return
	}

	w.reportSuccess(ctx, job, result, time.Since(started))
	w.ack(ctx, job.TaskID)
}

func (w *Worker) reportSuccess(ctx context.Context, job *driven.ParseJob, result *driven.ParseResult, elapsed time.Duration) {
	doc := job.Document

	err := w.docStore.IncrementStats(ctx, doc.ID, doc.KBID,
		result.TokenNum, result.ChunkNum, elapsed.Seconds())
	if err != nil {
		w.logger.Error("stats update failed", "doc_id", doc.ID, "error", err)
	}

	if err := w.taskStore.UpdateProgress(ctx, job.TaskID, domain.ProgressDone, "done"); err != nil {
		w.logger.Error("progress update failed", "task_id", job.TaskID, "error", err)
	}

	current, err := w.docStore.Get(ctx, doc.ID)
	if err != nil {
		w.logger.Error("document reload failed", "doc_id", doc.ID, "error", err)
		return
	}
	current.Run = domain.RunDone
	current.Progress = domain.ProgressDone
	current.ProgressMsg = "done"
	if err := w.docStore.Save(ctx, current); err != nil {
		w.logger.Error("document update failed", "doc_id", doc.ID, "error", err)
		return
	}

	w.logger.Info("parse job done",
		"task_id", job.TaskID,
		"doc_id", doc.ID,
		"chunks", result.ChunkNum,
		"tokens", result.TokenNum,
		"elapsed", elapsed)
}

func (w *Worker) reportFailure(ctx context.Context, job *driven.ParseJob, runErr error) {
	doc := job.Document
	msg := runErr.Error()

	if err := w.taskStore.UpdateProgress(ctx, job.TaskID, domain.ProgressFailed, msg); err != nil {
		w.logger.Error("progress update failed", "task_id", job.TaskID, "error", err)
	}

	current, err := w.docStore.Get(ctx, doc.ID)
	if err != nil {
		w.logger.Error("document reload failed", "doc_id", doc.ID, "error", err)
		return
	}
	current.Run = domain.RunFail
	current.Progress = domain.ProgressFailed
	current.ProgressMsg = msg
	if err := w.docStore.Save(ctx, current); err != nil {
		w.logger.Error("document update failed", "doc_id", doc.ID, "error", err)
		return
	}

	w.logger.Warn("parse job failed", "task_id", job.TaskID, "doc_id", doc.ID, "error", runErr)
}

func (w *Worker) ack(ctx context.Context, taskID string) {
	if err := w.queue.Ack(ctx, taskID); err != nil {
		w.logger.Error("ack failed", "task_id", taskID, "error", err)
	}
}
