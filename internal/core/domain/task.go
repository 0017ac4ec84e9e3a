package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewID creates a unique identifier for persisted records.
func NewID() string {
	return uuid.NewString()
}

// AggregateDocID is the synthetic document id carried by tasks that are
// scoped to an entire knowledge base rather than one document.
const AggregateDocID = "knowledgebase_wide_task"

// TaskType identifies the pipeline a task belongs to.
type TaskType string

const (
	TaskTypeParse    TaskType = "parse"
	TaskTypeGraphRAG TaskType = "graphrag"
	TaskTypeRaptor   TaskType = "raptor"
	TaskTypeMindmap  TaskType = "mindmap"
)

// Task progress sentinels reported by workers.
const (
	ProgressFailed float32 = -1
	ProgressDone   float32 = 1
)

// Task is one dispatched unit of work in the task ledger.
// Progress is mutated only by the worker that claims the task.
type Task struct {
	ID          string   `json:"id"`
	DocID       string   `json:"doc_id"`
	Type        TaskType `json:"task_type"`
	Priority    int      `json:"priority"`
	FromPage    int      `json:"from_page"`
	ToPage      int      `json:"to_page"`
	Progress    float32  `json:"progress"`
	ProgressMsg string   `json:"progress_msg"`

	// DocIDs lists the real documents covered by an aggregate task.
	// Empty for per-document tasks.
	DocIDs []string `json:"doc_ids,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	BeginAt   *time.Time `json:"begin_at,omitempty"`
}

// Terminal reports whether the task has finished, successfully or not.
func (t *Task) Terminal() bool {
	return t.Progress == ProgressDone || t.Progress == ProgressFailed
}

// NewParseTask creates a per-document parse task covering all pages.
func NewParseTask(docID string, priority int) *Task {
	return &Task{
		ID:        NewID(),
		DocID:     docID,
		Type:      TaskTypeParse,
		Priority:  priority,
		FromPage:  0,
		ToPage:    -1,
		CreatedAt: time.Now(),
	}
}

// NewAggregateTask creates a knowledge-base-wide task carrying the full
// list of document ids as its unit of work.
func NewAggregateTask(taskType TaskType, docIDs []string, priority int) *Task {
	return &Task{
		ID:        NewID(),
		DocID:     AggregateDocID,
		Type:      taskType,
		Priority:  priority,
		FromPage:  0,
		ToPage:    -1,
		DocIDs:    docIDs,
		CreatedAt: time.Now(),
	}
}
