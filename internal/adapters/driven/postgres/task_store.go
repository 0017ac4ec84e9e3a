package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskStore = (*TaskStore)(nil)

// TaskStore implements driven.TaskStore using PostgreSQL
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a new TaskStore
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `id, doc_id, task_type, priority, from_page, to_page, progress, progress_msg, doc_ids, created_at, begin_at`

// Create inserts a task ledger row
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	var docIDsJSON []byte
	if task.DocIDs != nil {
		var err error
		docIDsJSON, err = json.Marshal(task.DocIDs)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.DocID,
		task.Type,
		task.Priority,
		task.FromPage,
		task.ToPage,
		task.Progress,
		task.ProgressMsg,
		docIDsJSON,
		task.CreatedAt,
		NullTime(task.BeginAt),
	)
	return err
}

// Get retrieves a task by ID
func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(s.db.QueryRowContext(ctx, query, id))
}

// ListByDoc retrieves the ledger rows of a document
func (s *TaskStore) ListByDoc(ctx context.Context, docID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE doc_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteByDoc removes all ledger rows of a document
func (s *TaskStore) DeleteByDoc(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE doc_id = $1`, docID)
	return err
}

// UpdateProgress records worker-reported progress on a task
func (s *TaskStore) UpdateProgress(ctx context.Context, id string, progress float32, msg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET progress = $2, progress_msg = $3 WHERE id = $1`,
		id, progress, msg)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var docIDsJSON []byte
	var beginAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.DocID,
		&task.Type,
		&task.Priority,
		&task.FromPage,
		&task.ToPage,
		&task.Progress,
		&task.ProgressMsg,
		&docIDsJSON,
		&task.CreatedAt,
		&beginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if beginAt.Valid {
		task.BeginAt = &beginAt.Time
	}
	if len(docIDsJSON) > 0 {
		if err := json.Unmarshal(docIDsJSON, &task.DocIDs); err != nil {
			return nil, err
		}
	}
	return &task, nil
}
