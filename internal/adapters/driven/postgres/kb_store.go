package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KnowledgebaseStore = (*KnowledgebaseStore)(nil)

// KnowledgebaseStore implements driven.KnowledgebaseStore using PostgreSQL
type KnowledgebaseStore struct {
	db *DB
}

// NewKnowledgebaseStore creates a new KnowledgebaseStore
func NewKnowledgebaseStore(db *DB) *KnowledgebaseStore {
	return &KnowledgebaseStore{db: db}
}

const kbColumns = `id, tenant_id, created_by, name, description, parser_id, parser_config,
	pagerank, doc_num, chunk_num, token_num,
	graphrag_task_id, graphrag_task_finish_at,
	raptor_task_id, raptor_task_finish_at,
	mindmap_task_id, mindmap_task_finish_at,
	field_map, created_at, updated_at`

// Save creates or updates a knowledge base
func (s *KnowledgebaseStore) Save(ctx context.Context, kb *domain.Knowledgebase) error {
	parserConfigJSON, err := json.Marshal(kb.ParserConfig)
	if err != nil {
		return err
	}
	if kb.ParserConfig == nil {
		parserConfigJSON = []byte("{}")
	}
	var fieldMapJSON []byte
	if kb.FieldMap != nil {
		fieldMapJSON, err = json.Marshal(kb.FieldMap)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO knowledgebases (` + kbColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			parser_id = EXCLUDED.parser_id,
			parser_config = EXCLUDED.parser_config,
			pagerank = EXCLUDED.pagerank,
			field_map = EXCLUDED.field_map,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		kb.ID,
		kb.TenantID,
		kb.CreatedBy,
		kb.Name,
		kb.Description,
		kb.ParserID,
		parserConfigJSON,
		kb.Pagerank,
		kb.DocNum,
		kb.ChunkNum,
		kb.TokenNum,
		kb.GraphRAGTaskID,
		NullTime(kb.GraphRAGTaskFinish),
		kb.RaptorTaskID,
		NullTime(kb.RaptorTaskFinish),
		kb.MindmapTaskID,
		NullTime(kb.MindmapTaskFinish),
		fieldMapJSON,
		kb.CreatedAt,
		kb.UpdatedAt,
	)
	return err
}

// Get retrieves a knowledge base by ID
func (s *KnowledgebaseStore) Get(ctx context.Context, id string) (*domain.Knowledgebase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledgebases WHERE id = $1`
	return scanKnowledgebase(s.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a knowledge base by tenant and name
func (s *KnowledgebaseStore) GetByName(ctx context.Context, tenantID, name string) (*domain.Knowledgebase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledgebases WHERE tenant_id = $1 AND name = $2`
	return scanKnowledgebase(s.db.QueryRowContext(ctx, query, tenantID, name))
}

// List retrieves knowledge bases for a tenant
func (s *KnowledgebaseStore) List(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledgebases WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.Knowledgebase
	for rows.Next() {
		kb, err := scanKnowledgebase(rows)
		if err != nil {
			return nil, err
		}
		kbs = append(kbs, kb)
	}
	return kbs, rows.Err()
}

// Delete removes a knowledge base row
func (s *KnowledgebaseStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM knowledgebases WHERE id = $1`, id)
	return err
}

// SetPipelineTask records the most recently dispatched aggregate task
// for a pipeline kind.
func (s *KnowledgebaseStore) SetPipelineTask(ctx context.Context, kbID string, kind domain.PipelineKind, taskID string, finishAt *time.Time) error {
	var idCol, finishCol string
	switch kind {
	case domain.PipelineGraphRAG:
		idCol, finishCol = "graphrag_task_id", "graphrag_task_finish_at"
	case domain.PipelineRaptor:
		idCol, finishCol = "raptor_task_id", "raptor_task_finish_at"
	case domain.PipelineMindmap:
		idCol, finishCol = "mindmap_task_id", "mindmap_task_finish_at"
	default:
		return fmt.Errorf("unknown pipeline kind %q: %w", kind, domain.ErrInvalidInput)
	}

	query := fmt.Sprintf(`UPDATE knowledgebases SET %s = $2, %s = $3, updated_at = now() WHERE id = $1`, idCol, finishCol)
	res, err := s.db.ExecContext(ctx, query, kbID, taskID, NullTime(finishAt))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearFieldMap drops the cached table schema for a knowledge base
func (s *KnowledgebaseStore) ClearFieldMap(ctx context.Context, kbID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE knowledgebases SET field_map = NULL, updated_at = now() WHERE id = $1`, kbID)
	return err
}

func scanKnowledgebase(row rowScanner) (*domain.Knowledgebase, error) {
	var kb domain.Knowledgebase
	var parserConfigJSON, fieldMapJSON []byte
	var graphragFinish, raptorFinish, mindmapFinish sql.NullTime

	err := row.Scan(
		&kb.ID,
		&kb.TenantID,
		&kb.CreatedBy,
		&kb.Name,
		&kb.Description,
		&kb.ParserID,
		&parserConfigJSON,
		&kb.Pagerank,
		&kb.DocNum,
		&kb.ChunkNum,
		&kb.TokenNum,
		&kb.GraphRAGTaskID,
		&graphragFinish,
		&kb.RaptorTaskID,
		&raptorFinish,
		&kb.MindmapTaskID,
		&mindmapFinish,
		&fieldMapJSON,
		&kb.CreatedAt,
		&kb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if graphragFinish.Valid {
		kb.GraphRAGTaskFinish = &graphragFinish.Time
	}
	if raptorFinish.Valid {
		kb.RaptorTaskFinish = &raptorFinish.Time
	}
	if mindmapFinish.Valid {
		kb.MindmapTaskFinish = &mindmapFinish.Time
	}
	if len(parserConfigJSON) > 0 {
		if err := json.Unmarshal(parserConfigJSON, &kb.ParserConfig); err != nil {
			return nil, err
		}
	}
	if len(fieldMapJSON) > 0 {
		if err := json.Unmarshal(fieldMapJSON, &kb.FieldMap); err != nil {
			return nil, err
		}
	}
	return &kb, nil
}
