package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, kb_id, created_by, parser_id, pipeline_id, parser_config, run,
	progress, progress_msg, chunk_num, token_num, process_duration, meta, type, name,
	suffix, location, size, thumbnail, available, created_at, updated_at`

// Save creates or updates a document and refreshes the owning knowledge
// base's document count.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	parserConfigJSON, err := json.Marshal(doc.ParserConfig)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(doc.Meta)
	if err != nil {
		return err
	}
	if doc.Meta == nil {
		metaJSON = []byte("{}")
	}
	if doc.ParserConfig == nil {
		parserConfigJSON = []byte("{}")
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO documents (` + documentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
			ON CONFLICT (id) DO UPDATE SET
				parser_id = EXCLUDED.parser_id,
				pipeline_id = EXCLUDED.pipeline_id,
				parser_config = EXCLUDED.parser_config,
				run = EXCLUDED.run,
				progress = EXCLUDED.progress,
				progress_msg = EXCLUDED.progress_msg,
				chunk_num = EXCLUDED.chunk_num,
				token_num = EXCLUDED.token_num,
				process_duration = EXCLUDED.process_duration,
				meta = EXCLUDED.meta,
				name = EXCLUDED.name,
				location = EXCLUDED.location,
				size = EXCLUDED.size,
				thumbnail = EXCLUDED.thumbnail,
				available = EXCLUDED.available,
				updated_at = EXCLUDED.updated_at
		`
		_, err := tx.ExecContext(ctx, query,
			doc.ID,
			doc.KBID,
			doc.CreatedBy,
			doc.ParserID,
			doc.PipelineID,
			parserConfigJSON,
			doc.Run,
			doc.Progress,
			doc.ProgressMsg,
			doc.ChunkNum,
			doc.TokenNum,
			doc.ProcessDuration,
			metaJSON,
			doc.Type,
			doc.Name,
			doc.Suffix,
			doc.Location,
			doc.Size,
			doc.Thumbnail,
			doc.Available,
			doc.CreatedAt,
			doc.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return refreshDocNum(ctx, tx, doc.KBID)
	})
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// ListByKB retrieves documents of a knowledge base with the total count
func (s *DocumentStore) ListByKB(ctx context.Context, kbID string, filter driven.DocumentFilter) ([]*domain.Document, int, error) {
	var conds []string
	args := []any{kbID}
	conds = append(conds, "kb_id = $1")

	if filter.Keywords != "" {
		args = append(args, "%"+filter.Keywords+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(filter.RunStatus) > 0 {
		statuses := make([]string, len(filter.RunStatus))
		for i, r := range filter.RunStatus {
			statuses[i] = string(r)
		}
		args = append(args, pq.Array(statuses))
		conds = append(conds, fmt.Sprintf("run = ANY($%d)", len(args)))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		conds = append(conds, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if len(filter.Suffixes) > 0 {
		args = append(args, pq.Array(filter.Suffixes))
		conds = append(conds, fmt.Sprintf("suffix = ANY($%d)", len(args)))
	}

	orderBy := orderByColumn(filter.OrderBy)
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	query := `SELECT ` + documentColumns + `, COUNT(*) OVER() AS total
		FROM documents WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s", orderBy, direction)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*domain.Document
	total := 0
	for rows.Next() {
		doc, n, err := scanDocumentWithTotal(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
		total = n
	}
	return docs, total, rows.Err()
}

// orderByColumn whitelists sortable columns; anything else falls back
// to creation time.
func orderByColumn(col string) string {
	switch col {
	case "name", "size", "chunk_num", "token_num", "updated_at", "created_at":
		return col
	}
	return "created_at"
}

// Delete removes a document row and refreshes the knowledge base's
// document count.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var kbID string
		err := tx.QueryRowContext(ctx, `DELETE FROM documents WHERE id = $1 RETURNING kb_id`, id).Scan(&kbID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		return refreshDocNum(ctx, tx, kbID)
	})
}

// CountByKB counts documents matching the run states and parser
func (s *DocumentStore) CountByKB(ctx context.Context, kbID string, runStatus []domain.RunStatus, parserID domain.ParserType) (int, error) {
	args := []any{kbID}
	query := `SELECT COUNT(*) FROM documents WHERE kb_id = $1`
	if len(runStatus) > 0 {
		statuses := make([]string, len(runStatus))
		for i, r := range runStatus {
			statuses[i] = string(r)
		}
		args = append(args, pq.Array(statuses))
		query += fmt.Sprintf(" AND run = ANY($%d)", len(args))
	}
	if parserID != "" {
		args = append(args, string(parserID))
		query += fmt.Sprintf(" AND parser_id = $%d", len(args))
	}

	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// IncrementStats adjusts document counters and the owning knowledge
// base's aggregates in one transaction.
func (s *DocumentStore) IncrementStats(ctx context.Context, docID, kbID string, tokenDelta, chunkDelta int64, durationDelta float64) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE documents SET
				token_num = token_num + $2,
				chunk_num = chunk_num + $3,
				process_duration = process_duration + $4
			WHERE id = $1`,
			docID, tokenDelta, chunkDelta, durationDelta)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE knowledgebases SET
				token_num = token_num + $2,
				chunk_num = chunk_num + $3
			WHERE id = $1`,
			kbID, tokenDelta, chunkDelta)
		return err
	})
}

// GetTenantID resolves the tenant owning a document through its
// knowledge base
func (s *DocumentStore) GetTenantID(ctx context.Context, docID string) (string, error) {
	var tenantID string
	err := s.db.QueryRowContext(ctx, `
		SELECT k.tenant_id FROM documents d
		JOIN knowledgebases k ON k.id = d.kb_id
		WHERE d.id = $1`, docID).Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return tenantID, err
}

func refreshDocNum(ctx context.Context, tx *sql.Tx, kbID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE knowledgebases
		SET doc_num = (SELECT COUNT(*) FROM documents WHERE kb_id = $1)
		WHERE id = $1`, kbID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	doc, _, err := scanDocumentInto(row, false)
	return doc, err
}

func scanDocumentWithTotal(row rowScanner) (*domain.Document, int, error) {
	return scanDocumentInto(row, true)
}

func scanDocumentInto(row rowScanner, withTotal bool) (*domain.Document, int, error) {
	var doc domain.Document
	var parserConfigJSON, metaJSON []byte
	total := 0

	dest := []any{
		&doc.ID,
		&doc.KBID,
		&doc.CreatedBy,
		&doc.ParserID,
		&doc.PipelineID,
		&parserConfigJSON,
		&doc.Run,
		&doc.Progress,
		&doc.ProgressMsg,
		&doc.ChunkNum,
		&doc.TokenNum,
		&doc.ProcessDuration,
		&metaJSON,
		&doc.Type,
		&doc.Name,
		&doc.Suffix,
		&doc.Location,
		&doc.Size,
		&doc.Thumbnail,
		&doc.Available,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	}
	if withTotal {
		dest = append(dest, &total)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, err
	}
	if len(parserConfigJSON) > 0 {
		if err := json.Unmarshal(parserConfigJSON, &doc.ParserConfig); err != nil {
			return nil, 0, err
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &doc.Meta); err != nil {
			return nil, 0, err
		}
	}
	return &doc, total, nil
}
