package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FileStore = (*FileStore)(nil)

// FileStore implements driven.FileStore using PostgreSQL
type FileStore struct {
	db *DB
}

// NewFileStore creates a new FileStore
func NewFileStore(db *DB) *FileStore {
	return &FileStore{db: db}
}

// LinkDocument records that a document was created from a file, creating
// the file row if needed.
func (s *FileStore) LinkDocument(ctx context.Context, doc *domain.Document, bucket, location string) (*driven.FileLink, error) {
	link := &driven.FileLink{
		ID:         domain.NewID(),
		FileID:     domain.NewID(),
		DocumentID: doc.ID,
	}
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO files (id, bucket, location, name, refs)
			VALUES ($1, $2, $3, $4, 1)`,
			link.FileID, bucket, location, doc.Name)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO file_links (id, file_id, document_id)
			VALUES ($1, $2, $3)`,
			link.ID, link.FileID, link.DocumentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// GetByDocument retrieves the linkage rows for a document
func (s *FileStore) GetByDocument(ctx context.Context, docID string) ([]*driven.FileLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, document_id FROM file_links WHERE document_id = $1`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*driven.FileLink
	for rows.Next() {
		var link driven.FileLink
		if err := rows.Scan(&link.ID, &link.FileID, &link.DocumentID); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}

// DeleteByDocument removes a document's linkage rows
func (s *FileStore) DeleteByDocument(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_links WHERE document_id = $1`, docID)
	return err
}

// DeleteKBFile releases one reference on a file and deletes the row when
// the last reference is gone. Returns the number of rows removed so the
// caller knows whether the backing blob may be deleted.
func (s *FileStore) DeleteKBFile(ctx context.Context, fileID string) (int, error) {
	deleted := 0
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var refs int
		err := tx.QueryRowContext(ctx, `
			UPDATE files SET refs = refs - 1 WHERE id = $1 RETURNING refs`,
			fileID).Scan(&refs)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if refs > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, fileID); err != nil {
			return err
		}
		deleted = 1
		return nil
	})
	return deleted, err
}

// StorageAddress resolves a document's blob location
func (s *FileStore) StorageAddress(ctx context.Context, docID string) (string, string, error) {
	var bucket, location string
	err := s.db.QueryRowContext(ctx, `
		SELECT f.bucket, f.location FROM file_links l
		JOIN files f ON f.id = l.file_id
		WHERE l.document_id = $1
		LIMIT 1`, docID).Scan(&bucket, &location)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", domain.ErrNotFound
	}
	return bucket, location, err
}

// DeleteKBFolder removes the folder record grouping a knowledge base's
// files. Deleting an absent folder is a no-op.
func (s *FileStore) DeleteKBFolder(ctx context.Context, kbName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE name = $1`, kbName)
	return err
}
