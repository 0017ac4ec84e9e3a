package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService owns the document run-state machine and keeps the
// search index and blob store consistent with lifecycle transitions.
type documentService struct {
	documentStore driven.DocumentStore
	taskStore     driven.TaskStore
	kbStore       driven.KnowledgebaseStore
	fileStore     driven.FileStore
	blobStore     driven.BlobStore
	searchIndex   driven.SearchIndex
	parseQueue    driven.ParseQueue
	pipelineQueue driven.PipelineQueue
	logger        *slog.Logger
}

// DocumentConfig holds dependencies for the document service.
type DocumentConfig struct {
	DocumentStore driven.DocumentStore
	TaskStore     driven.TaskStore
	KBStore       driven.KnowledgebaseStore
	FileStore     driven.FileStore
	BlobStore     driven.BlobStore
	SearchIndex   driven.SearchIndex
	ParseQueue    driven.ParseQueue
	PipelineQueue driven.PipelineQueue
	Logger        *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documentStore: cfg.DocumentStore,
		taskStore:     cfg.TaskStore,
		kbStore:       cfg.KBStore,
		fileStore:     cfg.FileStore,
		blobStore:     cfg.BlobStore,
		searchIndex:   cfg.SearchIndex,
		parseQueue:    cfg.ParseQueue,
		pipelineQueue: cfg.PipelineQueue,
		logger:        logger,
	}
}

// Create makes a virtual document inheriting the knowledge base's parser.
func (s *documentService) Create(ctx context.Context, req driving.CreateDocumentRequest) (*domain.Document, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.InvalidInputError{Field: "name", Reason: "document name can't be empty"}
	}
	if len(name) > domain.FileNameLimit {
		return nil, &domain.InvalidInputError{Field: "name", Reason: fmt.Sprintf("document name must be %d bytes or less", domain.FileNameLimit)}
	}

	kb, err := s.kbStore.Get(ctx, req.KBID)
	if err != nil {
		return nil, fmt.Errorf("knowledgebase %s: %w", req.KBID, err)
	}

	if taken, err := s.nameTaken(ctx, kb.ID, name, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, &domain.InvalidInputError{Field: "name", Reason: "duplicated document name in the same knowledgebase"}
	}

	now := time.Now()
	doc := &domain.Document{
		ID:           domain.NewID(),
		KBID:         kb.ID,
		CreatedBy:    req.CreatedBy,
		ParserID:     domain.InferParser(name, kb.ParserID),
		ParserConfig: kb.ParserConfig,
		Run:          domain.RunUnstarted,
		Type:         domain.FileTypeVirtual,
		Name:         name,
		Suffix:       domain.FileSuffix(name),
		Available:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if _, err := s.fileStore.LinkDocument(ctx, doc, kb.ID, doc.Location); err != nil {
		return nil, fmt.Errorf("link document file: %w", err)
	}
	return doc, nil
}

// Get retrieves a document by ID
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documentStore.Get(ctx, id)
}

// List retrieves documents of a knowledge base, validating filter values.
func (s *documentService) List(ctx context.Context, kbID string, req driving.ListDocumentsRequest) ([]*domain.Document, int, error) {
	for _, status := range req.RunStatus {
		if !domain.ValidRunStatuses[status] {
			return nil, 0, &domain.InvalidInputError{Field: "run_status", Reason: fmt.Sprintf("invalid filter run status: %s", status)}
		}
	}
	for _, t := range req.Types {
		if !domain.ValidFileTypes[t] {
			return nil, 0, &domain.InvalidInputError{Field: "types", Reason: fmt.Sprintf("invalid filter type: %s", t)}
		}
	}

	if _, err := s.kbStore.Get(ctx, kbID); err != nil {
		return nil, 0, fmt.Errorf("knowledgebase %s: %w", kbID, err)
	}

	filter := driven.DocumentFilter{
		Keywords:  req.Keywords,
		RunStatus: req.RunStatus,
		Types:     req.Types,
		Suffixes:  req.Suffixes,
		OrderBy:   req.OrderBy,
		Desc:      req.Desc,
		Offset:    (req.Page - 1) * req.PageSize,
		Limit:     req.PageSize,
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.documentStore.ListByKB(ctx, kbID, filter)
}

// Run drives documents through the run-state machine. Entering RUNNING
// dispatches exactly one task per document; CANCEL requires the document
// to currently be RUNNING.
func (s *documentService) Run(ctx context.Context, req driving.RunDocumentsRequest) error {
	if !domain.ValidRunStatuses[req.Run] {
		return &domain.InvalidInputError{Field: "run", Reason: fmt.Sprintf("invalid run status: %s", req.Run)}
	}

	// Cached count of DONE table documents per knowledge base; used for
	// schema-cache invalidation across the batch.
	tableCounts := make(map[string]int)

	for _, docID := range req.DocIDs {
		tenantID, err := s.documentStore.GetTenantID(ctx, docID)
		if err != nil {
			return fmt.Errorf("tenant for document %s: %w", docID, err)
		}
		doc, err := s.documentStore.Get(ctx, docID)
		if err != nil {
			return fmt.Errorf("document %s: %w", docID, err)
		}

		if req.Run == domain.RunCancel {
			if doc.Run != domain.RunRunning {
				return fmt.Errorf("document %s is not running: %w", docID, domain.ErrConflict)
			}
			if err := s.taskStore.DeleteByDoc(ctx, docID); err != nil {
				return fmt.Errorf("cancel tasks of %s: %w", docID, err)
			}
		}

		// A destructive rerun of a DONE document rolls its contribution
		// out of the knowledge-base aggregates before the reset.
		if req.Delete && req.Run == domain.RunRunning && doc.Run == domain.RunDone {
			if err := s.rollbackStats(ctx, doc); err != nil {
				return err
			}
		}

		doc.Run = req.Run
		doc.Progress = 0
		if req.Run == domain.RunRunning && req.Delete {
			doc.ProgressMsg = ""
			doc.ChunkNum = 0
			doc.TokenNum = 0
		}
		doc.UpdatedAt = time.Now()
		if err := s.documentStore.Save(ctx, doc); err != nil {
			return fmt.Errorf("update document %s: %w", docID, err)
		}

		if req.Delete {
			if err := s.taskStore.DeleteByDoc(ctx, docID); err != nil {
				return fmt.Errorf("delete tasks of %s: %w", docID, err)
			}
			if err := s.deleteIndexEntries(ctx, tenantID, doc.KBID, docID); err != nil {
				return err
			}
		}

		if req.Run == domain.RunRunning {
			if doc.ParserID == domain.ParserTable {
				if err := s.invalidateTableSchema(ctx, doc.KBID, tableCounts, false); err != nil {
					return err
				}
			}
			if err := s.dispatch(ctx, tenantID, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatch routes one document entering RUNNING: documents carrying a
// pipeline id go to the pipeline queue, the rest to direct parse
// addressed by their blob location.
func (s *documentService) dispatch(ctx context.Context, tenantID string, doc *domain.Document) error {
	task := domain.NewParseTask(doc.ID, 0)
	if err := s.taskStore.Create(ctx, task); err != nil {
		return fmt.Errorf("create task for %s: %w", doc.ID, err)
	}

	if doc.PipelineID != "" {
		if err := s.pipelineQueue.Enqueue(ctx, tenantID, doc.PipelineID, task.ID, doc.ID); err != nil {
			return fmt.Errorf("enqueue pipeline job for %s: %w", doc.ID, err)
		}
		s.logger.Info("dispatched pipeline job", "doc_id", doc.ID, "pipeline_id", doc.PipelineID, "task_id", task.ID)
		return nil
	}

	bucket, location, err := s.fileStore.StorageAddress(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("storage address of %s: %w", doc.ID, err)
	}
	job := &driven.ParseJob{
		TaskID:   task.ID,
		TenantID: tenantID,
		Document: doc,
		Bucket:   bucket,
		Location: location,
		Priority: task.Priority,
	}
	if err := s.parseQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue parse job for %s: %w", doc.ID, err)
	}
	s.logger.Info("dispatched parse job", "doc_id", doc.ID, "task_id", task.ID, "bucket", bucket)
	return nil
}

// Remove deletes documents independently; one failure does not stop the
// rest. Deleting an id that is already gone is a no-op.
func (s *documentService) Remove(ctx context.Context, docIDs []string) error {
	errs := domain.NewBulkError()
	tableCounts := make(map[string]int)

	for _, docID := range docIDs {
		if err := s.removeOne(ctx, docID, tableCounts); err != nil {
			errs.Add(docID, err)
		}
	}
	return errs.OrNil()
}

func (s *documentService) removeOne(ctx context.Context, docID string, tableCounts map[string]int) error {
	doc, err := s.documentStore.Get(ctx, docID)
	if err != nil {
		// Already deleted: replaying the deletion is not an error.
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	tenantID, err := s.documentStore.GetTenantID(ctx, docID)
	if err != nil {
		return fmt.Errorf("tenant: %w", err)
	}

	bucket, location, addrErr := s.fileStore.StorageAddress(ctx, docID)

	if err := s.taskStore.DeleteByDoc(ctx, docID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}

	if doc.TokenNum > 0 {
		if err := s.rollbackStats(ctx, doc); err != nil {
			return err
		}
	}
	if err := s.documentStore.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.deleteIndexEntries(ctx, tenantID, doc.KBID, docID); err != nil {
		return err
	}

	// Blobs may back several documents through shared files; the blob
	// goes away only when the linkage layer frees its last reference.
	links, err := s.fileStore.GetByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("file links: %w", err)
	}
	freed := 0
	if len(links) > 0 {
		freed, err = s.fileStore.DeleteKBFile(ctx, links[0].FileID)
		if err != nil {
			return fmt.Errorf("delete file record: %w", err)
		}
	}
	if err := s.fileStore.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete file links: %w", err)
	}
	if freed > 0 {
		if addrErr != nil {
			return fmt.Errorf("storage address: %w", addrErr)
		}
		if err := s.blobStore.Delete(ctx, bucket, location); err != nil {
			return fmt.Errorf("delete blob: %w", err)
		}
	}

	if doc.ParserID == domain.ParserTable {
		if err := s.invalidateTableSchema(ctx, doc.KBID, tableCounts, true); err != nil {
			return err
		}
	}
	return nil
}

// ChangeAvailability toggles a single index attribute per document; no
// run-state or task interaction.
func (s *documentService) ChangeAvailability(ctx context.Context, docIDs []string, available bool) (map[string]error, error) {
	results := make(map[string]error, len(docIDs))
	availableInt := 0
	if available {
		availableInt = 1
	}

	for _, docID := range docIDs {
		doc, err := s.documentStore.Get(ctx, docID)
		if err != nil {
			results[docID] = err
			continue
		}
		tenantID, err := s.documentStore.GetTenantID(ctx, docID)
		if err != nil {
			results[docID] = err
			continue
		}

		doc.Available = available
		doc.UpdatedAt = time.Now()
		if err := s.documentStore.Save(ctx, doc); err != nil {
			results[docID] = fmt.Errorf("update document: %w", err)
			continue
		}

		err = s.searchIndex.Update(ctx,
			map[string]any{"doc_id": docID},
			map[string]any{"available_int": availableInt},
			driven.IndexName(tenantID), doc.KBID)
		if err != nil {
			results[docID] = fmt.Errorf("update index: %w", err)
			continue
		}
		results[docID] = nil
	}
	return results, nil
}

// Rename changes a document's display name. The suffix can't change.
func (s *documentService) Rename(ctx context.Context, docID, name string) error {
	if len(name) > domain.FileNameLimit {
		return &domain.InvalidInputError{Field: "name", Reason: fmt.Sprintf("document name must be %d bytes or less", domain.FileNameLimit)}
	}
	doc, err := s.documentStore.Get(ctx, docID)
	if err != nil {
		return err
	}
	if domain.FileSuffix(name) != domain.FileSuffix(doc.Name) {
		return &domain.InvalidInputError{Field: "name", Reason: "the extension of the file can't be changed"}
	}
	if taken, err := s.nameTaken(ctx, doc.KBID, name, doc.ID); err != nil {
		return err
	} else if taken {
		return &domain.InvalidInputError{Field: "name", Reason: "duplicated document name in the same knowledgebase"}
	}

	doc.Name = name
	doc.UpdatedAt = time.Now()
	return s.documentStore.Save(ctx, doc)
}

// SetMeta replaces a document's user metadata.
func (s *documentService) SetMeta(ctx context.Context, docID string, meta map[string]any) error {
	if err := domain.ValidateMeta(meta); err != nil {
		return err
	}
	doc, err := s.documentStore.Get(ctx, docID)
	if err != nil {
		return err
	}
	doc.Meta = meta
	doc.UpdatedAt = time.Now()
	return s.documentStore.Save(ctx, doc)
}

// ChangeParser reassigns the parser or pipeline, resetting processing
// state so the next run starts from scratch.
func (s *documentService) ChangeParser(ctx context.Context, req driving.ChangeParserRequest) error {
	doc, err := s.documentStore.Get(ctx, req.DocID)
	if err != nil {
		return err
	}

	if req.PipelineID != "" {
		if doc.PipelineID == req.PipelineID {
			return nil
		}
		doc.PipelineID = req.PipelineID
		return s.resetDocument(ctx, doc, doc.ParserID)
	}

	if doc.ParserID == req.ParserID {
		if req.ParserConfig == nil {
			return nil
		}
	}
	if doc.Type == domain.FileTypeVisual && req.ParserID != domain.ParserPicture {
		return &domain.InvalidInputError{Field: "parser_id", Reason: "not supported for visual files"}
	}

	if req.ParserConfig != nil {
		doc.ParserConfig = req.ParserConfig
	}
	return s.resetDocument(ctx, doc, req.ParserID)
}

// resetDocument clears run state and rolls back counters and index
// entries accumulated under the previous parser.
func (s *documentService) resetDocument(ctx context.Context, doc *domain.Document, parserID domain.ParserType) error {
	doc.ParserID = parserID
	doc.Run = domain.RunUnstarted
	doc.Progress = 0
	doc.ProgressMsg = ""
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return fmt.Errorf("reset document %s: %w", doc.ID, err)
	}

	if doc.TokenNum > 0 {
		if err := s.rollbackStats(ctx, doc); err != nil {
			return err
		}
		tenantID, err := s.documentStore.GetTenantID(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("tenant: %w", err)
		}
		if err := s.deleteIndexEntries(ctx, tenantID, doc.KBID, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

// rollbackStats subtracts a document's chunk/token/duration contribution
// from itself and its knowledge base.
func (s *documentService) rollbackStats(ctx context.Context, doc *domain.Document) error {
	err := s.documentStore.IncrementStats(ctx, doc.ID, doc.KBID, -doc.TokenNum, -doc.ChunkNum, -doc.ProcessDuration)
	if err != nil {
		return fmt.Errorf("roll back counters of %s: %w", doc.ID, err)
	}
	return nil
}

// deleteIndexEntries removes every index record keyed by the document,
// skipping knowledge bases that never got a partition.
func (s *documentService) deleteIndexEntries(ctx context.Context, tenantID, kbID, docID string) error {
	index := driven.IndexName(tenantID)
	exists, err := s.searchIndex.IndexExists(ctx, index, kbID)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.searchIndex.Delete(ctx, map[string]any{"doc_id": docID}, index, kbID); err != nil {
		return fmt.Errorf("delete index entries of %s: %w", docID, err)
	}
	return nil
}

// invalidateTableSchema clears the knowledge base's cached field map
// once no DONE table documents remain. Removal takes the document out of
// the cached count; a rerun only consults it, since the restarted
// document already left the DONE set.
func (s *documentService) invalidateTableSchema(ctx context.Context, kbID string, counts map[string]int, removed bool) error {
	if _, ok := counts[kbID]; !ok {
		n, err := s.documentStore.CountByKB(ctx, kbID, []domain.RunStatus{domain.RunDone}, domain.ParserTable)
		if err != nil {
			return fmt.Errorf("count table documents: %w", err)
		}
		counts[kbID] = n
	}
	if removed {
		counts[kbID]--
	}
	if counts[kbID] <= 0 {
		if err := s.kbStore.ClearFieldMap(ctx, kbID); err != nil {
			return fmt.Errorf("clear field map of %s: %w", kbID, err)
		}
	}
	return nil
}

// nameTaken reports whether another document in the knowledge base
// already uses the name.
func (s *documentService) nameTaken(ctx context.Context, kbID, name, excludeID string) (bool, error) {
	docs, _, err := s.documentStore.ListByKB(ctx, kbID, driven.DocumentFilter{Keywords: name})
	if err != nil {
		return false, fmt.Errorf("list documents: %w", err)
	}
	for _, d := range docs {
		if d.Name == name && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}
