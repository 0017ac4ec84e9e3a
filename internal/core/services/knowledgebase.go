package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// Ensure kbService implements KnowledgebaseService
var _ driving.KnowledgebaseService = (*kbService)(nil)

// kbService manages knowledge bases and their cascading teardown.
type kbService struct {
	kbStore       driven.KnowledgebaseStore
	documentStore driven.DocumentStore
	taskStore     driven.TaskStore
	fileStore     driven.FileStore
	blobStore     driven.BlobStore
	searchIndex   driven.SearchIndex
	logger        *slog.Logger
}

// KnowledgebaseConfig holds dependencies for the knowledge base service.
type KnowledgebaseConfig struct {
	KBStore       driven.KnowledgebaseStore
	DocumentStore driven.DocumentStore
	TaskStore     driven.TaskStore
	FileStore     driven.FileStore
	BlobStore     driven.BlobStore
	SearchIndex   driven.SearchIndex
	Logger        *slog.Logger
}

// NewKnowledgebaseService creates a new KnowledgebaseService
func NewKnowledgebaseService(cfg KnowledgebaseConfig) driving.KnowledgebaseService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &kbService{
		kbStore:       cfg.KBStore,
		documentStore: cfg.DocumentStore,
		taskStore:     cfg.TaskStore,
		fileStore:     cfg.FileStore,
		blobStore:     cfg.BlobStore,
		searchIndex:   cfg.SearchIndex,
		logger:        logger,
	}
}

// Create makes a knowledge base with default parser settings.
func (s *kbService) Create(ctx context.Context, req driving.CreateKBRequest) (*domain.Knowledgebase, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.InvalidInputError{Field: "name", Reason: "knowledgebase name can't be empty"}
	}
	if len(name) > domain.KBNameLimit {
		return nil, &domain.InvalidInputError{Field: "name", Reason: fmt.Sprintf("knowledgebase name must be %d bytes or less", domain.KBNameLimit)}
	}
	if taken, err := s.kbNameTaken(ctx, req.TenantID, name, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, &domain.InvalidInputError{Field: "name", Reason: "duplicated knowledgebase name"}
	}

	now := time.Now()
	kb := &domain.Knowledgebase{
		ID:           domain.NewID(),
		TenantID:     req.TenantID,
		CreatedBy:    req.CreatedBy,
		Name:         name,
		Description:  req.Description,
		ParserID:     domain.ParserNaive,
		ParserConfig: domain.DefaultParserConfig(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.ParserID != "" {
		kb.ParserID = req.ParserID
	}
	if req.ParserConfig != nil {
		kb.ParserConfig = req.ParserConfig
	}
	if err := s.kbStore.Save(ctx, kb); err != nil {
		return nil, fmt.Errorf("save knowledgebase: %w", err)
	}
	return kb, nil
}

// Get retrieves a knowledge base by ID
func (s *kbService) Get(ctx context.Context, id string) (*domain.Knowledgebase, error) {
	return s.kbStore.Get(ctx, id)
}

// List retrieves the knowledge bases of a tenant
func (s *kbService) List(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error) {
	return s.kbStore.List(ctx, tenantID)
}

// Update renames a knowledge base and keeps the index's pagerank
// attribute in step with the stored value.
func (s *kbService) Update(ctx context.Context, req driving.UpdateKBRequest) (*domain.Knowledgebase, error) {
	kb, err := s.kbStore.Get(ctx, req.KBID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" && req.Name != kb.Name {
		if len(req.Name) > domain.KBNameLimit {
			return nil, &domain.InvalidInputError{Field: "name", Reason: fmt.Sprintf("knowledgebase name must be %d bytes or less", domain.KBNameLimit)}
		}
		if taken, err := s.kbNameTaken(ctx, kb.TenantID, req.Name, kb.ID); err != nil {
			return nil, err
		} else if taken {
			return nil, &domain.InvalidInputError{Field: "name", Reason: "duplicated knowledgebase name"}
		}
		kb.Name = req.Name
	}

	pagerankChanged := req.Pagerank != kb.Pagerank
	kb.Pagerank = req.Pagerank

	kb.UpdatedAt = time.Now()
	if err := s.kbStore.Save(ctx, kb); err != nil {
		return nil, fmt.Errorf("save knowledgebase: %w", err)
	}

	// Existing chunks carry the rank as an index attribute; rewrite it
	// only when chunks are actually there.
	if pagerankChanged && kb.ChunkNum > 0 {
		index := driven.IndexName(kb.TenantID)
		var patch map[string]any
		if kb.Pagerank > 0 {
			patch = map[string]any{"pagerank_fea": kb.Pagerank}
		} else {
			patch = map[string]any{"remove": "pagerank_fea"}
		}
		if err := s.searchIndex.Update(ctx, map[string]any{"kb_id": kb.ID}, patch, index, kb.ID); err != nil {
			return nil, fmt.Errorf("update pagerank in index: %w", err)
		}
	}
	return kb, nil
}

// Delete tears a knowledge base down: ledger rows, documents, file
// links, blobs, the index partition and finally the bucket and the row
// itself. Per-document failures are accumulated, not fatal.
func (s *kbService) Delete(ctx context.Context, kbID string) error {
	kb, err := s.kbStore.Get(ctx, kbID)
	if err != nil {
		return err
	}

	docs, _, err := s.documentStore.ListByKB(ctx, kbID, driven.DocumentFilter{})
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	errs := domain.NewBulkError()
	for _, doc := range docs {
		if err := s.removeDocumentCascade(ctx, doc); err != nil {
			errs.Add(doc.ID, err)
		}
	}

	index := driven.IndexName(kb.TenantID)
	if exists, err := s.searchIndex.IndexExists(ctx, index, kbID); err != nil {
		errs.Add(kbID, fmt.Errorf("check index: %w", err))
	} else if exists {
		if err := s.searchIndex.DeleteIndex(ctx, index, kbID); err != nil {
			errs.Add(kbID, fmt.Errorf("drop index partition: %w", err))
		}
	}

	if err := s.blobStore.RemoveBucket(ctx, kbID); err != nil {
		errs.Add(kbID, fmt.Errorf("remove bucket: %w", err))
	}
	if err := s.fileStore.DeleteKBFolder(ctx, kb.Name); err != nil {
		errs.Add(kbID, fmt.Errorf("delete folder record: %w", err))
	}

	if err := s.kbStore.Delete(ctx, kbID); err != nil {
		return fmt.Errorf("delete knowledgebase: %w", err)
	}
	return errs.OrNil()
}

func (s *kbService) removeDocumentCascade(ctx context.Context, doc *domain.Document) error {
	if err := s.taskStore.DeleteByDoc(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	bucket, location, addrErr := s.fileStore.StorageAddress(ctx, doc.ID)
	links, err := s.fileStore.GetByDocument(ctx, doc.ID)
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
	if err := s.fileStore.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete file links: %w", err)
	}
	if freed > 0 && addrErr == nil {
		if err := s.blobStore.Delete(ctx, bucket, location); err != nil {
			return fmt.Errorf("delete blob: %w", err)
		}
	}
	if err := s.documentStore.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// KnowledgeGraph assembles the knowledge base's graph view from stored
// graph artifacts. A missing index partition, a missing artifact, or a
// malformed one yields an empty view, never an error.
func (s *kbService) KnowledgeGraph(ctx context.Context, kbID string) (*domain.GraphView, error) {
	kb, err := s.kbStore.Get(ctx, kbID)
	if err != nil {
		return nil, err
	}

	view := domain.EmptyGraphView()
	index := driven.IndexName(kb.TenantID)
	exists, err := s.searchIndex.IndexExists(ctx, index, kbID)
	if err != nil {
		return nil, fmt.Errorf("check index: %w", err)
	}
	if !exists {
		return view, nil
	}

	filter := map[string]any{
		"kb_id":               kbID,
		domain.GraphFieldKind: []string{domain.GraphKindGraph, domain.GraphKindMindMap},
	}
	hits, err := s.searchIndex.Search(ctx, filter, index, []string{kbID})
	if err != nil {
		return nil, fmt.Errorf("search graph artifacts: %w", err)
	}
	if len(hits) == 0 {
		return view, nil
	}

	// Only the single highest-ranked artifact fills the view.
	hit := hits[0]
	kind, _ := hit.Fields[domain.GraphFieldKind].(string)
	content, _ := hit.Fields[domain.GraphFieldContent].(string)

	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		s.logger.Warn("skipping malformed graph artifact", "kb_id", kbID, "kind", kind, "error", err)
		return view, nil
	}
	switch kind {
	case domain.GraphKindGraph:
		domain.PruneGraph(obj)
		view.Graph = obj
	case domain.GraphKindMindMap:
		view.MindMap = obj
	}
	return view, nil
}

func (s *kbService) kbNameTaken(ctx context.Context, tenantID, name, excludeID string) (bool, error) {
	existing, err := s.kbStore.GetByName(ctx, tenantID, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("look up knowledgebase name: %w", err)
	}
	return existing.ID != excludeID, nil
}
