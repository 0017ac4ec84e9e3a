package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// Mock services for testing

type mockDocumentService struct {
	createFn       func(ctx context.Context, req driving.CreateDocumentRequest) (*domain.Document, error)
	getFn          func(ctx context.Context, id string) (*domain.Document, error)
	listFn         func(ctx context.Context, kbID string, req driving.ListDocumentsRequest) ([]*domain.Document, int, error)
	runFn          func(ctx context.Context, req driving.RunDocumentsRequest) error
	removeFn       func(ctx context.Context, docIDs []string) error
	availabilityFn func(ctx context.Context, docIDs []string, available bool) (map[string]error, error)
	renameFn       func(ctx context.Context, docID, name string) error
	setMetaFn      func(ctx context.Context, docID string, meta map[string]any) error
	changeParserFn func(ctx context.Context, req driving.ChangeParserRequest) error
}

func (m *mockDocumentService) Create(ctx context.Context, req driving.CreateDocumentRequest) (*domain.Document, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) List(ctx context.Context, kbID string, req driving.ListDocumentsRequest) ([]*domain.Document, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, kbID, req)
	}
	return nil, 0, errors.New("not implemented")
}

func (m *mockDocumentService) Run(ctx context.Context, req driving.RunDocumentsRequest) error {
	if m.runFn != nil {
		return m.runFn(ctx, req)
	}
	return errors.New("not implemented")
}

func (m *mockDocumentService) Remove(ctx context.Context, docIDs []string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, docIDs)
	}
	return errors.New("not implemented")
}

func (m *mockDocumentService) ChangeAvailability(ctx context.Context, docIDs []string, available bool) (map[string]error, error) {
	if m.availabilityFn != nil {
		return m.availabilityFn(ctx, docIDs, available)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Rename(ctx context.Context, docID, name string) error {
	if m.renameFn != nil {
		return m.renameFn(ctx, docID, name)
	}
	return errors.New("not implemented")
}

func (m *mockDocumentService) SetMeta(ctx context.Context, docID string, meta map[string]any) error {
	if m.setMetaFn != nil {
		return m.setMetaFn(ctx, docID, meta)
	}
	return errors.New("not implemented")
}

func (m *mockDocumentService) ChangeParser(ctx context.Context, req driving.ChangeParserRequest) error {
	if m.changeParserFn != nil {
		return m.changeParserFn(ctx, req)
	}
	return errors.New("not implemented")
}

type mockKBService struct {
	createFn func(ctx context.Context, req driving.CreateKBRequest) (*domain.Knowledgebase, error)
	getFn    func(ctx context.Context, id string) (*domain.Knowledgebase, error)
	listFn   func(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error)
	updateFn func(ctx context.Context, req driving.UpdateKBRequest) (*domain.Knowledgebase, error)
	deleteFn func(ctx context.Context, id string) error
	graphFn  func(ctx context.Context, kbID string) (*domain.GraphView, error)
}

func (m *mockKBService) Create(ctx context.Context, req driving.CreateKBRequest) (*domain.Knowledgebase, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockKBService) Get(ctx context.Context, id string) (*domain.Knowledgebase, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockKBService) List(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error) {
	if m.listFn != nil {
		return m.listFn(ctx, tenantID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockKBService) Update(ctx context.Context, req driving.UpdateKBRequest) (*domain.Knowledgebase, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockKBService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockKBService) KnowledgeGraph(ctx context.Context, kbID string) (*domain.GraphView, error) {
	if m.graphFn != nil {
		return m.graphFn(ctx, kbID)
	}
	return nil, errors.New("not implemented")
}

type mockPipelineService struct {
	runFn    func(ctx context.Context, kind domain.PipelineKind, kbID string) (string, error)
	traceFn  func(ctx context.Context, kind domain.PipelineKind, kbID string) (*domain.Task, error)
	unbindFn func(ctx context.Context, kind domain.PipelineKind, kbID string) error
}

func (m *mockPipelineService) Run(ctx context.Context, kind domain.PipelineKind, kbID string) (string, error) {
	if m.runFn != nil {
		return m.runFn(ctx, kind, kbID)
	}
	return "", errors.New("not implemented")
}

func (m *mockPipelineService) Trace(ctx context.Context, kind domain.PipelineKind, kbID string) (*domain.Task, error) {
	if m.traceFn != nil {
		return m.traceFn(ctx, kind, kbID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPipelineService) Unbind(ctx context.Context, kind domain.PipelineKind, kbID string) error {
	if m.unbindFn != nil {
		return m.unbindFn(ctx, kind, kbID)
	}
	return errors.New("not implemented")
}

// Helpers

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewBuffer(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), authContextKey, &AuthContext{
		TenantID: "tenant-1",
		UserID:   "user-1",
	})
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

// Knowledge base handlers

func TestHandleCreateKB(t *testing.T) {
	server := &Server{
		kbService: &mockKBService{
			createFn: func(ctx context.Context, req driving.CreateKBRequest) (*domain.Knowledgebase, error) {
				if req.TenantID != "tenant-1" {
					t.Errorf("expected tenant from auth context, got %q", req.TenantID)
				}
				if req.CreatedBy != "user-1" {
					t.Errorf("expected creator from auth context, got %q", req.CreatedBy)
				}
				return &domain.Knowledgebase{ID: "kb-1", Name: req.Name}, nil
			},
		},
	}

	body, _ := json.Marshal(createKBRequest{Name: "research"})
	req := authedRequest("POST", "/api/v1/kbs", body)
	rr := httptest.NewRecorder()

	server.handleCreateKB(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	var kb domain.Knowledgebase
	if err := json.NewDecoder(rr.Body).Decode(&kb); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if kb.ID != "kb-1" || kb.Name != "research" {
		t.Errorf("unexpected knowledge base: %+v", kb)
	}
}

func TestHandleCreateKB_InvalidJSON(t *testing.T) {
	server := &Server{}

	req := authedRequest("POST", "/api/v1/kbs", []byte("invalid json"))
	rr := httptest.NewRecorder()

	server.handleCreateKB(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleCreateKB_DuplicateName(t *testing.T) {
	server := &Server{
		kbService: &mockKBService{
			createFn: func(ctx context.Context, req driving.CreateKBRequest) (*domain.Knowledgebase, error) {
				return nil, fmt.Errorf("name %q already used: %w", req.Name, domain.ErrConflict)
			},
		},
	}

	body, _ := json.Marshal(createKBRequest{Name: "research"})
	req := authedRequest("POST", "/api/v1/kbs", body)
	rr := httptest.NewRecorder()

	server.handleCreateKB(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleListKBs(t *testing.T) {
	server := &Server{
		kbService: &mockKBService{
			listFn: func(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error) {
				if tenantID != "tenant-1" {
					t.Errorf("expected tenant-1, got %q", tenantID)
				}
				return []*domain.Knowledgebase{{ID: "kb-1"}, {ID: "kb-2"}}, nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/kbs", nil)
	rr := httptest.NewRecorder()

	server.handleListKBs(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["total"] != float64(2) {
		t.Errorf("expected total 2, got %v", body["total"])
	}
}

func TestHandleGetKB_NotFound(t *testing.T) {
	server := &Server{
		kbService: &mockKBService{
			getFn: func(ctx context.Context, id string) (*domain.Knowledgebase, error) {
				return nil, fmt.Errorf("knowledgebase %s: %w", id, domain.ErrNotFound)
			},
		},
	}

	req := authedRequest("GET", "/api/v1/kbs/kb-x", nil)
	req.SetPathValue("id", "kb-x")
	rr := httptest.NewRecorder()

	server.handleGetKB(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleKnowledgeGraph(t *testing.T) {
	server := &Server{
		kbService: &mockKBService{
			graphFn: func(ctx context.Context, kbID string) (*domain.GraphView, error) {
				return domain.EmptyGraphView(), nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/kbs/kb-1/knowledge_graph", nil)
	req.SetPathValue("id", "kb-1")
	rr := httptest.NewRecorder()

	server.handleKnowledgeGraph(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

// Pipeline handlers

func TestHandleRunPipeline(t *testing.T) {
	server := &Server{
		pipelineService: &mockPipelineService{
			runFn: func(ctx context.Context, kind domain.PipelineKind, kbID string) (string, error) {
				if kind != domain.PipelineGraphRAG {
					t.Errorf("expected graphrag, got %q", kind)
				}
				if kbID != "kb-1" {
					t.Errorf("expected kb-1, got %q", kbID)
				}
				return "task-1", nil
			},
		},
	}

	req := authedRequest("POST", "/api/v1/kbs/kb-1/pipelines/graphrag/run", nil)
	req.SetPathValue("id", "kb-1")
	req.SetPathValue("kind", "graphrag")
	rr := httptest.NewRecorder()

	server.handleRunPipeline(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["task_id"] != "task-1" {
		t.Errorf("expected task-1, got %v", body["task_id"])
	}
}

func TestHandleRunPipeline_InFlight(t *testing.T) {
	server := &Server{
		pipelineService: &mockPipelineService{
			runFn: func(ctx context.Context, kind domain.PipelineKind, kbID string) (string, error) {
				return "", fmt.Errorf("pipeline %s already running: %w", kind, domain.ErrConflict)
			},
		},
	}

	req := authedRequest("POST", "/api/v1/kbs/kb-1/pipelines/raptor/run", nil)
	req.SetPathValue("id", "kb-1")
	req.SetPathValue("kind", "raptor")
	rr := httptest.NewRecorder()

	server.handleRunPipeline(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleTracePipeline_NoTask(t *testing.T) {
	server := &Server{
		pipelineService: &mockPipelineService{
			traceFn: func(ctx context.Context, kind domain.PipelineKind, kbID string) (*domain.Task, error) {
				return nil, nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/kbs/kb-1/pipelines/mindmap/trace", nil)
	req.SetPathValue("id", "kb-1")
	req.SetPathValue("kind", "mindmap")
	rr := httptest.NewRecorder()

	server.handleTracePipeline(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["task"] != nil {
		t.Errorf("expected null task, got %v", body["task"])
	}
}

// Document handlers

func TestHandleCreateDocument(t *testing.T) {
	server := &Server{
		docService: &mockDocumentService{
			createFn: func(ctx context.Context, req driving.CreateDocumentRequest) (*domain.Document, error) {
				if req.KBID != "kb-1" {
					t.Errorf("expected kb-1, got %q", req.KBID)
				}
				return &domain.Document{ID: "doc-1", Name: req.Name}, nil
			},
		},
	}

	body, _ := json.Marshal(createDocumentRequest{Name: "report.pdf"})
	req := authedRequest("POST", "/api/v1/kbs/kb-1/documents", body)
	req.SetPathValue("id", "kb-1")
	rr := httptest.NewRecorder()

	server.handleCreateDocument(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
}

func TestHandleListDocuments_QueryFilters(t *testing.T) {
	var captured driving.ListDocumentsRequest
	server := &Server{
		docService: &mockDocumentService{
			listFn: func(ctx context.Context, kbID string, req driving.ListDocumentsRequest) ([]*domain.Document, int, error) {
				captured = req
				return []*domain.Document{{ID: "doc-1"}}, 1, nil
			},
		},
	}

	target := "/api/v1/kbs/kb-1/documents?keywords=report&run=RUNNING,DONE&suffixes=pdf&orderby=size&desc=true&page=2&page_size=10"
	req := authedRequest("GET", target, nil)
	req.SetPathValue("id", "kb-1")
	rr := httptest.NewRecorder()

	server.handleListDocuments(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Keywords != "report" {
		t.Errorf("expected keywords report, got %q", captured.Keywords)
	}
	if len(captured.RunStatus) != 2 || captured.RunStatus[0] != domain.RunRunning {
		t.Errorf("unexpected run filter: %v", captured.RunStatus)
	}
	if len(captured.Suffixes) != 1 || captured.Suffixes[0] != "pdf" {
		t.Errorf("unexpected suffix filter: %v", captured.Suffixes)
	}
	if captured.OrderBy != "size" || !captured.Desc {
		t.Errorf("unexpected ordering: %+v", captured)
	}
	if captured.Page != 2 || captured.PageSize != 10 {
		t.Errorf("unexpected paging: page=%d size=%d", captured.Page, captured.PageSize)
	}
}

func TestHandleListDocuments_Defaults(t *testing.T) {
	var captured driving.ListDocumentsRequest
	server := &Server{
		docService: &mockDocumentService{
			listFn: func(ctx context.Context, kbID string, req driving.ListDocumentsRequest) ([]*domain.Document, int, error) {
				captured = req
				return nil, 0, nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/kbs/kb-1/documents", nil)
	req.SetPathValue("id", "kb-1")
	rr := httptest.NewRecorder()

	server.handleListDocuments(rr, req)

	if captured.Page != 1 || captured.PageSize != 30 {
		t.Errorf("expected default paging, got page=%d size=%d", captured.Page, captured.PageSize)
	}
}

func TestHandleRunDocuments(t *testing.T) {
	var captured driving.RunDocumentsRequest
	server := &Server{
		docService: &mockDocumentService{
			runFn: func(ctx context.Context, req driving.RunDocumentsRequest) error {
				captured = req
				return nil
			},
		},
	}

	body, _ := json.Marshal(runDocumentsRequest{
		DocIDs: []string{"doc-1", "doc-2"},
		Run:    string(domain.RunRunning),
		Delete: true,
	})
	req := authedRequest("POST", "/api/v1/documents/run", body)
	rr := httptest.NewRecorder()

	server.handleRunDocuments(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(captured.DocIDs) != 2 || captured.Run != domain.RunRunning || !captured.Delete {
		t.Errorf("unexpected run request: %+v", captured)
	}
}

func TestHandleRunDocuments_Validation(t *testing.T) {
	server := &Server{}

	body, _ := json.Marshal(runDocumentsRequest{Run: string(domain.RunRunning)})
	req := authedRequest("POST", "/api/v1/documents/run", body)
	rr := httptest.NewRecorder()

	server.handleRunDocuments(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty doc_ids, got %d", rr.Code)
	}
}

func TestHandleRunDocuments_CancelNotRunning(t *testing.T) {
	server := &Server{
		docService: &mockDocumentService{
			runFn: func(ctx context.Context, req driving.RunDocumentsRequest) error {
				return fmt.Errorf("document is not running: %w", domain.ErrConflict)
			},
		},
	}

	body, _ := json.Marshal(runDocumentsRequest{
		DocIDs: []string{"doc-1"},
		Run:    string(domain.RunCancel),
	})
	req := authedRequest("POST", "/api/v1/documents/run", body)
	rr := httptest.NewRecorder()

	server.handleRunDocuments(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleRemoveDocuments_PartialFailure(t *testing.T) {
	server := &Server{
		docService: &mockDocumentService{
			removeFn: func(ctx context.Context, docIDs []string) error {
				bulk := domain.NewBulkError()
				bulk.Add("doc-2", fmt.Errorf("document doc-2: %w", domain.ErrNotFound))
				return bulk.OrNil()
			},
		},
	}

	body, _ := json.Marshal(removeDocumentsRequest{DocIDs: []string{"doc-1", "doc-2"}})
	req := authedRequest("DELETE", "/api/v1/documents", body)
	rr := httptest.NewRecorder()

	server.handleRemoveDocuments(rr, req)

	// Partial failures still return 200 with a per-id error map
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	respBody := decodeBody(t, rr)
	if respBody["status"] != "partial" {
		t.Errorf("expected partial status, got %v", respBody["status"])
	}
	failed, ok := respBody["errors"].(map[string]any)
	if !ok || len(failed) != 1 {
		t.Fatalf("expected one per-id error, got %v", respBody["errors"])
	}
	if _, ok := failed["doc-2"]; !ok {
		t.Errorf("expected error for doc-2, got %v", failed)
	}
}

func TestHandleChangeAvailability(t *testing.T) {
	server := &Server{
		docService: &mockDocumentService{
			availabilityFn: func(ctx context.Context, docIDs []string, available bool) (map[string]error, error) {
				return map[string]error{
					"doc-1": nil,
					"doc-2": fmt.Errorf("document doc-2: %w", domain.ErrNotFound),
				}, nil
			},
		},
	}

	body, _ := json.Marshal(changeAvailabilityRequest{
		DocIDs:    []string{"doc-1", "doc-2"},
		Available: false,
	})
	req := authedRequest("POST", "/api/v1/documents/status", body)
	rr := httptest.NewRecorder()

	server.handleChangeAvailability(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	respBody := decodeBody(t, rr)
	results, ok := respBody["results"].(map[string]any)
	if !ok {
		t.Fatalf("expected results map, got %v", respBody)
	}
	if results["doc-1"] != "" {
		t.Errorf("expected empty outcome for doc-1, got %v", results["doc-1"])
	}
	if results["doc-2"] == "" {
		t.Error("expected error outcome for doc-2")
	}
}

func TestHandleRenameDocument_SuffixChange(t *testing.T) {
	server := &Server{
		docService: &mockDocumentService{
			renameFn: func(ctx context.Context, docID, name string) error {
				return &domain.InvalidInputError{Field: "name", Reason: "suffix must not change"}
			},
		},
	}

	body, _ := json.Marshal(renameDocumentRequest{Name: "report.docx"})
	req := authedRequest("POST", "/api/v1/documents/doc-1/rename", body)
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleRenameDocument(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleSetDocumentMeta(t *testing.T) {
	var captured map[string]any
	server := &Server{
		docService: &mockDocumentService{
			setMetaFn: func(ctx context.Context, docID string, meta map[string]any) error {
				captured = meta
				return nil
			},
		},
	}

	body, _ := json.Marshal(setMetaRequest{Meta: map[string]any{"author": "alice"}})
	req := authedRequest("PUT", "/api/v1/documents/doc-1/meta", body)
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleSetDocumentMeta(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured["author"] != "alice" {
		t.Errorf("unexpected meta: %v", captured)
	}
}

func TestHandleChangeParser(t *testing.T) {
	var captured driving.ChangeParserRequest
	server := &Server{
		docService: &mockDocumentService{
			changeParserFn: func(ctx context.Context, req driving.ChangeParserRequest) error {
				captured = req
				return nil
			},
		},
	}

	body, _ := json.Marshal(changeParserRequest{
		ParserID:     string(domain.ParserTable),
		ParserConfig: map[string]any{"html4excel": true},
	})
	req := authedRequest("POST", "/api/v1/documents/doc-1/parser", body)
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleChangeParser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.DocID != "doc-1" || captured.ParserID != domain.ParserTable {
		t.Errorf("unexpected request: %+v", captured)
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	server := NewServer(DefaultConfig(), &mockDocumentService{}, &mockKBService{}, &mockPipelineService{}, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/kbs", nil)
	rr := httptest.NewRecorder()

	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without token, got %d", rr.Code)
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	server := NewServer(DefaultConfig(), &mockDocumentService{}, &mockKBService{}, &mockPipelineService{}, nil, nil)

	for _, path := range []string{"/health", "/ready", "/version"} {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()

		server.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, rr.Code)
		}
	}
}
