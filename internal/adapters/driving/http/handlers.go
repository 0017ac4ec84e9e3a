package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the standard status payload
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "redis unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Knowledge base endpoints

type createKBRequest struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ParserID     string         `json:"parser_id"`
	ParserConfig map[string]any `json:"parser_config"`
}

// handleCreateKB godoc
// @Summary      Create knowledge base
// @Tags         Knowledgebases
// @Accept       json
// @Produce      json
// @Success      201  {object}  domain.Knowledgebase
// @Router       /api/v1/kbs [post]
func (s *Server) handleCreateKB(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	var req createKBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kb, err := s.kbService.Create(r.Context(), driving.CreateKBRequest{
		TenantID:     authCtx.TenantID,
		CreatedBy:    authCtx.UserID,
		Name:         req.Name,
		Description:  req.Description,
		ParserID:     domain.ParserType(req.ParserID),
		ParserConfig: req.ParserConfig,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, kb)
}

// handleListKBs godoc
// @Summary      List knowledge bases of the caller's tenant
// @Tags         Knowledgebases
// @Produce      json
// @Router       /api/v1/kbs [get]
func (s *Server) handleListKBs(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	kbs, err := s.kbService.List(r.Context(), authCtx.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"kbs": kbs, "total": len(kbs)})
}

// handleGetKB godoc
// @Summary      Get knowledge base details
// @Tags         Knowledgebases
// @Produce      json
// @Router       /api/v1/kbs/{id} [get]
func (s *Server) handleGetKB(w http.ResponseWriter, r *http.Request) {
	kb, err := s.kbService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, kb)
}

type updateKBRequest struct {
	Name     string `json:"name"`
	Pagerank int    `json:"pagerank"`
}

// handleUpdateKB godoc
// @Summary      Rename and reweight a knowledge base
// @Tags         Knowledgebases
// @Accept       json
// @Produce      json
// @Router       /api/v1/kbs/{id} [put]
func (s *Server) handleUpdateKB(w http.ResponseWriter, r *http.Request) {
	var req updateKBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kb, err := s.kbService.Update(r.Context(), driving.UpdateKBRequest{
		KBID:     r.PathValue("id"),
		Name:     req.Name,
		Pagerank: req.Pagerank,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, kb)
}

// handleDeleteKB godoc
// @Summary      Delete a knowledge base and everything under it
// @Tags         Knowledgebases
// @Produce      json
// @Router       /api/v1/kbs/{id} [delete]
func (s *Server) handleDeleteKB(w http.ResponseWriter, r *http.Request) {
	if err := s.kbService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleKnowledgeGraph godoc
// @Summary      Read the knowledge graph extracted for a knowledge base
// @Tags         Knowledgebases
// @Produce      json
// @Success      200  {object}  domain.GraphView
// @Router       /api/v1/kbs/{id}/knowledge_graph [get]
func (s *Server) handleKnowledgeGraph(w http.ResponseWriter, r *http.Request) {
	view, err := s.kbService.KnowledgeGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Aggregate pipeline endpoints

// handleRunPipeline godoc
// @Summary      Dispatch a knowledge-base-wide pipeline task
// @Tags         Pipelines
// @Produce      json
// @Router       /api/v1/kbs/{id}/pipelines/{kind}/run [post]
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	kind := domain.PipelineKind(r.PathValue("kind"))

	taskID, err := s.pipelineService.Run(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}

// handleTracePipeline godoc
// @Summary      Trace the latest pipeline task of a knowledge base
// @Tags         Pipelines
// @Produce      json
// @Router       /api/v1/kbs/{id}/pipelines/{kind}/trace [get]
func (s *Server) handleTracePipeline(w http.ResponseWriter, r *http.Request) {
	kind := domain.PipelineKind(r.PathValue("kind"))

	task, err := s.pipelineService.Trace(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if task == nil {
		// No task dispatched yet, not an error
		writeJSON(w, http.StatusOK, map[string]any{"task": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

// handleUnbindPipeline godoc
// @Summary      Clear pipeline bookkeeping, removing graph artifacts for graphrag
// @Tags         Pipelines
// @Produce      json
// @Router       /api/v1/kbs/{id}/pipelines/{kind} [delete]
func (s *Server) handleUnbindPipeline(w http.ResponseWriter, r *http.Request) {
	kind := domain.PipelineKind(r.PathValue("kind"))

	if err := s.pipelineService.Unbind(r.Context(), kind, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unbound"})
}

// Document endpoints

type createDocumentRequest struct {
	Name string `json:"name"`
}

// handleCreateDocument godoc
// @Summary      Create a virtual document in a knowledge base
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Success      201  {object}  domain.Document
// @Router       /api/v1/kbs/{id}/documents [post]
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := s.docService.Create(r.Context(), driving.CreateDocumentRequest{
		KBID:      r.PathValue("id"),
		Name:      req.Name,
		CreatedBy: authCtx.UserID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// handleListDocuments godoc
// @Summary      List documents of a knowledge base
// @Tags         Documents
// @Produce      json
// @Router       /api/v1/kbs/{id}/documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := driving.ListDocumentsRequest{
		Keywords: q.Get("keywords"),
		OrderBy:  q.Get("orderby"),
		Desc:     q.Get("desc") == "true",
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("page_size"), 30),
	}
	for _, v := range splitQueryList(q.Get("run")) {
		req.RunStatus = append(req.RunStatus, domain.RunStatus(v))
	}
	for _, v := range splitQueryList(q.Get("types")) {
		req.Types = append(req.Types, domain.FileType(v))
	}
	req.Suffixes = splitQueryList(q.Get("suffixes"))

	docs, total, err := s.docService.List(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"docs": docs, "total": total})
}

// handleGetDocument godoc
// @Summary      Get document details
// @Tags         Documents
// @Produce      json
// @Router       /api/v1/documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

type runDocumentsRequest struct {
	DocIDs []string `json:"doc_ids"`
	Run    string   `json:"run"`
	Delete bool     `json:"delete"`
}

// handleRunDocuments godoc
// @Summary      Transition documents through the run-state machine
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Router       /api/v1/documents/run [post]
func (s *Server) handleRunDocuments(w http.ResponseWriter, r *http.Request) {
	var req runDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.DocIDs) == 0 {
		writeError(w, http.StatusBadRequest, "doc_ids is required")
		return
	}

	err := s.docService.Run(r.Context(), driving.RunDocumentsRequest{
		DocIDs: req.DocIDs,
		Run:    domain.RunStatus(req.Run),
		Delete: req.Delete,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type removeDocumentsRequest struct {
	DocIDs []string `json:"doc_ids"`
}

// handleRemoveDocuments godoc
// @Summary      Delete documents with their tasks, index entries and blobs
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Router       /api/v1/documents [delete]
func (s *Server) handleRemoveDocuments(w http.ResponseWriter, r *http.Request) {
	var req removeDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.DocIDs) == 0 {
		writeError(w, http.StatusBadRequest, "doc_ids is required")
		return
	}

	if err := s.docService.Remove(r.Context(), req.DocIDs); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type changeAvailabilityRequest struct {
	DocIDs    []string `json:"doc_ids"`
	Available bool     `json:"available"`
}

// handleChangeAvailability godoc
// @Summary      Toggle retrieval availability of documents
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Router       /api/v1/documents/status [post]
func (s *Server) handleChangeAvailability(w http.ResponseWriter, r *http.Request) {
	var req changeAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.DocIDs) == 0 {
		writeError(w, http.StatusBadRequest, "doc_ids is required")
		return
	}

	results, err := s.docService.ChangeAvailability(r.Context(), req.DocIDs, req.Available)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Per-id outcome: empty string means success
	outcome := make(map[string]string, len(results))
	for id, resErr := range results {
		if resErr != nil {
			outcome[id] = resErr.Error()
		} else {
			outcome[id] = ""
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": outcome})
}

type renameDocumentRequest struct {
	Name string `json:"name"`
}

// handleRenameDocument godoc
// @Summary      Rename a document, keeping its suffix
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Router       /api/v1/documents/{id}/rename [post]
func (s *Server) handleRenameDocument(w http.ResponseWriter, r *http.Request) {
	var req renameDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.docService.Rename(r.Context(), r.PathValue("id"), req.Name); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

type setMetaRequest struct {
	Meta map[string]any `json:"meta"`
}

// handleSetDocumentMeta godoc
// @Summary      Replace a document's user metadata
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Router       /api/v1/documents/{id}/meta [put]
func (s *Server) handleSetDocumentMeta(w http.ResponseWriter, r *http.Request) {
	var req setMetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.docService.SetMeta(r.Context(), r.PathValue("id"), req.Meta); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type changeParserRequest struct {
	ParserID     string         `json:"parser_id"`
	PipelineID   string         `json:"pipeline_id"`
	ParserConfig map[string]any `json:"parser_config"`
}

// handleChangeParser godoc
// @Summary      Reassign a document's parser or pipeline
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Router       /api/v1/documents/{id}/parser [post]
func (s *Server) handleChangeParser(w http.ResponseWriter, r *http.Request) {
	var req changeParserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.docService.ChangeParser(r.Context(), driving.ChangeParserRequest{
		DocID:        r.PathValue("id"),
		ParserID:     domain.ParserType(req.ParserID),
		PipelineID:   req.PipelineID,
		ParserConfig: req.ParserConfig,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

// writeServiceError translates domain errors into HTTP status codes.
// Bulk errors come back as 200 with a per-id error map so callers can
// see which ids failed while the rest succeeded.
func writeServiceError(w http.ResponseWriter, err error) {
	var bulkErr *domain.BulkError
	if errors.As(err, &bulkErr) {
		failed := make(map[string]string, len(bulkErr.Errs))
		for id, e := range bulkErr.Errs {
			failed[id] = e.Error()
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "partial", "errors": failed})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitQueryList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
