package domain

import "time"

// KBNameLimit is the maximum knowledge base name length in bytes.
const KBNameLimit = 128

// PipelineKind is an aggregate pipeline scoped to a whole knowledge base.
type PipelineKind string

const (
	PipelineGraphRAG PipelineKind = "graphrag"
	PipelineRaptor   PipelineKind = "raptor"
	PipelineMindmap  PipelineKind = "mindmap"
)

// ValidPipelineKind reports whether k names a known aggregate pipeline.
func ValidPipelineKind(k PipelineKind) bool {
	switch k {
	case PipelineGraphRAG, PipelineRaptor, PipelineMindmap:
		return true
	}
	return false
}

// TaskType returns the ledger task type for this pipeline kind.
func (k PipelineKind) TaskType() TaskType {
	return TaskType(k)
}

// Knowledgebase groups documents under one tenant and records, per
// aggregate pipeline kind, the most recently dispatched task.
//
// The pointer fields are advisory state read during single-flight
// checks, not locks; dispatch additionally holds a per-(kb, kind)
// lease so concurrent dispatchers cannot both pass the check.
type Knowledgebase struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	CreatedBy    string         `json:"created_by"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	ParserID     ParserType     `json:"parser_id"`
	ParserConfig map[string]any `json:"parser_config"`
	Pagerank     int            `json:"pagerank"`

	DocNum   int64 `json:"doc_num"`
	ChunkNum int64 `json:"chunk_num"`
	TokenNum int64 `json:"token_num"`

	GraphRAGTaskID     string     `json:"graphrag_task_id,omitempty"`
	GraphRAGTaskFinish *time.Time `json:"graphrag_task_finish_at,omitempty"`
	RaptorTaskID       string     `json:"raptor_task_id,omitempty"`
	RaptorTaskFinish   *time.Time `json:"raptor_task_finish_at,omitempty"`
	MindmapTaskID      string     `json:"mindmap_task_id,omitempty"`
	MindmapTaskFinish  *time.Time `json:"mindmap_task_finish_at,omitempty"`

	// FieldMap caches the column schema extracted from table-parsed
	// documents. Cleared when the last DONE table document goes away.
	FieldMap map[string]string `json:"field_map,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskPointer returns the task id recorded for the given pipeline kind.
func (kb *Knowledgebase) TaskPointer(kind PipelineKind) string {
	switch kind {
	case PipelineGraphRAG:
		return kb.GraphRAGTaskID
	case PipelineRaptor:
		return kb.RaptorTaskID
	case PipelineMindmap:
		return kb.MindmapTaskID
	}
	return ""
}

// SetTaskPointer records the task id and finish time for a pipeline kind.
func (kb *Knowledgebase) SetTaskPointer(kind PipelineKind, taskID string, finishAt *time.Time) {
	switch kind {
	case PipelineGraphRAG:
		kb.GraphRAGTaskID, kb.GraphRAGTaskFinish = taskID, finishAt
	case PipelineRaptor:
		kb.RaptorTaskID, kb.RaptorTaskFinish = taskID, finishAt
	case PipelineMindmap:
		kb.MindmapTaskID, kb.MindmapTaskFinish = taskID, finishAt
	}
}

// DefaultParserConfig is applied to knowledge bases created without an
// explicit parser configuration.
func DefaultParserConfig() map[string]any {
	return map[string]any{
		"chunk_token_num": 512,
		"delimiter":       "\n",
		"auto_keywords":   0,
		"auto_questions":  0,
		"html4excel":      false,
		"topn_tags":       3,
		"raptor": map[string]any{
			"use_raptor":  true,
			"max_token":   256,
			"threshold":   0.1,
			"max_cluster": 64,
			"random_seed": 0,
		},
		"graphrag": map[string]any{
			"use_graphrag": true,
			"entity_types": []string{"organization", "person", "geo", "event", "category"},
			"method":       "light",
		},
	}
}
