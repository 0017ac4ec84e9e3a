package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven/mocks"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// TestKnowledgebaseLifecycle walks one knowledge base from creation
// through a document run to an aggregate dispatch, with all three
// services sharing the same stores.
func TestKnowledgebaseLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture()

	kbSvc := NewKnowledgebaseService(KnowledgebaseConfig{
		KBStore:       f.kbs,
		DocumentStore: f.docs,
		TaskStore:     f.tasks,
		FileStore:     f.files,
		BlobStore:     f.blobs,
		SearchIndex:   f.index,
	})
	pipeSvc := NewPipelineService(PipelineConfig{
		KBStore:       f.kbs,
		DocumentStore: f.docs,
		TaskStore:     f.tasks,
		SearchIndex:   f.index,
		Lock:          mocks.NewMockDistributedLock(),
	})

	// Create the knowledge base
	kb, err := kbSvc.Create(ctx, driving.CreateKBRequest{
		TenantID: "tenant-1",
		Name:     "research",
	})
	if err != nil {
		t.Fatalf("create kb: %v", err)
	}
	f.docs.SetTenant(kb.ID, "tenant-1")

	// Create a document and start it
	doc, err := f.svc.Create(ctx, driving.CreateDocumentRequest{
		KBID: kb.ID,
		Name: "report.pdf",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	if err := f.svc.Run(ctx, driving.RunDocumentsRequest{
		DocIDs: []string{doc.ID},
		Run:    domain.RunRunning,
	}); err != nil {
		t.Fatalf("run document: %v", err)
	}

	started, err := f.docs.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if started.Run != domain.RunRunning || started.Progress != 0 {
		t.Errorf("expected RUNNING at progress 0, got %s at %f", started.Run, started.Progress)
	}
	ledger, err := f.tasks.ListByDoc(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(ledger) != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", len(ledger))
	}

	// Dispatch graph construction for the whole knowledge base
	aggID, err := pipeSvc.Run(ctx, domain.PipelineGraphRAG, kb.ID)
	if err != nil {
		t.Fatalf("dispatch pipeline: %v", err)
	}
	current, _ := f.kbs.Get(ctx, kb.ID)
	if current.TaskPointer(domain.PipelineGraphRAG) != aggID {
		t.Errorf("expected pointer %s, got %s", aggID, current.TaskPointer(domain.PipelineGraphRAG))
	}

	// Re-dispatch while the task is mid-flight
	f.tasks.SetProgress(aggID, 0.5)
	_, err = pipeSvc.Run(ctx, domain.PipelineGraphRAG, kb.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), aggID) {
		t.Errorf("expected conflict to name task %s, got %q", aggID, err.Error())
	}

	// Once the task finishes, a new dispatch goes through
	f.tasks.SetProgress(aggID, domain.ProgressDone)
	nextID, err := pipeSvc.Run(ctx, domain.PipelineGraphRAG, kb.ID)
	if err != nil {
		t.Fatalf("re-dispatch after completion: %v", err)
	}
	if nextID == aggID {
		t.Error("expected a fresh task id")
	}
}
