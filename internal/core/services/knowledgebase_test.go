package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/corpora-labs/corpora-core/internal/core/domain"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driven/mocks"
	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

type kbFixture struct {
	kbs   *mocks.MockKnowledgebaseStore
	docs  *mocks.MockDocumentStore
	tasks *mocks.MockTaskStore
	files *mocks.MockFileStore
	blobs *mocks.MockBlobStore
	index *mocks.MockSearchIndex
	svc   driving.KnowledgebaseService
}

func newKBFixture() *kbFixture {
	f := &kbFixture{
		kbs:   mocks.NewMockKnowledgebaseStore(),
		docs:  mocks.NewMockDocumentStore(),
		tasks: mocks.NewMockTaskStore(),
		files: mocks.NewMockFileStore(),
		blobs: mocks.NewMockBlobStore(),
		index: mocks.NewMockSearchIndex(),
	}
	f.svc = NewKnowledgebaseService(KnowledgebaseConfig{
		KBStore:       f.kbs,
		DocumentStore: f.docs,
		TaskStore:     f.tasks,
		FileStore:     f.files,
		BlobStore:     f.blobs,
		SearchIndex:   f.index,
	})
	return f
}

func TestKnowledgebaseService_Create(t *testing.T) {
	tests := []struct {
		name    string
		kbName  string
		wantErr error
	}{
		{name: "valid", kbName: "research"},
		{name: "empty name", kbName: "   ", wantErr: domain.ErrInvalidInput},
		{name: "name too long", kbName: strings.Repeat("x", domain.KBNameLimit+1), wantErr: domain.ErrInvalidInput},
		{name: "duplicate name", kbName: "existing", wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newKBFixture()
			if _, err := f.svc.Create(context.Background(), driving.CreateKBRequest{
				TenantID: "tenant-1", Name: "existing",
			}); err != nil {
				t.Fatalf("seed kb: %v", err)
			}

			kb, err := f.svc.Create(context.Background(), driving.CreateKBRequest{
				TenantID: "tenant-1", Name: tt.kbName, CreatedBy: "user-1",
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kb.ParserID != domain.ParserNaive {
				t.Errorf("expected default parser naive, got %s", kb.ParserID)
			}
			if kb.ParserConfig["chunk_token_num"] != 512 {
				t.Errorf("expected default parser config, got %v", kb.ParserConfig)
			}
		})
	}
}

func TestKnowledgebaseService_Create_SameNameOtherTenant(t *testing.T) {
	f := newKBFixture()
	if _, err := f.svc.Create(context.Background(), driving.CreateKBRequest{TenantID: "tenant-1", Name: "shared"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), driving.CreateKBRequest{TenantID: "tenant-2", Name: "shared"}); err != nil {
		t.Fatalf("expected name to be scoped per tenant, got %v", err)
	}
}

func TestKnowledgebaseService_Update_Pagerank(t *testing.T) {
	f := newKBFixture()
	kb := &domain.Knowledgebase{ID: "kb-1", TenantID: "tenant-1", Name: "research", ChunkNum: 42}
	if err := f.kbs.Save(context.Background(), kb); err != nil {
		t.Fatalf("seed kb: %v", err)
	}

	updated, err := f.svc.Update(context.Background(), driving.UpdateKBRequest{KBID: "kb-1", Pagerank: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Pagerank != 7 {
		t.Errorf("expected pagerank 7, got %d", updated.Pagerank)
	}
	if len(f.index.UpdateCalls) != 1 {
		t.Fatalf("expected 1 index update, got %d", len(f.index.UpdateCalls))
	}
	call := f.index.UpdateCalls[0]
	if call.Patch["pagerank_fea"] != 7 {
		t.Errorf("expected pagerank attribute written, got %v", call.Patch)
	}
	if call.Filter["kb_id"] != "kb-1" || call.Index != driven.IndexName("tenant-1") {
		t.Errorf("unexpected update scope %+v", call)
	}

	// Dropping the rank back to zero removes the attribute instead of
	// writing a zero.
	if _, err := f.svc.Update(context.Background(), driving.UpdateKBRequest{KBID: "kb-1", Pagerank: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.index.UpdateCalls[1].Patch["remove"]; got != "pagerank_fea" {
		t.Errorf("expected attribute removal, got %v", f.index.UpdateCalls[1].Patch)
	}
}

func TestKnowledgebaseService_Update_PagerankWithoutChunks(t *testing.T) {
	f := newKBFixture()
	kb := &domain.Knowledgebase{ID: "kb-1", TenantID: "tenant-1", Name: "research"}
	if err := f.kbs.Save(context.Background(), kb); err != nil {
		t.Fatalf("seed kb: %v", err)
	}

	if _, err := f.svc.Update(context.Background(), driving.UpdateKBRequest{KBID: "kb-1", Pagerank: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.index.UpdateCalls) != 0 {
		t.Error("expected no index write when the knowledge base has no chunks")
	}
}

func TestKnowledgebaseService_Update_Rename(t *testing.T) {
	f := newKBFixture()
	for _, name := range []string{"alpha", "beta"} {
		kb := &domain.Knowledgebase{ID: "kb-" + name, TenantID: "tenant-1", Name: name}
		if err := f.kbs.Save(context.Background(), kb); err != nil {
			t.Fatalf("seed kb: %v", err)
		}
	}

	if _, err := f.svc.Update(context.Background(), driving.UpdateKBRequest{KBID: "kb-alpha", Name: "beta"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate name rejection, got %v", err)
	}
	updated, err := f.svc.Update(context.Background(), driving.UpdateKBRequest{KBID: "kb-alpha", Name: "gamma"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "gamma" {
		t.Errorf("expected rename to gamma, got %s", updated.Name)
	}
}

func TestKnowledgebaseService_Delete(t *testing.T) {
	f := newKBFixture()
	kb := &domain.Knowledgebase{ID: "kb-1", TenantID: "tenant-1", Name: "research"}
	if err := f.kbs.Save(context.Background(), kb); err != nil {
		t.Fatalf("seed kb: %v", err)
	}
	f.docs.SetTenant("kb-1", "tenant-1")
	f.index.SetExists(driven.IndexName("tenant-1"), "kb-1")

	var docIDs []string
	for i := 0; i < 2; i++ {
		doc := &domain.Document{ID: domain.NewID(), KBID: "kb-1", Name: "d.pdf", Suffix: "pdf"}
		if err := f.docs.Save(context.Background(), doc); err != nil {
			t.Fatalf("seed document: %v", err)
		}
		if _, err := f.files.LinkDocument(context.Background(), doc, "kb-1", doc.ID+".bin"); err != nil {
			t.Fatalf("seed link: %v", err)
		}
		if err := f.tasks.Create(context.Background(), domain.NewParseTask(doc.ID, 0)); err != nil {
			t.Fatalf("seed task: %v", err)
		}
		docIDs = append(docIDs, doc.ID)
	}

	if err := f.svc.Delete(context.Background(), "kb-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.kbs.Get(context.Background(), "kb-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected knowledge base row to be gone")
	}
	for _, id := range docIDs {
		if _, err := f.docs.Get(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected document %s to be gone", id)
		}
	}
	if f.tasks.Count() != 0 {
		t.Error("expected all ledger rows to be gone")
	}
	if len(f.blobs.Deleted) != 2 {
		t.Errorf("expected both blobs deleted, got %v", f.blobs.Deleted)
	}
	if len(f.index.DroppedIndexes) != 1 {
		t.Errorf("expected index partition dropped, got %v", f.index.DroppedIndexes)
	}
	if len(f.blobs.RemovedBuckets) != 1 || f.blobs.RemovedBuckets[0] != "kb-1" {
		t.Errorf("expected bucket removed, got %v", f.blobs.RemovedBuckets)
	}
}

func TestKnowledgebaseService_KnowledgeGraph(t *testing.T) {
	f := newKBFixture()
	kb := &domain.Knowledgebase{ID: "kb-1", TenantID: "tenant-1", Name: "research"}
	if err := f.kbs.Save(context.Background(), kb); err != nil {
		t.Fatalf("seed kb: %v", err)
	}

	t.Run("missing index partition", func(t *testing.T) {
		f.index.SearchErr = errors.New("index_not_found_exception")
		view, err := f.svc.KnowledgeGraph(context.Background(), "kb-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(view.Graph) != 0 || len(view.MindMap) != 0 {
			t.Errorf("expected empty view, got %+v", view)
		}
		f.index.SearchErr = nil
	})

	f.index.SetExists(driven.IndexName("tenant-1"), "kb-1")

	t.Run("no artifacts", func(t *testing.T) {
		view, err := f.svc.KnowledgeGraph(context.Background(), "kb-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(view.Graph) != 0 || len(view.MindMap) != 0 {
			t.Errorf("expected empty view, got %+v", view)
		}
	})

	t.Run("top-ranked graph artifact fills the view", func(t *testing.T) {
		f.index.SetHits(
			&driven.Hit{ID: "h1", Fields: map[string]any{
				domain.GraphFieldKind:    domain.GraphKindGraph,
				domain.GraphFieldContent: `{"nodes":[{"id":"a","pagerank":0.5},{"id":"b","pagerank":0.9}],"edges":[{"source":"a","target":"b","weight":2}]}`,
			}},
			&driven.Hit{ID: "h2", Fields: map[string]any{
				domain.GraphFieldKind:    domain.GraphKindMindMap,
				domain.GraphFieldContent: `{"root":{"children":[]}}`,
			}},
		)

		view, err := f.svc.KnowledgeGraph(context.Background(), "kb-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		nodes, ok := view.Graph["nodes"].([]any)
		if !ok || len(nodes) != 2 {
			t.Fatalf("expected 2 nodes from the top-ranked artifact, got %v", view.Graph)
		}
		// Nodes come back ranked by pagerank.
		first := nodes[0].(map[string]any)
		if first["id"] != "b" {
			t.Errorf("expected node b ranked first, got %v", first)
		}
		// Lower-ranked artifacts stay out of the view.
		if len(view.MindMap) != 0 {
			t.Errorf("expected empty mind map, got %v", view.MindMap)
		}
	})

	t.Run("top-ranked mind map artifact fills the view", func(t *testing.T) {
		f.index.SetHits(
			&driven.Hit{ID: "h1", Fields: map[string]any{
				domain.GraphFieldKind:    domain.GraphKindMindMap,
				domain.GraphFieldContent: `{"root":{"children":[]}}`,
			}},
		)

		view, err := f.svc.KnowledgeGraph(context.Background(), "kb-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := view.MindMap["root"]; !ok {
			t.Errorf("expected mind map passed through, got %v", view.MindMap)
		}
		if len(view.Graph) != 0 {
			t.Errorf("expected empty graph, got %v", view.Graph)
		}
	})

	t.Run("malformed top artifact yields empty view", func(t *testing.T) {
		f.index.SetHits(
			&driven.Hit{ID: "h1", Fields: map[string]any{
				domain.GraphFieldKind:    domain.GraphKindGraph,
				domain.GraphFieldContent: `{not json`,
			}},
			&driven.Hit{ID: "h2", Fields: map[string]any{
				domain.GraphFieldKind:    domain.GraphKindGraph,
				domain.GraphFieldContent: `{"nodes":[{"id":"a"}]}`,
			}},
		)

		view, err := f.svc.KnowledgeGraph(context.Background(), "kb-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(view.Graph) != 0 || len(view.MindMap) != 0 {
			t.Errorf("expected empty view, got %+v", view)
		}
	})

	t.Run("missing knowledge base", func(t *testing.T) {
		if _, err := f.svc.KnowledgeGraph(context.Background(), "kb-gone"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}
