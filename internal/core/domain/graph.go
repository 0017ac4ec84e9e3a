package domain

import "sort"

// Graph view bounds.
const (
	MaxGraphNodes = 256
	MaxGraphEdges = 128
)

// Index field tags for knowledge-graph artifacts.
const (
	GraphFieldKind    = "knowledge_graph_kwd"
	GraphFieldContent = "content_with_weight"

	GraphKindGraph   = "graph"
	GraphKindMindMap = "mind_map"
)

// GraphArtifactKinds are the index record categories produced by a
// GraphRAG run and removed together when the graph is unbound.
var GraphArtifactKinds = []string{"graph", "subgraph", "entity", "relation"}

// GraphView is the bounded, ranked view of a knowledge base's extracted
// graph. The mind map is returned verbatim from the index artifact.
type GraphView struct {
	Graph   map[string]any `json:"graph"`
	MindMap map[string]any `json:"mind_map"`
}

// EmptyGraphView is returned when the knowledge base has no index
// partition or no graph artifacts. It is not an error.
func EmptyGraphView() *GraphView {
	return &GraphView{
		Graph:   map[string]any{},
		MindMap: map[string]any{},
	}
}

// PruneGraph bounds a raw graph payload in place: nodes are ranked by
// pagerank (missing treated as 0) and truncated to MaxGraphNodes; edges
// lose self-loops and references to pruned nodes, then are ranked by
// weight (missing treated as 0) and truncated to MaxGraphEdges.
func PruneGraph(graph map[string]any) {
	rawNodes, ok := graph["nodes"].([]any)
	if !ok {
		return
	}

	sort.SliceStable(rawNodes, func(i, j int) bool {
		return nodeField(rawNodes[i], "pagerank") > nodeField(rawNodes[j], "pagerank")
	})
	if len(rawNodes) > MaxGraphNodes {
		rawNodes = rawNodes[:MaxGraphNodes]
	}
	graph["nodes"] = rawNodes

	kept := make(map[string]bool, len(rawNodes))
	for _, n := range rawNodes {
		if m, ok := n.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				kept[id] = true
			}
		}
	}

	rawEdges, ok := graph["edges"].([]any)
	if !ok {
		return
	}

	filtered := make([]any, 0, len(rawEdges))
	for _, e := range rawEdges {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		src, _ := m["source"].(string)
		dst, _ := m["target"].(string)
		if src == dst || !kept[src] || !kept[dst] {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return nodeField(filtered[i], "weight") > nodeField(filtered[j], "weight")
	})
	if len(filtered) > MaxGraphEdges {
		filtered = filtered[:MaxGraphEdges]
	}
	graph["edges"] = filtered
}

// nodeField reads a numeric ranking field from a decoded JSON object,
// treating anything absent or non-numeric as 0.
func nodeField(v any, key string) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
