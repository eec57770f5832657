package testutil

import (
	"os"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/loomview/pkg/model"
)

func TestChain(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantNodes int
		wantEdges int
		wantDepth int
	}{
		{"chain_1", 1, 1, 0, 0},
		{"chain_2", 2, 2, 1, 1},
		{"chain_5", 5, 5, 4, 4},
		{"chain_10", 10, 10, 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Chain(tt.size)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Chain(%d) nodes = %d, want %d", tt.size, len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Chain(%d) edges = %d, want %d", tt.size, len(gf.Edges), tt.wantEdges)
			}
			if gf.Properties.HasCycles {
				t.Error("Chain should not have cycles")
			}
			if !gf.Properties.IsConnected {
				t.Error("Chain should be connected")
			}
			if gf.Properties.ExpectedDepth != tt.wantDepth {
				t.Errorf("Chain(%d) depth = %d, want %d", tt.size, gf.Properties.ExpectedDepth, tt.wantDepth)
			}

			// Verify flow direction: edge i should be [i, i+1]
			for i, e := range gf.Edges {
				if e[0] != i || e[1] != i+1 {
					t.Errorf("Edge %d: got [%d,%d], want [%d,%d]", i, e[0], e[1], i, i+1)
				}
			}
		})
	}
}

func TestStar(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		spokes    int
		wantNodes int
		wantEdges int
	}{
		{"star_1", 1, 2, 1},
		{"star_5", 5, 6, 5},
		{"star_10", 10, 11, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Star(tt.spokes)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Star(%d) nodes = %d, want %d", tt.spokes, len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Star(%d) edges = %d, want %d", tt.spokes, len(gf.Edges), tt.wantEdges)
			}

			// Hub should be node 0
			if gf.Nodes[0] != "hub" {
				t.Errorf("Star hub should be 'hub', got %s", gf.Nodes[0])
			}

			// All edges should flow TO hub (index 0)
			for i, e := range gf.Edges {
				if e[1] != 0 {
					t.Errorf("Edge %d target should be hub (0), got %d", i, e[1])
				}
			}
		})
	}
}

func TestReverseStar(t *testing.T) {
	gen := NewDefault()
	gf := gen.ReverseStar(5)

	// All edges should flow FROM hub (index 0)
	for i, e := range gf.Edges {
		if e[0] != 0 {
			t.Errorf("Edge %d source should be hub (0), got %d", i, e[0])
		}
	}
}

func TestDiamond(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		width     int
		wantNodes int
		wantEdges int
	}{
		{"diamond_1", 1, 3, 2},  // top + 1 mid + bottom, 2 edges
		{"diamond_2", 2, 4, 4},  // top + 2 mid + bottom, 4 edges
		{"diamond_5", 5, 7, 10}, // top + 5 mid + bottom, 10 edges
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Diamond(tt.width)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Diamond(%d) nodes = %d, want %d", tt.width, len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Diamond(%d) edges = %d, want %d", tt.width, len(gf.Edges), tt.wantEdges)
			}
			if gf.Properties.ExpectedDepth != 2 {
				t.Errorf("Diamond depth should be 2, got %d", gf.Properties.ExpectedDepth)
			}
		})
	}
}

func TestCycle(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantEdges int
	}{
		{"cycle_2", 2, 2},
		{"cycle_3", 3, 3},
		{"cycle_5", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Cycle(tt.size)

			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Cycle(%d) edges = %d, want %d", tt.size, len(gf.Edges), tt.wantEdges)
			}
			if !gf.Properties.HasCycles {
				t.Error("Cycle should have cycles")
			}

			// Verify cycle connectivity
			lastEdge := gf.Edges[len(gf.Edges)-1]
			if lastEdge[1] != 0 {
				t.Errorf("Last edge should point back to n0, points to %d", lastEdge[1])
			}
		})
	}
}

func TestSelfLoop(t *testing.T) {
	gen := NewDefault()
	gf := gen.SelfLoop()

	if len(gf.Nodes) != 1 {
		t.Errorf("SelfLoop should have 1 node, got %d", len(gf.Nodes))
	}
	if len(gf.Edges) != 1 {
		t.Errorf("SelfLoop should have 1 edge, got %d", len(gf.Edges))
	}
	if gf.Edges[0][0] != gf.Edges[0][1] {
		t.Error("SelfLoop edge should point to itself")
	}
	if !gf.Properties.HasCycles {
		t.Error("SelfLoop should have cycles")
	}
}

func TestTree(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		depth     int
		breadth   int
		wantNodes int
	}{
		{"tree_1_2", 1, 2, 3},  // root + 2 children
		{"tree_2_2", 2, 2, 7},  // 1 + 2 + 4
		{"tree_3_2", 3, 2, 15}, // 1 + 2 + 4 + 8
		{"tree_2_3", 2, 3, 13}, // 1 + 3 + 9
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Tree(tt.depth, tt.breadth)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Tree(%d,%d) nodes = %d, want %d", tt.depth, tt.breadth, len(gf.Nodes), tt.wantNodes)
			}
			if gf.Properties.HasCycles {
				t.Error("Tree should not have cycles")
			}
			if gf.Properties.ExpectedDepth != tt.depth {
				t.Errorf("Tree depth = %d, want %d", gf.Properties.ExpectedDepth, tt.depth)
			}
		})
	}
}

func TestDisconnected(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name          string
		components    int
		componentSize int
		wantNodes     int
	}{
		{"disconnected_2_3", 2, 3, 6},
		{"disconnected_3_2", 3, 2, 6},
		{"disconnected_5_1", 5, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Disconnected(tt.components, tt.componentSize)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Disconnected nodes = %d, want %d", len(gf.Nodes), tt.wantNodes)
			}
			if gf.Properties.IsConnected {
				t.Error("Disconnected should not be connected")
			}
		})
	}
}

func TestComplete(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantEdges int
	}{
		{"complete_2", 2, 1},
		{"complete_3", 3, 3},
		{"complete_4", 4, 6},
		{"complete_5", 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Complete(tt.size)

			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Complete(%d) edges = %d, want %d", tt.size, len(gf.Edges), tt.wantEdges)
			}
			if gf.Properties.HasCycles {
				t.Error("Complete DAG should not have cycles")
			}
		})
	}
}

func TestRandomDAG(t *testing.T) {
	gen := NewDefault()

	// Test determinism - same seed should produce same result
	gf1 := gen.RandomDAG(10, 0.5)

	gen2 := New(DefaultConfig()) // Same seed
	gf2 := gen2.RandomDAG(10, 0.5)

	if len(gf1.Edges) != len(gf2.Edges) {
		t.Errorf("RandomDAG not deterministic: %d vs %d edges", len(gf1.Edges), len(gf2.Edges))
	}

	// Verify it's a DAG (no edge from higher to lower index)
	for _, e := range gf1.Edges {
		if e[0] >= e[1] {
			t.Errorf("RandomDAG has invalid edge [%d,%d] (should be from lower to higher)", e[0], e[1])
		}
	}
}

func TestBipartite(t *testing.T) {
	gen := NewDefault()
	gf := gen.Bipartite(3, 2)

	expectedNodes := 5
	expectedEdges := 6 // 3 * 2

	if len(gf.Nodes) != expectedNodes {
		t.Errorf("Bipartite nodes = %d, want %d", len(gf.Nodes), expectedNodes)
	}
	if len(gf.Edges) != expectedEdges {
		t.Errorf("Bipartite edges = %d, want %d", len(gf.Edges), expectedEdges)
	}
}

func TestLadder(t *testing.T) {
	gen := NewDefault()
	gf := gen.Ladder(3)

	expectedNodes := 6 // 3 * 2
	// Chain edges: 2 + 2 = 4, Rung edges: 3, Total: 7
	expectedEdges := 7

	if len(gf.Nodes) != expectedNodes {
		t.Errorf("Ladder nodes = %d, want %d", len(gf.Nodes), expectedNodes)
	}
	if len(gf.Edges) != expectedEdges {
		t.Errorf("Ladder edges = %d, want %d", len(gf.Edges), expectedEdges)
	}
}

func TestClustered(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		clusters  int
		nodesPer  int
		wantNodes int
		wantEdges int
	}{
		{"clustered_2_2", 2, 2, 4, 3}, // 2 intra + 1 boundary
		{"clustered_3_2", 3, 2, 6, 5}, // 3 intra + 2 boundary
		{"clustered_2_4", 2, 4, 8, 7}, // 6 intra + 1 boundary
		{"clustered_1_3", 1, 3, 3, 2}, // no boundary edges
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Clustered(tt.clusters, tt.nodesPer)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Clustered nodes = %d, want %d", len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Clustered edges = %d, want %d", len(gf.Edges), tt.wantEdges)
			}
			if len(gf.Groups) != tt.clusters {
				t.Errorf("Clustered groups = %d, want %d", len(gf.Groups), tt.clusters)
			}
			for i, gr := range gf.Groups {
				if len(gr.Members) != tt.nodesPer {
					t.Errorf("Group %d members = %d, want %d", i, len(gr.Members), tt.nodesPer)
				}
				if gr.Parent != "" {
					t.Errorf("Group %d should be top level, has parent %s", i, gr.Parent)
				}
			}
		})
	}
}

func TestNested(t *testing.T) {
	gen := NewDefault()
	gf := gen.Nested(3, 2)

	if len(gf.Nodes) != 6 {
		t.Errorf("Nested(3,2) nodes = %d, want 6", len(gf.Nodes))
	}
	if len(gf.Groups) != 3 {
		t.Errorf("Nested(3,2) groups = %d, want 3", len(gf.Groups))
	}

	// Each group nests inside the previous one
	if gf.Groups[0].Parent != "" {
		t.Errorf("outermost group should have no parent, got %s", gf.Groups[0].Parent)
	}
	for i := 1; i < len(gf.Groups); i++ {
		if gf.Groups[i].Parent != gf.Groups[i-1].Name {
			t.Errorf("group %d parent = %s, want %s", i, gf.Groups[i].Parent, gf.Groups[i-1].Name)
		}
	}
}

func TestPipeline(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		stages    int
		width     int
		wantNodes int
		wantEdges int
	}{
		{"pipeline_2_2", 2, 2, 4, 4},
		{"pipeline_3_2", 3, 2, 6, 8},
		{"pipeline_2_4", 2, 4, 8, 16},
		{"pipeline_1_3", 1, 3, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Pipeline(tt.stages, tt.width)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Pipeline nodes = %d, want %d", len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Pipeline edges = %d, want %d", len(gf.Edges), tt.wantEdges)
			}
			if len(gf.Groups) != tt.stages {
				t.Errorf("Pipeline groups = %d, want %d", len(gf.Groups), tt.stages)
			}
		})
	}
}

func TestToDocument(t *testing.T) {
	gen := NewDefault()
	gf := gen.Chain(3) // n0 -> n1 -> n2
	doc := gen.ToDocument(gf)

	AssertCounts(t, doc, 3, 2, 0)
	AssertAllValid(t, doc)
	AssertNoDuplicateIDs(t, doc)

	// IDs carry the prefix, labels keep the fixture names
	for i, n := range doc.Nodes {
		if !strings.HasPrefix(n.ID, "test-") {
			t.Errorf("Node %d ID should start with test-, got %s", i, n.ID)
		}
		if n.Label == "" {
			t.Errorf("Node %d has empty label", i)
		}
	}
	if doc.Nodes[0].ID != NodeID(0) {
		t.Errorf("first node ID = %s, want %s", doc.Nodes[0].ID, NodeID(0))
	}

	// Edge endpoints resolve to prefixed node IDs
	AssertEdgeExists(t, doc, "test-n0", "test-n1")
	AssertEdgeExists(t, doc, "test-n1", "test-n2")
	if doc.Edges[0].ID != "test-e0" {
		t.Errorf("first edge ID = %s, want test-e0", doc.Edges[0].ID)
	}
}

func TestToDocumentWithConfig(t *testing.T) {
	cfg := GeneratorConfig{
		Seed:              123,
		IDPrefix:          "custom",
		IncludeLongLabels: true,
		IncludeTags:       true,
		NodeTypeMix:       []string{"service", "store"},
		EdgeTypeMix:       []string{"data", "control"},
	}
	gen := New(cfg)
	doc := gen.ToDocument(gen.Star(5))

	// Check prefix
	for _, n := range doc.Nodes {
		if !strings.HasPrefix(n.ID, "custom-") {
			t.Errorf("Node ID should start with custom-, got %s", n.ID)
		}
	}
	for _, e := range doc.Edges {
		if !strings.HasPrefix(e.ID, "custom-e") {
			t.Errorf("Edge ID should start with custom-e, got %s", e.ID)
		}
	}

	// Every node gets a long label naming its type
	for _, n := range doc.Nodes {
		if n.LongLabel == "" {
			t.Errorf("Node %s missing long label", n.ID)
		}
		if !strings.Contains(n.LongLabel, n.Type) {
			t.Errorf("Long label %q should mention type %q", n.LongLabel, n.Type)
		}
	}

	// Check that at least some nodes have tags
	hasTags := false
	for _, n := range doc.Nodes {
		if len(n.SemanticTags) > 0 {
			hasTags = true
			break
		}
	}
	if !hasTags {
		t.Error("Expected at least some nodes to have semantic tags")
	}

	// Types come from the configured mix
	for _, n := range doc.Nodes {
		if n.Type != "service" && n.Type != "store" {
			t.Errorf("Node type %q not in configured mix", n.Type)
		}
	}
}

func TestToDocumentGroups(t *testing.T) {
	gen := NewDefault()

	doc := gen.ToDocument(gen.Clustered(2, 2))
	AssertCounts(t, doc, 4, 3, 2)
	AssertChildOf(t, doc, "test-g0", "test-c0_n0")
	AssertChildOf(t, doc, "test-g0", "test-c0_n1")
	AssertChildOf(t, doc, "test-g1", "test-c1_n0")
	AssertAcyclicHierarchy(t, doc)

	// Nested groups become container children of their parent
	nested := gen.ToDocument(gen.Nested(2, 1))
	AssertChildOf(t, nested, "test-l0", "test-l1")
	AssertChildOf(t, nested, "test-l0", "test-l0_n0")
	AssertChildOf(t, nested, "test-l1", "test-l1_n0")
	AssertAcyclicHierarchy(t, nested)
}

func TestHierarchyCycleDetection(t *testing.T) {
	// Two containers listing each other as children
	doc := &model.Document{
		Containers: []model.Container{
			{ID: "a", Label: "A", Children: []string{"b"}},
			{ID: "b", Label: "B", Children: []string{"a"}},
		},
	}
	AssertHierarchyCycle(t, doc)

	if _, found := findHierarchyCycle(QuickNested(3, 1)); found {
		t.Error("nested document should not report a hierarchy cycle")
	}
}

func TestToJSON(t *testing.T) {
	doc := QuickChain(3)
	out := ToJSON(doc)

	if !strings.HasSuffix(out, "\n") {
		t.Error("ToJSON output should end with a newline")
	}

	// Should round-trip through the document shape the loader reads
	var parsed model.Document
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("ToJSON output is invalid JSON: %v", err)
	}
	if len(parsed.Nodes) != 3 || len(parsed.Edges) != 2 {
		t.Errorf("round-trip counts = %d nodes, %d edges, want 3 and 2", len(parsed.Nodes), len(parsed.Edges))
	}

	// Derived state must not leak into serialized documents
	if strings.Contains(out, "Hidden") || strings.Contains(out, "Collapsed") {
		t.Errorf("serialized document leaks derived state:\n%s", out)
	}
}

func TestQuickFunctions(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() *model.Document
		wantNodes int
	}{
		{"QuickChain", func() *model.Document { return QuickChain(5) }, 5},
		{"QuickStar", func() *model.Document { return QuickStar(5) }, 6},
		{"QuickDiamond", func() *model.Document { return QuickDiamond(3) }, 5},
		{"QuickCycle", func() *model.Document { return QuickCycle(4) }, 4},
		{"QuickTree", func() *model.Document { return QuickTree(2, 2) }, 7},
		{"QuickDisconnected", func() *model.Document { return QuickDisconnected(2, 3) }, 6},
		{"QuickRandom", func() *model.Document { return QuickRandom(10, 0.3) }, 10},
		{"QuickClustered", func() *model.Document { return QuickClustered(3, 2) }, 6},
		{"QuickNested", func() *model.Document { return QuickNested(2, 2) }, 4},
		{"QuickPipeline", func() *model.Document { return QuickPipeline(3, 2) }, 6},
		{"Empty", Empty, 0},
		{"Single", Single, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.fn()
			if len(doc.Nodes) != tt.wantNodes {
				t.Errorf("%s returned %d nodes, want %d", tt.name, len(doc.Nodes), tt.wantNodes)
			}

			AssertAllValid(t, doc)
			AssertNoDuplicateIDs(t, doc)
		})
	}
}

func TestDeterminism(t *testing.T) {
	// Generate twice with same config
	cfg := DefaultConfig()
	cfg.IncludeTags = true

	gen1 := New(cfg)
	doc1 := gen1.ToDocument(gen1.RandomDAG(20, 0.4))

	gen2 := New(cfg)
	doc2 := gen2.ToDocument(gen2.RandomDAG(20, 0.4))

	// Should be identical
	if len(doc1.Nodes) != len(doc2.Nodes) {
		t.Fatalf("Different node counts: %d vs %d", len(doc1.Nodes), len(doc2.Nodes))
	}
	if len(doc1.Edges) != len(doc2.Edges) {
		t.Fatalf("Different edge counts: %d vs %d", len(doc1.Edges), len(doc2.Edges))
	}

	for i := range doc1.Nodes {
		if doc1.Nodes[i].ID != doc2.Nodes[i].ID {
			t.Errorf("Node %d ID differs: %s vs %s", i, doc1.Nodes[i].ID, doc2.Nodes[i].ID)
		}
		tags1 := strings.Join(doc1.Nodes[i].SemanticTags, ",")
		tags2 := strings.Join(doc2.Nodes[i].SemanticTags, ",")
		if tags1 != tags2 {
			t.Errorf("Node %d tags differ: %s vs %s", i, tags1, tags2)
		}
	}
}

func TestGraphFixtureJSON(t *testing.T) {
	gen := NewDefault()
	gf := gen.Clustered(2, 2)

	// Should be JSON serializable
	data, err := json.Marshal(gf)
	if err != nil {
		t.Fatalf("Failed to marshal GraphFixture: %v", err)
	}

	// Should round-trip
	var gf2 GraphFixture
	if err := json.Unmarshal(data, &gf2); err != nil {
		t.Fatalf("Failed to unmarshal GraphFixture: %v", err)
	}

	if len(gf2.Nodes) != len(gf.Nodes) {
		t.Errorf("Nodes count differs after round-trip: %d vs %d", len(gf2.Nodes), len(gf.Nodes))
	}
	if len(gf2.Groups) != len(gf.Groups) {
		t.Errorf("Groups count differs after round-trip: %d vs %d", len(gf2.Groups), len(gf.Groups))
	}
}

func TestWriteGraphFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteGraphFile(t, dir, QuickChain(3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("written file is invalid JSON: %v", err)
	}
	if len(doc.Nodes) != 3 {
		t.Errorf("written document has %d nodes, want 3", len(doc.Nodes))
	}
}

// Benchmarks

func BenchmarkChain100(b *testing.B) {
	gen := NewDefault()
	for i := 0; i < b.N; i++ {
		_ = gen.ToDocument(gen.Chain(100))
	}
}

func BenchmarkPipeline10x10(b *testing.B) {
	gen := NewDefault()
	for i := 0; i < b.N; i++ {
		_ = gen.ToDocument(gen.Pipeline(10, 10))
	}
}

func BenchmarkRandomDAG500(b *testing.B) {
	gen := NewDefault()
	for i := 0; i < b.N; i++ {
		_ = gen.ToDocument(gen.RandomDAG(500, 0.1))
	}
}

func BenchmarkToJSON1000(b *testing.B) {
	gen := NewDefault()
	doc := gen.ToDocument(gen.Chain(1000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ToJSON(doc)
	}
}
