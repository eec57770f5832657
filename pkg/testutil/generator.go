// Package testutil provides test fixture generators for various graph
// topologies, plus assertion and golden-file helpers. All generators produce
// deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/loomview/pkg/model"
)

// GraphFixture represents an abstract graph for testing visibility and layout
// algorithms. This is the format used by testdata/graphs/*.json files.
type GraphFixture struct {
	Description string      `json:"description"`
	Nodes       []string    `json:"nodes"`
	Edges       [][2]int    `json:"edges"` // [source_idx, target_idx]
	Groups      []GroupSpec `json:"groups,omitempty"`
	Properties  Properties  `json:"properties,omitempty"`
}

// GroupSpec declares a container over fixture nodes by index. Parent names
// another group of the same fixture; empty means top level.
type GroupSpec struct {
	Name    string `json:"name"`
	Members []int  `json:"members"`
	Parent  string `json:"parent,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	IsConnected   bool `json:"is_connected,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls document generation.
type GeneratorConfig struct {
	Seed              int64    // Random seed for determinism (0 = use current time)
	IDPrefix          string   // Prefix for entity IDs (default: "test")
	IncludeLongLabels bool     // Generate long-form labels
	IncludeTags       bool     // Generate semantic tags
	NodeTypeMix       []string // Node type distribution (nil = all "service")
	EdgeTypeMix       []string // Edge type distribution (nil = all "data")
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42, // Deterministic
		IDPrefix:    "test",
		NodeTypeMix: []string{"service"},
		EdgeTypeMix: []string{"data"},
	}
}

// Generator creates test fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "test"
	}
	if len(cfg.NodeTypeMix) == 0 {
		cfg.NodeTypeMix = []string{"service"}
	}
	if len(cfg.EdgeTypeMix) == 0 {
		cfg.EdgeTypeMix = []string{"data"}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Graph Topology Generators
// ============================================================================

// Chain creates a linear pipeline: n0 -> n1 -> n2 -> ... -> n{size-1}
// n0 is the source (nothing flows in), n{size-1} is the sink.
// Properties: DAG, depth = size-1, single path
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size-1)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Linear pipeline of %d nodes: n0 -> n1 -> ... -> n%d", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: size - 1,
		},
	}
}

// Star creates a fan-in topology with a central hub.
// Direction: spokes flow TO hub (hub collects everything)
// Properties: DAG, depth = 1
func (g *Generator) Star(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{i, 0} // spoke -> hub
	}

	return GraphFixture{
		Description: fmt.Sprintf("Star with %d spokes all feeding the hub", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: 1,
		},
	}
}

// ReverseStar creates a fan-out topology where the hub feeds all spokes.
// Direction: hub flows TO spokes (hub is the broadcaster)
// Properties: DAG, depth = 1
func (g *Generator) ReverseStar(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i} // hub -> spoke
	}

	return GraphFixture{
		Description: fmt.Sprintf("Reverse star with the hub feeding %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: 1,
		},
	}
}

// Diamond creates a diamond flow pattern.
// Shape: top -> left, top -> right, left -> bottom, right -> bottom
// Generalized: top connects to `width` middle nodes, all connect to bottom
func (g *Generator) Diamond(width int) GraphFixture {
	if width < 1 {
		width = 1
	}

	size := width + 2 // top + middle nodes + bottom
	nodes := make([]string, size)
	edges := make([][2]int, 0, width*2)

	nodes[0] = "top"
	nodes[size-1] = "bottom"

	for i := 1; i <= width; i++ {
		nodes[i] = fmt.Sprintf("mid%d", i)
		edges = append(edges, [2]int{0, i})        // top -> mid
		edges = append(edges, [2]int{i, size - 1}) // mid -> bottom
	}

	return GraphFixture{
		Description: fmt.Sprintf("Diamond with %d middle nodes: top -> mid1..mid%d -> bottom", width, width),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: 2,
		},
	}
}

// Cycle creates a circular flow: n0 -> n1 -> ... -> n{size-1} -> n0
func (g *Generator) Cycle(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Cycle of %d nodes: n0 -> n1 -> ... -> n%d -> n0", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   true,
			IsConnected: true,
		},
	}
}

// SelfLoop creates a single node with a self-referential edge.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "Single node with self-loop",
		Nodes:       []string{"n0"},
		Edges:       [][2]int{{0, 0}},
		Properties: Properties{
			HasCycles:   true,
			IsConnected: true,
		},
	}
}

// Tree creates a tree with given depth and branching factor.
// Each non-leaf node feeds `breadth` children.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}

	var nodes []string
	var edges [][2]int

	// BFS-style generation
	nodeID := 0
	nodes = append(nodes, fmt.Sprintf("n%d", nodeID))
	nodeID++

	currentLevel := []int{0}

	for d := 0; d < depth; d++ {
		var nextLevel []int
		for _, parent := range currentLevel {
			for b := 0; b < breadth; b++ {
				child := nodeID
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{parent, child})
				nextLevel = append(nextLevel, child)
				nodeID++
			}
		}
		currentLevel = nextLevel
	}

	return GraphFixture{
		Description: fmt.Sprintf("Tree with depth=%d, breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: depth,
		},
	}
}

// Disconnected creates multiple isolated components.
// Each component is a small chain of `componentSize` nodes.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int

	nodeID := 0
	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{nodeID - 1, nodeID})
			}
			nodeID++
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected components, each a chain of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   false,
			ExpectedDepth: componentSize - 1,
		},
	}
}

// Complete creates a complete DAG where every earlier node flows to every
// later node. This is a dense graph with n*(n-1)/2 edges.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size*(size-1)/2)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Complete DAG with %d nodes (%d edges)", size, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: size - 1,
		},
	}
}

// RandomDAG creates a random directed acyclic graph.
// density is the probability of an edge existing (0.0 to 1.0).
func (g *Generator) RandomDAG(size int, density float64) GraphFixture {
	if density < 0 {
		density = 0
	}
	if density > 1 {
		density = 1
	}

	nodes := make([]string, size)
	var edges [][2]int

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}

	// Only add edges from lower index to higher index to ensure DAG
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Random DAG with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: false, // May or may not be connected
		},
	}
}

// Bipartite creates a bipartite graph where every left node feeds every
// right node.
func (g *Generator) Bipartite(leftSize, rightSize int) GraphFixture {
	nodes := make([]string, leftSize+rightSize)
	var edges [][2]int

	for i := 0; i < leftSize; i++ {
		nodes[i] = fmt.Sprintf("L%d", i)
	}
	for i := 0; i < rightSize; i++ {
		nodes[leftSize+i] = fmt.Sprintf("R%d", i)
	}
	for i := 0; i < leftSize; i++ {
		for j := 0; j < rightSize; j++ {
			edges = append(edges, [2]int{i, leftSize + j})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Bipartite graph: %d left nodes each feed %d right nodes", leftSize, rightSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   leftSize > 0 && rightSize > 0,
			ExpectedDepth: 1,
		},
	}
}

// Ladder creates a ladder-like structure with two parallel chains connected
// by rungs.
func (g *Generator) Ladder(length int) GraphFixture {
	if length < 1 {
		length = 1
	}

	nodes := make([]string, length*2)
	var edges [][2]int

	for i := 0; i < length; i++ {
		nodes[i] = fmt.Sprintf("A%d", i)
		nodes[length+i] = fmt.Sprintf("B%d", i)

		// Chain edges
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})                   // A chain
			edges = append(edges, [2]int{length + i - 1, length + i}) // B chain
		}
		// Rung edges (A feeds B at same level)
		edges = append(edges, [2]int{i, length + i})
	}

	return GraphFixture{
		Description: fmt.Sprintf("Ladder with %d rungs: two parallel chains A0..A%d and B0..B%d", length, length-1, length-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: length,
		},
	}
}

// ============================================================================
// Container Topology Generators
// ============================================================================

// Clustered creates `clusters` top-level containers, each holding a chain of
// `nodesPer` nodes, with one edge crossing each cluster boundary. Collapsing
// any cluster turns its boundary edges into hyperedges.
func (g *Generator) Clustered(clusters, nodesPer int) GraphFixture {
	if clusters < 1 {
		clusters = 1
	}
	if nodesPer < 1 {
		nodesPer = 1
	}

	var nodes []string
	var edges [][2]int
	groups := make([]GroupSpec, clusters)

	nodeID := 0
	for c := 0; c < clusters; c++ {
		members := make([]int, 0, nodesPer)
		for i := 0; i < nodesPer; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			members = append(members, nodeID)
			if i > 0 {
				edges = append(edges, [2]int{nodeID - 1, nodeID})
			}
			nodeID++
		}
		// Boundary edge: last node of the previous cluster feeds our first.
		if c > 0 {
			edges = append(edges, [2]int{members[0] - 1, members[0]})
		}
		groups[c] = GroupSpec{Name: fmt.Sprintf("g%d", c), Members: members}
	}

	return GraphFixture{
		Description: fmt.Sprintf("%d clusters of %d nodes, chained through one boundary edge each", clusters, nodesPer),
		Nodes:       nodes,
		Edges:       edges,
		Groups:      groups,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: clusters*nodesPer - 1,
		},
	}
}

// Nested creates `depth` containers nested one inside the next, each level
// holding a chain of `width` nodes, with one edge crossing into each deeper
// level. Collapsing an outer container hides everything beneath it.
func (g *Generator) Nested(depth, width int) GraphFixture {
	if depth < 1 {
		depth = 1
	}
	if width < 1 {
		width = 1
	}

	var nodes []string
	var edges [][2]int
	groups := make([]GroupSpec, depth)

	nodeID := 0
	for d := 0; d < depth; d++ {
		members := make([]int, 0, width)
		for i := 0; i < width; i++ {
			nodes = append(nodes, fmt.Sprintf("l%d_n%d", d, i))
			members = append(members, nodeID)
			if i > 0 {
				edges = append(edges, [2]int{nodeID - 1, nodeID})
			}
			nodeID++
		}
		if d > 0 {
			edges = append(edges, [2]int{members[0] - 1, members[0]})
		}
		groups[d] = GroupSpec{Name: fmt.Sprintf("l%d", d), Members: members}
		if d > 0 {
			groups[d].Parent = fmt.Sprintf("l%d", d-1)
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("%d nested levels of %d nodes each, chained across levels", depth, width),
		Nodes:       nodes,
		Edges:       edges,
		Groups:      groups,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   true,
			ExpectedDepth: depth*width - 1,
		},
	}
}

// Pipeline creates `stages` containers of `width` nodes each, with every
// node of one stage feeding every node of the next. Collapsing two adjacent
// stages folds width*width edges into a single hyperedge.
func (g *Generator) Pipeline(stages, width int) GraphFixture {
	if stages < 1 {
		stages = 1
	}
	if width < 1 {
		width = 1
	}

	var nodes []string
	var edges [][2]int
	groups := make([]GroupSpec, stages)

	for s := 0; s < stages; s++ {
		members := make([]int, 0, width)
		for i := 0; i < width; i++ {
			nodes = append(nodes, fmt.Sprintf("s%d_n%d", s, i))
			members = append(members, s*width+i)
		}
		groups[s] = GroupSpec{Name: fmt.Sprintf("stage%d", s), Members: members}
	}
	for s := 0; s < stages-1; s++ {
		for i := 0; i < width; i++ {
			for j := 0; j < width; j++ {
				edges = append(edges, [2]int{s*width + i, (s+1)*width + j})
			}
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Pipeline of %d stages, %d nodes wide, fully connected between stages", stages, width),
		Nodes:       nodes,
		Edges:       edges,
		Groups:      groups,
		Properties: Properties{
			HasCycles:     false,
			IsConnected:   stages > 1 || width == 1,
			ExpectedDepth: stages - 1,
		},
	}
}

// ============================================================================
// Document Conversion
// ============================================================================

// ToDocument converts a GraphFixture to a model.Document.
func (g *Generator) ToDocument(gf GraphFixture) *model.Document {
	doc := &model.Document{
		Nodes: make([]model.GraphNode, len(gf.Nodes)),
		Edges: make([]model.GraphEdge, len(gf.Edges)),
	}

	for i, name := range gf.Nodes {
		node := model.GraphNode{
			ID:    g.entityID(name),
			Label: name,
			Type:  g.pickNodeType(),
		}
		if g.cfg.IncludeLongLabels {
			node.LongLabel = fmt.Sprintf("%s (%s)", name, node.Type)
		}
		if g.cfg.IncludeTags {
			node.SemanticTags = g.pickTags()
		}
		doc.Nodes[i] = node
	}

	for i, e := range gf.Edges {
		doc.Edges[i] = model.GraphEdge{
			ID:     fmt.Sprintf("%s-e%d", g.cfg.IDPrefix, i),
			Source: g.entityID(gf.Nodes[e[0]]),
			Target: g.entityID(gf.Nodes[e[1]]),
			Type:   g.pickEdgeType(),
		}
	}

	if len(gf.Groups) > 0 {
		doc.Containers = make([]model.Container, len(gf.Groups))
		byName := make(map[string]int, len(gf.Groups))
		for i, gr := range gf.Groups {
			children := make([]string, 0, len(gr.Members))
			for _, m := range gr.Members {
				children = append(children, g.entityID(gf.Nodes[m]))
			}
			doc.Containers[i] = model.Container{
				ID:       g.entityID(gr.Name),
				Label:    gr.Name,
				Children: children,
			}
			byName[gr.Name] = i
		}
		// Nested groups join their parent's child list.
		for i, gr := range gf.Groups {
			if gr.Parent == "" {
				continue
			}
			if p, ok := byName[gr.Parent]; ok {
				doc.Containers[p].Children = append(doc.Containers[p].Children, doc.Containers[i].ID)
			}
		}
	}

	return doc
}

// ToJSON renders a document in the JSON form the loader reads.
func ToJSON(doc *model.Document) string {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ""
	}
	return string(data) + "\n"
}

// Helper methods

func (g *Generator) entityID(name string) string {
	return fmt.Sprintf("%s-%s", g.cfg.IDPrefix, name)
}

func (g *Generator) pickNodeType() string {
	return g.cfg.NodeTypeMix[g.rng.Intn(len(g.cfg.NodeTypeMix))]
}

func (g *Generator) pickEdgeType() string {
	return g.cfg.EdgeTypeMix[g.rng.Intn(len(g.cfg.EdgeTypeMix))]
}

var sampleTags = []string{"io", "entry", "exit", "hot-path", "batch", "stream", "cache", "external", "stateful", "deprecated"}

func (g *Generator) pickTags() []string {
	count := g.rng.Intn(3) + 1 // 1-3 tags
	tags := make([]string, 0, count)
	used := make(map[int]bool)
	for len(tags) < count {
		idx := g.rng.Intn(len(sampleTags))
		if !used[idx] {
			used[idx] = true
			tags = append(tags, sampleTags[idx])
		}
	}
	return tags
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates a chain document with default settings.
func QuickChain(size int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Chain(size))
}

// QuickStar creates a star document with default settings.
func QuickStar(spokes int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Star(spokes))
}

// QuickDiamond creates a diamond document with default settings.
func QuickDiamond(width int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Diamond(width))
}

// QuickCycle creates a cycle document with default settings.
func QuickCycle(size int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Cycle(size))
}

// QuickTree creates a tree document with default settings.
func QuickTree(depth, breadth int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Tree(depth, breadth))
}

// QuickDisconnected creates disconnected components with default settings.
func QuickDisconnected(components, size int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Disconnected(components, size))
}

// QuickRandom creates a random DAG document with default settings.
func QuickRandom(size int, density float64) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.RandomDAG(size, density))
}

// QuickClustered creates a clustered document with default settings.
func QuickClustered(clusters, nodesPer int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Clustered(clusters, nodesPer))
}

// QuickNested creates a nested-container document with default settings.
func QuickNested(depth, width int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Nested(depth, width))
}

// QuickPipeline creates a staged pipeline document with default settings.
func QuickPipeline(stages, width int) *model.Document {
	gen := NewDefault()
	return gen.ToDocument(gen.Pipeline(stages, width))
}

// Empty returns an empty document for edge case testing.
func Empty() *model.Document {
	return &model.Document{}
}

// Single returns a document holding one node and no edges.
func Single() *model.Document {
	gen := NewDefault()
	return &model.Document{
		Nodes: []model.GraphNode{{
			ID:    gen.entityID("single"),
			Label: "single",
			Type:  "service",
		}},
	}
}
