// Package vizstate owns the authoritative visualization state: the entity
// store (nodes, edges, containers, hyperedges), the visibility engine that
// derives hidden/visible status from nested collapse state, and the edge
// aggregation engine that reroutes edges across collapsed boundaries so
// connectivity is never silently lost.
//
// Mutation rights are split at the type level. New returns a read-only *View
// and a mutating *Handle sharing one core; the coordinator holds the Handle,
// everything else gets the View or snapshot copies. There is no runtime
// caller detection.
//
// The invariant the package exists to protect: every GraphEdge is represented
// exactly once at all times, either as itself (visible) or inside exactly one
// live hyperedge's OriginalEdgeIDs. CheckCoverage audits it from scratch.
package vizstate

import (
	"sync"

	"github.com/vanderheijden86/loomview/pkg/model"
)

// core is the shared state behind a View/Handle pair. All fields are guarded
// by mu. Methods with the Locked suffix assume the caller holds the
// appropriate lock.
type core struct {
	mu sync.RWMutex

	nodes      map[string]*model.GraphNode
	containers map[string]*model.Container
	edges      map[string]*model.GraphEdge
	hyper      map[string]*model.HyperEdge

	// Insertion order, the discovery order for aggregation grouping.
	nodeOrder      []string
	containerOrder []string
	edgeOrder      []string
	hyperOrder     []string

	// parent maps a child id (node or container) to its container.
	parent map[string]string

	// pairIndex maps a directed resolved source/target pair to the live
	// hyperedge covering it. At most one live hyperedge exists per pair.
	pairIndex map[string]string

	// coveredBy maps an original edge id to the live hyperedge representing
	// it. Absent means the edge is visible or fully inside a collapsed
	// region.
	coveredBy map[string]string

	// generation increments on every completed mutation.
	generation uint64

	// Visible-id caches, rebuilt once at the end of each mutation so reads
	// never trigger a re-scan.
	visNodeIDs      []string
	visEdgeIDs      []string
	visContainerIDs []string
}

// View is the read-only face of the state. Safe for concurrent use from any
// goroutine; every accessor returns copies and reflects the latest completed
// mutation.
type View struct {
	c *core
}

// Handle carries mutation rights. Only the coordinator (or a controlled test
// context) should hold one.
type Handle struct {
	c *core
}

// New creates an empty state and returns its read view and mutation handle.
func New() (*View, *Handle) {
	c := &core{
		nodes:      make(map[string]*model.GraphNode),
		containers: make(map[string]*model.Container),
		edges:      make(map[string]*model.GraphEdge),
		hyper:      make(map[string]*model.HyperEdge),
		parent:     make(map[string]string),
		pairIndex:  make(map[string]string),
		coveredBy:  make(map[string]string),
	}
	return &View{c: c}, &Handle{c: c}
}

// View returns the read-only view paired with this handle.
func (h *Handle) View() *View {
	return &View{c: h.c}
}
