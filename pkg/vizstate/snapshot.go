package vizstate

import "github.com/vanderheijden86/loomview/pkg/model"

// Snapshot is an immutable copy of the visible entities, the unit of work
// handed to the layout and render bridges. Bridges never see the store
// itself.
type Snapshot struct {
	Generation uint64

	Nodes      []model.GraphNode
	Edges      []model.GraphEdge
	Containers []model.Container
	HyperEdges []model.HyperEdge

	// Parents maps a visible entity id to its containing container. Every
	// parent recorded here is itself visible and expanded; collapsed boxes
	// have no visible children.
	Parents map[string]string
}

// Snapshot builds a fresh visible-entity snapshot. Entities are deep copies
// in store insertion order, so two snapshots of the same generation are
// identical.
func (v *View) Snapshot() *Snapshot {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()

	s := &Snapshot{
		Generation: v.c.generation,
		Nodes:      make([]model.GraphNode, 0, len(v.c.visNodeIDs)),
		Edges:      make([]model.GraphEdge, 0, len(v.c.visEdgeIDs)),
		Containers: make([]model.Container, 0, len(v.c.visContainerIDs)),
		HyperEdges: make([]model.HyperEdge, 0, len(v.c.hyperOrder)),
		Parents:    make(map[string]string),
	}
	for _, id := range v.c.visNodeIDs {
		s.Nodes = append(s.Nodes, *v.c.nodes[id].Clone())
		if p, ok := v.c.parent[id]; ok {
			s.Parents[id] = p
		}
	}
	for _, id := range v.c.visContainerIDs {
		s.Containers = append(s.Containers, *v.c.containers[id].Clone())
		if p, ok := v.c.parent[id]; ok {
			s.Parents[id] = p
		}
	}
	for _, id := range v.c.visEdgeIDs {
		s.Edges = append(s.Edges, *v.c.edges[id].Clone())
	}
	for _, id := range v.c.hyperOrder {
		s.HyperEdges = append(s.HyperEdges, *v.c.hyper[id].Clone())
	}
	return s
}

// NodeCount and friends keep callers from reaching into the slices for
// simple sizing decisions.
func (s *Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount counts drawable edges, original and hyper.
func (s *Snapshot) EdgeCount() int { return len(s.Edges) + len(s.HyperEdges) }

// FindNode returns the snapshot copy of a node.
func (s *Snapshot) FindNode(id string) *model.GraphNode {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// FindContainer returns the snapshot copy of a container.
func (s *Snapshot) FindContainer(id string) *model.Container {
	for i := range s.Containers {
		if s.Containers[i].ID == id {
			return &s.Containers[i]
		}
	}
	return nil
}
