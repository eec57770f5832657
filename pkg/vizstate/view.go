package vizstate

import "github.com/vanderheijden86/loomview/pkg/model"

// Counts summarizes store totals for status lines and logs.
type Counts struct {
	Nodes             int
	Edges             int
	Containers        int
	HyperEdges        int
	VisibleNodes      int
	VisibleEdges      int
	VisibleContainers int
}

// Generation returns the mutation counter. It increments on every completed
// mutation, so equal generations mean identical derived state.
func (v *View) Generation() uint64 {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	return v.c.generation
}

// Counts returns entity totals.
func (v *View) Counts() Counts {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	return Counts{
		Nodes:             len(v.c.nodes),
		Edges:             len(v.c.edges),
		Containers:        len(v.c.containers),
		HyperEdges:        len(v.c.hyper),
		VisibleNodes:      len(v.c.visNodeIDs),
		VisibleEdges:      len(v.c.visEdgeIDs),
		VisibleContainers: len(v.c.visContainerIDs),
	}
}

// VisibleNodes returns copies of the nodes with Hidden=false, in store
// insertion order.
func (v *View) VisibleNodes() []model.GraphNode {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	out := make([]model.GraphNode, 0, len(v.c.visNodeIDs))
	for _, id := range v.c.visNodeIDs {
		out = append(out, *v.c.nodes[id].Clone())
	}
	return out
}

// VisibleEdges returns copies of the edges with Hidden=false, in store
// insertion order.
func (v *View) VisibleEdges() []model.GraphEdge {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	out := make([]model.GraphEdge, 0, len(v.c.visEdgeIDs))
	for _, id := range v.c.visEdgeIDs {
		out = append(out, *v.c.edges[id].Clone())
	}
	return out
}

// VisibleContainers returns copies of the containers with Hidden=false.
// A collapsed container counts as visible; it is drawn as a collapsed box.
func (v *View) VisibleContainers() []model.Container {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	out := make([]model.Container, 0, len(v.c.visContainerIDs))
	for _, id := range v.c.visContainerIDs {
		out = append(out, *v.c.containers[id].Clone())
	}
	return out
}

// VisibleHyperEdges returns copies of the live hyperedges. Every live
// hyperedge is visible; dissolved and folded ones are removed outright.
func (v *View) VisibleHyperEdges() []model.HyperEdge {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	out := make([]model.HyperEdge, 0, len(v.c.hyperOrder))
	for _, id := range v.c.hyperOrder {
		out = append(out, *v.c.hyper[id].Clone())
	}
	return out
}

// AllNodes returns copies of every node regardless of visibility.
func (v *View) AllNodes() []model.GraphNode {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	out := make([]model.GraphNode, 0, len(v.c.nodeOrder))
	for _, id := range v.c.nodeOrder {
		out = append(out, *v.c.nodes[id].Clone())
	}
	return out
}

// AllContainers returns copies of every container regardless of visibility.
func (v *View) AllContainers() []model.Container {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	out := make([]model.Container, 0, len(v.c.containerOrder))
	for _, id := range v.c.containerOrder {
		out = append(out, *v.c.containers[id].Clone())
	}
	return out
}

// Node returns a copy of the node with the given id.
func (v *View) Node(id string) (model.GraphNode, bool) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	n, ok := v.c.nodes[id]
	if !ok {
		return model.GraphNode{}, false
	}
	return *n.Clone(), true
}

// Edge returns a copy of the edge with the given id.
func (v *View) Edge(id string) (model.GraphEdge, bool) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	e, ok := v.c.edges[id]
	if !ok {
		return model.GraphEdge{}, false
	}
	return *e.Clone(), true
}

// Container returns a copy of the container with the given id.
func (v *View) Container(id string) (model.Container, bool) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	ct, ok := v.c.containers[id]
	if !ok {
		return model.Container{}, false
	}
	return *ct.Clone(), true
}

// IsContainer reports whether the id names a container.
func (v *View) IsContainer(id string) bool {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	_, ok := v.c.containers[id]
	return ok
}

// Parent returns the containing container of a node or container.
func (v *View) Parent(id string) (string, bool) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	p, ok := v.c.parent[id]
	return p, ok
}

// Children returns a copy of a container's child id list.
func (v *View) Children(id string) []string {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	ct, ok := v.c.containers[id]
	if !ok || len(ct.Children) == 0 {
		return nil
	}
	return append([]string(nil), ct.Children...)
}

// TopLevelIDs returns the ids with no parent, containers before nodes,
// each group in store insertion order.
func (v *View) TopLevelIDs() []string {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	var out []string
	for _, id := range v.c.containerOrder {
		if _, ok := v.c.parent[id]; !ok {
			out = append(out, id)
		}
	}
	for _, id := range v.c.nodeOrder {
		if _, ok := v.c.parent[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// HierarchyPath returns the container chain above an entity, outermost
// first, excluding the entity itself. Nil for top-level or unknown ids.
func (v *View) HierarchyPath(id string) []string {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	return v.c.hierarchyPathLocked(id)
}

// IsHidden reports the derived visibility of a node or container. The second
// return is false for unknown ids.
func (v *View) IsHidden(id string) (hidden, known bool) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	return v.c.entityHidden(id)
}

// ResolveVisible returns the id an endpoint currently resolves to: the
// entity itself when visible, otherwise its nearest visible ancestor.
func (v *View) ResolveVisible(id string) (string, error) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	return v.c.resolveVisibleLocked(id)
}
