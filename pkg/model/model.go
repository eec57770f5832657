// Package model defines the graph entities loomview visualizes: nodes, edges,
// nested containers, and the hyperedges that stand in for edges hidden by a
// collapsed container. Derived fields (Hidden, Position, Size, Collapsed) are
// owned by the state engine and excluded from document serialization.
package model

import "fmt"

// Position is an absolute coordinate in the layout plane.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a layout bounding-box extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GraphNode is a leaf element of the dataflow graph.
type GraphNode struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	LongLabel    string   `json:"longLabel,omitempty"`
	Type         string   `json:"type,omitempty"`
	SemanticTags []string `json:"semanticTags,omitempty"`

	// Derived state, owned by the visibility engine.
	Hidden   bool      `json:"-"`
	Position *Position `json:"-"`
}

// DisplayLabel returns the expanded-form label when one exists.
func (n *GraphNode) DisplayLabel() string {
	if n.LongLabel != "" {
		return n.LongLabel
	}
	return n.Label
}

// Validate checks the fields a document must provide.
func (n *GraphNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node is missing an id")
	}
	return nil
}

// Clone returns a deep copy safe to hand across the snapshot boundary.
func (n *GraphNode) Clone() *GraphNode {
	c := *n
	if n.SemanticTags != nil {
		c.SemanticTags = append([]string(nil), n.SemanticTags...)
	}
	if n.Position != nil {
		p := *n.Position
		c.Position = &p
	}
	return &c
}

// GraphEdge is a directed edge between two entities. Source and target are
// stored with the original endpoint ids even while the edge is represented by
// a hyperedge; endpoints may name nodes or containers.
type GraphEdge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Type         string   `json:"type,omitempty"`
	SemanticTags []string `json:"semanticTags,omitempty"`

	// Derived state, owned by the aggregation engine.
	Hidden bool `json:"-"`
}

// Validate checks the fields a document must provide.
func (e *GraphEdge) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("edge is missing an id")
	}
	if e.Source == "" {
		return fmt.Errorf("edge %s is missing a source", e.ID)
	}
	if e.Target == "" {
		return fmt.Errorf("edge %s is missing a target", e.ID)
	}
	return nil
}

// Clone returns a deep copy safe to hand across the snapshot boundary.
func (e *GraphEdge) Clone() *GraphEdge {
	c := *e
	if e.SemanticTags != nil {
		c.SemanticTags = append([]string(nil), e.SemanticTags...)
	}
	return &c
}

// Container is a named grouping of nodes and/or other containers. Children
// form a tree: no cycles, each child has exactly one parent. Collapsed is
// authoritative and set only through collapse/expand operations; Hidden is
// derived and true iff some strict ancestor is collapsed. A collapsed
// container is itself not hidden; it stays visible as a collapsed box.
type Container struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Children []string `json:"children,omitempty"`

	// Derived state, owned by the visibility engine.
	Collapsed bool      `json:"-"`
	Hidden    bool      `json:"-"`
	Position  *Position `json:"-"`
	Size      *Size     `json:"-"`
}

// Validate checks the fields a document must provide.
func (c *Container) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("container is missing an id")
	}
	for _, child := range c.Children {
		if child == "" {
			return fmt.Errorf("container %s has an empty child id", c.ID)
		}
		if child == c.ID {
			return fmt.Errorf("container %s lists itself as a child", c.ID)
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand across the snapshot boundary.
func (c *Container) Clone() *Container {
	cp := *c
	if c.Children != nil {
		cp.Children = append([]string(nil), c.Children...)
	}
	if c.Position != nil {
		p := *c.Position
		cp.Position = &p
	}
	if c.Size != nil {
		s := *c.Size
		cp.Size = &s
	}
	return &cp
}

// HyperEdge is a synthetic edge standing in for one or more original edges
// whose true endpoints are hidden inside a collapsed container. Source and
// target always name currently visible entities. The store holds only live
// hyperedges; a hyperedge that folds into an outer boundary or dissolves on
// expand is removed, never hidden.
type HyperEdge struct {
	ID                string   `json:"id"`
	Source            string   `json:"source"`
	Target            string   `json:"target"`
	OriginalEdgeIDs   []string `json:"originalEdgeIds"`
	AggregationSource string   `json:"aggregationSource,omitempty"`
}

// Covers reports whether the hyperedge represents the given original edge.
func (h *HyperEdge) Covers(edgeID string) bool {
	for _, id := range h.OriginalEdgeIDs {
		if id == edgeID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand across the snapshot boundary.
func (h *HyperEdge) Clone() *HyperEdge {
	c := *h
	if h.OriginalEdgeIDs != nil {
		c.OriginalEdgeIDs = append([]string(nil), h.OriginalEdgeIDs...)
	}
	return &c
}
