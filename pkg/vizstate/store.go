package vizstate

import (
	"fmt"

	"github.com/vanderheijden86/loomview/pkg/model"
)

// HyperEdgeID derives the deterministic id for a hyperedge created between
// two resolved endpoints at the given aggregation boundary.
func HyperEdgeID(source, target, boundary string) string {
	return "hyper:" + source + "->" + target + "@" + boundary
}

func pairKey(source, target string) string {
	return source + "\x00" + target
}

// loadLocked replaces the store contents with the document's entities.
// Structural problems (duplicate ids, dangling references, hierarchy cycles)
// are collected as validation issues and the offending entities dropped, so
// a partially valid document still loads. All entities start visible and all
// containers start expanded.
func (c *core) loadLocked(doc *model.Document) []model.ValidationIssue {
	var issues []model.ValidationIssue

	c.nodes = make(map[string]*model.GraphNode, len(doc.Nodes))
	c.containers = make(map[string]*model.Container, len(doc.Containers))
	c.edges = make(map[string]*model.GraphEdge, len(doc.Edges))
	c.hyper = make(map[string]*model.HyperEdge)
	c.nodeOrder = c.nodeOrder[:0]
	c.containerOrder = c.containerOrder[:0]
	c.edgeOrder = c.edgeOrder[:0]
	c.hyperOrder = c.hyperOrder[:0]
	c.parent = make(map[string]string)
	c.pairIndex = make(map[string]string)
	c.coveredBy = make(map[string]string)

	for i := range doc.Nodes {
		n := doc.Nodes[i].Clone()
		n.Hidden = false
		if err := n.Validate(); err != nil {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueMissingID, Field: "nodes", Message: err.Error(),
			})
			continue
		}
		if _, dup := c.nodes[n.ID]; dup {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueDuplicateID, EntityID: n.ID, Field: "nodes",
				Message: fmt.Sprintf("node id %q appears more than once", n.ID),
			})
			continue
		}
		c.nodes[n.ID] = n
		c.nodeOrder = append(c.nodeOrder, n.ID)
	}

	for i := range doc.Containers {
		ct := doc.Containers[i].Clone()
		ct.Hidden = false
		ct.Collapsed = false
		if err := ct.Validate(); err != nil {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueMissingID, Field: "containers", Message: err.Error(),
			})
			continue
		}
		if _, dup := c.containers[ct.ID]; dup {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueDuplicateID, EntityID: ct.ID, Field: "containers",
				Message: fmt.Sprintf("container id %q appears more than once", ct.ID),
			})
			continue
		}
		if _, clash := c.nodes[ct.ID]; clash {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueDuplicateID, EntityID: ct.ID, Field: "containers",
				Message: fmt.Sprintf("container id %q collides with a node id", ct.ID),
			})
			continue
		}
		c.containers[ct.ID] = ct
		c.containerOrder = append(c.containerOrder, ct.ID)
	}

	issues = append(issues, c.linkChildrenLocked()...)
	issues = append(issues, c.breakHierarchyCyclesLocked()...)

	for i := range doc.Edges {
		e := doc.Edges[i].Clone()
		e.Hidden = false
		if err := e.Validate(); err != nil {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueMissingID, EntityID: e.ID, Field: "edges", Message: err.Error(),
			})
			continue
		}
		if _, dup := c.edges[e.ID]; dup {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueDuplicateID, EntityID: e.ID, Field: "edges",
				Message: fmt.Sprintf("edge id %q appears more than once", e.ID),
			})
			continue
		}
		if !c.entityExists(e.Source) {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueDanglingEdge, EntityID: e.ID, Field: "source",
				Message: fmt.Sprintf("edge %s references missing source %q", e.ID, e.Source),
			})
			continue
		}
		if !c.entityExists(e.Target) {
			issues = append(issues, model.ValidationIssue{
				Kind: model.IssueDanglingEdge, EntityID: e.ID, Field: "target",
				Message: fmt.Sprintf("edge %s references missing target %q", e.ID, e.Target),
			})
			continue
		}
		c.edges[e.ID] = e
		c.edgeOrder = append(c.edgeOrder, e.ID)
	}

	c.generation++
	c.refreshVisibleLocked()
	return issues
}

// linkChildrenLocked builds the parent index from container children,
// dropping references to missing entities and second parents.
func (c *core) linkChildrenLocked() []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, cid := range c.containerOrder {
		ct := c.containers[cid]
		kept := ct.Children[:0]
		for _, child := range ct.Children {
			if !c.entityExists(child) {
				issues = append(issues, model.ValidationIssue{
					Kind: model.IssueMissingChild, EntityID: cid, Field: "children",
					Message: fmt.Sprintf("container %s lists missing child %q", cid, child),
				})
				continue
			}
			if prev, has := c.parent[child]; has {
				issues = append(issues, model.ValidationIssue{
					Kind: model.IssueChildConflict, EntityID: child, Field: "children",
					Message: fmt.Sprintf("%q is a child of both %s and %s", child, prev, cid),
				})
				continue
			}
			c.parent[child] = cid
			kept = append(kept, child)
		}
		ct.Children = kept
	}
	return issues
}

// breakHierarchyCyclesLocked detaches container children that would make the
// containment graph cyclic. Iterative coloring, no recursion, so deeply
// nested documents are safe.
func (c *core) breakHierarchyCyclesLocked() []model.ValidationIssue {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	var issues []model.ValidationIssue
	color := make(map[string]int, len(c.containers))

	for _, root := range c.containerOrder {
		if color[root] != white {
			continue
		}
		type frame struct {
			id   string
			next int
		}
		stack := []frame{{id: root}}
		color[root] = gray
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			ct := c.containers[f.id]
			advanced := false
			for f.next < len(ct.Children) {
				child := ct.Children[f.next]
				f.next++
				if _, isContainer := c.containers[child]; !isContainer {
					continue
				}
				switch color[child] {
				case gray:
					issues = append(issues, model.ValidationIssue{
						Kind: model.IssueHierarchyCycle, EntityID: child, Field: "children",
						Message: fmt.Sprintf("container %s closing a containment cycle detached from %s", child, f.id),
					})
					c.detachChildLocked(f.id, child)
					f.next--
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
					advanced = true
				}
				if advanced {
					break
				}
			}
			if !advanced && f.next >= len(ct.Children) {
				color[f.id] = black
				stack = stack[:len(stack)-1]
			}
		}
	}
	return issues
}

func (c *core) detachChildLocked(parentID, childID string) {
	ct := c.containers[parentID]
	for i, id := range ct.Children {
		if id == childID {
			ct.Children = append(ct.Children[:i], ct.Children[i+1:]...)
			break
		}
	}
	if c.parent[childID] == parentID {
		delete(c.parent, childID)
	}
}

func (c *core) entityExists(id string) bool {
	if _, ok := c.nodes[id]; ok {
		return true
	}
	_, ok := c.containers[id]
	return ok
}

// entityHidden reports the derived visibility of a node or container.
// The second return is false for unknown ids.
func (c *core) entityHidden(id string) (hidden, known bool) {
	if n, ok := c.nodes[id]; ok {
		return n.Hidden, true
	}
	if ct, ok := c.containers[id]; ok {
		return ct.Hidden, true
	}
	return false, false
}

func (c *core) addHyperLocked(h *model.HyperEdge) {
	c.hyper[h.ID] = h
	c.hyperOrder = append(c.hyperOrder, h.ID)
	c.pairIndex[pairKey(h.Source, h.Target)] = h.ID
	for _, eid := range h.OriginalEdgeIDs {
		c.coveredBy[eid] = h.ID
	}
}

func (c *core) removeHyperLocked(id string) {
	h, ok := c.hyper[id]
	if !ok {
		return
	}
	delete(c.hyper, id)
	delete(c.pairIndex, pairKey(h.Source, h.Target))
	for _, eid := range h.OriginalEdgeIDs {
		if c.coveredBy[eid] == id {
			delete(c.coveredBy, eid)
		}
	}
	for i, hid := range c.hyperOrder {
		if hid == id {
			c.hyperOrder = append(c.hyperOrder[:i], c.hyperOrder[i+1:]...)
			break
		}
	}
}

// refreshVisibleLocked rebuilds the visible-id caches. Called once at the end
// of every mutation; reads only ever copy from these lists.
func (c *core) refreshVisibleLocked() {
	c.visNodeIDs = c.visNodeIDs[:0]
	for _, id := range c.nodeOrder {
		if !c.nodes[id].Hidden {
			c.visNodeIDs = append(c.visNodeIDs, id)
		}
	}
	c.visContainerIDs = c.visContainerIDs[:0]
	for _, id := range c.containerOrder {
		if !c.containers[id].Hidden {
			c.visContainerIDs = append(c.visContainerIDs, id)
		}
	}
	c.visEdgeIDs = c.visEdgeIDs[:0]
	for _, id := range c.edgeOrder {
		if !c.edges[id].Hidden {
			c.visEdgeIDs = append(c.visEdgeIDs, id)
		}
	}
}
