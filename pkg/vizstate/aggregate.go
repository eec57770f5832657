package vizstate

import (
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// collapseLocked folds the container and reroutes every edge that crosses
// the new boundary into a hyperedge between visible representatives.
func (c *core) collapseLocked(id string) error {
	ctr, ok := c.containers[id]
	if !ok {
		return errors.New(errors.ErrCodeInvalidContainer, "unknown container %q", id)
	}
	if ctr.Hidden {
		return errors.New(errors.ErrCodeHiddenAncestor,
			"cannot collapse %q: an ancestor container is collapsed", id)
	}
	if ctr.Collapsed {
		return nil
	}

	ctr.Collapsed = true
	c.markSubtreeHiddenLocked(id)

	// Fold: a live hyperedge whose endpoint just went hidden dissolves; its
	// originals reroute against the new boundary below. This is how an inner
	// container's hyperedges fold into outer-level ones instead of being
	// lost.
	for _, hid := range append([]string(nil), c.hyperOrder...) {
		h := c.hyper[hid]
		sh, _ := c.entityHidden(h.Source)
		th, _ := c.entityHidden(h.Target)
		if sh || th {
			c.removeHyperLocked(hid)
		}
	}

	// Crossing edges lose a visible endpoint and go hidden; fully-inside
	// edges do the same and simply stay that way after rerouting.
	for _, eid := range c.edgeOrder {
		e := c.edges[eid]
		if e.Hidden {
			continue
		}
		sh, _ := c.entityHidden(e.Source)
		th, _ := c.entityHidden(e.Target)
		if sh || th {
			e.Hidden = true
		}
	}

	err := c.rerouteHiddenLocked(func(*model.GraphEdge, string, string) string {
		return id
	})

	c.generation++
	c.refreshVisibleLocked()
	return err
}

// expandLocked reveals the container's contents and dissolves every
// hyperedge attached to the boundary, restoring originals or re-aggregating
// them against boundaries that are still collapsed.
func (c *core) expandLocked(id string) error {
	ctr, ok := c.containers[id]
	if !ok {
		return errors.New(errors.ErrCodeInvalidContainer, "unknown container %q", id)
	}
	if ctr.Hidden {
		return errors.New(errors.ErrCodeHiddenAncestor,
			"cannot expand %q: an ancestor container is collapsed", id)
	}
	if !ctr.Collapsed {
		return nil
	}

	ctr.Collapsed = false
	c.unhideSubtreeLocked(id)

	// Dissolve hyperedges aggregated at this boundary and hyperedges
	// terminating at the no-longer-collapsed box; both kinds reference a
	// resolution that just changed.
	for _, hid := range append([]string(nil), c.hyperOrder...) {
		h := c.hyper[hid]
		if h.AggregationSource == id || h.Source == id || h.Target == id {
			c.removeHyperLocked(hid)
		}
	}

	// For re-aggregated edges the boundary is the resolved endpoint standing
	// in for the edge's own, source side first.
	err := c.rerouteHiddenLocked(func(e *model.GraphEdge, rs, rt string) string {
		if rs != e.Source {
			return rs
		}
		return rt
	})

	c.generation++
	c.refreshVisibleLocked()
	return err
}

// rerouteHiddenLocked walks every hidden edge not covered by a live
// hyperedge and decides its fate: restore it when both endpoints resolve to
// themselves, leave it hidden when both sides collapse into the same
// representative, otherwise aggregate it under the resolved pair. Edges are
// visited in store insertion order, which fixes hyperedge OriginalEdgeIDs
// ordering. Resolution failures are collected, never swallowed; the walk
// continues so one defective edge cannot strand the rest.
func (c *core) rerouteHiddenLocked(boundary func(e *model.GraphEdge, rs, rt string) string) error {
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, eid := range c.edgeOrder {
		e := c.edges[eid]
		if !e.Hidden {
			continue
		}
		if _, covered := c.coveredBy[eid]; covered {
			continue
		}
		rs, err := c.resolveVisibleLocked(e.Source)
		if err != nil {
			keep(err)
			continue
		}
		rt, err := c.resolveVisibleLocked(e.Target)
		if err != nil {
			keep(err)
			continue
		}
		switch {
		case rs == e.Source && rt == e.Target:
			e.Hidden = false
		case rs == rt:
			// Fully inside one collapsed region; stays hidden without a
			// synthetic self-loop.
		default:
			if err := c.mergeLocked(rs, rt, eid, boundary(e, rs, rt)); err != nil {
				keep(err)
			}
		}
	}
	return firstErr
}

// mergeLocked adds an edge to the live hyperedge for the resolved pair,
// creating one when the pair is new. A directed pair has at most one live
// hyperedge; covering the same edge twice is the defect class this engine
// exists to prevent, so it is reported loudly.
func (c *core) mergeLocked(source, target, edgeID, aggregationSource string) error {
	if hid, dup := c.coveredBy[edgeID]; dup {
		return errors.New(errors.ErrCodeInvariant,
			"edge %s is already covered by hyperedge %s", edgeID, hid)
	}
	if hid, ok := c.pairIndex[pairKey(source, target)]; ok {
		h := c.hyper[hid]
		h.OriginalEdgeIDs = append(h.OriginalEdgeIDs, edgeID)
		c.coveredBy[edgeID] = hid
		return nil
	}
	c.addHyperLocked(&model.HyperEdge{
		ID:                HyperEdgeID(source, target, aggregationSource),
		Source:            source,
		Target:            target,
		OriginalEdgeIDs:   []string{edgeID},
		AggregationSource: aggregationSource,
	})
	return nil
}

// checkCoverageLocked recomputes the coverage invariant from scratch: every
// edge visible exactly once or covered exactly once, every hyperedge endpoint
// visible and self-resolving. Returns the first discrepancy.
func (c *core) checkCoverageLocked() error {
	covered := make(map[string]string, len(c.coveredBy))
	for _, hid := range c.hyperOrder {
		h := c.hyper[hid]
		if len(h.OriginalEdgeIDs) == 0 {
			return errors.New(errors.ErrCodeInvariant, "hyperedge %s covers no edges", hid)
		}
		for _, end := range []string{h.Source, h.Target} {
			hidden, known := c.entityHidden(end)
			if !known {
				return errors.New(errors.ErrCodeInvariant,
					"hyperedge %s endpoint %q does not exist", hid, end)
			}
			if hidden {
				return errors.New(errors.ErrCodeInvariant,
					"hyperedge %s endpoint %q is hidden", hid, end)
			}
		}
		for _, eid := range h.OriginalEdgeIDs {
			e, ok := c.edges[eid]
			if !ok {
				return errors.New(errors.ErrCodeInvariant,
					"hyperedge %s covers unknown edge %q", hid, eid)
			}
			if !e.Hidden {
				return errors.New(errors.ErrCodeInvariant,
					"edge %s is visible and covered by hyperedge %s", eid, hid)
			}
			if prev, dup := covered[eid]; dup {
				return errors.New(errors.ErrCodeInvariant,
					"edge %s is covered by both %s and %s", eid, prev, hid)
			}
			covered[eid] = hid
		}
	}

	for _, eid := range c.edgeOrder {
		e := c.edges[eid]
		if !e.Hidden {
			if hid, dup := covered[eid]; dup {
				return errors.New(errors.ErrCodeInvariant,
					"edge %s is visible and covered by hyperedge %s", eid, hid)
			}
			continue
		}
		if _, ok := covered[eid]; ok {
			continue
		}
		// Hidden and uncovered is legal only for edges fully inside one
		// collapsed region.
		rs, err := c.resolveVisibleLocked(e.Source)
		if err != nil {
			return err
		}
		rt, err := c.resolveVisibleLocked(e.Target)
		if err != nil {
			return err
		}
		if rs != rt {
			return errors.New(errors.ErrCodeInvariant,
				"edge %s is hidden, uncovered, and crosses a boundary (%s -> %s)", eid, rs, rt)
		}
	}
	return nil
}
