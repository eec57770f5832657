package layout

import (
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// A scope is one independent layout unit: the direct visible children of an
// expanded container, or the root level (scope id ""). Collapsed containers
// are leaves; their interiors are not in the snapshot.
type scopeGraph struct {
	members []string
	succs   map[string][]string
	preds   map[string][]string
	edges   map[[2]string]struct{}
}

func newScopeGraph() *scopeGraph {
	return &scopeGraph{
		succs: map[string][]string{},
		preds: map[string][]string{},
		edges: map[[2]string]struct{}{},
	}
}

func (g *scopeGraph) connect(u, v string) {
	key := [2]string{u, v}
	if _, dup := g.edges[key]; dup {
		return
	}
	g.edges[key] = struct{}{}
	g.succs[u] = append(g.succs[u], v)
	g.preds[v] = append(g.preds[v], u)
}

// projection groups the snapshot into scopes and projects every visible
// connection onto the deepest scope holding representatives of both
// endpoints.
type projection struct {
	snap       *vizstate.Snapshot
	containers map[string]*model.Container
	scopes     map[string]*scopeGraph
}

func project(snap *vizstate.Snapshot) *projection {
	p := &projection{
		snap:       snap,
		containers: make(map[string]*model.Container, len(snap.Containers)),
		scopes:     map[string]*scopeGraph{"": newScopeGraph()},
	}
	for i := range snap.Containers {
		c := &snap.Containers[i]
		p.containers[c.ID] = c
	}
	for i := range snap.Containers {
		p.addMember(snap.Parents[snap.Containers[i].ID], snap.Containers[i].ID)
	}
	for i := range snap.Nodes {
		p.addMember(snap.Parents[snap.Nodes[i].ID], snap.Nodes[i].ID)
	}
	for i := range snap.Edges {
		p.route(snap.Edges[i].Source, snap.Edges[i].Target)
	}
	for i := range snap.HyperEdges {
		p.route(snap.HyperEdges[i].Source, snap.HyperEdges[i].Target)
	}
	return p
}

func (p *projection) addMember(scopeID, id string) {
	g := p.scopeOf(scopeID)
	g.members = append(g.members, id)
}

func (p *projection) scopeOf(scopeID string) *scopeGraph {
	g, ok := p.scopes[scopeID]
	if !ok {
		g = newScopeGraph()
		p.scopes[scopeID] = g
	}
	return g
}

// expanded reports whether the id is a visible container laid out as a
// scope of its own.
func (p *projection) expanded(id string) bool {
	c, ok := p.containers[id]
	return ok && !c.Collapsed
}

// scopedLayout runs one arrangement strategy over every scope: sizes
// bottom-up (recursing into expanded containers), then absolute positions
// top-down. Both engines share this scheme and differ only in how a
// scope's members are arranged into rows.
func scopedLayout(snap *vizstate.Snapshot, cfg Config, arrange func(g *scopeGraph) [][]string) (*Result, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout requires a snapshot")
	}
	cfg = cfg.normalized()
	p := project(snap)

	res := &Result{
		Positions: make(map[string]model.Position),
		Sizes:     make(map[string]model.Size),
	}
	sizes := make(map[string]model.Size)
	rel := make(map[string]map[string]model.Position)

	var layoutScope func(scopeID string) model.Size
	layoutScope = func(scopeID string) model.Size {
		g := p.scopeOf(scopeID)
		for _, id := range g.members {
			if p.expanded(id) {
				inner := layoutScope(id)
				sizes[id] = model.Size{
					Width:  inner.Width + 2*cfg.Padding,
					Height: inner.Height + 2*cfg.Padding + cfg.LabelHeight,
				}
				continue
			}
			sizes[id] = model.Size{Width: cfg.NodeWidth, Height: cfg.NodeHeight}
		}
		pos, extent := placeLayers(arrange(g), sizes, cfg)
		rel[scopeID] = pos
		return clampExtent(extent, cfg)
	}
	rootExtent := layoutScope("")

	var place func(scopeID string, origin model.Position)
	place = func(scopeID string, origin model.Position) {
		g := p.scopeOf(scopeID)
		for _, id := range g.members {
			rp := rel[scopeID][id]
			abs := model.Position{X: origin.X + rp.X, Y: origin.Y + rp.Y}
			res.Positions[id] = abs
			res.Sizes[id] = sizes[id]
			if p.expanded(id) {
				place(id, model.Position{
					X: abs.X + cfg.Padding,
					Y: abs.Y + cfg.Padding + cfg.LabelHeight,
				})
			}
		}
	}
	place("", model.Position{})

	res.Width = rootExtent.Width
	res.Height = rootExtent.Height
	return res, nil
}

// route records the connection in the deepest scope containing ancestors of
// both endpoints. Connections that project onto the same representative
// have no geometric meaning for layering and are skipped.
func (p *projection) route(src, tgt string) {
	repByScope := map[string]string{}
	for id := src; ; {
		scope := p.snap.Parents[id]
		repByScope[scope] = id
		if scope == "" {
			break
		}
		id = scope
	}
	for id := tgt; ; {
		scope := p.snap.Parents[id]
		if rep, ok := repByScope[scope]; ok {
			if rep != id {
				p.scopeOf(scope).connect(rep, id)
			}
			return
		}
		if scope == "" {
			return
		}
		id = scope
	}
}
