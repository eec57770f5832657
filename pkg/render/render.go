// Package render turns a visible-entity snapshot plus highlight state into
// the flat, immutable draw list consumed by exporters and the terminal UI.
// No layout or aggregation logic lives here.
package render

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/search"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// EdgeKind separates original edges from aggregated hyperedges in the draw
// list.
type EdgeKind int

const (
	EdgeOriginal EdgeKind = iota
	EdgeAggregated
)

// Node is one renderable box: a graph node, a collapsed container, or an
// expanded container frame.
type Node struct {
	ID        string
	Label     string
	Type      string
	Container bool
	Collapsed bool
	X, Y      float64
	W, H      float64
	Highlight search.HighlightKind
	Selected  bool
}

// Edge is one renderable connection, anchored box-center to box-center.
type Edge struct {
	ID             string
	Source, Target string
	Kind           EdgeKind
	Count          int
	SX, SY, TX, TY float64
}

// Snapshot is the render-ready output of one build. Immutable once
// returned.
type Snapshot struct {
	Generation uint64
	Hash       string
	Width      float64
	Height     float64
	Nodes      []Node
	Edges      []Edge
	FocusID    string
}

// Input carries everything a build needs: the state snapshot, the
// graph-context highlight kinds, the selection, a one-shot focus target and
// the node geometry to assume where the store has none.
type Input struct {
	State      *vizstate.Snapshot
	Highlights map[string]search.HighlightKind
	Selection  string
	FocusID    string
	NodeWidth  float64
	NodeHeight float64
}

// Build produces the draw list. Containers come before their descendants so
// painting in order nests correctly.
func Build(in Input) (*Snapshot, error) {
	if in.State == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "render requires a state snapshot")
	}
	if in.NodeWidth <= 0 {
		in.NodeWidth = 120
	}
	if in.NodeHeight <= 0 {
		in.NodeHeight = 48
	}
	st := in.State

	depth := func(id string) int {
		d := 0
		for p, ok := st.Parents[id]; ok && p != ""; p, ok = st.Parents[p] {
			d++
		}
		return d
	}

	out := &Snapshot{Generation: st.Generation}

	containers := make([]*model.Container, len(st.Containers))
	for i := range st.Containers {
		containers[i] = &st.Containers[i]
	}
	sort.SliceStable(containers, func(i, j int) bool {
		return depth(containers[i].ID) < depth(containers[j].ID)
	})

	bounds := map[string][4]float64{}
	record := func(id string, x, y, w, h float64) {
		bounds[id] = [4]float64{x, y, w, h}
		if x+w > out.Width {
			out.Width = x + w
		}
		if y+h > out.Height {
			out.Height = y + h
		}
	}

	for _, c := range containers {
		var x, y, w, h float64
		if c.Position != nil {
			x, y = c.Position.X, c.Position.Y
		}
		if c.Size != nil {
			w, h = c.Size.Width, c.Size.Height
		} else {
			w, h = in.NodeWidth, in.NodeHeight
		}
		record(c.ID, x, y, w, h)
		out.Nodes = append(out.Nodes, Node{
			ID:        c.ID,
			Label:     c.Label,
			Type:      search.TypeContainer,
			Container: true,
			Collapsed: c.Collapsed,
			X:         x, Y: y, W: w, H: h,
			Highlight: in.Highlights[c.ID],
			Selected:  in.Selection == c.ID,
		})
	}
	for i := range st.Nodes {
		n := &st.Nodes[i]
		var x, y float64
		if n.Position != nil {
			x, y = n.Position.X, n.Position.Y
		}
		record(n.ID, x, y, in.NodeWidth, in.NodeHeight)
		out.Nodes = append(out.Nodes, Node{
			ID:    n.ID,
			Label: n.Label,
			Type:  n.Type,
			X:     x, Y: y, W: in.NodeWidth, H: in.NodeHeight,
			Highlight: in.Highlights[n.ID],
			Selected:  in.Selection == n.ID,
		})
	}

	center := func(id string) (float64, float64) {
		b := bounds[id]
		return b[0] + b[2]/2, b[1] + b[3]/2
	}
	for i := range st.Edges {
		e := &st.Edges[i]
		sx, sy := center(e.Source)
		tx, ty := center(e.Target)
		out.Edges = append(out.Edges, Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Kind:   EdgeOriginal,
			Count:  1,
			SX:     sx, SY: sy, TX: tx, TY: ty,
		})
	}
	for i := range st.HyperEdges {
		h := &st.HyperEdges[i]
		sx, sy := center(h.Source)
		tx, ty := center(h.Target)
		out.Edges = append(out.Edges, Edge{
			ID:     h.ID,
			Source: h.Source,
			Target: h.Target,
			Kind:   EdgeAggregated,
			Count:  len(h.OriginalEdgeIDs),
			SX:     sx, SY: sy, TX: tx, TY: ty,
		})
	}

	// A focus target that is no longer on screen cannot be focused.
	if in.FocusID != "" {
		if _, visible := bounds[in.FocusID]; visible {
			out.FocusID = in.FocusID
		}
	}

	out.Hash = contentHash(out)
	return out, nil
}

// FindNode returns the renderable for an id.
func (s *Snapshot) FindNode(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// contentHash digests everything that affects pixels, sorted by id so input
// order cannot flap the hash. First 16 hex chars are plenty for change
// detection.
func contentHash(s *Snapshot) string {
	if len(s.Nodes) == 0 && len(s.Edges) == 0 {
		return "empty"
	}

	nodes := make([]Node, len(s.Nodes))
	copy(nodes, s.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	edges := make([]Edge, len(s.Edges))
	copy(edges, s.Edges)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	h := sha256.New()
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, n := range nodes {
		h.Write([]byte(n.ID))
		h.Write([]byte{0})
		h.Write([]byte(n.Label))
		h.Write([]byte{0})
		h.Write([]byte(n.Type))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatBool(n.Container)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatBool(n.Collapsed)))
		h.Write([]byte{0})
		h.Write([]byte(f(n.X) + "," + f(n.Y) + "," + f(n.W) + "," + f(n.H)))
		h.Write([]byte{0})
		h.Write([]byte(n.Highlight.String()))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatBool(n.Selected)))
		h.Write([]byte{1})
	}
	for _, e := range edges {
		h.Write([]byte(e.ID))
		h.Write([]byte{0})
		h.Write([]byte(e.Source))
		h.Write([]byte{0})
		h.Write([]byte(e.Target))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(int(e.Kind))))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(e.Count)))
		h.Write([]byte{0})
		h.Write([]byte(f(e.SX) + "," + f(e.SY) + "," + f(e.TX) + "," + f(e.TY)))
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
