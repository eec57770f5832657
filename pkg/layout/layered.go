package layout

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

const orderingSweeps = 4

// Layered is the reference engine: recursive per-scope layered layout.
// Within a scope, strongly connected components are condensed to break
// cycles, layers are assigned by longest path over the condensation, and
// layer order is settled by alternating barycenter sweeps. Container sizes
// are computed bottom-up, positions translated top-down.
type Layered struct{}

func (Layered) Name() string { return "layered" }

func (Layered) Layout(snap *vizstate.Snapshot, cfg Config) (*Result, error) {
	return scopedLayout(snap, cfg, func(g *scopeGraph) [][]string {
		layers := layerByLongestPath(g)
		orderByBarycenter(layers, g)
		return layers
	})
}

// layerByLongestPath condenses the scope graph's strongly connected
// components and assigns each member the longest-path layer of its
// component. Members keep scope order within a layer.
func layerByLongestPath(g *scopeGraph) [][]string {
	if len(g.members) == 0 {
		return nil
	}

	dg := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(g.members))
	nodeToID := make(map[int64]string, len(g.members))
	for _, id := range g.members {
		n := dg.NewNode()
		dg.AddNode(n)
		idToNode[id] = n.ID()
		nodeToID[n.ID()] = id
	}
	for _, u := range g.members {
		for _, v := range g.succs[u] {
			if u == v {
				continue
			}
			dg.SetEdge(dg.NewEdge(dg.Node(idToNode[u]), dg.Node(idToNode[v])))
		}
	}

	comps := topo.TarjanSCC(dg)
	compOf := make(map[string]int, len(g.members))
	for ci, comp := range comps {
		for _, n := range comp {
			compOf[nodeToID[n.ID()]] = ci
		}
	}

	// Condensation is acyclic, so longest-path layering reduces to one
	// Kahn pass with max-propagation.
	succ := make([][]int, len(comps))
	indeg := make([]int, len(comps))
	seen := make(map[[2]int]struct{})
	for _, u := range g.members {
		for _, v := range g.succs[u] {
			cu, cv := compOf[u], compOf[v]
			if cu == cv {
				continue
			}
			key := [2]int{cu, cv}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			succ[cu] = append(succ[cu], cv)
			indeg[cv]++
		}
	}
	layerOf := make([]int, len(comps))
	var queue []int
	for ci := range comps {
		if indeg[ci] == 0 {
			queue = append(queue, ci)
		}
	}
	maxLayer := 0
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if layerOf[c] > maxLayer {
			maxLayer = layerOf[c]
		}
		for _, s := range succ[c] {
			if layerOf[s] < layerOf[c]+1 {
				layerOf[s] = layerOf[c] + 1
			}
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	layers := make([][]string, maxLayer+1)
	for _, id := range g.members {
		l := layerOf[compOf[id]]
		layers[l] = append(layers[l], id)
	}
	return layers
}

// orderByBarycenter runs alternating downward/upward sweeps, sorting each
// layer by the mean position of its neighbors. Stable, so members without
// neighbors keep their relative order.
func orderByBarycenter(layers [][]string, g *scopeGraph) {
	index := make(map[string]int)
	reindex := func() {
		for _, layer := range layers {
			for i, id := range layer {
				index[id] = i
			}
		}
	}
	reindex()

	sweep := func(layer []string, neighbors map[string][]string) {
		bary := make(map[string]float64, len(layer))
		for i, id := range layer {
			ns := neighbors[id]
			if len(ns) == 0 {
				bary[id] = float64(i)
				continue
			}
			sum := 0.0
			for _, n := range ns {
				sum += float64(index[n])
			}
			bary[id] = sum / float64(len(ns))
		}
		sort.SliceStable(layer, func(a, b int) bool {
			return bary[layer[a]] < bary[layer[b]]
		})
	}

	for s := 0; s < orderingSweeps; s++ {
		if s%2 == 0 {
			for l := 1; l < len(layers); l++ {
				sweep(layers[l], g.preds)
				reindex()
			}
			continue
		}
		for l := len(layers) - 2; l >= 0; l-- {
			sweep(layers[l], g.succs)
			reindex()
		}
	}
}

// placeLayers turns ordered layers into relative coordinates, centering
// each layer within the widest one.
func placeLayers(layers [][]string, sizes map[string]model.Size, cfg Config) (map[string]model.Position, model.Size) {
	positions := make(map[string]model.Position)
	if len(layers) == 0 {
		return positions, model.Size{}
	}

	layerW := make([]float64, len(layers))
	layerH := make([]float64, len(layers))
	var scopeW float64
	for li, layer := range layers {
		var w float64
		for i, id := range layer {
			s := sizes[id]
			if i > 0 {
				w += cfg.HGap
			}
			w += s.Width
			if s.Height > layerH[li] {
				layerH[li] = s.Height
			}
		}
		layerW[li] = w
		if w > scopeW {
			scopeW = w
		}
	}

	y := 0.0
	for li, layer := range layers {
		x := (scopeW - layerW[li]) / 2
		for _, id := range layer {
			s := sizes[id]
			positions[id] = model.Position{X: x, Y: y}
			x += s.Width + cfg.HGap
		}
		y += layerH[li] + cfg.VGap
	}
	return positions, model.Size{Width: scopeW, Height: y - cfg.VGap}
}

func clampExtent(extent model.Size, cfg Config) model.Size {
	if extent.Width < cfg.NodeWidth {
		extent.Width = cfg.NodeWidth
	}
	if extent.Height < cfg.NodeHeight {
		extent.Height = cfg.NodeHeight
	}
	return extent
}
