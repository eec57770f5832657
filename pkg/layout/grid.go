package layout

import (
	"math"

	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// Grid is the fallback engine for documents with nothing to route: members
// of each scope fill near-square rows. Shares the recursive sizing and
// translation scheme with Layered.
type Grid struct{}

func (Grid) Name() string { return "grid" }

func (Grid) Layout(snap *vizstate.Snapshot, cfg Config) (*Result, error) {
	return scopedLayout(snap, cfg, func(g *scopeGraph) [][]string {
		return gridRows(g.members)
	})
}

// gridRows chunks members into rows of ceil(sqrt(n)) columns.
func gridRows(members []string) [][]string {
	if len(members) == 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(members)))))
	var rows [][]string
	for start := 0; start < len(members); start += cols {
		end := start + cols
		if end > len(members) {
			end = len(members)
		}
		rows = append(rows, members[start:end])
	}
	return rows
}
