package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// buildDetailMarkdown renders the selected element as markdown for the
// detail pane. The caller passes it through the glamour renderer.
func buildDetailMarkdown(view *vizstate.View, id string) string {
	if view == nil || id == "" {
		return "_Nothing selected._"
	}
	if ct, ok := view.Container(id); ok {
		return containerDetail(view, ct)
	}
	if nd, ok := view.Node(id); ok {
		return nodeDetail(view, nd)
	}
	return fmt.Sprintf("_Element `%s` is not in the current view._", id)
}

func nodeDetail(view *vizstate.View, nd model.GraphNode) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", nd.DisplayLabel()))

	typ := nd.Type
	if typ == "" {
		typ = "-"
	}
	sb.WriteString("| ID | Kind | Type |\n|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| **%s** | node | %s |\n\n", nd.ID, typ))

	if path := view.HierarchyPath(nd.ID); len(path) > 0 {
		sb.WriteString(fmt.Sprintf("**Path:** %s\n\n", strings.Join(path, " / ")))
	}
	if len(nd.SemanticTags) > 0 {
		sb.WriteString(fmt.Sprintf("**Tags:** %s\n\n", strings.Join(nd.SemanticTags, ", ")))
	}

	if nd.LongLabel != "" && nd.LongLabel != nd.Label {
		sb.WriteString("### Description\n")
		sb.WriteString(nd.LongLabel + "\n\n")
	}

	writeConnections(&sb, view, nd.ID)
	return sb.String()
}

func containerDetail(view *vizstate.View, ct model.Container) string {
	var sb strings.Builder

	label := ct.Label
	if label == "" {
		label = ct.ID
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", label))

	state := "expanded"
	if ct.Collapsed {
		state = "collapsed"
	}
	sb.WriteString("| ID | Kind | State |\n|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| **%s** | container | %s |\n\n", ct.ID, state))

	if path := view.HierarchyPath(ct.ID); len(path) > 0 {
		sb.WriteString(fmt.Sprintf("**Path:** %s\n\n", strings.Join(path, " / ")))
	}

	sb.WriteString("### Contents\n")
	direct := len(ct.Children)
	sb.WriteString(fmt.Sprintf("%d direct children\n\n", direct))

	if ct.Collapsed {
		writeAggregations(&sb, view, ct.ID)
	}

	writeConnections(&sb, view, ct.ID)
	return sb.String()
}

// writeAggregations lists the hyperedges a collapsed container takes part
// in, with the number of original edges each one folds.
func writeAggregations(sb *strings.Builder, view *vizstate.View, id string) {
	var lines []string
	for _, h := range view.VisibleHyperEdges() {
		if h.Source != id && h.Target != id {
			continue
		}
		lines = append(lines, fmt.Sprintf("- `%s` %s to %s (folds %d)",
			h.ID, h.Source, h.Target, len(h.OriginalEdgeIDs)))
	}
	if len(lines) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### Aggregated edges (%d)\n", len(lines)))
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\n")
}

func writeConnections(sb *strings.Builder, view *vizstate.View, id string) {
	in, out := edgeCounts(view, id)
	sb.WriteString("### Connections\n")
	sb.WriteString(fmt.Sprintf("%d incoming, %d outgoing (visible)\n\n", in, out))

	tree := BuildNeighborTree(id, view, 3)
	if tree != nil && len(tree.Children) > 0 {
		sb.WriteString("```\n" + RenderNeighborTree(tree) + "```\n\n")
	}
}

// edgeCounts tallies visible edges and hyperedges touching an element.
func edgeCounts(view *vizstate.View, id string) (in, out int) {
	for _, e := range view.VisibleEdges() {
		if e.Target == id {
			in++
		}
		if e.Source == id {
			out++
		}
	}
	for _, h := range view.VisibleHyperEdges() {
		if h.Target == id {
			in++
		}
		if h.Source == id {
			out++
		}
	}
	return in, out
}
