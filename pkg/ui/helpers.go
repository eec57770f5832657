package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// FormatTimeRel returns a relative time string (e.g., "2h ago", "3d ago")
func FormatTimeRel(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := time.Since(t)
	if d < 0 {
		// Future timestamps treated as now
		return "now"
	}
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/(24*7)))
	default:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/(24*30)))
	}
}

// FormatDuration renders an operation duration compactly for the status bar.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0ms"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		// Even suffix is too wide, truncate suffix
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads string s with spaces on the right to length width
func padRight(s string, width int) string {
	runeCount := utf8.RuneCountInString(s)
	if runeCount >= width {
		return s
	}
	return s + strings.Repeat(" ", width-runeCount)
}

// truncate truncates string s to maxWidth cells
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// NeighborNode represents a visual node in the outgoing-edge tree shown in
// the detail pane.
type NeighborNode struct {
	ID       string
	Label    string
	Kind     string // "root", edge type, or "aggregated"
	Count    int    // folded original edges for aggregated links
	Children []*NeighborNode
}

type neighborLink struct {
	target string
	kind   string
	count  int
}

// BuildNeighborTree constructs a tree of visible outgoing connections for
// visualization. maxDepth limits recursion to keep the pane readable.
func BuildNeighborTree(rootID string, view *vizstate.View, maxDepth int) *NeighborNode {
	adjacency := make(map[string][]neighborLink)
	for _, e := range view.VisibleEdges() {
		kind := e.Type
		if kind == "" {
			kind = "edge"
		}
		adjacency[e.Source] = append(adjacency[e.Source], neighborLink{target: e.Target, kind: kind})
	}
	for _, h := range view.VisibleHyperEdges() {
		adjacency[h.Source] = append(adjacency[h.Source], neighborLink{
			target: h.Target,
			kind:   "aggregated",
			count:  len(h.OriginalEdgeIDs),
		})
	}

	visited := make(map[string]bool)
	return buildNeighborRecursive(rootID, "root", 0, view, adjacency, visited, 0, maxDepth)
}

func buildNeighborRecursive(id, kind string, count int, view *vizstate.View, adjacency map[string][]neighborLink, visited map[string]bool, depth, maxDepth int) *NeighborNode {
	if maxDepth > 0 && depth > maxDepth {
		return nil
	}

	// Cycle detection
	if visited[id] {
		return &NeighborNode{ID: id, Label: "(cycle)", Kind: kind, Count: count}
	}

	node := &NeighborNode{
		ID:    id,
		Label: elementLabel(view, id),
		Kind:  kind,
		Count: count,
	}

	visited[id] = true
	defer func() { visited[id] = false }() // Allow revisiting in different branches

	for _, link := range adjacency[id] {
		child := buildNeighborRecursive(link.target, link.kind, link.count, view, adjacency, visited, depth+1, maxDepth)
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}

	return node
}

// RenderNeighborTree renders an outgoing-connection tree as a formatted string
func RenderNeighborTree(node *NeighborNode) string {
	if node == nil {
		return "No connection data."
	}

	var sb strings.Builder
	sb.WriteString("Outgoing connections:\n")
	renderNeighborNode(&sb, node, "", true, true)
	return sb.String()
}

func renderNeighborNode(sb *strings.Builder, node *NeighborNode, prefix string, isLast, isRoot bool) {
	if node == nil {
		return
	}

	var connector string
	if isRoot {
		connector = ""
	} else if isLast {
		connector = "└── "
	} else {
		connector = "├── "
	}

	label := truncateRunesHelper(node.Label, 40, "...")

	if isRoot {
		sb.WriteString(fmt.Sprintf("%s %s\n", node.ID, label))
	} else if node.Kind == "aggregated" {
		sb.WriteString(fmt.Sprintf("%s%s%s %s (folds %d)\n", prefix, connector, node.ID, label, node.Count))
	} else {
		sb.WriteString(fmt.Sprintf("%s%s%s %s [%s]\n", prefix, connector, node.ID, label, node.Kind))
	}

	var childPrefix string
	if isRoot {
		childPrefix = ""
	} else if isLast {
		childPrefix = prefix + "    "
	} else {
		childPrefix = prefix + "│   "
	}

	for i, child := range node.Children {
		renderNeighborNode(sb, child, childPrefix, i == len(node.Children)-1, false)
	}
}

// elementLabel returns the display label for a node or container id,
// falling back to the id itself for unknown elements.
func elementLabel(view *vizstate.View, id string) string {
	if c, ok := view.Container(id); ok {
		return c.Label
	}
	if n, ok := view.Node(id); ok {
		if n.Label != "" {
			return n.Label
		}
	}
	return id
}
