package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/loomview/pkg/search"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// treeNode is one row candidate in the hierarchy pane.
type treeNode struct {
	ID          string
	Label       string
	IsContainer bool
	Collapsed   bool // graph-level container collapse
	Folded      int  // descendants hidden by a graph-level collapse
	Depth       int
	Parent      *treeNode
	Children    []*treeNode
}

// TreeModel renders the visible hierarchy as a windowed, navigable tree.
// Row expansion state lives on the search index so search can force
// ancestors open; graph-level collapse state comes from the view itself.
// A collapsed container renders as a leaf with its folded-descendant count.
type TreeModel struct {
	view  *vizstate.View
	index *search.Index
	theme Theme

	roots    []*treeNode
	flatList []*treeNode
	byID     map[string]*treeNode

	cursor         int
	viewportOffset int
	width          int
	height         int

	built  bool
	seeded bool // top-level containers auto-expanded once per attach
}

// NewTreeModel creates an empty tree. Call SetData to attach a view.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:  theme,
		byID:   make(map[string]*treeNode),
		width:  80,
		height: 24,
	}
}

// SetData attaches the hierarchy source and expansion store, then rebuilds.
func (t *TreeModel) SetData(view *vizstate.View, index *search.Index) {
	t.view = view
	t.index = index
	t.seeded = false
	t.Rebuild()
}

// SetSize updates the pane dimensions.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Rebuild re-reads the view hierarchy, keeping the cursor on the same
// element where it survived the change.
func (t *TreeModel) Rebuild() {
	prevID := t.SelectedID()

	t.roots = nil
	t.byID = make(map[string]*treeNode)
	if t.view != nil {
		visiting := make(map[string]bool)
		for _, id := range t.view.TopLevelIDs() {
			if n := t.buildNode(id, nil, 0, visiting); n != nil {
				t.roots = append(t.roots, n)
			}
		}
	}
	if !t.seeded {
		t.seedTopLevel()
		t.seeded = true
	}
	t.built = true
	t.rebuildFlatList()

	if prevID == "" || !t.SelectByID(prevID) {
		if t.cursor >= len(t.flatList) {
			t.cursor = len(t.flatList) - 1
		}
		if t.cursor < 0 {
			t.cursor = 0
		}
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) buildNode(id string, parent *treeNode, depth int, visiting map[string]bool) *treeNode {
	if visiting[id] {
		return nil
	}
	if hidden, known := t.view.IsHidden(id); !known || hidden {
		return nil
	}

	n := &treeNode{ID: id, Depth: depth, Parent: parent}
	if ct, ok := t.view.Container(id); ok {
		n.IsContainer = true
		n.Collapsed = ct.Collapsed
		n.Label = ct.Label
		if ct.Collapsed {
			n.Folded = t.descendantCount(id)
		} else {
			visiting[id] = true
			for _, child := range t.view.Children(id) {
				if c := t.buildNode(child, n, depth+1, visiting); c != nil {
					n.Children = append(n.Children, c)
				}
			}
			visiting[id] = false
		}
	} else if nd, ok := t.view.Node(id); ok {
		n.Label = nd.Label
	} else {
		return nil
	}
	if n.Label == "" {
		n.Label = id
	}

	t.byID[id] = n
	return n
}

func (t *TreeModel) descendantCount(id string) int {
	count := 0
	seen := make(map[string]bool)
	stack := t.view.Children(id)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		count++
		stack = append(stack, t.view.Children(cur)...)
	}
	return count
}

// seedTopLevel opens the top-level containers so the pane is useful on
// launch instead of a wall of closed folders.
func (t *TreeModel) seedTopLevel() {
	if t.index == nil {
		return
	}
	for _, r := range t.roots {
		if r.IsContainer {
			t.index.SetTreeExpanded(r.ID, true)
		}
	}
}

func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	for _, r := range t.roots {
		t.appendVisible(r)
	}
}

func (t *TreeModel) appendVisible(n *treeNode) {
	t.flatList = append(t.flatList, n)
	if !n.IsContainer || !t.rowExpanded(n.ID) {
		return
	}
	for _, c := range n.Children {
		t.appendVisible(c)
	}
}

func (t *TreeModel) rowExpanded(id string) bool {
	if t.index == nil {
		return true
	}
	return t.index.IsTreeExpanded(id)
}

// ─────────────────────────────────────────────────────────────────────────
// Navigation
// ─────────────────────────────────────────────────────────────────────────

func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) PageDown() {
	t.cursor += t.effectiveVisibleCount()
	if t.cursor > len(t.flatList)-1 {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) PageUp() {
	t.cursor -= t.effectiveVisibleCount()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

// JumpToParent moves the cursor to the containing container.
func (t *TreeModel) JumpToParent() {
	n := t.selectedNode()
	if n == nil || n.Parent == nil {
		return
	}
	t.SelectByID(n.Parent.ID)
}

func (t *TreeModel) NextSibling() { t.moveSibling(1) }
func (t *TreeModel) PrevSibling() { t.moveSibling(-1) }

func (t *TreeModel) moveSibling(delta int) {
	n := t.selectedNode()
	if n == nil {
		return
	}
	siblings := t.roots
	if n.Parent != nil {
		siblings = n.Parent.Children
	}
	for i, s := range siblings {
		if s == n {
			j := i + delta
			if j >= 0 && j < len(siblings) {
				t.SelectByID(siblings[j].ID)
			}
			return
		}
	}
}

// SelectByID moves the cursor to the given element if it is currently a
// visible row. Use RevealByID to force ancestors open first.
func (t *TreeModel) SelectByID(id string) bool {
	for i, n := range t.flatList {
		if n.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// RevealByID expands every ancestor of the element and selects it.
// Returns false when the element is not in the tree (hidden or unknown).
func (t *TreeModel) RevealByID(id string) bool {
	if t.view == nil {
		return false
	}
	if t.index != nil {
		for _, anc := range t.view.HierarchyPath(id) {
			t.index.SetTreeExpanded(anc, true)
		}
	}
	t.rebuildFlatList()
	return t.SelectByID(id)
}

// ─────────────────────────────────────────────────────────────────────────
// Row expansion
// ─────────────────────────────────────────────────────────────────────────

// ToggleExpand flips the row expansion of the selected container.
// Collapsed containers are leaves here, so there is nothing to toggle.
func (t *TreeModel) ToggleExpand() {
	n := t.selectedNode()
	if n == nil || !n.IsContainer || len(n.Children) == 0 || t.index == nil {
		return
	}
	t.index.ToggleTreeExpanded(n.ID)
	t.rebuildFlatList()
	t.SelectByID(n.ID)
}

// ExpandAllRows opens every container row.
func (t *TreeModel) ExpandAllRows() {
	if t.index == nil {
		return
	}
	id := t.SelectedID()
	for cid, n := range t.byID {
		if n.IsContainer {
			t.index.SetTreeExpanded(cid, true)
		}
	}
	t.rebuildFlatList()
	if id != "" {
		t.SelectByID(id)
	}
}

// CollapseAllRows closes every container row and lands the cursor on the
// selected element's top-level ancestor.
func (t *TreeModel) CollapseAllRows() {
	if t.index == nil {
		return
	}
	target := ""
	if n := t.selectedNode(); n != nil {
		for n.Parent != nil {
			n = n.Parent
		}
		target = n.ID
	}
	for cid, n := range t.byID {
		if n.IsContainer {
			t.index.SetTreeExpanded(cid, false)
		}
	}
	t.rebuildFlatList()
	if target == "" || !t.SelectByID(target) {
		t.cursor = 0
		t.viewportOffset = 0
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────

// SelectedID returns the id under the cursor, or "" for an empty tree.
func (t *TreeModel) SelectedID() string {
	if n := t.selectedNode(); n != nil {
		return n.ID
	}
	return ""
}

func (t *TreeModel) IsBuilt() bool  { return t.built }
func (t *TreeModel) RootCount() int { return len(t.roots) }
func (t *TreeModel) RowCount() int  { return len(t.flatList) }
func (t *TreeModel) CursorRow() int { return t.cursor }

func (t *TreeModel) selectedNode() *treeNode {
	if t.cursor < 0 || t.cursor >= len(t.flatList) {
		return nil
	}
	return t.flatList[t.cursor]
}

// ─────────────────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────────────────

func (t *TreeModel) effectiveVisibleCount() int {
	visible := t.height - 1 // header row
	if len(t.flatList) > visible {
		visible-- // position indicator
	}
	if visible < 1 {
		visible = 1
	}
	return visible
}

func (t *TreeModel) visibleRange() (int, int) {
	visible := t.effectiveVisibleCount()
	start := t.viewportOffset
	if start > len(t.flatList)-visible {
		start = len(t.flatList) - visible
	}
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > len(t.flatList) {
		end = len(t.flatList)
	}
	return start, end
}

func (t *TreeModel) ensureCursorVisible() {
	visible := t.effectiveVisibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	} else if t.cursor >= t.viewportOffset+visible {
		t.viewportOffset = t.cursor - visible + 1
	}
	maxOffset := len(t.flatList) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

func (t *TreeModel) View() string {
	var sb strings.Builder
	sb.WriteString(t.renderHeader())
	sb.WriteString("\n")

	if len(t.flatList) == 0 {
		sb.WriteString(t.renderEmptyState())
		return sb.String()
	}

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		sb.WriteString(t.renderRow(t.flatList[i], i == t.cursor))
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(t.flatList) > t.effectiveVisibleCount() {
		visible := t.effectiveVisibleCount()
		page := t.viewportOffset/visible + 1
		totalPages := (len(t.flatList) + visible - 1) / visible
		indicator := fmt.Sprintf(" Page %d/%d (%d-%d of %d)", page, totalPages, start+1, end, len(t.flatList))
		sb.WriteString("\n")
		sb.WriteString(t.theme.MutedText.Render(indicator))
	}

	return sb.String()
}

func (t *TreeModel) renderHeader() string {
	title := t.theme.Header.Render(" Hierarchy ")

	info := ""
	if t.index != nil && t.index.Query() != "" {
		info = fmt.Sprintf("%d matches for %q", len(t.index.Results()), t.index.Query())
	} else if t.view != nil {
		c := t.view.Counts()
		info = fmt.Sprintf("%d/%d nodes, %d/%d containers",
			c.VisibleNodes, c.Nodes, c.VisibleContainers, c.Containers)
	}
	if info == "" {
		return title
	}
	return title + " " + t.theme.MutedText.Render(info)
}

func (t *TreeModel) renderEmptyState() string {
	if t.view == nil {
		return t.theme.MutedText.Render("  No document loaded.")
	}
	return t.theme.MutedText.Render("  No visible elements.")
}

func (t *TreeModel) renderRow(n *treeNode, selected bool) string {
	th := t.theme
	prefix := t.buildTreePrefix(n)

	indicator := "•"
	indicatorColor := th.Node
	switch {
	case n.IsContainer && n.Collapsed:
		indicator, indicatorColor = "▣", th.Collapsed
	case n.IsContainer && t.rowExpanded(n.ID):
		indicator, indicatorColor = "▾", th.Container
	case n.IsContainer:
		indicator, indicatorColor = "▸", th.Container
	}

	highlight := search.HighlightNone
	if t.index != nil {
		highlight = t.index.TreeHighlight(n.ID)
	}

	var badges []string
	if b := RenderHighlightBadge(highlight); b != "" {
		badges = append(badges, b)
	}
	if n.Collapsed {
		if b := RenderAggregationBadge(n.Folded); b != "" {
			badges = append(badges, b)
		}
	}
	badgeSuffix := ""
	if len(badges) > 0 {
		badgeSuffix = " " + strings.Join(badges, " ")
	}

	width := t.width
	if width <= 0 {
		width = 80
	}
	avail := width - runewidth.StringWidth(prefix) - 2 - lipgloss.Width(badgeSuffix)
	if avail < 8 {
		avail = 8
	}

	// Show the id after the label when there is room for both.
	label := n.Label
	idPart := ""
	idWidth := runewidth.StringWidth(n.ID) + 2
	if n.ID != label && avail > idWidth+12 {
		label = truncate(label, avail-idWidth)
		idPart = "  " + n.ID
	} else {
		label = truncate(label, avail)
	}

	if selected {
		line := fmt.Sprintf("%s%s %s%s", prefix, indicator, label, idPart)
		return th.Selected.Render(line) + badgeSuffix
	}

	labelStyle := th.Base
	if n.IsContainer {
		labelStyle = th.PrimaryBold
	}
	switch highlight {
	case search.HighlightSearch:
		labelStyle = th.SearchMark
	case search.HighlightNavigation, search.HighlightBoth:
		labelStyle = th.NavMark
	}

	var sb strings.Builder
	sb.WriteString(th.MutedText.Render(prefix))
	sb.WriteString(th.Renderer.NewStyle().Foreground(indicatorColor).Render(indicator))
	sb.WriteString(" ")
	sb.WriteString(labelStyle.Render(label))
	if idPart != "" {
		sb.WriteString(th.MutedText.Render(idPart))
	}
	sb.WriteString(badgeSuffix)
	return sb.String()
}

func (t *TreeModel) buildTreePrefix(n *treeNode) string {
	if n.Depth == 0 {
		return ""
	}
	var sb strings.Builder
	for _, anc := range ancestorChain(n) {
		if t.hasSiblingsBelow(anc) {
			sb.WriteString("│   ")
		} else {
			sb.WriteString("    ")
		}
	}
	if t.hasSiblingsBelow(n) {
		sb.WriteString("├── ")
	} else {
		sb.WriteString("└── ")
	}
	return sb.String()
}

// ancestorChain returns the ancestors below the top level, outermost first.
func ancestorChain(n *treeNode) []*treeNode {
	var chain []*treeNode
	for p := n.Parent; p != nil && p.Depth > 0; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (t *TreeModel) hasSiblingsBelow(n *treeNode) bool {
	siblings := t.roots
	if n.Parent != nil {
		siblings = n.Parent.Children
	}
	for i, s := range siblings {
		if s == n {
			return i < len(siblings)-1
		}
	}
	return false
}
