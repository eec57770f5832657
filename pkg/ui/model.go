package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/loomview/internal/datasource"
	"github.com/vanderheijden86/loomview/pkg/config"
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/loader"
	"github.com/vanderheijden86/loomview/pkg/metrics"
	"github.com/vanderheijden86/loomview/pkg/render"
	"github.com/vanderheijden86/loomview/pkg/search"
	"github.com/vanderheijden86/loomview/pkg/viz"
	"github.com/vanderheijden86/loomview/pkg/watcher"
)

// Width thresholds for progressive layout enhancement (in columns).
const (
	SplitViewThreshold = 100
	MinDetailPaneWidth = 40
)

// treePaneRatio is the share of the body width given to the hierarchy pane
// when the detail pane is visible.
const treePaneRatio = 0.45

type focusArea int

const (
	focusTree focusArea = iota
	focusDetail
)

// FileChangedMsg reports that the watched document changed on disk.
type FileChangedMsg struct{}

// reloadRequestMsg asks for a reload without consuming a watcher event.
type reloadRequestMsg struct{}

// WatchFileCmd blocks until the watcher reports a change. The handler for
// FileChangedMsg must issue this command again or watching stops.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// Model is the root Bubble Tea model: a hierarchy pane driven by the
// coordinator's read view, a markdown detail pane for the selected element,
// incremental search and a one-line footer.
type Model struct {
	coord           *viz.Coordinator
	docPath         string
	hierarchyChoice string
	cfg             config.Config
	watcher         *watcher.Watcher
	snapshot        *render.Snapshot

	tree        TreeModel
	viewport    viewport.Model
	helpVP      viewport.Model
	renderer    *MarkdownRenderer
	searchInput textinput.Model
	theme       Theme

	focused         focusArea
	focusBeforeHelp focusArea
	showHelp        bool
	searching       bool

	ready                bool
	width                int
	height               int
	isSplitView          bool
	detailHidden         bool
	detailHiddenByNarrow bool

	statusMsg     string
	statusIsError bool
	lastOp        string
	lastOpTook    time.Duration
	lastReload    time.Time
	lastRefresh   time.Time

	matchCursor int
}

// NewModel wires the terminal UI to a coordinator. coord must be non-nil and
// already loaded. docPath may be empty, in which case reloading and watching
// are disabled. The model is usable before the first WindowSizeMsg arrives.
func NewModel(coord *viz.Coordinator, docPath string, cfg config.Config) Model {
	theme := DefaultTheme(lipgloss.NewRenderer(os.Stdout))

	si := textinput.New()
	si.Placeholder = "label or id"
	si.Prompt = " / "
	si.PromptStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	si.CharLimit = 120
	si.Width = 40

	m := Model{
		coord:       coord,
		docPath:     docPath,
		cfg:         cfg,
		theme:       theme,
		tree:        NewTreeModel(theme),
		renderer:    NewMarkdownRenderer(80),
		searchInput: si,
		viewport:    viewport.New(60, 20),
		helpVP:      viewport.New(80, 30),
		snapshot:    coord.LastSnapshot(),
		matchCursor: -1,
	}
	m.tree.SetData(coord.View(), coord.SearchIndex())

	if docPath != "" {
		w, err := watcher.New(docPath,
			watcher.WithDebounceDuration(cfg.Watcher.Debounce()),
			watcher.WithPollInterval(cfg.Watcher.PollInterval()),
			watcher.WithForcePoll(cfg.Watcher.ForcePolling),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			m.statusMsg = fmt.Sprintf("Watching disabled: %v", err)
			m.statusIsError = true
		} else {
			m.watcher = w
		}
	}

	m = m.handleResize(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.syncSelection()
	return m
}

// WithHierarchyChoice pins the hierarchy interpretation used when the
// document is reloaded from disk.
func (m Model) WithHierarchyChoice(choice string) Model {
	m.hierarchyChoice = choice
	return m
}

// WithoutWatcher turns off filesystem watching. Manual reloads keep working.
func (m Model) WithoutWatcher() Model {
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return tea.Batch(WatchFileCmd(m.watcher))
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case FileChangedMsg:
		return m.handleReload(true)

	case reloadRequestMsg:
		return m.handleReload(false)

	case tea.KeyMsg:
		// Any keypress dismisses a transient status message.
		if m.statusMsg != "" {
			m.statusMsg = ""
			m.statusIsError = false
		}
		if m.showHelp {
			return m.handleHelpKeys(msg)
		}
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		if m.focused == focusDetail {
			return m.handleDetailKeys(msg)
		}
		return m.handleTreeKeys(msg)
	}

	if m.focused == focusDetail {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleTreeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.watcher != nil {
			m.watcher.Stop()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = true
		m.focusBeforeHelp = m.focused
		m.updateHelpContent()
		return m, nil

	case "/":
		m.searching = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		return m, textinput.Blink

	case "j", "down":
		m.tree.MoveDown()
		m.syncSelection()
	case "k", "up":
		m.tree.MoveUp()
		m.syncSelection()
	case "g", "home":
		m.tree.JumpToTop()
		m.syncSelection()
	case "G", "end":
		m.tree.JumpToBottom()
		m.syncSelection()
	case "ctrl+d", "pgdown":
		m.tree.PageDown()
		m.syncSelection()
	case "ctrl+u", "pgup":
		m.tree.PageUp()
		m.syncSelection()
	case "p":
		m.tree.JumpToParent()
		m.syncSelection()
	case "]":
		m.tree.NextSibling()
		m.syncSelection()
	case "[":
		m.tree.PrevSibling()
		m.syncSelection()

	case "tab":
		m.tree.ToggleExpand()
	case "X":
		m.tree.ExpandAllRows()
	case "Z":
		m.tree.CollapseAllRows()
		m.syncSelection()

	case "enter", " ":
		return m.toggleCollapse(), nil
	case "C":
		return m.collapseAll(), nil
	case "E":
		return m.expandAll(), nil

	case "n":
		return m.cycleMatch(1), nil
	case "N":
		return m.cycleMatch(-1), nil

	case "esc":
		return m.clearHighlights(), nil

	case "y":
		return m.yankSelected(), nil

	case "d":
		m.detailHidden = !m.detailHidden
		m = m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m, nil

	case "v":
		if m.splitActive() {
			m.focused = focusDetail
		}
		return m, nil

	case "ctrl+r", "f5":
		if time.Since(m.lastRefresh) < time.Second {
			m.statusMsg = "Reload throttled, try again in a moment"
			return m, nil
		}
		m.lastRefresh = time.Now()
		return m, func() tea.Msg { return reloadRequestMsg{} }
	}

	return m, nil
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q":
		m.showHelp = false
		m.focused = m.focusBeforeHelp
		return m, nil
	case "ctrl+c":
		if m.watcher != nil {
			m.watcher.Stop()
		}
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.helpVP, cmd = m.helpVP.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m.commitSearch(), nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.watcher != nil {
			m.watcher.Stop()
		}
		return m, tea.Quit
	case "esc", "v":
		m.focused = focusTree
		return m, nil
	case "?":
		m.showHelp = true
		m.focusBeforeHelp = m.focused
		m.updateHelpContent()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// toggleCollapse flips the graph-level collapse state of the selected
// container. Tree rows that merely fold the pane are handled by tab instead.
func (m Model) toggleCollapse() Model {
	id := m.tree.SelectedID()
	if id == "" {
		return m
	}
	view := m.coord.View()
	ct, ok := view.Container(id)
	if !ok {
		m.statusMsg = fmt.Sprintf("%s is not a container", id)
		return m
	}

	start := time.Now()
	var (
		snap *render.Snapshot
		err  error
	)
	if ct.Collapsed {
		snap, err = m.coord.ExpandContainer(id, nil)
		m.lastOp = "expand"
	} else {
		snap, err = m.coord.CollapseContainer(id, nil)
		m.lastOp = "collapse"
	}
	m.lastOpTook = time.Since(start)
	if err != nil {
		m.statusMsg = errors.UserMessage(err)
		m.statusIsError = true
		return m
	}

	m.snapshot = snap
	m.tree.Rebuild()
	m.tree.SelectByID(id)
	m.syncSelection()
	return m
}

func (m Model) collapseAll() Model {
	start := time.Now()
	snap, err := m.coord.CollapseAllContainers(nil, nil)
	m.lastOp, m.lastOpTook = "collapse all", time.Since(start)
	if err != nil {
		m.statusMsg = errors.UserMessage(err)
		m.statusIsError = true
		return m
	}
	m.snapshot = snap
	m.tree.Rebuild()
	m.syncSelection()
	return m
}

func (m Model) expandAll() Model {
	start := time.Now()
	snap, err := m.coord.ExpandAllContainers(nil, nil)
	m.lastOp, m.lastOpTook = "expand all", time.Since(start)
	if err != nil {
		m.statusMsg = errors.UserMessage(err)
		m.statusIsError = true
		return m
	}
	m.snapshot = snap
	m.tree.Rebuild()
	m.syncSelection()
	return m
}

func (m Model) commitSearch() Model {
	query := strings.TrimSpace(m.searchInput.Value())

	start := time.Now()
	if query == "" {
		snap, err := m.coord.ClearSearch(nil)
		m.lastOp, m.lastOpTook = "clear search", time.Since(start)
		if err == nil {
			m.snapshot = snap
		}
		m.matchCursor = -1
		m.statusMsg = "Search cleared"
		return m
	}

	snap, err := m.coord.PerformSearch(query, nil)
	m.lastOp, m.lastOpTook = "search", time.Since(start)
	if err != nil {
		m.statusMsg = errors.UserMessage(err)
		m.statusIsError = true
		return m
	}
	m.snapshot = snap
	m.tree.Rebuild()

	m.matchCursor = -1
	if len(m.searchResults()) == 0 {
		m.statusMsg = fmt.Sprintf("No matches for %q", query)
		return m
	}
	return m.cycleMatch(1)
}

// searchResults returns the result set capped to the configured display
// limit. Zero means unlimited.
func (m Model) searchResults() []search.Result {
	results := m.coord.SearchIndex().Results()
	if limit := m.cfg.Search.MaxResults; limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

func (m Model) cycleMatch(delta int) Model {
	results := m.searchResults()
	if len(results) == 0 {
		m.statusMsg = "No search matches. Press / to search."
		return m
	}

	m.matchCursor = ((m.matchCursor+delta)%len(results) + len(results)) % len(results)
	target := results[m.matchCursor]

	start := time.Now()
	snap, err := m.coord.NavigateToElement(target.ID, nil)
	m.lastOp, m.lastOpTook = "navigate", time.Since(start)
	if err != nil {
		m.statusMsg = errors.UserMessage(err)
		m.statusIsError = true
		return m
	}
	m.snapshot = snap

	// Navigation expands tree rows along the target's hierarchy path.
	m.tree.Rebuild()
	if !m.tree.SelectByID(target.ID) {
		// Target is hidden inside a collapsed container. Land on the
		// visible stand-in.
		if vis, err := m.coord.View().ResolveVisible(target.ID); err == nil {
			m.tree.SelectByID(vis)
		}
	}
	m.syncSelection()

	total := len(m.coord.SearchIndex().Results())
	if total > len(results) {
		m.statusMsg = fmt.Sprintf("Match %d/%d (of %d): %s", m.matchCursor+1, len(results), total, target.ID)
	} else {
		m.statusMsg = fmt.Sprintf("Match %d/%d: %s", m.matchCursor+1, len(results), target.ID)
	}
	return m
}

// clearHighlights clears the navigation target first, then the search.
// Pressing esc twice after a navigated search returns to a plain view.
func (m Model) clearHighlights() Model {
	ix := m.coord.SearchIndex()
	switch {
	case ix.NavigationID() != "":
		start := time.Now()
		if snap, err := m.coord.ClearNavigation(nil); err == nil {
			m.snapshot = snap
		}
		m.lastOp, m.lastOpTook = "clear nav", time.Since(start)
		m.statusMsg = "Navigation cleared"
	case ix.Query() != "":
		start := time.Now()
		if snap, err := m.coord.ClearSearch(nil); err == nil {
			m.snapshot = snap
		}
		m.lastOp, m.lastOpTook = "clear search", time.Since(start)
		m.matchCursor = -1
		m.statusMsg = "Search cleared"
	}
	return m
}

func (m Model) yankSelected() Model {
	id := m.tree.SelectedID()
	if id == "" {
		m.statusMsg = "Nothing selected"
		return m
	}
	if err := clipboard.WriteAll(id); err != nil {
		m.statusMsg = fmt.Sprintf("Clipboard error: %v", err)
		m.statusIsError = true
		return m
	}
	m.statusMsg = fmt.Sprintf("Copied %s to clipboard", id)
	return m
}

// handleReload re-reads the document from disk and loads it into the
// coordinator. rearm re-issues the watch command; manual reloads must not
// re-arm or watcher goroutines would pile up.
func (m Model) handleReload(rearm bool) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if rearm && m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	if m.docPath == "" {
		return m, tea.Batch(cmds...)
	}

	var warnings []string
	doc, _, issues, err := datasource.LoadPath(m.docPath, loader.ParseOptions{
		WarningHandler:  func(msg string) { warnings = append(warnings, msg) },
		HierarchyChoice: m.hierarchyChoice,
	})
	if err != nil {
		m.statusMsg = fmt.Sprintf("Reload failed: %s", errors.UserMessage(err))
		m.statusIsError = true
		return m, tea.Batch(cmds...)
	}

	selected := m.tree.SelectedID()
	stop := metrics.TimerWithCallback(metrics.WatcherReload, func(d time.Duration) {
		m.lastOp, m.lastOpTook = "reload", d
	})
	snap, err := m.coord.Load(doc, nil)
	stop()
	if err != nil {
		m.statusMsg = fmt.Sprintf("Reload failed: %s", errors.UserMessage(err))
		m.statusIsError = true
		return m, tea.Batch(cmds...)
	}
	m.snapshot = snap
	m.lastReload = time.Now()

	if m.cfg.Behavior.CollapseAllOnLoad {
		if snap, err := m.coord.CollapseAllContainers(nil, nil); err == nil {
			m.snapshot = snap
		}
	}

	m.matchCursor = -1
	m.tree.Rebuild()
	if selected == "" || !m.tree.SelectByID(selected) {
		m.tree.JumpToTop()
	}
	m.syncSelection()

	nodes, edges, containers := doc.Counts()
	m.statusMsg = fmt.Sprintf("Reloaded %d nodes, %d edges, %d containers (%s)",
		nodes, edges, containers, FormatDuration(m.lastOpTook))
	if n := len(issues) + len(warnings); n > 0 {
		m.statusMsg += fmt.Sprintf(", %d warnings", n)
	}
	m.statusIsError = false
	return m, tea.Batch(cmds...)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	m.ready = true
	m.isSplitView = m.width > SplitViewThreshold

	bodyHeight := m.height - 1
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.detailHiddenByNarrow = false
	if m.isSplitView && !m.detailHidden {
		availWidth := m.width - 8
		treeInner := int(float64(availWidth) * treePaneRatio)
		detailInner := availWidth - treeInner
		if detailInner < MinDetailPaneWidth {
			m.detailHiddenByNarrow = true
		} else {
			m.tree.SetSize(treeInner, bodyHeight-2)
			m.viewport = viewport.New(detailInner, bodyHeight-2)
			m.renderer.SetWidth(detailInner)
			m.updateDetailContent()
		}
	}
	if !m.splitActive() {
		m.tree.SetSize(m.width, bodyHeight)
		m.focused = focusTree
	}

	helpWidth := m.width - 4
	if helpWidth < 20 {
		helpWidth = 20
	}
	m.helpVP = viewport.New(helpWidth, bodyHeight-1)
	if m.showHelp {
		m.updateHelpContent()
	}
	return m
}

func (m Model) splitActive() bool {
	return m.isSplitView && !m.detailHidden && !m.detailHiddenByNarrow
}

// syncSelection pushes the tree cursor into the coordinator's selection and
// refreshes the detail pane.
func (m *Model) syncSelection() {
	id := m.tree.SelectedID()
	if id != "" && id != m.coord.Selection() {
		if snap, err := m.coord.SetSelection(id, nil); err == nil {
			m.snapshot = snap
		}
	}
	m.updateDetailContent()
}

func (m *Model) updateDetailContent() {
	md := buildDetailMarkdown(m.coord.View(), m.tree.SelectedID())
	rendered, err := m.renderer.Render(md)
	if err != nil {
		m.viewport.SetContent(fmt.Sprintf("Error rendering detail: %v", err))
		return
	}
	m.viewport.SetContent(rendered)
	m.viewport.GotoTop()
}

func (m *Model) updateHelpContent() {
	width := m.width - 4
	if width > 100 {
		width = 100
	}
	if width < 20 {
		width = 20
	}
	r := NewMarkdownRenderer(width)
	rendered, err := r.Render(helpMarkdown)
	if err != nil {
		rendered = helpMarkdown
	}
	m.helpVP.SetContent(rendered)
	m.helpVP.GotoTop()
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch {
	case m.showHelp:
		body = m.renderHelpOverlay()
	case m.splitActive():
		body = m.renderSplitView()
	default:
		body = m.tree.View()
	}

	finalStyle := lipgloss.NewStyle().Width(m.width).Height(m.height).MaxHeight(m.height)
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter()))
}

func (m Model) renderSplitView() string {
	treeStyle := FocusedPanelStyle
	detailStyle := PanelStyle
	if m.focused == focusDetail {
		treeStyle, detailStyle = PanelStyle, FocusedPanelStyle
	}

	panelHeight := m.height - 1
	treeView := treeStyle.
		Width(m.tree.width + 2).
		Height(panelHeight).
		MaxHeight(panelHeight).
		Render(m.tree.View())
	detailView := detailStyle.
		Width(m.viewport.Width + 2).
		Height(panelHeight).
		MaxHeight(panelHeight).
		Render(m.viewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, treeView, detailView)
}

func (m Model) renderHelpOverlay() string {
	title := m.theme.Header.Render(" Help ")
	hint := m.theme.MutedText.Render("  j/k scroll, esc close")
	return lipgloss.JoinVertical(lipgloss.Left, title+hint, m.helpVP.View())
}

func (m Model) renderFooter() string {
	if m.searching {
		return m.searchInput.View()
	}

	if m.statusMsg != "" {
		var msgStyle lipgloss.Style
		prefix := "✓ "
		if m.statusIsError {
			msgStyle = lipgloss.NewStyle().
				Background(ColorStatusBadBg).
				Foreground(ColorDanger).
				Bold(true).
				Padding(0, 2)
			prefix = "✗ "
		} else {
			msgStyle = lipgloss.NewStyle().
				Background(ColorStatusOkBg).
				Foreground(ColorSuccess).
				Bold(true).
				Padding(0, 2)
		}
		msgSection := msgStyle.Render(prefix + m.statusMsg)
		remaining := m.width - lipgloss.Width(msgSection)
		if remaining < 0 {
			remaining = 0
		}
		filler := lipgloss.NewStyle().Width(remaining).Render("")
		return lipgloss.JoinHorizontal(lipgloss.Bottom, msgSection, filler)
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle := lipgloss.NewStyle().Foreground(ColorText)

	hints := []struct{ key, label string }{
		{"j/k", "nav"},
		{"enter", "fold"},
		{"/", "search"},
		{"n/N", "match"},
		{"y", "yank"},
		{"d", "detail"},
		{"?", "help"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyStyle.Render(h.key)+":"+labelStyle.Render(h.label))
	}
	shortcutBar := " " + strings.Join(parts, "  ")

	info := m.renderFooterInfo()
	remaining := m.width - lipgloss.Width(shortcutBar) - lipgloss.Width(info)
	if remaining < 0 {
		remaining = 0
	}
	filler := lipgloss.NewStyle().Width(remaining).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Bottom, shortcutBar, filler, info)
}

func (m Model) renderFooterInfo() string {
	c := m.coord.View().Counts()
	parts := []string{fmt.Sprintf("%dn %de %dc", c.VisibleNodes, c.VisibleEdges, c.VisibleContainers)}
	if m.lastOp != "" {
		parts = append(parts, fmt.Sprintf("%s %s", m.lastOp, FormatDuration(m.lastOpTook)))
	}
	if m.snapshot != nil {
		parts = append(parts, fmt.Sprintf("gen %d", m.snapshot.Generation))
	}
	if !m.lastReload.IsZero() {
		parts = append(parts, "reloaded "+FormatTimeRel(m.lastReload))
	}
	if m.watcher != nil {
		mode := "watch"
		if m.watcher.IsPolling() {
			mode = "poll"
		}
		parts = append(parts, mode)
	}
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(strings.Join(parts, " | ") + " ")
}
