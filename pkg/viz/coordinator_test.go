package viz

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/vanderheijden86/loomview/pkg/debug"
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/layout"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/render"
	"github.com/vanderheijden86/loomview/pkg/search"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

func pipelineDoc() *model.Document {
	return &model.Document{
		Nodes: []model.GraphNode{
			{ID: "n1", Label: "ingest"},
			{ID: "n2", Label: "transform"},
			{ID: "n3", Label: "publish"},
		},
		Edges: []model.GraphEdge{
			{ID: "e1", Source: "n1", Target: "n3"},
			{ID: "e2", Source: "n2", Target: "n3"},
		},
		Containers: []model.Container{
			{ID: "c1", Label: "Pipeline", Children: []string{"n1", "n2"}},
		},
	}
}

func nestedDoc() *model.Document {
	return &model.Document{
		Nodes: []model.GraphNode{
			{ID: "n1", Label: "worker"},
			{ID: "x", Label: "feeder"},
		},
		Edges: []model.GraphEdge{
			{ID: "e1", Source: "x", Target: "n1"},
		},
		Containers: []model.Container{
			{ID: "root", Label: "Root", Children: []string{"mid"}},
			{ID: "mid", Label: "Mid", Children: []string{"n1"}},
		},
	}
}

func quietCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	return New(append([]Option{WithLogOutput(io.Discard)}, opts...)...)
}

func mustLoad(t *testing.T, c *Coordinator, doc *model.Document) *render.Snapshot {
	t.Helper()
	snap, err := c.Load(doc, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return snap
}

// countingEngine wraps a real engine and counts Layout invocations.
type countingEngine struct {
	inner layout.Engine
	calls int
}

func (e *countingEngine) Name() string { return "counting" }

func (e *countingEngine) Layout(snap *vizstate.Snapshot, cfg layout.Config) (*layout.Result, error) {
	e.calls++
	return e.inner.Layout(snap, cfg)
}

func TestLoadPublishesSnapshot(t *testing.T) {
	c := quietCoordinator(t)

	var updates []*render.Snapshot
	c.OnUpdate(func(s *render.Snapshot) { updates = append(updates, s) })

	validationCalls := 0
	var issues []model.ValidationIssue
	c.OnValidation(func(got []model.ValidationIssue) {
		validationCalls++
		issues = got
	})

	snap := mustLoad(t, c, pipelineDoc())

	if c.LastSnapshot() != snap {
		t.Fatal("LastSnapshot should return the published snapshot")
	}
	if len(updates) != 1 || updates[0] != snap {
		t.Fatalf("update callback should see the published snapshot, got %d calls", len(updates))
	}
	if validationCalls != 1 {
		t.Fatalf("validation callback calls = %d, want 1", validationCalls)
	}
	if len(issues) != 0 {
		t.Fatalf("clean document should report no issues, got %v", issues)
	}

	// Load lays out by default, so every visible entity has a position.
	for _, n := range snap.Nodes {
		if n.W <= 0 || n.H <= 0 {
			t.Fatalf("node %s has no size", n.ID)
		}
	}
	if snap.Width <= 0 || snap.Height <= 0 {
		t.Fatalf("snapshot extent = %gx%g, want positive", snap.Width, snap.Height)
	}
}

func TestLoadNilDocument(t *testing.T) {
	c := quietCoordinator(t)

	_, err := c.Load(nil, nil)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if c.LastSnapshot() != nil {
		t.Fatal("no snapshot should be published before a successful operation")
	}
}

func TestLoadReportsValidationIssues(t *testing.T) {
	c := quietCoordinator(t)

	var issues []model.ValidationIssue
	c.OnValidation(func(got []model.ValidationIssue) { issues = got })

	doc := pipelineDoc()
	doc.Edges = append(doc.Edges, model.GraphEdge{ID: "e9", Source: "n1", Target: "ghost"})

	snap := mustLoad(t, c, doc)
	if len(issues) != 1 || issues[0].Kind != "dangling_edge" {
		t.Fatalf("issues = %v, want one dangling_edge", issues)
	}
	// The offending edge is dropped, the rest still renders.
	if snap.FindNode("n1") == nil || snap.FindNode("n3") == nil {
		t.Fatal("valid entities should survive a partial load")
	}
}

func TestCollapsePublishesAggregates(t *testing.T) {
	c := quietCoordinator(t)
	first := mustLoad(t, c, pipelineDoc())

	snap, err := c.CollapseContainer("c1", nil)
	if err != nil {
		t.Fatalf("CollapseContainer: %v", err)
	}
	if snap.Generation <= first.Generation {
		t.Fatalf("generation should advance, %d -> %d", first.Generation, snap.Generation)
	}

	box := snap.FindNode("c1")
	if box == nil || !box.Container || !box.Collapsed {
		t.Fatalf("c1 should render as a collapsed box, got %+v", box)
	}
	if snap.FindNode("n1") != nil {
		t.Fatal("children of a collapsed container should not render")
	}

	var agg *render.Edge
	for i := range snap.Edges {
		if snap.Edges[i].Kind == render.EdgeAggregated {
			agg = &snap.Edges[i]
		}
	}
	if agg == nil {
		t.Fatal("collapse should publish an aggregated edge")
	}
	if agg.Source != "c1" || agg.Target != "n3" || agg.Count != 2 {
		t.Fatalf("aggregate = %s->%s count %d, want c1->n3 count 2", agg.Source, agg.Target, agg.Count)
	}
}

func TestFailedOperationKeepsLastSnapshot(t *testing.T) {
	c := quietCoordinator(t)

	updates := 0
	c.OnUpdate(func(*render.Snapshot) { updates++ })

	good := mustLoad(t, c, pipelineDoc())

	_, err := c.CollapseContainer("ghost", nil)
	if !errors.Is(err, errors.ErrCodeInvalidContainer) {
		t.Fatalf("err = %v, want INVALID_CONTAINER_ID", err)
	}
	if c.LastSnapshot() != good {
		t.Fatal("a failed operation must not replace the last good snapshot")
	}
	if updates != 1 {
		t.Fatalf("update callback calls = %d, want 1", updates)
	}

	// State is untouched, so the next operation proceeds from the same base.
	snap, err := c.CollapseContainer("c1", nil)
	if err != nil {
		t.Fatalf("CollapseContainer after failure: %v", err)
	}
	if snap.FindNode("c1") == nil {
		t.Fatal("recovery operation should publish normally")
	}
}

func TestRelayoutPolicy(t *testing.T) {
	eng := &countingEngine{inner: layout.Layered{}}
	c := quietCoordinator(t, WithLayoutEngine(eng))

	mustLoad(t, c, pipelineDoc())
	if eng.calls != 1 {
		t.Fatalf("load should lay out, calls = %d", eng.calls)
	}

	if _, err := c.PerformSearch("ingest", nil); err != nil {
		t.Fatalf("PerformSearch: %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("search defaults to skipping layout, calls = %d", eng.calls)
	}

	if _, err := c.CollapseContainer("c1", &Options{RelayoutIDs: []string{}}); err != nil {
		t.Fatalf("CollapseContainer: %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("empty relayout list should skip layout, calls = %d", eng.calls)
	}

	if _, err := c.ExpandContainer("c1", nil); err != nil {
		t.Fatalf("ExpandContainer: %v", err)
	}
	if eng.calls != 2 {
		t.Fatalf("mutations default to full relayout, calls = %d", eng.calls)
	}

	if _, err := c.PerformSearch("transform", &Options{RelayoutIDs: []string{"n2"}}); err != nil {
		t.Fatalf("PerformSearch: %v", err)
	}
	if eng.calls != 3 {
		t.Fatalf("a non-empty relayout list should force layout, calls = %d", eng.calls)
	}
}

func TestFitViewCallback(t *testing.T) {
	c := quietCoordinator(t)

	var fits []FitViewOptions
	c.OnFitView(func(fv FitViewOptions) { fits = append(fits, fv) })

	mustLoad(t, c, pipelineDoc())
	if len(fits) != 0 {
		t.Fatal("fit view must be opt-in")
	}

	if _, err := c.Load(pipelineDoc(), &Options{FitView: true}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(fits) != 1 || fits[0] != DefaultFitViewOptions() {
		t.Fatalf("fits = %v, want one default fit", fits)
	}

	custom := FitViewOptions{Padding: 0.25, MaxZoom: 2, Duration: 50}
	if _, err := c.Load(pipelineDoc(), &Options{FitView: true, FitViewOptions: &custom}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(fits) != 2 || fits[1] != custom {
		t.Fatalf("fits = %v, want custom options passed through", fits)
	}
}

func TestSearchHighlightsReachSnapshot(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())

	snap, err := c.PerformSearch("ingest", nil)
	if err != nil {
		t.Fatalf("PerformSearch: %v", err)
	}
	if got := snap.FindNode("n1").Highlight; got != search.HighlightSearch {
		t.Fatalf("n1 highlight = %v, want search", got)
	}
	if got := snap.FindNode("n2").Highlight; got != search.HighlightNone {
		t.Fatalf("n2 highlight = %v, want none", got)
	}

	snap, err = c.ClearSearch(nil)
	if err != nil {
		t.Fatalf("ClearSearch: %v", err)
	}
	if got := snap.FindNode("n1").Highlight; got != search.HighlightNone {
		t.Fatalf("highlight should clear, got %v", got)
	}
}

func TestNavigateFocusIsOneShot(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())

	snap, err := c.NavigateToElement("n1", nil)
	if err != nil {
		t.Fatalf("NavigateToElement: %v", err)
	}
	if snap.FocusID != "n1" {
		t.Fatalf("FocusID = %q, want n1", snap.FocusID)
	}
	if got := snap.FindNode("n1").Highlight; got != search.HighlightNavigation {
		t.Fatalf("n1 highlight = %v, want navigation", got)
	}

	// The focus request is consumed; the highlight persists.
	snap, err = c.SetSelection("n2", nil)
	if err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if snap.FocusID != "" {
		t.Fatalf("FocusID = %q, want consumed", snap.FocusID)
	}
	if got := snap.FindNode("n1").Highlight; got != search.HighlightNavigation {
		t.Fatalf("n1 highlight = %v, want navigation to persist", got)
	}

	snap, err = c.ClearNavigation(nil)
	if err != nil {
		t.Fatalf("ClearNavigation: %v", err)
	}
	if got := snap.FindNode("n1").Highlight; got != search.HighlightNone {
		t.Fatalf("n1 highlight = %v, want cleared", got)
	}
}

func TestNavigateValidation(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())

	if _, err := c.NavigateToElement("ghost", nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if _, err := c.NavigateToElement("  ", nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestNavigateExpandsTreePath(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, nestedDoc())

	if _, err := c.NavigateToElement("n1", nil); err != nil {
		t.Fatalf("NavigateToElement: %v", err)
	}

	ix := c.SearchIndex()
	if !ix.IsTreeExpanded("root") || !ix.IsTreeExpanded("mid") {
		t.Fatal("navigation should expand the tree down to the target")
	}
	if ix.IsTreeExpanded("n1") {
		t.Fatal("the target itself is not an expandable tree entry")
	}
}

func TestSelectionLifecycle(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())

	snap, err := c.SetSelection("n1", nil)
	if err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if !snap.FindNode("n1").Selected {
		t.Fatal("n1 should render selected")
	}
	if c.Selection() != "n1" {
		t.Fatalf("Selection() = %q, want n1", c.Selection())
	}

	if _, err := c.SetSelection("ghost", nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if c.Selection() != "n1" {
		t.Fatal("failed selection must not clobber the current one")
	}

	snap, err = c.SetSelection("", nil)
	if err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	if snap.FindNode("n1").Selected {
		t.Fatal("selection should clear")
	}
}

func TestLoadResetsDerivedState(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())

	if _, err := c.PerformSearch("ingest", nil); err != nil {
		t.Fatalf("PerformSearch: %v", err)
	}
	if _, err := c.NavigateToElement("n1", nil); err != nil {
		t.Fatalf("NavigateToElement: %v", err)
	}
	if _, err := c.SetSelection("n2", nil); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}

	mustLoad(t, c, nestedDoc())

	ix := c.SearchIndex()
	if ix.Query() != "" {
		t.Fatalf("query = %q, want cleared", ix.Query())
	}
	if ix.NavigationID() != "" {
		t.Fatalf("navigation = %q, want cleared", ix.NavigationID())
	}
	if c.Selection() != "" {
		t.Fatalf("selection = %q, want cleared", c.Selection())
	}
}

func TestStructuredLogEvents(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithLogOutput(&buf), WithLogLevel(LogLevelInfo))

	mustLoad(t, c, pipelineDoc())
	if _, err := c.CollapseContainer("ghost", nil); err == nil {
		t.Fatal("expected collapse of unknown container to fail")
	}

	var events []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		events = append(events, ev)
	}

	byEvent := make(map[string]map[string]any)
	for _, ev := range events {
		byEvent[ev["event"].(string)] = ev
	}

	done, ok := byEvent["load_done"]
	if !ok {
		t.Fatalf("missing load_done event, got %v", events)
	}
	if done["component"] != "coordinator" || done["level"] != "info" {
		t.Fatalf("load_done fields = %v", done)
	}
	if _, ok := done["duration_ms"]; !ok {
		t.Fatal("load_done should carry a duration")
	}
	if done["visible_nodes"].(float64) != 3 {
		t.Fatalf("visible_nodes = %v, want 3", done["visible_nodes"])
	}

	failed, ok := byEvent["collapse_container_failed"]
	if !ok {
		t.Fatalf("missing collapse_container_failed event, got %v", events)
	}
	if failed["level"] != "error" || failed["code"] != "INVALID_CONTAINER_ID" {
		t.Fatalf("failure fields = %v", failed)
	}
}

func TestLogLevelFiltersEvents(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithLogOutput(&buf), WithLogLevel(LogLevelNone))

	mustLoad(t, c, pipelineDoc())
	if buf.Len() != 0 {
		t.Fatalf("level none should emit nothing, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"none":   LogLevelNone,
		"off":    LogLevelNone,
		"ERROR":  LogLevelError,
		" warn ": LogLevelWarn,
		"info":   LogLevelInfo,
		"debug":  LogLevelDebug,
		"bogus":  LogLevelWarn,
		"":       LogLevelWarn,
	}
	for raw, want := range cases {
		if got := ParseLogLevel(raw); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestDebugAuditRunsClean(t *testing.T) {
	debug.SetEnabled(true)
	defer debug.SetEnabled(false)

	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())
	if _, err := c.CollapseContainer("c1", nil); err != nil {
		t.Fatalf("collapse with audit enabled: %v", err)
	}
	if _, err := c.ExpandContainer("c1", nil); err != nil {
		t.Fatalf("expand with audit enabled: %v", err)
	}
}

func TestConcurrentOperationsSerialize(t *testing.T) {
	c := quietCoordinator(t)
	mustLoad(t, c, pipelineDoc())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = c.CollapseContainer("c1", nil)
				_, _ = c.ExpandContainer("c1", nil)
			}
		}()
	}
	wg.Wait()

	if err := c.handle.CheckCoverage(); err != nil {
		t.Fatalf("coverage audit after concurrent operations: %v", err)
	}
	snap := c.LastSnapshot()
	if snap == nil {
		t.Fatal("a snapshot should be published")
	}
	// Whatever interleaving won, the snapshot matches the final state.
	if snap.Generation != c.view.Generation() {
		t.Fatalf("snapshot generation %d lags view generation %d", snap.Generation, c.view.Generation())
	}
}
