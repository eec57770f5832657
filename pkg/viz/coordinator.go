// Package viz wires the visibility engine, search index, layout engines,
// and render bridge into one serialized pipeline. UI layers and exporters
// talk to the Coordinator; only the coordinator holds the store's mutating
// handle, so every visible-state change flows through the same
// mutate-layout-render sequence.
package viz

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/loomview/pkg/debug"
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/layout"
	"github.com/vanderheijden86/loomview/pkg/metrics"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/render"
	"github.com/vanderheijden86/loomview/pkg/search"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// LogLevel controls coordinator log verbosity.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "none"
	}
}

// ParseLogLevel maps a user-supplied level name to a LogLevel. Unknown
// values fall back to warn.
func ParseLogLevel(raw string) LogLevel {
	value := strings.TrimSpace(strings.ToLower(raw))
	switch value {
	case "none", "off", "0":
		return LogLevelNone
	case "error", "err", "1":
		return LogLevelError
	case "warn", "warning", "2":
		return LogLevelWarn
	case "info", "3":
		return LogLevelInfo
	case "debug", "4":
		return LogLevelDebug
	default:
		return LogLevelWarn
	}
}

// FitViewOptions tunes the viewport adjustment a frontend performs after an
// operation that requested it.
type FitViewOptions struct {
	// Padding is the fraction of the viewport left free around the content.
	Padding float64 `json:"padding"`
	// MaxZoom caps how far the viewport may zoom in; 0 means no cap.
	MaxZoom float64 `json:"maxZoom,omitempty"`
	// Duration is the animation time in milliseconds; 0 snaps instantly.
	Duration int `json:"duration,omitempty"`
}

// DefaultFitViewOptions returns the options used when a caller requests a
// fit view without supplying any.
func DefaultFitViewOptions() FitViewOptions {
	return FitViewOptions{Padding: 0.1, Duration: 200}
}

// Options is the per-operation bag accepted by every coordinator operation.
// A nil *Options means all defaults.
type Options struct {
	// FitView requests the fit-view callback after the update callback.
	FitView bool
	// FitViewOptions overrides DefaultFitViewOptions when FitView is set.
	FitViewOptions *FitViewOptions
	// RelayoutIDs steers the layout step: nil means the operation's default
	// (full relayout for mutations, skip for search and navigation), an
	// empty non-nil slice skips layout entirely, and a non-empty list
	// forces a full relayout.
	RelayoutIDs []string
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithLayoutEngine pins the layout engine instead of selecting one per
// snapshot.
func WithLayoutEngine(e layout.Engine) Option {
	return func(c *Coordinator) { c.engine = e }
}

// WithLayoutConfig overrides the default layout dimensions.
func WithLayoutConfig(cfg layout.Config) Option {
	return func(c *Coordinator) { c.cfg = cfg }
}

// WithLogLevel overrides the LV_LOG_LEVEL environment default.
func WithLogLevel(l LogLevel) Option {
	return func(c *Coordinator) { c.logLevel = l }
}

// WithLogOutput redirects structured log events from the standard logger to
// the given writer, one JSON object per line.
func WithLogOutput(w io.Writer) Option {
	return func(c *Coordinator) { c.logOut = w }
}

// Coordinator serializes mutations against the visualization state and
// derives one render snapshot per completed operation. Operations are safe
// to issue from multiple goroutines; they execute one at a time and publish
// in completion order.
type Coordinator struct {
	mu     sync.Mutex
	view   *vizstate.View
	handle *vizstate.Handle
	index  *search.Index

	engine layout.Engine // nil selects per snapshot
	cfg    layout.Config

	selection string

	last atomic.Pointer[render.Snapshot]

	onUpdate     func(*render.Snapshot)
	onFitView    func(FitViewOptions)
	onValidation func([]model.ValidationIssue)

	logLevel LogLevel
	logOut   io.Writer
}

// New builds a coordinator around a fresh, empty store.
func New(opts ...Option) *Coordinator {
	view, handle := vizstate.New()
	c := &Coordinator{
		view:     view,
		handle:   handle,
		index:    search.New(view),
		cfg:      layout.DefaultConfig(),
		logLevel: ParseLogLevel(os.Getenv("LV_LOG_LEVEL")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUpdate registers the callback invoked with each published snapshot.
// Callbacks run on the operation's goroutine while the coordinator lock is
// held; they must not call back into coordinator operations.
func (c *Coordinator) OnUpdate(fn func(*render.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// OnFitView registers the callback invoked after an operation whose options
// requested a fit view.
func (c *Coordinator) OnFitView(fn func(FitViewOptions)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFitView = fn
}

// OnValidation registers the callback that receives the validation issues
// collected by each Load, including an empty list for a clean document.
func (c *Coordinator) OnValidation(fn func([]model.ValidationIssue)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onValidation = fn
}

// View exposes the read-only state surface. Safe from any goroutine.
func (c *Coordinator) View() *vizstate.View {
	return c.view
}

// SearchIndex exposes search results, highlight queries, and the tree
// expansion state. Mutating operations still go through the coordinator.
func (c *Coordinator) SearchIndex() *search.Index {
	return c.index
}

// LastSnapshot returns the most recently published render snapshot, nil
// before the first completed operation.
func (c *Coordinator) LastSnapshot() *render.Snapshot {
	return c.last.Load()
}

// LayoutConfig returns the dimensions the coordinator lays out with.
func (c *Coordinator) LayoutConfig() layout.Config {
	return c.cfg
}

// Load replaces the current graph with the document's entities. Validation
// issues are reported through the OnValidation callback, not as an error;
// search, navigation, and selection state are cleared.
func (c *Coordinator) Load(doc *model.Document, opts *Options) (*render.Snapshot, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "load requires a document")
	}
	fields := map[string]any{
		"nodes":      len(doc.Nodes),
		"edges":      len(doc.Edges),
		"containers": len(doc.Containers),
	}
	defer metrics.Timer(metrics.DocumentLoad)()
	return c.run("load", fields, opts, true, func() error {
		issues, err := c.handle.Load(doc)
		if err != nil {
			return err
		}
		c.index.ClearSearch()
		c.index.ClearNavigation()
		c.selection = ""
		if c.onValidation != nil {
			c.onValidation(issues)
		}
		return nil
	})
}

// CollapseContainer collapses one container and aggregates the edges that
// cross its boundary.
func (c *Coordinator) CollapseContainer(id string, opts *Options) (*render.Snapshot, error) {
	defer metrics.Timer(metrics.CollapseExpand)()
	return c.run("collapse_container", map[string]any{"container": id}, opts, true, func() error {
		return c.handle.CollapseContainer(id)
	})
}

// ExpandContainer expands one container and re-aggregates its crossing
// edges against the remaining collapsed boundaries.
func (c *Coordinator) ExpandContainer(id string, opts *Options) (*render.Snapshot, error) {
	defer metrics.Timer(metrics.CollapseExpand)()
	return c.run("expand_container", map[string]any{"container": id}, opts, true, func() error {
		return c.handle.ExpandContainer(id)
	})
}

// CollapseAllContainers collapses the listed containers, or every container
// innermost-first when ids is nil.
func (c *Coordinator) CollapseAllContainers(ids []string, opts *Options) (*render.Snapshot, error) {
	defer metrics.Timer(metrics.CollapseExpand)()
	return c.run("collapse_all", map[string]any{"requested": len(ids)}, opts, true, func() error {
		return c.handle.CollapseAllContainers(ids)
	})
}

// ExpandAllContainers expands the listed containers, or every container
// outermost-first when ids is nil.
func (c *Coordinator) ExpandAllContainers(ids []string, opts *Options) (*render.Snapshot, error) {
	defer metrics.Timer(metrics.CollapseExpand)()
	return c.run("expand_all", map[string]any{"requested": len(ids)}, opts, true, func() error {
		return c.handle.ExpandAllContainers(ids)
	})
}

// PerformSearch runs a query, expands the tree to reveal the matches, and
// publishes a snapshot carrying the resulting highlights. Layout is skipped
// by default since positions do not change.
func (c *Coordinator) PerformSearch(query string, opts *Options) (*render.Snapshot, error) {
	defer metrics.Timer(metrics.SearchQuery)()
	return c.run("perform_search", map[string]any{"query": query}, opts, false, func() error {
		results := c.index.PerformSearch(query)
		c.index.ExpandTreeToShowMatches(results)
		return nil
	})
}

// ClearSearch drops the query and all search highlights.
func (c *Coordinator) ClearSearch(opts *Options) (*render.Snapshot, error) {
	return c.run("clear_search", nil, opts, false, func() error {
		c.index.ClearSearch()
		return nil
	})
}

// NavigateToElement selects an element, expands the tree down to it, and
// arms a one-shot viewport focus consumed by the published snapshot.
func (c *Coordinator) NavigateToElement(id string, opts *Options) (*render.Snapshot, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "navigate requires an element id")
	}
	return c.run("navigate_to_element", map[string]any{"element": id}, opts, false, func() error {
		if err := c.index.NavigateToElement(id); err != nil {
			return err
		}
		for _, ancestor := range c.view.HierarchyPath(id) {
			c.index.SetTreeExpanded(ancestor, true)
		}
		return nil
	})
}

// ClearNavigation drops the navigation selection and any pending focus.
func (c *Coordinator) ClearNavigation(opts *Options) (*render.Snapshot, error) {
	return c.run("clear_navigation", nil, opts, false, func() error {
		c.index.ClearNavigation()
		return nil
	})
}

// SetSelection marks one element as selected in published snapshots. An
// empty id clears the selection; unknown ids are rejected.
func (c *Coordinator) SetSelection(id string, opts *Options) (*render.Snapshot, error) {
	return c.run("set_selection", map[string]any{"element": id}, opts, false, func() error {
		if id != "" {
			if _, known := c.view.IsHidden(id); !known {
				return errors.New(errors.ErrCodeNotFound, "cannot select unknown element %q", id)
			}
		}
		c.selection = id
		return nil
	})
}

// Selection returns the currently selected element id, empty when none.
func (c *Coordinator) Selection() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// relayoutWanted resolves the layout policy for one operation.
func relayoutWanted(opts *Options, defaultFull bool) bool {
	if opts == nil || opts.RelayoutIDs == nil {
		return defaultFull
	}
	return len(opts.RelayoutIDs) > 0
}

// run is the shared pipeline: mutate, layout, render, publish. The mutation
// is applied before the dependent steps, so a layout or render failure
// leaves the visibility state intact and the last good snapshot current.
func (c *Coordinator) run(op string, fields map[string]any, opts *Options, defaultRelayout bool, mutate func() error) (*render.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	c.logEvent(LogLevelDebug, op+"_start", fields)

	if err := mutate(); err != nil {
		c.logEvent(LogLevelError, op+"_failed", failFields(fields, start, err))
		return nil, err
	}

	if debug.Enabled() {
		stop := metrics.Timer(metrics.CoverageAudit)
		err := c.handle.CheckCoverage()
		stop()
		if err != nil {
			c.logEvent(LogLevelError, op+"_failed", failFields(fields, start, err))
			return nil, err
		}
	}

	snap, err := c.refreshLocked(relayoutWanted(opts, defaultRelayout))
	if err != nil {
		c.logEvent(LogLevelError, op+"_failed", failFields(fields, start, err))
		return nil, err
	}

	done := map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"generation":  snap.Generation,
	}
	for k, v := range fields {
		done[k] = v
	}
	counts := c.view.Counts()
	done["visible_nodes"] = counts.VisibleNodes
	done["visible_edges"] = counts.VisibleEdges
	done["visible_containers"] = counts.VisibleContainers
	done["hyper_edges"] = counts.HyperEdges
	c.logEvent(LogLevelInfo, op+"_done", done)

	c.publishLocked(snap, opts)
	return snap, nil
}

// refreshLocked runs the layout step if wanted, then builds the render
// snapshot from the resulting state.
func (c *Coordinator) refreshLocked(relayout bool) (*render.Snapshot, error) {
	if relayout {
		st := c.view.Snapshot()
		eng := c.engine
		if eng == nil {
			eng = layout.SelectEngine(st)
		}
		stop := metrics.Timer(metrics.LayoutCompute)
		res, err := eng.Layout(st, c.cfg)
		stop()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeLayout, err, "%s layout failed", eng.Name())
		}
		c.handle.ApplyLayout(res.Positions, res.Sizes)
	}

	st := c.view.Snapshot()

	highlights := make(map[string]search.HighlightKind)
	for _, n := range st.Nodes {
		if k := c.index.GraphHighlight(n.ID); k != search.HighlightNone {
			highlights[n.ID] = k
		}
	}
	for _, ct := range st.Containers {
		if k := c.index.GraphHighlight(ct.ID); k != search.HighlightNone {
			highlights[ct.ID] = k
		}
	}

	var focus string
	if id, ok := c.index.ConsumeFocusRequest(); ok {
		focus = id
	}

	stop := metrics.Timer(metrics.RenderBuild)
	snap, err := render.Build(render.Input{
		State:      st,
		Highlights: highlights,
		Selection:  c.selection,
		FocusID:    focus,
		NodeWidth:  c.cfg.NodeWidth,
		NodeHeight: c.cfg.NodeHeight,
	})
	stop()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render failed")
	}
	return snap, nil
}

// publishLocked swaps in the new snapshot and fires the callbacks.
func (c *Coordinator) publishLocked(snap *render.Snapshot, opts *Options) {
	c.last.Store(snap)
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
	if opts != nil && opts.FitView && c.onFitView != nil {
		fv := DefaultFitViewOptions()
		if opts.FitViewOptions != nil {
			fv = *opts.FitViewOptions
		}
		c.onFitView(fv)
	}
}

func failFields(fields map[string]any, start time.Time, err error) map[string]any {
	out := map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       err.Error(),
		"code":        string(errors.GetCode(err)),
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// logEvent emits one structured JSON log line for an operation stage.
func (c *Coordinator) logEvent(level LogLevel, event string, fields map[string]any) {
	if level == LogLevelNone || c.logLevel == LogLevelNone || level > c.logLevel {
		return
	}

	payload := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level.String(),
		"component": "coordinator",
		"event":     event,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("coordinator: failed to marshal log event %s: %v", event, err)
		return
	}

	if c.logOut != nil {
		_, _ = c.logOut.Write(append(b, '\n'))
		return
	}
	log.Printf("%s", b)
}
