// Package search maintains the text-match index and highlight state for the
// hierarchy tree and the rendered graph.
//
// The index never mutates the store it reads from. Highlight sets derived
// from a search are recomputed lazily whenever the underlying store
// generation moves, so a collapse after a search cannot leave stale
// highlights behind.
package search

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// Result is one search hit. MatchIndices are rune-index [start, end) pairs
// into Label; HierarchyPath lists ancestor containers outermost first.
type Result struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Type          string   `json:"type"`
	MatchIndices  [][2]int `json:"matchIndices"`
	HierarchyPath []string `json:"hierarchyPath"`
	Confidence    float64  `json:"confidence"`
}

// Element types reported in results.
const (
	TypeNode      = "node"
	TypeContainer = "container"
)

// HighlightKind is the combined highlight class of one element in one
// context (tree or graph).
type HighlightKind int

const (
	HighlightNone HighlightKind = iota
	HighlightSearch
	HighlightNavigation
	HighlightBoth
)

func (k HighlightKind) String() string {
	switch k {
	case HighlightSearch:
		return "search"
	case HighlightNavigation:
		return "navigation"
	case HighlightBoth:
		return "both"
	default:
		return "none"
	}
}

// Index owns search results, highlight sets, the tree-expansion state and
// the navigation selection. Safe for concurrent use.
type Index struct {
	mu   sync.Mutex
	view *vizstate.View

	query   string
	results []Result

	// derived from results at the recorded store generation
	derivedAt uint64
	matched   map[string]struct{}
	treeSet   map[string]struct{}
	graphSet  map[string]struct{}

	treeExpanded map[string]bool

	navigationID string
	focusPending bool
}

// New builds an index over the given read view.
func New(view *vizstate.View) *Index {
	return &Index{
		view:         view,
		matched:      map[string]struct{}{},
		treeSet:      map[string]struct{}{},
		graphSet:     map[string]struct{}{},
		treeExpanded: map[string]bool{},
	}
}

// PerformSearch matches the query case-insensitively against node and
// container labels, regardless of visibility. An empty query clears the
// current results and is not an error.
func (ix *Index) PerformSearch(query string) []Result {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.query = query
	ix.results = nil
	if strings.TrimSpace(query) == "" {
		ix.query = ""
		ix.deriveLocked()
		return nil
	}

	q := lowerRunes([]rune(query))
	for _, n := range ix.view.AllNodes() {
		if r, ok := match(n.ID, n.Label, TypeNode, q); ok {
			r.HierarchyPath = ix.view.HierarchyPath(n.ID)
			ix.results = append(ix.results, r)
		}
	}
	for _, c := range ix.view.AllContainers() {
		if r, ok := match(c.ID, c.Label, TypeContainer, q); ok {
			r.HierarchyPath = ix.view.HierarchyPath(c.ID)
			ix.results = append(ix.results, r)
		}
	}

	sort.SliceStable(ix.results, func(i, j int) bool {
		a, b := ix.results[i], ix.results[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.ID < b.ID
	})

	ix.deriveLocked()
	return ix.copyResultsLocked()
}

// ClearSearch drops the query, results and search highlight sets.
func (ix *Index) ClearSearch() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.query = ""
	ix.results = nil
	ix.deriveLocked()
}

// Query returns the active query, empty when no search is live.
func (ix *Index) Query() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.query
}

// Results returns a copy of the current ordered results.
func (ix *Index) Results() []Result {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.copyResultsLocked()
}

func (ix *Index) copyResultsLocked() []Result {
	if ix.results == nil {
		return nil
	}
	out := make([]Result, len(ix.results))
	copy(out, ix.results)
	return out
}

// deriveLocked recomputes the matched/tree/graph sets from the current
// results against the store's current visibility.
func (ix *Index) deriveLocked() {
	ix.derivedAt = ix.view.Generation()
	ix.matched = make(map[string]struct{}, len(ix.results))
	ix.treeSet = make(map[string]struct{}, len(ix.results))
	ix.graphSet = make(map[string]struct{}, len(ix.results))

	for _, r := range ix.results {
		ix.matched[r.ID] = struct{}{}
	}
	for _, r := range ix.results {
		ix.treeSet[r.ID] = struct{}{}
		hidden, known := ix.view.IsHidden(r.ID)
		if !known {
			continue
		}
		if !hidden {
			ix.graphSet[r.ID] = struct{}{}
			continue
		}
		// Fully hidden match: the nearest visible ancestor stands in, but
		// only in the tree, and only when it is not itself a match.
		anc, err := ix.view.ResolveVisible(r.ID)
		if err != nil || anc == r.ID {
			continue
		}
		if _, selfMatch := ix.matched[anc]; !selfMatch {
			ix.treeSet[anc] = struct{}{}
		}
	}
}

// refreshLocked re-derives highlight sets when the store moved underneath.
func (ix *Index) refreshLocked() {
	if ix.derivedAt != ix.view.Generation() {
		ix.deriveLocked()
	}
}

// TreeHighlights returns the ids highlighted in the hierarchy tree.
func (ix *Index) TreeHighlights() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshLocked()
	return sortedKeys(ix.treeSet)
}

// GraphHighlights returns the ids highlighted in the rendered graph.
func (ix *Index) GraphHighlights() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshLocked()
	return sortedKeys(ix.graphSet)
}

// TreeHighlight reports the combined highlight kind of an element in the
// tree context.
func (ix *Index) TreeHighlight(id string) HighlightKind {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshLocked()
	_, s := ix.treeSet[id]
	return combine(s, ix.navigationID == id)
}

// GraphHighlight reports the combined highlight kind of an element in the
// graph context. Navigation only shows in the graph while the element is
// visible.
func (ix *Index) GraphHighlight(id string) HighlightKind {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshLocked()
	_, s := ix.graphSet[id]
	nav := ix.navigationID == id
	if nav {
		if hidden, known := ix.view.IsHidden(id); known && hidden {
			nav = false
		}
	}
	return combine(s, nav)
}

func combine(search, navigation bool) HighlightKind {
	switch {
	case search && navigation:
		return HighlightBoth
	case search:
		return HighlightSearch
	case navigation:
		return HighlightNavigation
	default:
		return HighlightNone
	}
}

// ExpandTreeToShowMatches marks every ancestor on each result's hierarchy
// path expanded in the tree-expansion state. The flags are independent of
// container Collapsed state and drive only the tree panel.
func (ix *Index) ExpandTreeToShowMatches(results []Result) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range results {
		for _, anc := range r.HierarchyPath {
			ix.treeExpanded[anc] = true
		}
	}
}

// IsTreeExpanded reports the tree-panel expansion flag for a container.
// Unset means collapsed in the tree.
func (ix *Index) IsTreeExpanded(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.treeExpanded[id]
}

// SetTreeExpanded sets the tree-panel expansion flag for a container.
func (ix *Index) SetTreeExpanded(id string, expanded bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.treeExpanded[id] = expanded
}

// ToggleTreeExpanded flips the tree-panel expansion flag for a container.
func (ix *Index) ToggleTreeExpanded(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.treeExpanded[id] = !ix.treeExpanded[id]
}

// NavigateToElement selects a single element and arms a one-shot viewport
// focus request. A second call replaces the selection.
func (ix *Index) NavigateToElement(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, node := ix.view.Node(id); !node {
		if _, container := ix.view.Container(id); !container {
			return errors.New(errors.ErrCodeNotFound, "cannot navigate to unknown element %q", id)
		}
	}
	ix.navigationID = id
	ix.focusPending = true
	return nil
}

// ClearNavigation drops the selection and any pending focus request.
func (ix *Index) ClearNavigation() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.navigationID = ""
	ix.focusPending = false
}

// NavigationID returns the current selection, empty when none.
func (ix *Index) NavigationID() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.navigationID
}

// ConsumeFocusRequest hands out the pending viewport-focus target at most
// once per navigation.
func (ix *Index) ConsumeFocusRequest() (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.focusPending {
		return "", false
	}
	ix.focusPending = false
	return ix.navigationID, true
}

// match scores one label against the lowered query runes.
func match(id, label, typ string, q []rune) (Result, bool) {
	runes := []rune(label)
	lowered := lowerRunes(runes)
	indices := findMatches(lowered, q)
	if len(indices) == 0 {
		return Result{}, false
	}
	return Result{
		ID:           id,
		Label:        label,
		Type:         typ,
		MatchIndices: indices,
		Confidence:   confidence(lowered, q, indices),
	}, true
}

// lowerRunes lowers rune by rune so indices stay aligned with the original
// label even for characters whose string lowering changes length.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// findMatches collects non-overlapping occurrences as rune [start, end)
// pairs.
func findMatches(label, q []rune) [][2]int {
	if len(q) == 0 || len(q) > len(label) {
		return nil
	}
	var out [][2]int
	for i := 0; i+len(q) <= len(label); {
		if runesEqual(label[i:i+len(q)], q) {
			out = append(out, [2]int{i, i + len(q)})
			i += len(q)
			continue
		}
		i++
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// confidence ranks whole-label above prefix above word-boundary above plain
// substring matches.
func confidence(label, q []rune, indices [][2]int) float64 {
	if len(label) == len(q) {
		return 1.0
	}
	if indices[0][0] == 0 {
		return 0.9
	}
	for _, m := range indices {
		prev := label[m[0]-1]
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return 0.75
		}
	}
	return 0.6
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
