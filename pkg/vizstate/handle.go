package vizstate

import (
	"sort"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// Load replaces the state with the document's entities. Structural problems
// are returned as validation issues, not errors: the offending entities are
// dropped and the rest of the document loads, falling back to a partial or
// empty graph instead of refusing to render.
func (h *Handle) Load(doc *model.Document) ([]model.ValidationIssue, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document is nil")
	}
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.loadLocked(doc), nil
}

// CollapseContainer collapses one container. Idempotent when already
// collapsed; INVALID_CONTAINER_ID for unknown ids; HIDDEN_ANCESTOR when the
// container is hidden inside a collapsed ancestor.
func (h *Handle) CollapseContainer(id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "container id is empty")
	}
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.collapseLocked(id)
}

// ExpandContainer expands one container. Idempotent when already expanded;
// INVALID_CONTAINER_ID for unknown ids; HIDDEN_ANCESTOR when an ancestor is
// still collapsed, because expanding something inside a collapsed box has no
// meaningful result.
func (h *Handle) ExpandContainer(id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "container id is empty")
	}
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.expandLocked(id)
}

// CollapseAllContainers collapses the given containers in list order, or
// every container innermost-first when ids is nil. The whole sequence runs
// under one write lock, so no intermediate state is observable. The
// innermost-first default leaves every container's own collapsed flag set,
// so expanding an outer container later reveals collapsed boxes, not an
// expanded subtree.
func (h *Handle) CollapseAllContainers(ids []string) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()

	if ids == nil {
		ids = h.c.containersByDepthLocked(false)
	}
	for _, id := range ids {
		if err := h.c.collapseLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// ExpandAllContainers expands the given containers in list order, or every
// container outermost-first when ids is nil, so ancestors are revealed
// before their descendants are touched. Runs under one write lock.
func (h *Handle) ExpandAllContainers(ids []string) error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()

	if ids == nil {
		ids = h.c.containersByDepthLocked(true)
	}
	for _, id := range ids {
		if err := h.c.expandLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// containersByDepthLocked returns all container ids ordered by nesting
// depth. Ascending gives outermost-first, descending innermost-first; ties
// keep store insertion order.
func (c *core) containersByDepthLocked(ascending bool) []string {
	ids := append([]string(nil), c.containerOrder...)
	depth := make(map[string]int, len(ids))
	for _, id := range ids {
		depth[id] = c.depthLocked(id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if ascending {
			return depth[ids[i]] < depth[ids[j]]
		}
		return depth[ids[i]] > depth[ids[j]]
	})
	return ids
}

// ApplyLayout writes positions and container sizes produced by a layout
// engine back into the store, so later operations that skip layout reuse
// them. Ids the store does not know are ignored.
func (h *Handle) ApplyLayout(positions map[string]model.Position, sizes map[string]model.Size) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()

	for id, pos := range positions {
		p := pos
		if n, ok := h.c.nodes[id]; ok {
			n.Position = &p
			continue
		}
		if ct, ok := h.c.containers[id]; ok {
			ct.Position = &p
		}
	}
	for id, size := range sizes {
		if ct, ok := h.c.containers[id]; ok {
			s := size
			ct.Size = &s
		}
	}
	h.c.generation++
}

// CheckCoverage audits the edge-coverage invariant from scratch and returns
// the first discrepancy. Cheap enough for tests and debug builds to run
// after every operation.
func (h *Handle) CheckCoverage() error {
	h.c.mu.RLock()
	defer h.c.mu.RUnlock()
	return h.c.checkCoverageLocked()
}
