package vizstate

import (
	"github.com/vanderheijden86/loomview/pkg/errors"
)

// markSubtreeHiddenLocked hides every descendant of the container, nodes and
// containers alike. The container itself stays visible; a collapsed box is
// still drawn. Iterative traversal, deep nesting is common in real documents.
func (c *core) markSubtreeHiddenLocked(containerID string) {
	stack := append([]string(nil), c.containers[containerID].Children...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n, ok := c.nodes[id]; ok {
			n.Hidden = true
			continue
		}
		if ct, ok := c.containers[id]; ok {
			ct.Hidden = true
			stack = append(stack, ct.Children...)
		}
	}
}

// unhideSubtreeLocked reveals the container's descendants, stopping at any
// child container that is itself still collapsed: the collapsed child
// becomes visible again but its own descendants stay hidden.
func (c *core) unhideSubtreeLocked(containerID string) {
	stack := append([]string(nil), c.containers[containerID].Children...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n, ok := c.nodes[id]; ok {
			n.Hidden = false
			continue
		}
		if ct, ok := c.containers[id]; ok {
			ct.Hidden = false
			if !ct.Collapsed {
				stack = append(stack, ct.Children...)
			}
		}
	}
}

// resolveVisibleLocked walks the parent chain upward from an endpoint until
// it reaches a visible entity and returns its id. For a visible endpoint this
// is the identity; for a hidden one it is the nearest visible ancestor, which
// is necessarily a collapsed container. An unknown id or a hidden entity
// with no visible ancestor is a data-integrity defect, reported instead of
// being papered over.
func (c *core) resolveVisibleLocked(id string) (string, error) {
	cur := id
	for {
		hidden, known := c.entityHidden(cur)
		if !known {
			return "", errors.New(errors.ErrCodeInvariant,
				"cannot resolve endpoint %q: entity %q does not exist", id, cur)
		}
		if !hidden {
			return cur, nil
		}
		parent, ok := c.parent[cur]
		if !ok {
			return "", errors.New(errors.ErrCodeInvariant,
				"hidden entity %q has no visible ancestor (resolving %q)", cur, id)
		}
		cur = parent
	}
}

// depthLocked counts the strict ancestors of an entity. Top level is 0.
func (c *core) depthLocked(id string) int {
	depth := 0
	cur := id
	for {
		parent, ok := c.parent[cur]
		if !ok {
			return depth
		}
		depth++
		cur = parent
	}
}

// hierarchyPathLocked returns the container chain above an entity,
// outermost first, excluding the entity itself.
func (c *core) hierarchyPathLocked(id string) []string {
	var rev []string
	cur := id
	for {
		parent, ok := c.parent[cur]
		if !ok {
			break
		}
		rev = append(rev, parent)
		cur = parent
	}
	if len(rev) == 0 {
		return nil
	}
	path := make([]string, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}
