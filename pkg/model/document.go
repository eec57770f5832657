package model

import "fmt"

// Document is the input shape produced by the loader and the datasources.
// Hierarchy comes either as an explicit container list or as one or more
// hierarchy choices with per-choice node assignments; the loader flattens the
// selected choice into Containers before the document reaches the state
// engine.
type Document struct {
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	Containers []Container `json:"containers,omitempty"`

	HierarchyChoices []HierarchyChoice `json:"hierarchyChoices,omitempty"`
	// NodeAssignments maps hierarchy choice id -> node id -> container id.
	NodeAssignments map[string]map[string]string `json:"nodeAssignments,omitempty"`
}

// HierarchyChoice is one way of grouping the document's nodes.
type HierarchyChoice struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Containers []ChoiceContainer `json:"containers"`
}

// ChoiceContainer declares a container within a hierarchy choice. Parent
// references another container of the same choice; empty means top level.
type ChoiceContainer struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Parent string `json:"parent,omitempty"`
}

// Counts returns the entity totals, handy for status lines and source
// validation summaries.
func (d *Document) Counts() (nodes, edges, containers int) {
	return len(d.Nodes), len(d.Edges), len(d.Containers)
}

// Validation issue kinds.
const (
	IssueMissingID      = "missing_id"
	IssueDuplicateID    = "duplicate_id"
	IssueDanglingEdge   = "dangling_edge"
	IssueChildConflict  = "child_conflict"
	IssueMissingChild   = "missing_child"
	IssueHierarchyCycle = "hierarchy_cycle"
	IssueBadShape       = "bad_shape"
	IssueEmptyDocument  = "empty_document"
	IssueOversizedFile  = "oversized_file"
)

// ValidationIssue describes one recoverable problem found while loading a
// document. Issues are collected and reported as a list; the offending
// entities are dropped and the remainder of the document still loads.
type ValidationIssue struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entityId,omitempty"`
	Field    string `json:"field,omitempty"`
	File     string `json:"file,omitempty"`
	Message  string `json:"message"`
}

func (v ValidationIssue) String() string {
	where := v.File
	if where != "" && v.EntityID != "" {
		where += ": "
	}
	if v.EntityID != "" {
		where += v.EntityID
	}
	if where == "" {
		return fmt.Sprintf("%s: %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("%s (%s): %s", v.Kind, where, v.Message)
}
