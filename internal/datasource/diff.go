package datasource

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/loader"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// SourceDiff represents differences between two graph sources
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string
	// SourceB is the path of the second source
	SourceB string
	// MissingInA contains entity IDs present in B but not in A
	MissingInA []string
	// MissingInB contains entity IDs present in A but not in B
	MissingInB []string
	// LabelMismatch contains entities whose labels differ between sources.
	// For edges the compared label is "source -> target", so re-pointed
	// edges surface here as well.
	LabelMismatch []LabelDifference
	// CountA is the number of entities in source A
	CountA int
	// CountB is the number of entities in source B
	CountB int
}

// LabelDifference represents a label mismatch for a single entity
type LabelDifference struct {
	ID     string `json:"id"`
	LabelA string `json:"label_a"`
	LabelB string `json:"label_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.LabelMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d entities each)", d.CountA)
	}

	summary := fmt.Sprintf("Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}

	if len(d.MissingInA) > 0 {
		summary += fmt.Sprintf("  - %d entities in %s but not %s\n", len(d.MissingInA), d.SourceB, d.SourceA)
		if len(d.MissingInA) <= 5 {
			for _, id := range d.MissingInA {
				summary += fmt.Sprintf("    - %s\n", id)
			}
		}
	}

	if len(d.MissingInB) > 0 {
		summary += fmt.Sprintf("  - %d entities in %s but not %s\n", len(d.MissingInB), d.SourceA, d.SourceB)
		if len(d.MissingInB) <= 5 {
			for _, id := range d.MissingInB {
				summary += fmt.Sprintf("    - %s\n", id)
			}
		}
	}

	if len(d.LabelMismatch) > 0 {
		summary += fmt.Sprintf("  - %d entities with different labels\n", len(d.LabelMismatch))
		if len(d.LabelMismatch) <= 5 {
			for _, m := range d.LabelMismatch {
				summary += fmt.Sprintf("    - %s: %q vs %q\n", m.ID, m.LabelA, m.LabelB)
			}
		}
	}

	return summary
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// CompareLabels enables label comparison; when false only entity
	// presence is checked
	CompareLabels bool
	// MaxDifferences limits the number of differences tracked per kind
	// (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		CompareLabels:  true,
		MaxDifferences: 100,
	}
}

// entityLabel is the comparable identity of one graph entity.
type entityLabel struct {
	kind  string
	label string
}

// indexDocument flattens a document into one id-keyed map covering nodes,
// edges, and containers. Edge labels encode the endpoints so endpoint
// changes compare as label changes.
func indexDocument(doc *model.Document) map[string]entityLabel {
	index := make(map[string]entityLabel, len(doc.Nodes)+len(doc.Edges)+len(doc.Containers))
	for _, n := range doc.Nodes {
		index[n.ID] = entityLabel{kind: "node", label: n.Label}
	}
	for _, e := range doc.Edges {
		index[e.ID] = entityLabel{kind: "edge", label: e.Source + " -> " + e.Target}
	}
	for _, c := range doc.Containers {
		index[c.ID] = entityLabel{kind: "container", label: c.Label}
	}
	return index
}

// DetectInconsistencies compares two documents and returns differences.
// Results are sorted by entity ID so output is stable across runs.
func DetectInconsistencies(docA, docB *model.Document, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}

	mapA := indexDocument(docA)
	mapB := indexDocument(docB)
	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	idsA := make([]string, 0, len(mapA))
	for id := range mapA {
		idsA = append(idsA, id)
	}
	sort.Strings(idsA)

	idsB := make([]string, 0, len(mapB))
	for id := range mapB {
		idsB = append(idsB, id)
	}
	sort.Strings(idsB)

	for _, id := range idsA {
		entA := mapA[id]
		entB, exists := mapB[id]
		if !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInB) < opts.MaxDifferences {
				diff.MissingInB = append(diff.MissingInB, id)
			}
			continue
		}
		if opts.CompareLabels && (entA.kind != entB.kind || entA.label != entB.label) {
			if opts.MaxDifferences == 0 || len(diff.LabelMismatch) < opts.MaxDifferences {
				diff.LabelMismatch = append(diff.LabelMismatch, LabelDifference{
					ID:     id,
					LabelA: entA.label,
					LabelB: entB.label,
				})
			}
		}
	}

	for _, id := range idsB {
		if _, exists := mapA[id]; !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInA) < opts.MaxDifferences {
				diff.MissingInA = append(diff.MissingInA, id)
			}
		}
	}

	return diff
}

// CompareSources loads and compares two graph sources
func CompareSources(sourceA, sourceB Source, opts DiffOptions) (*SourceDiff, error) {
	docA, _, err := Load(sourceA, loader.ParseOptions{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "failed to load source A (%s)", sourceA.Path)
	}

	docB, _, err := Load(sourceB, loader.ParseOptions{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "failed to load source B (%s)", sourceB.Path)
	}

	diff := DetectInconsistencies(docA, docB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}

// ComparePaths discovers the source at each path and compares them.
func ComparePaths(pathA, pathB string, opts DiffOptions) (*SourceDiff, error) {
	srcA, err := Discover(pathA)
	if err != nil {
		return nil, err
	}
	srcB, err := Discover(pathB)
	if err != nil {
		return nil, err
	}
	return CompareSources(srcA, srcB, opts)
}
