package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/loomview/pkg/model"
)

// AssertCounts verifies the document's entity totals.
func AssertCounts(t *testing.T, doc *model.Document, nodes, edges, containers int) {
	t.Helper()
	gotNodes, gotEdges, gotContainers := doc.Counts()
	if gotNodes != nodes {
		t.Errorf("expected %d nodes, got %d", nodes, gotNodes)
	}
	if gotEdges != edges {
		t.Errorf("expected %d edges, got %d", edges, gotEdges)
	}
	if gotContainers != containers {
		t.Errorf("expected %d containers, got %d", containers, gotContainers)
	}
}

// AssertNoDuplicateIDs verifies ids are unique across nodes, edges, and
// containers. The id namespace is shared, so a node and a container may not
// reuse the same id either.
func AssertNoDuplicateIDs(t *testing.T, doc *model.Document) {
	t.Helper()
	seen := make(map[string]string)
	check := func(kind, id string) {
		if prev, ok := seen[id]; ok {
			t.Errorf("duplicate ID %s (%s and %s)", id, prev, kind)
			return
		}
		seen[id] = kind
	}
	for _, n := range doc.Nodes {
		check("node", n.ID)
	}
	for _, e := range doc.Edges {
		check("edge", e.ID)
	}
	for _, c := range doc.Containers {
		check("container", c.ID)
	}
}

// AssertAllValid verifies every entity passes validation.
func AssertAllValid(t *testing.T, doc *model.Document) {
	t.Helper()
	for i := range doc.Nodes {
		if err := doc.Nodes[i].Validate(); err != nil {
			t.Errorf("node %d (%s) invalid: %v", i, doc.Nodes[i].ID, err)
		}
	}
	for i := range doc.Edges {
		if err := doc.Edges[i].Validate(); err != nil {
			t.Errorf("edge %d (%s) invalid: %v", i, doc.Edges[i].ID, err)
		}
	}
	for i := range doc.Containers {
		if err := doc.Containers[i].Validate(); err != nil {
			t.Errorf("container %d (%s) invalid: %v", i, doc.Containers[i].ID, err)
		}
	}
}

// AssertEdgeExists verifies that an edge connects the given endpoints.
func AssertEdgeExists(t *testing.T, doc *model.Document, sourceID, targetID string) {
	t.Helper()
	for _, e := range doc.Edges {
		if e.Source == sourceID && e.Target == targetID {
			return
		}
	}
	t.Errorf("expected edge from %s to %s not found", sourceID, targetID)
}

// AssertChildOf verifies that a container lists the given child.
func AssertChildOf(t *testing.T, doc *model.Document, containerID, childID string) {
	t.Helper()
	for _, c := range doc.Containers {
		if c.ID != containerID {
			continue
		}
		for _, child := range c.Children {
			if child == childID {
				return
			}
		}
		t.Errorf("container %s does not list %s as a child", containerID, childID)
		return
	}
	t.Errorf("container %s not found", containerID)
}

// AssertAcyclicHierarchy verifies the container tree has no cycles.
// This is a simple DFS-based check suitable for small test documents.
func AssertAcyclicHierarchy(t *testing.T, doc *model.Document) {
	t.Helper()
	if id, found := findHierarchyCycle(doc); found {
		t.Errorf("hierarchy cycle detected involving container %s", id)
	}
}

// AssertHierarchyCycle verifies the container tree contains at least one
// cycle.
func AssertHierarchyCycle(t *testing.T, doc *model.Document) {
	t.Helper()
	if _, found := findHierarchyCycle(doc); !found {
		t.Error("expected hierarchy cycle but none found")
	}
}

// findHierarchyCycle runs DFS with path tracking over container-to-container
// child links. Node children cannot form cycles and are skipped.
func findHierarchyCycle(doc *model.Document) (string, bool) {
	isContainer := make(map[string]bool, len(doc.Containers))
	for _, c := range doc.Containers {
		isContainer[c.ID] = true
	}
	adj := make(map[string][]string)
	for _, c := range doc.Containers {
		for _, child := range c.Children {
			if isContainer[child] {
				adj[c.ID] = append(adj[c.ID], child)
			}
		}
	}

	visited := make(map[string]bool)
	inPath := make(map[string]bool)

	var hasCycle func(id string) bool
	hasCycle = func(id string) bool {
		if inPath[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		inPath[id] = true
		for _, child := range adj[id] {
			if hasCycle(child) {
				return true
			}
		}
		inPath[id] = false
		return false
	}

	for _, c := range doc.Containers {
		if hasCycle(c.ID) {
			return c.ID, true
		}
	}
	return "", false
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) != actual {
		// Find first difference for helpful error message
		expectedLines := strings.Split(string(expected), "\n")
		actualLines := strings.Split(actual, "\n")

		for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
			var expLine, actLine string
			if i < len(expectedLines) {
				expLine = expectedLines[i]
			}
			if i < len(actualLines) {
				actLine = actualLines[i]
			}
			if expLine != actLine {
				g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s\n\nFull diff (expected vs actual):\n%s\nvs\n%s",
					i+1, expLine, actLine, string(expected), actual)
				return
			}
		}
		g.t.Errorf("golden file mismatch (length differs)")
	}
}

// AssertJSON compares actual value as JSON against the golden file.
func (g *GoldenFile) AssertJSON(actual interface{}) {
	g.t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}

	g.Assert(string(data))
}

// File helpers

// WriteDocumentFile writes a document as JSON to a path, creating parent
// directories as needed. Returns the path.
func WriteDocumentFile(t *testing.T, path string, doc *model.Document) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSON(doc)), 0644); err != nil {
		t.Fatalf("failed to write document file: %v", err)
	}
	return path
}

// WriteGraphFile writes a document to graph.json inside dir and returns the
// path.
func WriteGraphFile(t *testing.T, dir string, doc *model.Document) string {
	t.Helper()
	return WriteDocumentFile(t, filepath.Join(dir, "graph.json"), doc)
}

// Lookup helpers

// BuildNodeMap creates a map from ID to GraphNode for quick lookups.
func BuildNodeMap(doc *model.Document) map[string]*model.GraphNode {
	m := make(map[string]*model.GraphNode, len(doc.Nodes))
	for i := range doc.Nodes {
		m[doc.Nodes[i].ID] = &doc.Nodes[i]
	}
	return m
}

// FindNode returns the node with the given ID, or nil if not found.
func FindNode(doc *model.Document, id string) *model.GraphNode {
	for i := range doc.Nodes {
		if doc.Nodes[i].ID == id {
			return &doc.Nodes[i]
		}
	}
	return nil
}

// FindContainer returns the container with the given ID, or nil if not found.
func FindContainer(doc *model.Document, id string) *model.Container {
	for i := range doc.Containers {
		if doc.Containers[i].ID == id {
			return &doc.Containers[i]
		}
	}
	return nil
}

// CountNodesByType returns a map of node type -> count.
func CountNodesByType(doc *model.Document) map[string]int {
	counts := make(map[string]int)
	for _, n := range doc.Nodes {
		counts[n.Type]++
	}
	return counts
}

// NodeIDs returns a slice of all node IDs in document order.
func NodeIDs(doc *model.Document) []string {
	ids := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// NodeID generates a standard test node ID with the given index.
// Format: "test-n{index}" matching what the default generator produces.
func NodeID(index int) string {
	return fmt.Sprintf("test-n%d", index)
}
