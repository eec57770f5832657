// Package loader reads graph documents from JSON files. Structural problems
// are collected as validation issues rather than errors; only unreadable
// files and invalid JSON abort a load.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/metrics"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// DefaultMaxFileSize caps how large a document file the loader accepts (64MB).
const DefaultMaxFileSize = 64 * 1024 * 1024

// ParseOptions configures the behavior of ParseDocument.
type ParseOptions struct {
	// WarningHandler is called with recoverable warning messages.
	// If nil, warnings are printed to os.Stderr (suppressed when LV_ROBOT=1).
	WarningHandler func(string)

	// MaxFileSize bounds the accepted document size in bytes. Oversized
	// inputs yield an oversized_file issue and an empty document.
	// If 0, uses DefaultMaxFileSize.
	MaxFileSize int64

	// HierarchyChoice selects which hierarchy choice to flatten into
	// containers when the document carries hierarchyChoices. Matches choice
	// id or name; empty picks the first choice.
	HierarchyChoice string
}

// LoadDocument reads a graph document from a JSON file.
func LoadDocument(path string) (*model.Document, []model.ValidationIssue, error) {
	return LoadDocumentWithOptions(path, ParseOptions{})
}

// LoadDocumentWithOptions reads a graph document with custom options.
// Validation issues carry the file path.
func LoadDocumentWithOptions(path string, opts ParseOptions) (*model.Document, []model.ValidationIssue, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil, errors.New(errors.ErrCodeIO, "no document found at %s", path)
	}
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "cannot stat %s", path)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if info.Size() > maxSize {
		issue := model.ValidationIssue{
			Kind:    model.IssueOversizedFile,
			File:    path,
			Message: fmt.Sprintf("document is %d bytes, limit is %d", info.Size(), maxSize),
		}
		return &model.Document{}, []model.ValidationIssue{issue}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "cannot open %s", path)
	}
	defer file.Close()

	doc, issues, err := ParseDocumentWithOptions(file, opts)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeParse, err, "cannot parse %s", path)
	}
	for i := range issues {
		if issues[i].File == "" {
			issues[i].File = path
		}
	}
	return doc, issues, nil
}

// ParseDocument parses a JSON graph document from a reader.
func ParseDocument(r io.Reader) (*model.Document, []model.ValidationIssue, error) {
	return ParseDocumentWithOptions(r, ParseOptions{})
}

// ParseDocumentWithOptions parses a JSON graph document with custom options.
// Handles UTF-8 BOM stripping, the size cap, and hierarchy-choice
// flattening.
func ParseDocumentWithOptions(r io.Reader, opts ParseOptions) (*model.Document, []model.ValidationIssue, error) {
	warn := opts.WarningHandler
	if warn == nil {
		if os.Getenv("LV_ROBOT") == "1" {
			warn = func(string) {}
		} else {
			warn = func(msg string) {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
			}
		}
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "cannot read document")
	}
	if int64(len(data)) > maxSize {
		issue := model.ValidationIssue{
			Kind:    model.IssueOversizedFile,
			Message: fmt.Sprintf("document exceeds the %d byte limit", maxSize),
		}
		return &model.Document{}, []model.ValidationIssue{issue}, nil
	}

	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		issue := model.ValidationIssue{
			Kind:    model.IssueEmptyDocument,
			Message: "document is empty",
		}
		return &model.Document{}, []model.ValidationIssue{issue}, nil
	}

	var doc model.Document
	stop := metrics.Timer(metrics.JSONParsing)
	err = json.Unmarshal(data, &doc)
	stop()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeParse, err, "invalid document JSON")
	}

	issues := flattenHierarchy(&doc, opts.HierarchyChoice, warn)
	return &doc, issues, nil
}

// flattenHierarchy resolves hierarchyChoices into an explicit container
// list. Explicit containers always win over choices.
func flattenHierarchy(doc *model.Document, want string, warn func(string)) []model.ValidationIssue {
	if len(doc.HierarchyChoices) == 0 {
		return nil
	}
	if len(doc.Containers) > 0 {
		warn("document carries both containers and hierarchyChoices; using containers")
		return nil
	}

	var issues []model.ValidationIssue
	choice, ok := pickChoice(doc.HierarchyChoices, want)
	if !ok {
		issues = append(issues, model.ValidationIssue{
			Kind:     model.IssueBadShape,
			EntityID: want,
			Message:  fmt.Sprintf("hierarchy choice %q not present, using %q", want, doc.HierarchyChoices[0].ID),
		})
		choice = doc.HierarchyChoices[0]
	}

	containers, flattenIssues := FlattenChoice(choice, doc.NodeAssignments[choice.ID])
	doc.Containers = containers
	return append(issues, flattenIssues...)
}

func pickChoice(choices []model.HierarchyChoice, want string) (model.HierarchyChoice, bool) {
	if want == "" {
		return choices[0], true
	}
	for _, hc := range choices {
		if hc.ID == want || hc.Name == want {
			return hc, true
		}
	}
	return model.HierarchyChoice{}, false
}

// FlattenChoice converts one hierarchy choice plus its node assignments into
// the container list the state engine consumes. Child containers keep their
// declaration order; assigned nodes follow in sorted order so the result
// does not depend on map iteration.
func FlattenChoice(choice model.HierarchyChoice, assignments map[string]string) ([]model.Container, []model.ValidationIssue) {
	declared := make(map[string]struct{}, len(choice.Containers))
	childContainers := make(map[string][]string)
	for _, cc := range choice.Containers {
		declared[cc.ID] = struct{}{}
		if cc.Parent != "" {
			childContainers[cc.Parent] = append(childContainers[cc.Parent], cc.ID)
		}
	}

	var issues []model.ValidationIssue
	childNodes := make(map[string][]string)
	for nodeID, containerID := range assignments {
		if _, ok := declared[containerID]; !ok {
			issues = append(issues, model.ValidationIssue{
				Kind:     model.IssueBadShape,
				EntityID: nodeID,
				Field:    "nodeAssignments",
				Message:  fmt.Sprintf("node %q assigned to undeclared container %q", nodeID, containerID),
			})
			continue
		}
		childNodes[containerID] = append(childNodes[containerID], nodeID)
	}
	for _, ids := range childNodes {
		sort.Strings(ids)
	}
	// Issue order must not depend on assignment map iteration either.
	sort.Slice(issues, func(i, j int) bool { return issues[i].EntityID < issues[j].EntityID })

	out := make([]model.Container, 0, len(choice.Containers))
	for _, cc := range choice.Containers {
		kids := make([]string, 0, len(childContainers[cc.ID])+len(childNodes[cc.ID]))
		kids = append(kids, childContainers[cc.ID]...)
		kids = append(kids, childNodes[cc.ID]...)
		out = append(out, model.Container{
			ID:       cc.ID,
			Label:    cc.Label,
			Children: kids,
		})
	}
	return out, issues
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
