package export

import (
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/render"
	"github.com/vanderheijden86/loomview/pkg/search"
)

// ExportMeta describes one export for downstream consumers.
type ExportMeta struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Title       string    `json:"title,omitempty"`
	Generation  uint64    `json:"generation"`
	Hash        string    `json:"hash"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	NodeCount   int       `json:"nodeCount"`
	EdgeCount   int       `json:"edgeCount"`
	FocusID     string    `json:"focusId,omitempty"`
}

// ExportNode is the wire form of one renderable box.
type ExportNode struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Type      string  `json:"type,omitempty"`
	Container bool    `json:"container,omitempty"`
	Collapsed bool    `json:"collapsed,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	W         float64 `json:"w"`
	H         float64 `json:"h"`
	Highlight string  `json:"highlight,omitempty"`
	Selected  bool    `json:"selected,omitempty"`
}

// ExportEdge is the wire form of one renderable connection. Count is the
// number of original edges behind it, 1 unless aggregated.
type ExportEdge struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Aggregated bool    `json:"aggregated,omitempty"`
	Count      int     `json:"count"`
	SX         float64 `json:"sx"`
	SY         float64 `json:"sy"`
	TX         float64 `json:"tx"`
	TY         float64 `json:"ty"`
}

// JSONExport is the top-level JSON document.
type JSONExport struct {
	Meta  ExportMeta   `json:"meta"`
	Nodes []ExportNode `json:"nodes"`
	Edges []ExportEdge `json:"edges"`
}

// NewJSONExport converts a snapshot to its wire form. Node and edge
// order follows the snapshot's paint order.
func NewJSONExport(snap *render.Snapshot, opts Options) JSONExport {
	out := JSONExport{
		Meta: ExportMeta{
			Version:     ExportVersion,
			GeneratedAt: time.Now().UTC(),
			Title:       opts.Title,
			Generation:  snap.Generation,
			Hash:        snap.Hash,
			Width:       snap.Width,
			Height:      snap.Height,
			NodeCount:   len(snap.Nodes),
			EdgeCount:   len(snap.Edges),
			FocusID:     snap.FocusID,
		},
		Nodes: make([]ExportNode, 0, len(snap.Nodes)),
		Edges: make([]ExportEdge, 0, len(snap.Edges)),
	}

	for _, n := range snap.Nodes {
		en := ExportNode{
			ID:        n.ID,
			Label:     n.Label,
			Type:      n.Type,
			Container: n.Container,
			Collapsed: n.Collapsed,
			X:         n.X,
			Y:         n.Y,
			W:         n.W,
			H:         n.H,
			Selected:  n.Selected,
		}
		if n.Highlight != search.HighlightNone {
			en.Highlight = n.Highlight.String()
		}
		out.Nodes = append(out.Nodes, en)
	}
	for _, e := range snap.Edges {
		out.Edges = append(out.Edges, ExportEdge{
			ID:         e.ID,
			Source:     e.Source,
			Target:     e.Target,
			Aggregated: e.Kind == render.EdgeAggregated,
			Count:      e.Count,
			SX:         e.SX,
			SY:         e.SY,
			TX:         e.TX,
			TY:         e.TY,
		})
	}

	return out
}

// WriteJSON renders the snapshot wire form to w, indented. This is also
// the robot output format.
func WriteJSON(w io.Writer, snap *render.Snapshot, opts Options) error {
	if snap == nil {
		return errors.New(errors.ErrCodeInvalidInput, "json export requires a render snapshot")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewJSONExport(snap, opts)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding snapshot")
	}
	return nil
}

// SaveJSON writes the snapshot wire form to path.
func SaveJSON(path string, snap *render.Snapshot, opts Options) error {
	if snap == nil {
		return errors.New(errors.ErrCodeInvalidInput, "json export requires a render snapshot")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "creating %s", path)
	}
	defer f.Close()
	return WriteJSON(f, snap, opts)
}
