package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/render"
	"github.com/vanderheijden86/loomview/pkg/search"
)

// --- canvas computation ----------------------------------------------------

const (
	canvasPadding = 24.0
	headerHeight  = 112.0
	minCanvasW    = 640
	minCanvasH    = 480
)

type summaryInfo struct {
	Title      string
	Hash       string
	Generation uint64
	Nodes      int
	Containers int
	Edges      int
	Hyper      int
	Folded     int
}

// canvasLayout places the snapshot on the output canvas: a header band
// for the summary block, padding around the graph, and minimum
// dimensions so small graphs still produce a legible image.
type canvasLayout struct {
	Width   int
	Height  int
	OffsetX float64
	OffsetY float64
	Header  float64
	Summary summaryInfo
}

func buildCanvas(snap *render.Snapshot, opts Options) canvasLayout {
	width := int(math.Ceil(snap.Width)) + int(canvasPadding)*2
	if width < minCanvasW {
		width = minCanvasW
	}
	height := int(math.Ceil(snap.Height)) + int(canvasPadding)*2 + int(headerHeight)
	if height < minCanvasH {
		height = minCanvasH
	}

	sum := summaryInfo{
		Title:      opts.Title,
		Hash:       snap.Hash,
		Generation: snap.Generation,
	}
	if strings.TrimSpace(sum.Title) == "" {
		sum.Title = "Graph Snapshot"
	}
	for _, n := range snap.Nodes {
		if n.Container {
			sum.Containers++
		} else {
			sum.Nodes++
		}
	}
	for _, e := range snap.Edges {
		if e.Kind == render.EdgeAggregated {
			sum.Hyper++
			sum.Folded += e.Count
		} else {
			sum.Edges++
		}
	}

	return canvasLayout{
		Width:   width,
		Height:  height,
		OffsetX: canvasPadding,
		OffsetY: canvasPadding + headerHeight,
		Header:  headerHeight,
		Summary: sum,
	}
}

// --- palettes --------------------------------------------------------------

// palette is one named export theme. Both renderers draw from the same
// colors so SVG and PNG output stay visually interchangeable.
type palette struct {
	backdrop  color.RGBA
	headerBG  color.RGBA
	legendBG  color.RGBA
	node      color.RGBA
	container color.RGBA
	collapsed color.RGBA
	stroke    color.RGBA
	edge      color.RGBA
	hyper     color.RGBA
	text      color.RGBA
	subtle    color.RGBA
	highlight color.RGBA
	selection color.RGBA
}

var darkPalette = palette{
	backdrop:  color.RGBA{0x1e, 0x1e, 0x2e, 0xff},
	headerBG:  color.RGBA{0x2a, 0x2a, 0x3c, 0xff},
	legendBG:  color.RGBA{0x2a, 0x2a, 0x3c, 0xff},
	node:      color.RGBA{0x31, 0x32, 0x44, 0xff},
	container: color.RGBA{0x26, 0x26, 0x36, 0xff},
	collapsed: color.RGBA{0x45, 0x47, 0x5a, 0xff},
	stroke:    color.RGBA{0x6c, 0x70, 0x86, 0xff},
	edge:      color.RGBA{0x7f, 0x84, 0x9c, 0xff},
	hyper:     color.RGBA{0xf9, 0xe2, 0xaf, 0xff},
	text:      color.RGBA{0xcd, 0xd6, 0xf4, 0xff},
	subtle:    color.RGBA{0xa6, 0xad, 0xc8, 0xff},
	highlight: color.RGBA{0xa6, 0xe3, 0xa1, 0xff},
	selection: color.RGBA{0x89, 0xb4, 0xfa, 0xff},
}

var lightPalette = palette{
	backdrop:  color.RGBA{0xf9, 0xfa, 0xfb, 0xff},
	headerBG:  color.RGBA{0xf3, 0xf4, 0xf6, 0xff},
	legendBG:  color.RGBA{0xee, 0xee, 0xee, 0xff},
	node:      color.RGBA{0xdb, 0xea, 0xfe, 0xff},
	container: color.RGBA{0xf1, 0xf5, 0xf9, 0xff},
	collapsed: color.RGBA{0xcb, 0xd5, 0xe1, 0xff},
	stroke:    color.RGBA{0x47, 0x55, 0x69, 0xff},
	edge:      color.RGBA{0x6b, 0x80, 0xbf, 0xff},
	hyper:     color.RGBA{0xb4, 0x85, 0x14, 0xff},
	text:      color.RGBA{0x11, 0x11, 0x11, 0xff},
	subtle:    color.RGBA{0x66, 0x66, 0x66, 0xff},
	highlight: color.RGBA{0x16, 0xa3, 0x4a, 0xff},
	selection: color.RGBA{0x25, 0x63, 0xeb, 0xff},
}

func themePalette(name string) palette {
	if strings.EqualFold(name, "light") {
		return lightPalette
	}
	return darkPalette
}

func (p palette) boxFill(n render.Node) color.RGBA {
	if n.Container {
		if n.Collapsed {
			return p.collapsed
		}
		return p.container
	}
	return p.node
}

// boxStroke returns the outline color and width. Selection wins over a
// search highlight when both apply.
func (p palette) boxStroke(n render.Node) (color.RGBA, float64) {
	switch {
	case n.Selected:
		return p.selection, 2.5
	case n.Highlight != search.HighlightNone:
		return p.highlight, 2
	default:
		return p.stroke, 1.2
	}
}

func (p palette) edgeColor(kind render.EdgeKind) color.RGBA {
	if kind == render.EdgeAggregated {
		return p.hyper
	}
	return p.edge
}

// boxDetail is the second text line in a box.
func boxDetail(n render.Node) string {
	if n.Container && n.Collapsed {
		return "collapsed"
	}
	return n.Type
}

// --- SVG -------------------------------------------------------------------

// SaveSVG writes the snapshot as an SVG image.
func SaveSVG(path string, snap *render.Snapshot, opts Options) error {
	if snap == nil {
		return errors.New(errors.ErrCodeInvalidInput, "svg export requires a render snapshot")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "creating %s", path)
	}
	defer f.Close()
	return WriteSVG(f, snap, opts)
}

// WriteSVG renders the snapshot as SVG to w.
func WriteSVG(w io.Writer, snap *render.Snapshot, opts Options) error {
	if snap == nil {
		return errors.New(errors.ErrCodeInvalidInput, "svg export requires a render snapshot")
	}
	pal := themePalette(opts.Theme)
	layout := buildCanvas(snap, opts)

	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(pal.backdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(pal.headerBG)))

	drawSummarySVG(canvas, layout, pal)
	drawLegendSVG(canvas, layout, pal)

	ox, oy := layout.OffsetX, layout.OffsetY

	// Expanded container frames go first so children and edges paint on
	// top of them.
	for _, n := range snap.Nodes {
		if !n.Container || n.Collapsed {
			continue
		}
		x, y := int(n.X+ox), int(n.Y+oy)
		canvas.Roundrect(x, y, int(n.W), int(n.H), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(pal.container), css(pal.stroke)))
		canvas.Text(x+10, y+16, fitLabel(n.Label, n.W),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;font-weight:bold", css(pal.subtle)))
	}

	for _, e := range snap.Edges {
		x1, y1 := e.SX+ox, e.SY+oy
		x2, y2 := e.TX+ox, e.TY+oy
		style := fmt.Sprintf("stroke:%s;stroke-width:2", css(pal.edge))
		if e.Kind == render.EdgeAggregated {
			style = fmt.Sprintf("stroke:%s;stroke-width:2.5;stroke-dasharray:6,4", css(pal.hyper))
		}
		canvas.Line(int(x1), int(y1), int(x2), int(y2), style)
		if xs, ys, ok := arrowhead(x1, y1, x2, y2); ok {
			canvas.Polygon(
				[]int{int(xs[0]), int(xs[1]), int(xs[2])},
				[]int{int(ys[0]), int(ys[1]), int(ys[2])},
				fmt.Sprintf("fill:%s", css(pal.edgeColor(e.Kind))),
			)
		}
		if e.Kind == render.EdgeAggregated {
			canvas.Text(int((x1+x2)/2)+6, int((y1+y2)/2)-6, fmt.Sprintf("x%d", e.Count),
				fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;font-weight:bold", css(pal.hyper)))
		}
	}

	for _, n := range snap.Nodes {
		if n.Container && !n.Collapsed {
			continue
		}
		x, y := int(n.X+ox), int(n.Y+oy)
		stroke, width := pal.boxStroke(n)
		canvas.Roundrect(x, y, int(n.W), int(n.H), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(pal.boxFill(n)), css(stroke), width))
		canvas.Text(x+10, y+20, fitLabel(n.Label, n.W),
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(pal.text)))
		canvas.Text(x+10, y+38, fitLabel(boxDetail(n), n.W),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(pal.subtle)))
	}

	canvas.End()
	return nil
}

func drawSummarySVG(canvas *svg.SVG, layout canvasLayout, pal palette) {
	s := layout.Summary
	canvas.Text(32, 44, s.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(pal.text)))
	canvas.Text(32, 64, fmt.Sprintf("hash: %s  gen: %d", s.Hash, s.Generation),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(pal.subtle)))
	canvas.Text(32, 84, fmt.Sprintf("nodes: %d  containers: %d  edges: %d", s.Nodes, s.Containers, s.Edges),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(pal.subtle)))
	canvas.Text(32, 104, fmt.Sprintf("hyperedges: %d (folding %d)", s.Hyper, s.Folded),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(pal.subtle)))
}

func drawLegendSVG(canvas *svg.SVG, layout canvasLayout, pal palette) {
	boxW := 190
	boxH := 96
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(pal.legendBG), css(pal.stroke)))
	canvas.Text(x+12, y+18, "Legend",
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(pal.text)))
	drawLegendRowSVG(canvas, x+12, y+36, pal, pal.node, "Node")
	drawLegendRowSVG(canvas, x+12, y+52, pal, pal.collapsed, "Collapsed container")
	drawLegendRowSVG(canvas, x+12, y+68, pal, pal.highlight, "Search match")
	drawLegendRowSVG(canvas, x+12, y+84, pal, pal.hyper, "Aggregated edge")
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, pal palette, c color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 14, 14, 3, 3,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(pal.stroke)))
	canvas.Text(x+20, y, label,
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(pal.subtle)))
}

// --- PNG -------------------------------------------------------------------

// SavePNG writes the snapshot as a PNG image. Scale supersamples the
// geometry; the bitmap font face keeps its native size.
func SavePNG(path string, snap *render.Snapshot, opts Options) error {
	if snap == nil {
		return errors.New(errors.ErrCodeInvalidInput, "png export requires a render snapshot")
	}
	pal := themePalette(opts.Theme)
	layout := buildCanvas(snap, opts)

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	dc := gg.NewContext(int(float64(layout.Width)*scale), int(float64(layout.Height)*scale))
	dc.Scale(scale, scale)
	dc.SetColor(pal.backdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(pal.headerBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	drawSummaryPNG(dc, layout, pal)
	drawLegendPNG(dc, layout, pal)

	ox, oy := layout.OffsetX, layout.OffsetY

	for _, n := range snap.Nodes {
		if !n.Container || n.Collapsed {
			continue
		}
		dc.SetColor(pal.container)
		dc.DrawRoundedRectangle(n.X+ox, n.Y+oy, n.W, n.H, 8)
		dc.Fill()
		dc.SetColor(pal.stroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(n.X+ox, n.Y+oy, n.W, n.H, 8)
		dc.Stroke()
		dc.SetColor(pal.subtle)
		dc.DrawStringAnchored(fitLabel(n.Label, n.W), n.X+ox+10, n.Y+oy+14, 0, 0.5)
	}

	for _, e := range snap.Edges {
		x1, y1 := e.SX+ox, e.SY+oy
		x2, y2 := e.TX+ox, e.TY+oy
		dc.SetColor(pal.edgeColor(e.Kind))
		if e.Kind == render.EdgeAggregated {
			dc.SetLineWidth(2.5)
			dc.SetDash(6, 4)
		} else {
			dc.SetLineWidth(2)
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		dc.SetDash()

		if xs, ys, ok := arrowhead(x1, y1, x2, y2); ok {
			dc.NewSubPath()
			dc.MoveTo(xs[0], ys[0])
			dc.LineTo(xs[1], ys[1])
			dc.LineTo(xs[2], ys[2])
			dc.ClosePath()
			dc.Fill()
		}
		if e.Kind == render.EdgeAggregated {
			dc.DrawStringAnchored(fmt.Sprintf("x%d", e.Count), (x1+x2)/2+6, (y1+y2)/2-8, 0, 0.5)
		}
	}

	for _, n := range snap.Nodes {
		if n.Container && !n.Collapsed {
			continue
		}
		dc.SetColor(pal.boxFill(n))
		dc.DrawRoundedRectangle(n.X+ox, n.Y+oy, n.W, n.H, 8)
		dc.Fill()
		stroke, width := pal.boxStroke(n)
		dc.SetColor(stroke)
		dc.SetLineWidth(width)
		dc.DrawRoundedRectangle(n.X+ox, n.Y+oy, n.W, n.H, 8)
		dc.Stroke()

		dc.SetColor(pal.text)
		dc.DrawStringAnchored(fitLabel(n.Label, n.W), n.X+ox+10, n.Y+oy+18, 0, 0.5)
		dc.SetColor(pal.subtle)
		dc.DrawStringAnchored(fitLabel(boxDetail(n), n.W), n.X+ox+10, n.Y+oy+34, 0, 0.5)
	}

	if err := dc.SavePNG(path); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "writing %s", path)
	}
	return nil
}

func drawSummaryPNG(dc *gg.Context, layout canvasLayout, pal palette) {
	s := layout.Summary
	dc.SetColor(pal.text)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(pal.subtle)
	dc.DrawStringAnchored(fmt.Sprintf("hash: %s  gen: %d", s.Hash, s.Generation), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  containers: %d  edges: %d", s.Nodes, s.Containers, s.Edges), 32, 84, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("hyperedges: %d (folding %d)", s.Hyper, s.Folded), 32, 104, 0, 0.5)
}

func drawLegendPNG(dc *gg.Context, layout canvasLayout, pal palette) {
	boxW := 190.0
	boxH := 96.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(pal.legendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(pal.stroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(pal.text)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	drawLegendRowPNG(dc, x+12, y+36, pal, pal.node, "Node")
	drawLegendRowPNG(dc, x+12, y+52, pal, pal.collapsed, "Collapsed container")
	drawLegendRowPNG(dc, x+12, y+68, pal, pal.highlight, "Search match")
	drawLegendRowPNG(dc, x+12, y+84, pal, pal.hyper, "Aggregated edge")
}

func drawLegendRowPNG(dc *gg.Context, x, y float64, pal palette, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(pal.stroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(pal.subtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

// --- helpers ---------------------------------------------------------------

// Arrowheads sit at the line midpoint because edges anchor box-center
// to box-center, which puts the endpoints under the boxes.
func arrowhead(x1, y1, x2, y2 float64) (xs, ys [3]float64, ok bool) {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length < 1 {
		return xs, ys, false
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux
	mx, my := (x1+x2)/2, (y1+y2)/2
	xs = [3]float64{mx + ux*7, mx - ux*5 + px*4.5, mx - ux*5 - px*4.5}
	ys = [3]float64{my + uy*7, my - uy*5 + py*4.5, my - uy*5 - py*4.5}
	return xs, ys, true
}

// fitLabel truncates s to what fits in a box of width w at the 7px
// monospace glyph width both renderers use.
func fitLabel(s string, w float64) string {
	max := int(w/7) - 2
	if max < 4 {
		max = 4
	}
	return truncate(s, max)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
