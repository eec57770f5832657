package ui

import (
	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer wraps a glamour terminal renderer so panes can re-render
// at new widths without rebuilding the style options at every call site.
type MarkdownRenderer struct {
	tr    *glamour.TermRenderer
	width int
}

// NewMarkdownRenderer builds a renderer wrapped to the given width.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	r := &MarkdownRenderer{}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the underlying renderer for a new word-wrap width.
// No-op when the width is unchanged.
func (r *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if r.tr != nil && r.width == width {
		return
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Keep the previous renderer; Render falls back to plain text when nil.
		return
	}
	r.tr = tr
	r.width = width
}

// Width returns the current word-wrap width.
func (r *MarkdownRenderer) Width() int { return r.width }

// Render renders markdown for the terminal. Falls back to the raw input
// when no underlying renderer could be built.
func (r *MarkdownRenderer) Render(markdown string) (string, error) {
	if r.tr == nil {
		return markdown, nil
	}
	return r.tr.Render(markdown)
}
