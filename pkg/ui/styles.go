package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/loomview/pkg/search"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Consistent spacing and visual language
// ══════════════════════════════════════════════════════════════════════════════

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
	SpaceLG = 4
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Base colors - Light mode uses darker colors for contrast on white backgrounds
	ColorBg          = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	// Primary accent colors
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Graph element colors
	ColorNode       = lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"} // Blue
	ColorContainer  = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"} // Purple
	ColorCollapsed  = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"} // Orange
	ColorAggregated = lipgloss.AdaptiveColor{Light: "#008080", Dark: "#00CED1"} // Teal

	// Highlight colors
	ColorSearchHit = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#F1FA8C"} // Yellow
	ColorNavTarget = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"} // Cyan

	// Highlight background colors (for badges) - subtle backgrounds
	ColorSearchHitBg = lipgloss.AdaptiveColor{Light: "#FFF3CD", Dark: "#3D3D1A"}
	ColorNavTargetBg = lipgloss.AdaptiveColor{Light: "#D1ECF1", Dark: "#1A3344"}
	ColorStatusOkBg  = lipgloss.AdaptiveColor{Light: "#D4EDDA", Dark: "#1A3D2A"}
	ColorStatusBadBg = lipgloss.AdaptiveColor{Light: "#F8D7DA", Dark: "#3D1A1A"}

	// Kind badge text color (white on colored background)
	ColorKindBadgeText = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}

	// Kind background colors (saturated badge backgrounds)
	ColorKindNodeBg      = lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"} // Blue
	ColorKindContainerBg = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#904EE2"} // Purple
	ColorKindHyperBg     = lipgloss.AdaptiveColor{Light: "#008080", Dark: "#00CED1"} // Teal
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RENDERING - Polished, consistent badge styles
// ══════════════════════════════════════════════════════════════════════════════

// RenderKindBadge returns a colored square badge with a single letter for the
// element kind. All badges are exactly 1 cell wide for consistent alignment.
func RenderKindBadge(kind string) string {
	var bg lipgloss.AdaptiveColor
	var label string

	switch kind {
	case "node":
		bg, label = ColorKindNodeBg, "N"
	case "container":
		bg, label = ColorKindContainerBg, "C"
	case "hyperedge":
		bg, label = ColorKindHyperBg, "H"
	case "edge":
		bg, label = ColorBgSubtle, "E"
	default:
		bg, label = ColorBgSubtle, "·"
	}

	return lipgloss.NewStyle().
		Foreground(ColorKindBadgeText).
		Background(bg).
		Bold(true).
		Render(label)
}

// RenderHighlightBadge returns a styled badge for an element's highlight state.
// Returns "" for unhighlighted elements so rows stay clean.
func RenderHighlightBadge(kind search.HighlightKind) string {
	var fg, bg lipgloss.AdaptiveColor
	var label string

	switch kind {
	case search.HighlightSearch:
		fg, bg, label = ColorSearchHit, ColorSearchHitBg, "HIT"
	case search.HighlightNavigation:
		fg, bg, label = ColorNavTarget, ColorNavTargetBg, "NAV"
	case search.HighlightBoth:
		fg, bg, label = ColorNavTarget, ColorNavTargetBg, "NAV+"
	default:
		return ""
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Bold(true).
		Render(label)
}

// RenderAggregationBadge renders the folded-edge multiplier shown next to
// collapsed containers and aggregated edges, e.g. "x12".
func RenderAggregationBadge(count int) string {
	if count <= 1 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorAggregated).
		Bold(true).
		Render(fmt.Sprintf("x%d", count))
}

// ══════════════════════════════════════════════════════════════════════════════
// METRIC VISUALIZATION - Mini-bars
// ══════════════════════════════════════════════════════════════════════════════

// RenderMiniBar renders a mini horizontal bar for a value between 0 and 1
func RenderMiniBar(value float64, width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}

	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}

	// Choose color based on value
	var barColor lipgloss.AdaptiveColor
	if value >= 0.75 {
		barColor = t.Success
	} else if value >= 0.5 {
		barColor = t.Collapsed
	} else if value >= 0.25 {
		barColor = t.Navigation
	} else {
		barColor = t.Secondary
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(barColor).Render(bar)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIVIDERS AND SEPARATORS
// ══════════════════════════════════════════════════════════════════════════════

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}

// RenderSubtleDivider renders a more subtle divider using dots
func RenderSubtleDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render(strings.Repeat("·", width))
}
