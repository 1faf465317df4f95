package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top header bar with a title on the left and
// the bell and connection badge on the right.
func (l Layout) RenderHeader(title string, right string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	rightRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(right)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		l.filler(theme.HeaderStyle, lipgloss.Width(titleRendered)+lipgloss.Width(rightRendered)),
		rightRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints. A
// toast, when present, replaces the hints.
func (l Layout) RenderStatusBar(hints string, toast string, toastIsError bool) string {
	style := theme.StatusBarStyle
	text := hints
	if toast != "" {
		text = toast
		style = theme.ToastStyle
		if toastIsError {
			style = theme.ErrorToastStyle
		}
	}

	rendered := style.Render(text)
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		rendered,
		l.filler(style, lipgloss.Width(rendered)),
	)
}

// filler pads a bar to the full width in the background of style.
func (l Layout) filler(style lipgloss.Style, used int) string {
	gap := l.Width - used
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
}

// RenderContent pins content to the content area so the status bar stays
// at the bottom.
func (l Layout) RenderContent(content string) string {
	return lipgloss.NewStyle().
		Width(l.ContentWidth()).
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)
}

// RenderOverlay places panel over the top-right of the content area, the
// way the bell dropdown opens under the header badge.
func (l Layout) RenderOverlay(panel string) string {
	return lipgloss.Place(
		l.ContentWidth(),
		l.ContentHeight(),
		lipgloss.Right,
		lipgloss.Top,
		panel,
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
