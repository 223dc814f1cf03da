package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/theme"
)

// Layout splits the terminal into a one-line header, the active screen and
// a one-line status bar.
type Layout struct {
	Width  int
	Height int
}

func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width available to screens.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left between the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-2, 0)
}

// RenderHeader shows the app title on the left and the feed state on the right.
func (l Layout) RenderHeader(title, feedState string) string {
	return l.bar(theme.HeaderStyle, theme.HeaderStyle.Render(title),
		theme.HeaderStyle.Render("feed: "+feedState))
}

// RenderStatusBar shows key hints, or errText in their place when set.
func (l Layout) RenderStatusBar(hints, errText string) string {
	left := theme.StatusBarStyle.Render(hints)
	if errText != "" {
		left = theme.ErrorStyle.Inherit(theme.StatusBarStyle).Render(errText)
	}
	return l.bar(theme.StatusBarStyle, left, "")
}

// bar pads left and right to the full width with style's background.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().Width(gap).Background(style.GetBackground()).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
