package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/keys"
	"github.com/nhle/todoshare/internal/theme"
)

// legend explains the markers drawn next to lists and tasks.
var legend = [][2]string{
	{"[ ]", "pending task"},
	{"[x]", "completed task"},
	{"saving…", "a change is still being written"},
	{"feed: live", "changes from other clients arrive as they happen"},
	{"feed: closed", "the change feed ended; reopen the screen to resubscribe"},
}

// Model shows the full key map and the marker legend.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

func New(k *keys.KeyMap, width, height int) Model {
	m := Model{keys: k, help: help.New()}
	m.help.ShowAll = true
	m.SetSize(width, height)
	return m
}

// Update is a no-op; the root model closes this screen.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	for _, row := range legend {
		b.WriteString(theme.ListItemStyle.Render(lipgloss.NewStyle().Width(14).Render(row[0])))
		b.WriteString(theme.DimmedStyle.Render(row[1]))
		b.WriteString("\n")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.MarginBottom(1).Render("Keys"),
		m.help.View(m.keys),
		"",
		theme.SectionStyle.Render("Markers"),
		b.String(),
	)
	return theme.PanelStyle.Width(max(m.width-4, 0)).Height(max(m.height-4, 0)).Render(content)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-4, 0)
}
