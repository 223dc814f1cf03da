package notfound

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/keys"
	"github.com/nhle/todoshare/internal/theme"
)

// BackMsg asks the parent to return to the lists screen.
type BackMsg struct{}

// Model is shown when a list id does not resolve.
type Model struct {
	keys   *keys.KeyMap
	listID string
	width  int
	height int
}

func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetListID records the id that failed to resolve.
func (m *Model) SetListID(id string) {
	m.listID = id
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Select) {
			return m, func() tea.Msg { return BackMsg{} }
		}
	}
	return m, nil
}

func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		theme.ErrorStyle.Render("List not found"),
		"",
		theme.DimmedStyle.Render(fmt.Sprintf("No list with id %q exists.", m.listID)),
		"",
		theme.HelpStyle.Render("esc back to lists"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
