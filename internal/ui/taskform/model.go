package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/theme"
	"github.com/nhle/todoshare/internal/ui"
)

// SubmittedMsg is dispatched when the form completes. ID is empty for a
// new task.
type SubmittedMsg struct {
	ID          string
	Title       string
	Description string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
}

// Model is the task create/edit form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	editID string
	width  int
	height int
}

// New creates a task form.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// StartCreate resets the form for a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editID = ""
	m.fb.title = ""
	m.fb.description = ""
	m.form = m.build()
	return m.form.Init()
}

// StartEdit fills the form from an existing task.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editID = t.ID
	m.fb.title = t.Title
	m.fb.description = t.DescriptionText()
	m.form = m.build()
	return m.form.Init()
}

// Editing reports whether the form edits an existing task.
func (m Model) Editing() bool {
	return m.editID != ""
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		out := SubmittedMsg{ID: m.editID, Title: m.fb.title, Description: m.fb.description}
		m.form = nil
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.Editing() {
		titleText = "Edit Task"
	}
	content := theme.TitleStyle.MarginBottom(1).Render(titleText) + "\n" + m.form.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
