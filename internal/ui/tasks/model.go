package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/keys"
	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/theme"
	"github.com/nhle/todoshare/internal/ui"
	"github.com/nhle/todoshare/internal/ui/taskform"
)

// BackMsg asks the parent to return to the lists screen.
type BackMsg struct{}

// Model is the tasks screen for one list: a Pending section followed by
// collapsible Completed and Deleted sections.
type Model struct {
	reg  *registry.TaskRegistry
	keys *keys.KeyMap
	snap registry.TaskSnapshot
	form taskform.Model

	editing       bool
	cursor        int
	showCompleted bool
	showDeleted   bool

	width  int
	height int
}

// New creates the screen over reg.
func New(reg *registry.TaskRegistry, k *keys.KeyMap, width, height int) Model {
	return Model{
		reg:           reg,
		keys:          k,
		snap:          reg.Snapshot(),
		form:          taskform.New(width, height),
		showCompleted: true,
		width:         width,
		height:        height,
	}
}

// Registry returns the registry this screen renders.
func (m Model) Registry() *registry.TaskRegistry {
	return m.reg
}

// Refresh re-reads the registry snapshot.
func (m *Model) Refresh() {
	m.snap = m.reg.Snapshot()
	if n := len(m.rows()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// Busy reports whether the form has keyboard focus.
func (m Model) Busy() bool {
	return m.editing
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}

// rows returns the visible tasks in display order.
func (m Model) rows() []model.Task {
	out := append([]model.Task{}, m.snap.Pending...)
	if m.showCompleted {
		out = append(out, m.snap.Completed...)
	}
	if m.showDeleted {
		out = append(out, m.snap.Deleted...)
	}
	return out
}

func (m Model) selected() (model.Task, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return model.Task{}, false
	}
	return rows[m.cursor], true
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.ActionResultMsg:
		m.Refresh()
		return m, nil

	case taskform.SubmittedMsg:
		m.editing = false
		if msg.ID == "" {
			return m, m.create(msg.Title, msg.Description)
		}
		return m, m.edit(msg.ID, msg.Title, msg.Description)

	case taskform.CancelMsg:
		m.editing = false
		return m, nil

	case tea.KeyMsg:
		if !m.editing {
			return m.handleKey(msg)
		}
	}

	if m.editing {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := len(m.rows())

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Down):
		if n > 0 {
			m.cursor = (m.cursor + 1) % n
		}

	case key.Matches(msg, m.keys.Up):
		if n > 0 {
			m.cursor = (m.cursor - 1 + n) % n
		}

	case key.Matches(msg, m.keys.AddTask):
		m.editing = true
		return m, m.form.StartCreate()

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok && !m.reg.Saving(t.ID) {
			m.editing = true
			return m, m.form.StartEdit(t)
		}

	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(); ok && t.View() != model.ViewDeleted {
			return m, m.run("toggle task", t.ID, m.reg.ToggleCompleted)
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok && t.View() != model.ViewDeleted {
			return m, m.run("delete task", t.ID, m.reg.SoftDelete)
		}

	case key.Matches(msg, m.keys.Recover):
		if t, ok := m.selected(); ok && t.View() == model.ViewDeleted {
			return m, m.run("recover task", t.ID, m.reg.Recover)
		}

	case key.Matches(msg, m.keys.ShowCompleted):
		m.showCompleted = !m.showCompleted
		m.Refresh()

	case key.Matches(msg, m.keys.ShowDeleted):
		m.showDeleted = !m.showDeleted
		m.Refresh()
	}
	return m, nil
}

// run performs a registry write. The optimistic value is visible as soon
// as the write starts, so the snapshot is refreshed on the next message.
func (m Model) run(action, id string, fn func(context.Context, string) error) tea.Cmd {
	return ui.Run(action, func(ctx context.Context) error {
		return fn(ctx, id)
	})
}

func (m Model) create(title, description string) tea.Cmd {
	reg := m.reg
	return ui.Run("add task", func(ctx context.Context) error {
		_, err := reg.Create(ctx, title, description)
		return err
	})
}

func (m Model) edit(id, title, description string) tea.Cmd {
	reg := m.reg
	return ui.Run("edit task", func(ctx context.Context) error {
		return reg.Edit(ctx, id, title, description)
	})
}

// View renders the screen.
func (m Model) View() string {
	if m.editing {
		return m.form.View()
	}

	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render(m.snap.List.Name))
	b.WriteString("  ")
	b.WriteString(theme.DimmedStyle.Render("Created " + m.snap.List.CreatedAt.Local().Format("Jan 2, 2006")))
	b.WriteString("\n")

	idx := 0
	b.WriteString(theme.SectionStyle.Render(fmt.Sprintf("Pending (%d)", len(m.snap.Pending))))
	b.WriteString("\n")
	switch {
	case m.snap.Total() == 0:
		b.WriteString(theme.EmptyStyle.Render("No tasks yet"))
		b.WriteString("\n")
	case len(m.snap.Pending) == 0:
		b.WriteString(theme.EmptyStyle.Render("No pending tasks"))
		b.WriteString("\n")
	}
	for _, t := range m.snap.Pending {
		b.WriteString(m.renderRow(idx, t))
		idx++
	}

	b.WriteString(m.section("Completed", len(m.snap.Completed), m.showCompleted))
	if m.showCompleted {
		for _, t := range m.snap.Completed {
			b.WriteString(m.renderRow(idx, t))
			idx++
		}
	}

	b.WriteString(m.section("Deleted", len(m.snap.Deleted), m.showDeleted))
	if m.showDeleted {
		for _, t := range m.snap.Deleted {
			b.WriteString(m.renderRow(idx, t))
			idx++
		}
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) section(name string, n int, open bool) string {
	arrow := "▸"
	if open {
		arrow = "▾"
	}
	return theme.SectionStyle.Render(fmt.Sprintf("%s %s (%d)", arrow, name, n)) + "\n"
}

func (m Model) renderRow(idx int, t model.Task) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}

	title := t.Title
	if t.View() != model.ViewPending {
		title = theme.DimmedStyle.Render(title)
	}
	label := theme.CheckStyle(t.Completed).Render(check) + " " + title
	if d := t.DescriptionText(); d != "" {
		label += "  " + theme.DimmedStyle.Render(firstLine(d))
	}
	if m.snap.Saving[t.ID] {
		label += "  " + theme.SavingStyle.Render("saving…")
	}

	if idx == m.cursor {
		return theme.SelectedItemStyle.Render(label) + "\n"
	}
	return theme.ListItemStyle.Render(label) + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}
