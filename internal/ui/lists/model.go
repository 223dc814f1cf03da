package lists

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/keys"
	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/theme"
	"github.com/nhle/todoshare/internal/ui"
)

// OpenListMsg asks the parent to open the tasks screen for a list.
type OpenListMsg struct {
	ID string
}

// DeleteConfirmation is the prompt shown before a list is soft-deleted.
const DeleteConfirmation = "Delete this list? It will move to Deleted and can be recovered later."

type mode int

const (
	modeBrowse mode = iota
	modeForm
	modeConfirmDelete
)

// formBindings holds form values on the heap so huh's Value pointers stay
// valid across model copies.
type formBindings struct {
	name    string
	confirm bool
}

// Model is the lists screen: active lists newest first, and a collapsible
// Deleted section.
type Model struct {
	reg  *registry.ListRegistry
	keys *keys.KeyMap
	snap registry.ListSnapshot

	mode        mode
	cursor      int
	showDeleted bool
	deletingID  string
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings

	width  int
	height int
}

// New creates the lists screen over reg.
func New(reg *registry.ListRegistry, k *keys.KeyMap, width, height int) Model {
	return Model{
		reg:    reg,
		keys:   k,
		snap:   reg.Snapshot(),
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Refresh re-reads the registry snapshot.
func (m *Model) Refresh() {
	m.snap = m.reg.Snapshot()
	if n := len(m.rows()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// Busy reports whether a form has keyboard focus.
func (m Model) Busy() bool {
	return m.mode != modeBrowse
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

type row struct {
	list    model.List
	deleted bool
}

func (m Model) rows() []row {
	out := make([]row, 0, len(m.snap.Active)+len(m.snap.Deleted))
	for _, l := range m.snap.Active {
		out = append(out, row{list: l})
	}
	if m.showDeleted {
		for _, l := range m.snap.Deleted {
			out = append(out, row{list: l, deleted: true})
		}
	}
	return out
}

func (m Model) selected() (row, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return row{}, false
	}
	return rows[m.cursor], true
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.ActionResultMsg:
		m.Refresh()
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeBrowse {
			return m.handleBrowseKey(msg)
		}
	}
	return m.updateActiveForm(msg)
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := len(m.rows())

	switch {
	case key.Matches(msg, m.keys.Down):
		if n > 0 {
			m.cursor = (m.cursor + 1) % n
		}

	case key.Matches(msg, m.keys.Up):
		if n > 0 {
			m.cursor = (m.cursor - 1 + n) % n
		}

	case key.Matches(msg, m.keys.Select):
		if r, ok := m.selected(); ok && !r.deleted {
			id := r.list.ID
			return m, func() tea.Msg { return OpenListMsg{ID: id} }
		}

	case key.Matches(msg, m.keys.NewList):
		m.fb.name = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		r, ok := m.selected()
		if !ok || r.deleted || m.reg.Saving(r.list.ID) {
			return m, nil
		}
		m.deletingID = r.list.ID
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()

	case key.Matches(msg, m.keys.Recover):
		if r, ok := m.selected(); ok && r.deleted {
			return m, m.recover(r.list.ID)
		}

	case key.Matches(msg, m.keys.ShowDeleted):
		m.showDeleted = !m.showDeleted
		m.Refresh()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("List name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func (m Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(DeleteConfirmation).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		m.mode = modeBrowse
		return m, m.create(m.fb.name)
	case huh.StateAborted:
		m.mode = modeBrowse
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.mode = modeBrowse
		if m.fb.confirm {
			return m, m.softDelete(m.deletingID)
		}
		return m, nil
	case huh.StateAborted:
		m.mode = modeBrowse
		return m, nil
	}
	return m, cmd
}

func (m Model) create(name string) tea.Cmd {
	reg := m.reg
	return ui.Run("create list", func(ctx context.Context) error {
		_, err := reg.Create(ctx, name)
		return err
	})
}

func (m Model) softDelete(id string) tea.Cmd {
	reg := m.reg
	return ui.Run("delete list", func(ctx context.Context) error {
		return reg.SoftDelete(ctx, id)
	})
}

func (m Model) recover(id string) tea.Cmd {
	reg := m.reg
	return ui.Run("recover list", func(ctx context.Context) error {
		return reg.Recover(ctx, id)
	})
}

// View renders the screen.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm("New List", m.form)
	case modeConfirmDelete:
		return m.viewForm("Delete List", m.confirmForm)
	default:
		return m.viewBrowse()
	}
}

func (m Model) viewBrowse() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Lists"))
	b.WriteString("\n\n")

	idx := 0
	if len(m.snap.Active) == 0 {
		b.WriteString(theme.EmptyStyle.Render("No lists yet. Press 'n' to create one."))
		b.WriteString("\n")
	}
	for _, l := range m.snap.Active {
		b.WriteString(m.renderRow(idx, l))
		b.WriteString("\n")
		idx++
	}

	arrow := "▸"
	if m.showDeleted {
		arrow = "▾"
	}
	b.WriteString(theme.SectionStyle.Render(fmt.Sprintf("%s Deleted (%d)", arrow, len(m.snap.Deleted))))
	b.WriteString("\n")
	if m.showDeleted {
		if len(m.snap.Deleted) == 0 {
			b.WriteString(theme.EmptyStyle.Render("No deleted lists"))
			b.WriteString("\n")
		}
		for _, l := range m.snap.Deleted {
			b.WriteString(m.renderRow(idx, l))
			b.WriteString("\n")
			idx++
		}
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) renderRow(idx int, l model.List) string {
	label := l.Name
	if l.IsDeleted() {
		label = theme.DimmedStyle.Render(label)
	}
	label += "  " + theme.DimmedStyle.Render(l.CreatedAt.Local().Format("Jan 2, 2006"))
	if m.snap.Saving[l.ID] {
		label += "  " + theme.SavingStyle.Render("saving…")
	}

	if idx == m.cursor {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}

func (m Model) viewForm(title string, f *huh.Form) string {
	if f == nil {
		return ""
	}
	content := theme.TitleStyle.MarginBottom(1).Render(title) + "\n" + f.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}
