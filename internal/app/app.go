package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoshare/internal/keys"
	"github.com/nhle/todoshare/internal/registry"
	appsync "github.com/nhle/todoshare/internal/sync"
	"github.com/nhle/todoshare/internal/theme"
	"github.com/nhle/todoshare/internal/ui"
	helpview "github.com/nhle/todoshare/internal/ui/help"
	"github.com/nhle/todoshare/internal/ui/lists"
	"github.com/nhle/todoshare/internal/ui/notfound"
	"github.com/nhle/todoshare/internal/ui/tasks"
)

const (
	watchLists = "lists"
	watchTasks = "tasks"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLists ViewState = iota
	ViewLoading
	ViewTasks
	ViewNotFound
	ViewHelp
)

type listsLoadedMsg struct{ err error }

type listOpenedMsg struct {
	id  string
	reg *registry.TaskRegistry
	err error
}

// Model is the root Bubble Tea model that routes between screens and owns
// the registries and their feed watchers.
type Model struct {
	ctx    context.Context
	remote registry.Remote
	opts   []registry.Option
	logger *slog.Logger

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	spinner      spinner.Model

	listReg   *registry.ListRegistry
	listWatch *appsync.Watcher
	taskWatch *appsync.Watcher

	lists    lists.Model
	tasks    tasks.Model
	notFound notfound.Model
	helpView helpview.Model

	feed    map[string]appsync.FeedState
	lastErr string
	ready   bool
}

// New creates the root model. Registry calls go to remote; opts are
// applied to every registry the model opens.
func New(ctx context.Context, remote registry.Remote, logger *slog.Logger, opts ...registry.Option) Model {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tui")
	opts = append([]registry.Option{registry.WithLogger(logger)}, opts...)

	k := keys.DefaultKeyMap()
	listReg := registry.NewListRegistry(remote, opts...)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		ctx:         ctx,
		remote:      remote,
		opts:        opts,
		logger:      logger,
		currentView: ViewLoading,
		keys:        k,
		spinner:     sp,
		listReg:     listReg,
		listWatch:   appsync.New(watchLists, listReg, logger),
		lists:       lists.New(listReg, k, 80, 24),
		notFound:    notfound.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		feed:        make(map[string]appsync.FeedState),
	}
}

// Init loads the lists and starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadLists())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.lists.SetSize(w, h)
		m.tasks.SetSize(w, h)
		m.notFound.SetSize(w, h)
		m.helpView.SetSize(w, h)
		// Forward so open huh forms can recalculate their layout.
		return m.updateActiveView(msg)

	case spinner.TickMsg:
		if m.currentView != ViewLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listsLoadedMsg:
		if msg.err != nil {
			m.setError("load lists", msg.err)
		}
		m.currentView = ViewLists
		m.lists.Refresh()
		return m, m.listWatch.Start(m.ctx)

	case lists.OpenListMsg:
		m.currentView = ViewLoading
		return m, tea.Batch(m.spinner.Tick, m.openList(msg.ID))

	case listOpenedMsg:
		switch {
		case registry.IsNotFound(msg.err):
			m.notFound.SetListID(msg.id)
			m.currentView = ViewNotFound
			return m, nil
		case msg.err != nil:
			m.setError("open list", msg.err)
			m.currentView = ViewLists
			return m, nil
		}
		m.tasks = tasks.New(msg.reg, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
		m.taskWatch = appsync.New(watchTasks, msg.reg, m.logger)
		m.currentView = ViewTasks
		return m, m.taskWatch.Start(m.ctx)

	case tasks.BackMsg:
		m.closeTasks()
		m.currentView = ViewLists
		m.lists.Refresh()
		return m, nil

	case notfound.BackMsg:
		m.currentView = ViewLists
		return m, nil

	case appsync.ChangedMsg:
		switch msg.Name {
		case watchLists:
			m.lists.Refresh()
			return m, m.listWatch.WaitForNext()
		case watchTasks:
			if m.taskWatch == nil {
				return m, nil
			}
			m.tasks.Refresh()
			return m, m.taskWatch.WaitForNext()
		}
		return m, nil

	case appsync.FeedStatusMsg:
		m.feed[msg.Name] = msg.State
		if msg.Err != nil {
			m.setError(msg.Name+" feed", msg.Err)
		}
		if msg.Name == watchTasks {
			if m.taskWatch == nil {
				return m, nil
			}
			return m, m.taskWatch.WaitForNext()
		}
		return m, m.listWatch.WaitForNext()

	case ui.ActionResultMsg:
		if msg.Err != nil {
			m.setError(msg.Action, msg.Err)
		} else {
			m.lastErr = ""
		}
		var listCmd, taskCmd tea.Cmd
		m.lists, listCmd = m.lists.Update(msg)
		if m.taskWatch != nil {
			m.tasks, taskCmd = m.tasks.Update(msg)
		}
		return m, tea.Batch(listCmd, taskCmd)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if !m.formFocused() {
			switch msg.String() {
			case "q":
				if m.currentView == ViewLists {
					return m, m.quit()
				}
			case "?":
				if m.currentView == ViewHelp {
					m.currentView = m.previousView
					return m, nil
				}
				if m.currentView != ViewLoading {
					m.previousView = m.currentView
					m.currentView = ViewHelp
				}
				return m, nil
			case "esc":
				if m.currentView == ViewHelp {
					m.currentView = m.previousView
					return m, nil
				}
			}
		}
	}

	return m.updateActiveView(msg)
}

func (m Model) formFocused() bool {
	switch m.currentView {
	case ViewLists:
		return m.lists.Busy()
	case ViewTasks:
		return m.tasks.Busy()
	}
	return false
}

func (m *Model) setError(action string, err error) {
	m.logger.Warn("Action failed", "action", action, "error", err)
	m.lastErr = fmt.Sprintf("%s failed: %v", action, err)
}

func (m *Model) closeTasks() {
	if m.taskWatch != nil {
		m.taskWatch.Stop()
		m.taskWatch = nil
	}
	delete(m.feed, watchTasks)
}

func (m Model) quit() tea.Cmd {
	m.listWatch.Stop()
	if m.taskWatch != nil {
		m.taskWatch.Stop()
	}
	return tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLists:
		m.lists, cmd = m.lists.Update(msg)
	case ViewTasks:
		m.tasks, cmd = m.tasks.Update(msg)
	case ViewNotFound:
		m.notFound, cmd = m.notFound.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("todoshare", m.feedStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.lastErr)
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLoading:
		return lipgloss.Place(m.layout.ContentWidth(), m.layout.ContentHeight(),
			lipgloss.Center, lipgloss.Center, m.spinner.View()+" Loading...")
	case ViewLists:
		return m.lists.View()
	case ViewTasks:
		return m.tasks.View()
	case ViewNotFound:
		return m.notFound.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// feedStatus describes the feed backing the visible screen.
func (m Model) feedStatus() string {
	name := watchLists
	if m.currentView == ViewTasks {
		name = watchTasks
	}
	state := m.feed[name].String()
	return theme.FeedStyle(state).Inherit(theme.HeaderStyle).Render(state)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewNotFound:
		return "esc back"
	case ViewLoading:
		return "ctrl+c quit"
	case ViewTasks:
		if m.tasks.Busy() {
			return "enter submit | esc cancel"
		}
		return "a add | space toggle | e edit | d delete | r recover | c completed | tab deleted | esc back"
	default:
		if m.lists.Busy() {
			return "enter submit | esc cancel"
		}
		return "n new | enter open | d delete | r recover | tab deleted | ? help | q quit"
	}
}

func (m Model) loadLists() tea.Cmd {
	reg, ctx := m.listReg, m.ctx
	return func() tea.Msg {
		return listsLoadedMsg{err: reg.Load(ctx)}
	}
}

func (m Model) openList(id string) tea.Cmd {
	remote, ctx, opts := m.remote, m.ctx, m.opts
	return func() tea.Msg {
		reg, err := registry.Open(ctx, remote, id, opts...)
		return listOpenedMsg{id: id, reg: reg, err: err}
	}
}
