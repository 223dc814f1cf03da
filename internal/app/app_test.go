package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoshare/internal/store"
	"github.com/nhle/todoshare/internal/testutil"
	"github.com/nhle/todoshare/internal/ui"
	"github.com/nhle/todoshare/internal/ui/notfound"
)

func newApp(t *testing.T) Model {
	t.Helper()
	fake := testutil.NewFakeRemote(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := New(ctx, fake, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestOpenMissingListShowsNotFound(t *testing.T) {
	m := newApp(t)
	m, _ = update(t, m, listsLoadedMsg{})

	msg := m.openList("missing")()
	opened, ok := msg.(listOpenedMsg)
	if !ok {
		t.Fatalf("msg = %T, want listOpenedMsg", msg)
	}
	if !errors.Is(opened.err, store.ErrNotFound) {
		t.Fatalf("err = %v, want store.ErrNotFound", opened.err)
	}

	m, _ = update(t, m, opened)
	if m.currentView != ViewNotFound {
		t.Fatalf("view = %v, want not found", m.currentView)
	}
	if view := m.View(); !strings.Contains(view, "List not found") || !strings.Contains(view, "missing") {
		t.Errorf("view = %s", view)
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc produced no command")
	}
	if _, ok := cmd().(notfound.BackMsg); !ok {
		t.Fatal("esc did not ask to go back")
	}
	m, _ = update(t, m, notfound.BackMsg{})
	if m.currentView != ViewLists {
		t.Errorf("view = %v, want lists", m.currentView)
	}
}

func TestWrappedNotFoundRoutesToNotFound(t *testing.T) {
	m := newApp(t)
	m, _ = update(t, m, listOpenedMsg{id: "gone", err: fmt.Errorf("opening list: %w", store.ErrNotFound)})
	if m.currentView != ViewNotFound {
		t.Errorf("view = %v, want not found", m.currentView)
	}
}

func TestOpenListOtherErrorStaysOnLists(t *testing.T) {
	m := newApp(t)
	m, _ = update(t, m, listOpenedMsg{id: "x", err: errors.New("connection refused")})
	if m.currentView != ViewLists {
		t.Errorf("view = %v, want lists", m.currentView)
	}
	if !strings.Contains(m.lastErr, "connection refused") {
		t.Errorf("lastErr = %q", m.lastErr)
	}
}

func TestActionResultShownInStatusBar(t *testing.T) {
	m := newApp(t)
	m, _ = update(t, m, listsLoadedMsg{})

	m, _ = update(t, m, ui.ActionResultMsg{Action: "delete list", Err: errors.New("boom")})
	if !strings.Contains(m.View(), "delete list failed: boom") {
		t.Errorf("status bar missing error: %s", m.View())
	}

	m, _ = update(t, m, ui.ActionResultMsg{Action: "create list"})
	if m.lastErr != "" {
		t.Errorf("lastErr = %q, want cleared", m.lastErr)
	}
}
