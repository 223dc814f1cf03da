package lists

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoshare/internal/keys"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/testutil"
	"github.com/nhle/todoshare/internal/ui"
)

func newModel(t *testing.T, names ...string) (Model, *registry.ListRegistry) {
	t.Helper()
	reg := registry.NewListRegistry(testutil.NewFakeRemote(t))
	for _, name := range names {
		if _, err := reg.Create(context.Background(), name); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
	}
	return New(reg, keys.DefaultKeyMap(), 100, 30), reg
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return m.Update(msg)
}

func TestEnterOpensSelectedList(t *testing.T) {
	m, reg := newModel(t, "Groceries", "Chores")

	m, _ = press(m, "j")
	_, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("no command")
	}
	msg, ok := cmd().(OpenListMsg)
	if !ok {
		t.Fatalf("msg = %#v", cmd())
	}
	// Newest first: Chores, Groceries.
	if want := reg.Active()[1].ID; msg.ID != want {
		t.Errorf("opened %s, want %s", msg.ID, want)
	}
}

func TestDeletedSectionAndRecover(t *testing.T) {
	m, reg := newModel(t, "Groceries")
	id := reg.Active()[0].ID
	if err := reg.SoftDelete(context.Background(), id); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	m.Refresh()

	view := m.View()
	if !strings.Contains(view, "Deleted (1)") || !strings.Contains(view, "No lists yet") {
		t.Errorf("view = %s", view)
	}

	m, _ = press(m, "tab")
	_, cmd := press(m, "r")
	if cmd == nil {
		t.Fatal("recover produced no command")
	}
	res, ok := cmd().(ui.ActionResultMsg)
	if !ok || res.Err != nil {
		t.Fatalf("result = %#v", res)
	}
	if got, _ := reg.Get(id); got.IsDeleted() {
		t.Error("list still deleted")
	}
}

func TestEmptyDeletedSection(t *testing.T) {
	m, _ := newModel(t)
	m, _ = press(m, "tab")
	if view := m.View(); !strings.Contains(view, "No deleted lists") {
		t.Errorf("view = %s", view)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m, _ := newModel(t, "Groceries")
	m, _ = press(m, "d")
	if !m.Busy() {
		t.Fatal("expected confirm form")
	}
	if view := m.View(); !strings.Contains(view, DeleteConfirmation) {
		t.Errorf("view = %s", view)
	}
}
