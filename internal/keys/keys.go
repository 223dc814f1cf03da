package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings shared by every screen.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
	Help   key.Binding

	// Lists and tasks
	NewList key.Binding
	AddTask key.Binding
	Toggle  key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Recover key.Binding

	// Sections
	ShowDeleted   key.Binding
	ShowCompleted key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open list"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		NewList: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new list"),
		),
		AddTask: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add task"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle done"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit task"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Recover: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recover"),
		),
		ShowDeleted: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "show deleted"),
		),
		ShowCompleted: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "show completed"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit, k.Help}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit, k.Help},
		{k.NewList, k.Delete, k.Recover, k.ShowDeleted},
		{k.AddTask, k.Toggle, k.Edit, k.ShowCompleted},
	}
}
