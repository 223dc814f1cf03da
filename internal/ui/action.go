package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// actionTimeout bounds a single registry call made from the UI.
const actionTimeout = 15 * time.Second

// ActionResultMsg reports the outcome of a registry call started by a
// screen. Err is nil on success.
type ActionResultMsg struct {
	Action string
	Err    error
}

// Run returns a command that performs fn off the UI loop and reports the
// result as an ActionResultMsg.
func Run(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionResultMsg{Action: action, Err: fn(ctx)}
	}
}

// FormWidth clamps a huh form width to the content area.
func FormWidth(width int) int {
	w := width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// FormHeight clamps a huh form height to the content area.
func FormHeight(height int) int {
	h := height - 4
	if h < 10 {
		h = 10
	}
	return h
}
