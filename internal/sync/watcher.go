package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoshare/internal/registry"
)

// FeedState is the lifecycle state of a change feed.
type FeedState int

const (
	FeedIdle FeedState = iota
	FeedLive
	FeedClosed
	FeedError
)

func (s FeedState) String() string {
	switch s {
	case FeedLive:
		return "live"
	case FeedClosed:
		return "closed"
	case FeedError:
		return "error"
	default:
		return "idle"
	}
}

// Source is a registry that signals local changes and can follow a feed.
type Source interface {
	Changes() <-chan struct{}
	Watch(ctx context.Context) error
}

// ChangedMsg is a tea.Msg sent when the watched registry's state changed.
type ChangedMsg struct {
	Name string
}

// FeedStatusMsg is a tea.Msg sent when the feed changes state.
type FeedStatusMsg struct {
	Name  string
	State FeedState
	Err   error
}

// Watcher runs a registry's feed in the background and turns its change
// signals into Bubble Tea messages.
type Watcher struct {
	name   string
	src    Source
	msgCh  chan tea.Msg
	done   chan struct{}
	cancel context.CancelFunc
	logger *slog.Logger

	mu      gosync.Mutex
	state   FeedState
	err     error
	running bool
	stopped bool
}

// New creates a Watcher for src. name tags its messages.
func New(name string, src Source, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		name:   name,
		src:    src,
		msgCh:  make(chan tea.Msg, 16),
		done:   make(chan struct{}),
		logger: logger.With("component", "watcher", "name", name),
	}
}

// Start launches the feed and change forwarding goroutines and returns
// the command that waits for the first message. A Watcher runs once.
func (w *Watcher) Start(ctx context.Context) tea.Cmd {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	go w.forwardChanges(ctx)
	go w.runFeed(ctx)

	return w.WaitForNext()
}

// Stop ends the feed and releases any command waiting in WaitForNext.
// Pending messages are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.done)
	if w.running {
		w.cancel()
		w.running = false
	}
}

// Status returns the current feed state and the error that ended it.
func (w *Watcher) Status() (FeedState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.err
}

func (w *Watcher) runFeed(ctx context.Context) {
	w.setStatus(ctx, FeedLive, nil)

	err := w.src.Watch(ctx)
	switch {
	case ctx.Err() != nil:
		w.mu.Lock()
		w.state, w.err = FeedIdle, nil
		w.mu.Unlock()
	case err == nil, errors.Is(err, registry.ErrFeedClosed):
		w.logger.Warn("Feed ended", "error", err)
		w.setStatus(ctx, FeedClosed, err)
	default:
		w.logger.Error("Feed failed", "error", err)
		w.setStatus(ctx, FeedError, err)
	}
}

func (w *Watcher) forwardChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.src.Changes():
			w.send(ctx, ChangedMsg{Name: w.name})
		}
	}
}

func (w *Watcher) setStatus(ctx context.Context, state FeedState, err error) {
	w.mu.Lock()
	w.state = state
	w.err = err
	w.mu.Unlock()

	w.send(ctx, FeedStatusMsg{Name: w.name, State: state, Err: err})
}

// send queues msg. Change signals are dropped when the queue is full,
// since one queued ChangedMsg already covers them.
func (w *Watcher) send(ctx context.Context, msg tea.Msg) {
	if _, ok := msg.(ChangedMsg); ok {
		select {
		case w.msgCh <- msg:
		default:
		}
		return
	}
	select {
	case w.msgCh <- msg:
	case <-ctx.Done():
	}
}

// WaitForNext returns a tea.Cmd that waits for the next message. Call it
// again after handling each ChangedMsg or FeedStatusMsg to keep listening.
// The command yields nil once the Watcher is stopped.
func (w *Watcher) WaitForNext() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-w.done:
			return nil
		default:
		}
		select {
		case msg := <-w.msgCh:
			return msg
		case <-w.done:
			return nil
		}
	}
}
