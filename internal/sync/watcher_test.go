package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoshare/internal/registry"
)

type fakeSource struct {
	changes chan struct{}
	result  chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{changes: make(chan struct{}, 1), result: make(chan error, 1)}
}

func (f *fakeSource) Changes() <-chan struct{} { return f.changes }

func (f *fakeSource) Watch(ctx context.Context) error {
	select {
	case err := <-f.result:
		return err
	case <-ctx.Done():
		return nil
	}
}

func next(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestWatcherForwardsChanges(t *testing.T) {
	src := newFakeSource()
	w := New("tasks", src, nil)
	defer w.Stop()

	msg := next(t, w.Start(context.Background()))
	if st, ok := msg.(FeedStatusMsg); !ok || st.State != FeedLive {
		t.Fatalf("first msg = %#v, want live status", msg)
	}

	src.changes <- struct{}{}
	msg = next(t, w.WaitForNext())
	if ch, ok := msg.(ChangedMsg); !ok || ch.Name != "tasks" {
		t.Fatalf("msg = %#v, want ChangedMsg", msg)
	}
}

func TestWatcherReportsFeedEnd(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FeedState
	}{
		{"closed", registry.ErrFeedClosed, FeedClosed},
		{"failed", errors.New("dial refused"), FeedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			w := New("lists", src, nil)
			defer w.Stop()

			next(t, w.Start(context.Background()))
			src.result <- tt.err

			msg := next(t, w.WaitForNext())
			st, ok := msg.(FeedStatusMsg)
			if !ok || st.State != tt.want || !errors.Is(st.Err, tt.err) {
				t.Fatalf("msg = %#v, want state %s", msg, tt.want)
			}
			if state, err := w.Status(); state != tt.want || err == nil {
				t.Errorf("Status() = %s, %v", state, err)
			}
		})
	}
}

func TestWatcherStartTwice(t *testing.T) {
	w := New("lists", newFakeSource(), nil)
	defer w.Stop()

	if w.Start(context.Background()) == nil {
		t.Fatal("first Start returned nil")
	}
	if w.Start(context.Background()) != nil {
		t.Error("second Start should be a no-op")
	}
}

func TestWatcherStopReleasesWait(t *testing.T) {
	w := New("tasks", newFakeSource(), nil)
	next(t, w.Start(context.Background()))

	cmd := w.WaitForNext()
	w.Stop()
	if msg := next(t, cmd); msg != nil {
		t.Fatalf("msg after stop = %#v, want nil", msg)
	}
	if w.Start(context.Background()) != nil {
		t.Error("stopped watcher restarted")
	}
}
