package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/remote"
	"github.com/nhle/todoshare/internal/store"
)

// FakeRemote is a registry.Remote backed by an in-memory store and hub,
// with error injection and a gate for holding writes in flight.
type FakeRemote struct {
	*remote.Local

	Store *store.SQLStore
	Hub   *realtime.Hub

	mu sync.Mutex

	// Errors returned instead of calling through, when set.
	GetListErr    error
	InsertListErr error
	UpdateListErr error
	InsertTaskErr error
	UpdateTaskErr error
	SubscribeErr  error

	gate    chan struct{}
	entered chan string
	calls   []string
}

// NewFakeRemote creates a fake whose writes publish to its hub.
func NewFakeRemote(t *testing.T) *FakeRemote {
	t.Helper()

	s := NewTestStore(t)
	hub := realtime.NewHub(64, nil)
	t.Cleanup(hub.Close)

	return &FakeRemote{
		Local: remote.NewLocal(s, hub),
		Store: s,
		Hub:   hub,
	}
}

var _ registry.Remote = (*FakeRemote)(nil)

// Hold makes subsequent writes block until Release is called. Each write
// that starts blocking reports its operation name on the returned channel.
func (f *FakeRemote) Hold() <-chan string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gate = make(chan struct{})
	f.entered = make(chan string, 16)
	return f.entered
}

// Release unblocks every held write.
func (f *FakeRemote) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// SetErr sets an injected error under the lock.
func (f *FakeRemote) SetErr(target *error, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*target = err
}

// Calls returns the operations invoked so far.
func (f *FakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// enter records the call, waits on the gate if held, and returns the
// injected error for op.
func (f *FakeRemote) enter(ctx context.Context, op string, injected *error) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		entered <- op
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return *injected
}

func (f *FakeRemote) GetList(ctx context.Context, id string) (model.List, error) {
	f.mu.Lock()
	err := f.GetListErr
	f.calls = append(f.calls, "GetList")
	f.mu.Unlock()
	if err != nil {
		return model.List{}, err
	}
	return f.Local.GetList(ctx, id)
}

func (f *FakeRemote) InsertList(ctx context.Context, in model.NewList) (model.List, error) {
	if err := f.enter(ctx, "InsertList", &f.InsertListErr); err != nil {
		return model.List{}, err
	}
	return f.Local.InsertList(ctx, in)
}

func (f *FakeRemote) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	if err := f.enter(ctx, "UpdateList", &f.UpdateListErr); err != nil {
		return model.List{}, err
	}
	return f.Local.UpdateList(ctx, id, patch)
}

func (f *FakeRemote) InsertTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	if err := f.enter(ctx, "InsertTask", &f.InsertTaskErr); err != nil {
		return model.Task{}, err
	}
	return f.Local.InsertTask(ctx, in)
}

func (f *FakeRemote) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if err := f.enter(ctx, "UpdateTask", &f.UpdateTaskErr); err != nil {
		return model.Task{}, err
	}
	return f.Local.UpdateTask(ctx, id, patch)
}

func (f *FakeRemote) Subscribe(ctx context.Context, filter realtime.Filter) (registry.Subscription, error) {
	f.mu.Lock()
	err := f.SubscribeErr
	f.calls = append(f.calls, "Subscribe")
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Local.Subscribe(ctx, filter)
}
