package remote

import (
	"context"
	"log/slog"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/store"
)

// Local serves the registry contract straight from a store, publishing a
// change event on the hub after every successful write.
type Local struct {
	store   store.Store
	hub     *realtime.Hub
	publish bool
	logger  *slog.Logger
}

// LocalOption configures a Local.
type LocalOption func(*Local)

// WithPublish controls whether writes publish events. Disable it when
// another source, such as the postgres trigger, already emits them.
func WithPublish(publish bool) LocalOption {
	return func(l *Local) { l.publish = publish }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

// NewLocal wires a store and a hub together.
func NewLocal(s store.Store, hub *realtime.Hub, opts ...LocalOption) *Local {
	l := &Local{store: s, hub: hub, publish: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "local_remote")
	return l
}

var _ registry.Remote = (*Local)(nil)

func (l *Local) emit(e realtime.Event) {
	if l.publish {
		l.hub.Publish(e)
	}
}

// ListLists returns every list, newest first.
func (l *Local) ListLists(ctx context.Context) ([]model.List, error) {
	return l.store.GetLists(ctx, store.ListFilter{SortDesc: true})
}

// GetList returns one list.
func (l *Local) GetList(ctx context.Context, id string) (model.List, error) {
	return l.store.GetList(ctx, id)
}

// InsertList stores a new list.
func (l *Local) InsertList(ctx context.Context, in model.NewList) (model.List, error) {
	list, err := l.store.CreateList(ctx, in)
	if err != nil {
		return model.List{}, err
	}
	l.emit(realtime.ListEvent(realtime.OpInsert, list))
	return list, nil
}

// UpdateList patches a list.
func (l *Local) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	list, err := l.store.UpdateList(ctx, id, patch)
	if err != nil {
		return model.List{}, err
	}
	l.emit(realtime.ListEvent(realtime.OpUpdate, list))
	return list, nil
}

// ListTasks returns the tasks of an existing list, oldest first.
func (l *Local) ListTasks(ctx context.Context, listID string) ([]model.Task, error) {
	if _, err := l.store.GetList(ctx, listID); err != nil {
		return nil, err
	}
	return l.store.GetTasks(ctx, store.TaskFilter{ListID: listID})
}

// InsertTask stores a new task.
func (l *Local) InsertTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	task, err := l.store.CreateTask(ctx, in)
	if err != nil {
		return model.Task{}, err
	}
	l.emit(realtime.TaskEvent(realtime.OpInsert, task))
	return task, nil
}

// UpdateTask patches a task.
func (l *Local) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	task, err := l.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return model.Task{}, err
	}
	l.emit(realtime.TaskEvent(realtime.OpUpdate, task))
	return task, nil
}

// Subscribe opens a hub subscription.
func (l *Local) Subscribe(_ context.Context, filter realtime.Filter) (registry.Subscription, error) {
	return l.hub.Subscribe(filter), nil
}
