package registry

import (
	"context"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
)

// Subscription is an open change feed.
type Subscription interface {
	// Events is closed when the feed ends.
	Events() <-chan realtime.Event
	Close() error
}

// Remote is the shared store the registries read from and write to.
// Lists come back newest first and tasks oldest first.
type Remote interface {
	ListLists(ctx context.Context) ([]model.List, error)
	GetList(ctx context.Context, id string) (model.List, error)
	InsertList(ctx context.Context, in model.NewList) (model.List, error)
	UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error)

	ListTasks(ctx context.Context, listID string) ([]model.Task, error)
	InsertTask(ctx context.Context, in model.NewTask) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)

	Subscribe(ctx context.Context, filter realtime.Filter) (Subscription, error)
}
