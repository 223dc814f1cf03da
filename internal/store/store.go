package store

import (
	"context"
	"errors"

	"github.com/nhle/todoshare/internal/model"
)

var (
	// ErrNotFound is returned when a list or task id does not resolve.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalid is returned when input fails validation before any write.
	ErrInvalid = errors.New("store: invalid input")
)

// ListFilter controls filtering and ordering for list queries.
type ListFilter struct {
	Status   *model.ListStatus // nil (all)
	SortDesc bool              // created_at descending when true
}

// TaskFilter controls filtering and ordering for task queries.
type TaskFilter struct {
	ListID   string            // required
	Status   *model.TaskStatus // nil (all); legacy rows only match nil
	SortDesc bool              // created_at descending when true
}

// Store defines the persistence interface for lists and tasks.
// Nothing is ever hard-deleted through it.
type Store interface {
	// === Lists ===

	CreateList(ctx context.Context, in model.NewList) (model.List, error)
	GetList(ctx context.Context, id string) (model.List, error)
	GetLists(ctx context.Context, filter ListFilter) ([]model.List, error)
	UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error)

	// === Tasks ===

	CreateTask(ctx context.Context, in model.NewTask) (model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)

	Close() error
}
