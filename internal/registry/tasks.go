package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
)

// TaskSnapshot is a consistent view of one list's tasks.
type TaskSnapshot struct {
	List      model.List
	Pending   []model.Task
	Completed []model.Task
	Deleted   []model.Task

	// Saving holds the ids with an unconfirmed write.
	Saving map[string]bool
}

// Total returns the number of tasks across all views.
func (s TaskSnapshot) Total() int {
	return len(s.Pending) + len(s.Completed) + len(s.Deleted)
}

// TaskRegistry holds the tasks of a single list. Events for other lists
// are ignored.
type TaskRegistry struct {
	remote Remote
	list   model.List
	state  *entities[model.Task]
}

// Open resolves listID and loads its tasks, oldest first. An unknown list
// yields an error matching store.ErrNotFound. Changes committed between the
// load and the first Watch subscription are not replayed.
func Open(ctx context.Context, remote Remote, listID string, opts ...Option) (*TaskRegistry, error) {
	o := buildOptions(opts)
	o.logger = o.logger.With("component", "task_registry", "list_id", listID)

	list, err := remote.GetList(ctx, listID)
	if err != nil {
		if !IsNotFound(err) {
			o.logger.Error("Resolving list failed", "error", err)
		}
		return nil, fmt.Errorf("opening list %s: %w", listID, err)
	}

	tasks, err := remote.ListTasks(ctx, listID)
	if err != nil {
		o.logger.Error("Loading tasks failed", "error", err)
		return nil, fmt.Errorf("loading tasks of list %s: %w", listID, err)
	}

	r := &TaskRegistry{
		remote: remote,
		list:   list,
		state:  newEntities(func(t model.Task) string { return t.ID }, o),
	}
	r.state.items = tasks
	return r, nil
}

// List returns the list this registry is scoped to.
func (r *TaskRegistry) List() model.List {
	return r.list
}

// Create inserts a pending task and prepends it once the remote confirms.
// A blank description is stored as absent.
func (r *TaskRegistry) Create(ctx context.Context, title, description string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if err := r.state.beginCreate(); err != nil {
		return model.Task{}, err
	}

	task, err := r.remote.InsertTask(ctx, model.NewTask{
		ListID:      r.list.ID,
		Title:       title,
		Description: model.NormalizeDescription(description),
	})
	r.state.endCreate(task, err == nil)
	if err != nil {
		r.state.logger.Error("Creating task failed", "title", title, "error", err)
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return task, nil
}

// ToggleCompleted flips a task between pending and completed. Only one
// write per task may be outstanding; a second call returns ErrInFlight.
func (r *TaskRegistry) ToggleCompleted(ctx context.Context, id string) error {
	var patch model.TaskPatch

	_, err := r.state.begin(id, func(t model.Task) (model.Task, error) {
		if t.View() == model.ViewDeleted {
			return t, ErrDeletedTask
		}
		completed := !t.Completed
		status := model.TaskStatusPending
		if completed {
			status = model.TaskStatusCompleted
		}
		patch = model.TaskPatch{Completed: &completed, Status: &status}
		return patch.Apply(t), nil
	})
	if err != nil {
		return err
	}
	return r.push(ctx, id, patch, "toggle")
}

// SoftDelete moves a task to the deleted view.
func (r *TaskRegistry) SoftDelete(ctx context.Context, id string) error {
	status := model.TaskStatusDeleted
	patch := model.TaskPatch{Status: &status}

	if _, err := r.state.begin(id, func(t model.Task) (model.Task, error) {
		return patch.Apply(t), nil
	}); err != nil {
		return err
	}
	return r.push(ctx, id, patch, "delete")
}

// Recover returns a deleted task to pending. Its prior completion is not
// restored.
func (r *TaskRegistry) Recover(ctx context.Context, id string) error {
	status := model.TaskStatusPending
	completed := false
	patch := model.TaskPatch{Status: &status, Completed: &completed}

	if _, err := r.state.begin(id, func(t model.Task) (model.Task, error) {
		return patch.Apply(t), nil
	}); err != nil {
		return err
	}
	return r.push(ctx, id, patch, "recover")
}

func (r *TaskRegistry) push(ctx context.Context, id string, patch model.TaskPatch, action string) error {
	_, err := r.remote.UpdateTask(ctx, id, patch)
	r.state.finish(id, err)
	if err != nil {
		r.state.logger.Error("Task write failed",
			"action", action, "task_id", id, "policy", r.state.policy, "error", err)
		return fmt.Errorf("%s task %s: %w", action, id, err)
	}
	return nil
}

// Edit changes a task's title and description. Local state changes only
// after the remote confirms.
func (r *TaskRegistry) Edit(ctx context.Context, id, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	desc := strings.TrimSpace(description)
	patch := model.TaskPatch{Title: &title, Description: &desc}

	// Reserve the task without changing it.
	if _, err := r.state.begin(id, func(t model.Task) (model.Task, error) {
		return t, nil
	}); err != nil {
		return err
	}

	_, err := r.remote.UpdateTask(ctx, id, patch)
	if err != nil {
		r.state.finish(id, err)
		r.state.logger.Error("Editing task failed", "task_id", id, "error", err)
		return fmt.Errorf("editing task %s: %w", id, err)
	}
	r.state.confirm(id, patch.Apply)
	return nil
}

// Apply merges a change event. Events for other collections or lists are
// ignored. It reports whether local state changed.
func (r *TaskRegistry) Apply(e realtime.Event) bool {
	if e.Collection != realtime.CollectionTasks || e.Task == nil {
		return false
	}
	if e.Task.ListID != r.list.ID {
		return false
	}
	return r.state.apply(e.Op, *e.Task)
}

// Get returns the task with id.
func (r *TaskRegistry) Get(id string) (model.Task, bool) {
	return r.state.get(id)
}

// All returns every task in display order.
func (r *TaskRegistry) All() []model.Task {
	return r.state.all()
}

// Pending returns tasks classified pending, in display order.
func (r *TaskRegistry) Pending() []model.Task {
	return r.view(model.ViewPending)
}

// Completed returns tasks classified completed, in display order.
func (r *TaskRegistry) Completed() []model.Task {
	return r.view(model.ViewCompleted)
}

// Deleted returns soft-deleted tasks, in display order.
func (r *TaskRegistry) Deleted() []model.Task {
	return r.view(model.ViewDeleted)
}

func (r *TaskRegistry) view(v model.TaskView) []model.Task {
	return r.state.filter(func(t model.Task) bool { return t.View() == v })
}

// Saving reports whether id has an unconfirmed write.
func (r *TaskRegistry) Saving(id string) bool {
	return r.state.isPending(id)
}

// Snapshot returns the list header, the three views and the pending ids.
func (r *TaskRegistry) Snapshot() TaskSnapshot {
	s := TaskSnapshot{
		List:      r.list,
		Pending:   []model.Task{},
		Completed: []model.Task{},
		Deleted:   []model.Task{},
	}
	items, saving := r.state.snapshot()
	for _, t := range items {
		switch t.View() {
		case model.ViewDeleted:
			s.Deleted = append(s.Deleted, t)
		case model.ViewCompleted:
			s.Completed = append(s.Completed, t)
		default:
			s.Pending = append(s.Pending, t)
		}
	}
	s.Saving = saving
	return s
}

// Changes delivers a signal after local state changes. Signals coalesce.
func (r *TaskRegistry) Changes() <-chan struct{} {
	return r.state.changes
}

// Filter is the subscription filter for this list's task events.
func (r *TaskRegistry) Filter() realtime.Filter {
	return realtime.Filter{Collection: realtime.CollectionTasks, ListID: r.list.ID}
}

// Watch subscribes to this list's task events and applies them until ctx
// is done or the feed closes.
func (r *TaskRegistry) Watch(ctx context.Context) error {
	return watch(ctx, r.remote, r.Filter(), r.Apply, r.state.logger)
}
