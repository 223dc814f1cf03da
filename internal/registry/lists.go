package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
)

// ListSnapshot is a consistent view of the list registry.
type ListSnapshot struct {
	Active  []model.List
	Deleted []model.List

	// Saving holds the ids with an unconfirmed write.
	Saving map[string]bool
}

// ListRegistry holds the client's copy of every list and keeps it in step
// with the remote through optimistic writes and change events.
type ListRegistry struct {
	remote Remote
	state  *entities[model.List]
}

// NewListRegistry creates an empty registry. Call Load to fill it.
func NewListRegistry(remote Remote, opts ...Option) *ListRegistry {
	o := buildOptions(opts)
	o.logger = o.logger.With("component", "list_registry")
	return &ListRegistry{
		remote: remote,
		state:  newEntities(func(l model.List) string { return l.ID }, o),
	}
}

// Load replaces local state with the remote's lists, newest first.
func (r *ListRegistry) Load(ctx context.Context) error {
	lists, err := r.remote.ListLists(ctx)
	if err != nil {
		r.state.logger.Error("Loading lists failed", "error", err)
		return fmt.Errorf("loading lists: %w", err)
	}
	r.state.replaceAll(lists)
	return nil
}

// Create inserts a new active list and prepends it once the remote
// confirms. A failed create leaves state unchanged.
func (r *ListRegistry) Create(ctx context.Context, name string) (model.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.List{}, ErrEmptyName
	}
	if err := r.state.beginCreate(); err != nil {
		return model.List{}, err
	}

	list, err := r.remote.InsertList(ctx, model.NewList{Name: name})
	r.state.endCreate(list, err == nil)
	if err != nil {
		r.state.logger.Error("Creating list failed", "name", name, "error", err)
		return model.List{}, fmt.Errorf("creating list: %w", err)
	}
	return list, nil
}

// SoftDelete moves the list to the deleted view.
func (r *ListRegistry) SoftDelete(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.ListStatusDeleted)
}

// Recover moves a deleted list back to the active view.
func (r *ListRegistry) Recover(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.ListStatusActive)
}

func (r *ListRegistry) setStatus(ctx context.Context, id string, status model.ListStatus) error {
	patch := model.ListPatch{Status: &status}

	_, err := r.state.begin(id, func(l model.List) (model.List, error) {
		return patch.Apply(l), nil
	})
	if err != nil {
		return err
	}

	_, err = r.remote.UpdateList(ctx, id, patch)
	r.state.finish(id, err)
	if err != nil {
		r.state.logger.Error("Updating list status failed",
			"list_id", id, "status", status, "policy", r.state.policy, "error", err)
		return fmt.Errorf("setting list %s %s: %w", id, status, err)
	}
	return nil
}

// Apply merges a change event. Non-list events are ignored. It reports
// whether local state changed.
func (r *ListRegistry) Apply(e realtime.Event) bool {
	if e.Collection != realtime.CollectionLists || e.List == nil {
		return false
	}
	return r.state.apply(e.Op, *e.List)
}

// Get returns the list with id.
func (r *ListRegistry) Get(id string) (model.List, bool) {
	return r.state.get(id)
}

// All returns every list in display order.
func (r *ListRegistry) All() []model.List {
	return r.state.all()
}

// Active returns the lists not soft-deleted, in display order.
func (r *ListRegistry) Active() []model.List {
	return r.state.filter(func(l model.List) bool { return !l.IsDeleted() })
}

// Deleted returns the soft-deleted lists, in display order.
func (r *ListRegistry) Deleted() []model.List {
	return r.state.filter(model.List.IsDeleted)
}

// Saving reports whether id has an unconfirmed write.
func (r *ListRegistry) Saving(id string) bool {
	return r.state.isPending(id)
}

// Snapshot returns both views and the pending ids.
func (r *ListRegistry) Snapshot() ListSnapshot {
	s := ListSnapshot{Active: []model.List{}, Deleted: []model.List{}}
	items, saving := r.state.snapshot()
	for _, l := range items {
		if l.IsDeleted() {
			s.Deleted = append(s.Deleted, l)
		} else {
			s.Active = append(s.Active, l)
		}
	}
	s.Saving = saving
	return s
}

// Changes delivers a signal after local state changes. Signals coalesce.
func (r *ListRegistry) Changes() <-chan struct{} {
	return r.state.changes
}

// Filter is the subscription filter for list events.
func (r *ListRegistry) Filter() realtime.Filter {
	return realtime.Filter{Collection: realtime.CollectionLists}
}

// Watch subscribes to list events and applies them until ctx is done or
// the feed closes.
func (r *ListRegistry) Watch(ctx context.Context) error {
	return watch(ctx, r.remote, r.Filter(), r.Apply, r.state.logger)
}
