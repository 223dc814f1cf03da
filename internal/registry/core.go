package registry

import (
	"log/slog"
	"sync"

	"github.com/nhle/todoshare/internal/realtime"
)

// pendingWrite marks an entity whose optimistic value has not been
// confirmed by the remote yet.
type pendingWrite[T any] struct {
	prior     T
	tentative T

	// superseded is set when an event replaced the entity meanwhile.
	superseded bool
}

// entities is the ordered, mutex-guarded entity set shared by both
// registries. Its lock is never held across a remote call.
type entities[T any] struct {
	mu       sync.Mutex
	items    []T
	pending  map[string]*pendingWrite[T]
	creating bool

	idOf    func(T) string
	changes chan struct{}
	policy  FailurePolicy
	logger  *slog.Logger
}

func newEntities[T any](idOf func(T) string, o options) *entities[T] {
	return &entities[T]{
		pending: make(map[string]*pendingWrite[T]),
		idOf:    idOf,
		changes: make(chan struct{}, 1),
		policy:  o.policy,
		logger:  o.logger,
	}
}

// notify publishes a coalesced change signal.
func (e *entities[T]) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// indexLocked returns the position of id or -1.
func (e *entities[T]) indexLocked(id string) int {
	for i, v := range e.items {
		if e.idOf(v) == id {
			return i
		}
	}
	return -1
}

func (e *entities[T]) get(id string) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexLocked(id); i >= 0 {
		return e.items[i], true
	}
	var zero T
	return zero, false
}

func (e *entities[T]) all() []T {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]T, len(e.items))
	copy(out, e.items)
	return out
}

func (e *entities[T]) filter(keep func(T) bool) []T {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := []T{}
	for _, v := range e.items {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (e *entities[T]) isPending(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.pending[id]
	return ok
}

// snapshot returns the items and pending ids under one lock.
func (e *entities[T]) snapshot() ([]T, map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := make([]T, len(e.items))
	copy(items, e.items)
	ids := make(map[string]bool, len(e.pending))
	for id := range e.pending {
		ids[id] = true
	}
	return items, ids
}

func (e *entities[T]) replaceAll(items []T) {
	e.mu.Lock()
	e.items = append([]T(nil), items...)
	e.mu.Unlock()
	e.notify()
}

// beginCreate claims the single creation slot.
func (e *entities[T]) beginCreate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.creating {
		return ErrInFlight
	}
	e.creating = true
	return nil
}

// endCreate releases the creation slot and, on success, prepends the
// stored row unless its insert event already arrived.
func (e *entities[T]) endCreate(v T, ok bool) {
	e.mu.Lock()
	e.creating = false
	added := false
	if ok && e.indexLocked(e.idOf(v)) < 0 {
		e.items = append([]T{v}, e.items...)
		added = true
	}
	e.mu.Unlock()

	if added {
		e.notify()
	}
}

// begin applies mutate to the entity optimistically and records a pending
// marker. It fails with ErrUnknown or ErrInFlight without changing state.
func (e *entities[T]) begin(id string, mutate func(T) (T, error)) (T, error) {
	e.mu.Lock()

	var zero T
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return zero, ErrUnknown
	}
	if _, busy := e.pending[id]; busy {
		e.mu.Unlock()
		return zero, ErrInFlight
	}

	prior := e.items[i]
	tentative, err := mutate(prior)
	if err != nil {
		e.mu.Unlock()
		return zero, err
	}
	e.items[i] = tentative
	e.pending[id] = &pendingWrite[T]{prior: prior, tentative: tentative}
	e.mu.Unlock()

	e.notify()
	return tentative, nil
}

// finish clears the marker for id. On failure under Rollback the prior
// value is restored if nothing replaced the entity meanwhile.
func (e *entities[T]) finish(id string, err error) {
	e.mu.Lock()
	p, ok := e.pending[id]
	delete(e.pending, id)
	if ok && err != nil && e.policy == Rollback && !p.superseded {
		if i := e.indexLocked(id); i >= 0 {
			e.items[i] = p.prior
		}
	}
	e.mu.Unlock()

	e.notify()
}

// confirm clears the marker for id and, unless an event replaced the
// entity meanwhile, applies update to the current value.
func (e *entities[T]) confirm(id string, update func(T) T) {
	e.mu.Lock()
	p, ok := e.pending[id]
	delete(e.pending, id)
	if ok && !p.superseded {
		if i := e.indexLocked(id); i >= 0 {
			e.items[i] = update(e.items[i])
		}
	}
	e.mu.Unlock()

	e.notify()
}

// apply merges one change event. Insert prepends unknown ids and replaces
// known ones, update replaces known ids, delete removes. Applying the same
// event twice leaves the same state as applying it once.
func (e *entities[T]) apply(op realtime.Op, v T) bool {
	id := e.idOf(v)

	e.mu.Lock()
	i := e.indexLocked(id)
	changed := false
	switch op {
	case realtime.OpInsert:
		if i >= 0 {
			e.items[i] = v
		} else {
			e.items = append([]T{v}, e.items...)
		}
		changed = true
	case realtime.OpUpdate:
		if i >= 0 {
			e.items[i] = v
			changed = true
		}
	case realtime.OpDelete:
		if i >= 0 {
			e.items = append(e.items[:i:i], e.items[i+1:]...)
			changed = true
		}
	}
	if p, ok := e.pending[id]; ok && changed {
		p.superseded = true
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return changed
}
