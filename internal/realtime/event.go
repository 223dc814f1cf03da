package realtime

import (
	"errors"
	"fmt"

	"github.com/nhle/todoshare/internal/model"
)

// Collection names a table whose row changes are broadcast.
type Collection string

const (
	CollectionLists Collection = "lists"
	CollectionTasks Collection = "tasks"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one row change. Exactly one of List or Task is set, matching
// Collection. For deletes the row carries at least the id.
type Event struct {
	Collection Collection  `json:"collection"`
	Op         Op          `json:"op"`
	List       *model.List `json:"list,omitempty"`
	Task       *model.Task `json:"task,omitempty"`

	// Origin is set by the NATS bridge on relayed events.
	Origin string `json:"origin,omitempty"`
}

// ListEvent builds a lists event.
func ListEvent(op Op, l model.List) Event {
	return Event{Collection: CollectionLists, Op: op, List: &l}
}

// TaskEvent builds a tasks event.
func TaskEvent(op Op, t model.Task) Event {
	return Event{Collection: CollectionTasks, Op: op, Task: &t}
}

// RowID returns the id of the changed row.
func (e Event) RowID() string {
	switch {
	case e.List != nil:
		return e.List.ID
	case e.Task != nil:
		return e.Task.ID
	default:
		return ""
	}
}

// Validate reports whether the event is well formed.
func (e Event) Validate() error {
	switch e.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("unknown op %q", e.Op)
	}
	switch e.Collection {
	case CollectionLists:
		if e.List == nil {
			return errors.New("lists event without list row")
		}
	case CollectionTasks:
		if e.Task == nil {
			return errors.New("tasks event without task row")
		}
	default:
		return fmt.Errorf("unknown collection %q", e.Collection)
	}
	if e.RowID() == "" {
		return errors.New("event row has no id")
	}
	return nil
}

// Filter selects the events a subscriber receives. The zero Filter
// matches everything.
type Filter struct {
	Collection Collection `json:"collection,omitempty"`

	// ListID restricts task events to one list. It is ignored for lists.
	ListID string `json:"list_id,omitempty"`
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.Collection != "" && f.Collection != e.Collection {
		return false
	}
	if f.ListID != "" && e.Collection == CollectionTasks {
		return e.Task != nil && e.Task.ListID == f.ListID
	}
	return true
}
