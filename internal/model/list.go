package model

import "time"

// ListStatus is the lifecycle state of a list.
type ListStatus string

// List status constants.
const (
	ListStatusActive  ListStatus = "active"
	ListStatusDeleted ListStatus = "deleted"
)

// Valid reports whether s is a known list status.
func (s ListStatus) Valid() bool {
	switch s {
	case ListStatusActive, ListStatusDeleted:
		return true
	default:
		return false
	}
}

// List is a named collection of tasks. Lists are never removed by this
// system; deleting one flips its status and recovering flips it back.
type List struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Status    ListStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsDeleted reports whether the list has been soft-deleted.
func (l List) IsDeleted() bool {
	return l.Status == ListStatusDeleted
}

// NewList holds the caller-supplied fields of a list insert.
// ID, status and creation time are assigned by the store.
type NewList struct {
	Name string `json:"name" validate:"notblank"`
}
