package registry

import (
	"errors"

	"github.com/nhle/todoshare/internal/store"
)

var (
	// ErrEmptyName rejects a list name that is blank after trimming.
	ErrEmptyName = errors.New("registry: list name is empty")

	// ErrEmptyTitle rejects a task title that is blank after trimming.
	ErrEmptyTitle = errors.New("registry: task title is empty")

	// ErrInFlight is returned when a write on the same entity, or a
	// creation, is still outstanding.
	ErrInFlight = errors.New("registry: write already in flight")

	// ErrUnknown is returned for ids not present in the registry.
	ErrUnknown = errors.New("registry: unknown id")

	// ErrDeletedTask is returned when toggling a task that is soft-deleted.
	ErrDeletedTask = errors.New("registry: task is deleted")

	// ErrFeedClosed reports that the change feed ended. Nothing reconnects it.
	ErrFeedClosed = errors.New("registry: change feed closed")
)

// IsNotFound reports whether err means the remote has no such entity.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
