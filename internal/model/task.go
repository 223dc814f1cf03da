package model

import "time"

// TaskStatus is the lifecycle state of a task. Rows written before the
// status column existed carry an empty status.
type TaskStatus string

// Task status constants.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusDeleted   TaskStatus = "deleted"
)

// Valid reports whether s is a status this system writes. The empty
// legacy status is not valid for writes.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusDeleted:
		return true
	default:
		return false
	}
}

// TaskView names the section a task is displayed in. Every task belongs
// to exactly one view.
type TaskView int

const (
	ViewPending TaskView = iota
	ViewCompleted
	ViewDeleted
)

func (v TaskView) String() string {
	switch v {
	case ViewCompleted:
		return "completed"
	case ViewDeleted:
		return "deleted"
	default:
		return "pending"
	}
}

// Task is a single to-do item belonging to exactly one list.
type Task struct {
	// ID is assigned by the store and never changes.
	ID string `json:"id" db:"id"`

	// ListID references the owning list. It is immutable.
	ListID string `json:"list_id" db:"list_id"`

	Title string `json:"title" db:"title"`

	// Description is nil when absent. Empty descriptions are stored as nil.
	Description *string `json:"description" db:"description"`

	// Completed is the legacy completion flag. It is kept in sync with
	// Status for every row this system writes.
	Completed bool `json:"completed" db:"completed"`

	// Status is empty for legacy rows.
	Status TaskStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// View classifies the task. Deleted wins over everything; a completed
// status or a set completed flag means completed; anything else, including
// legacy rows with no status and completed unset, is pending.
func (t Task) View() TaskView {
	switch {
	case t.Status == TaskStatusDeleted:
		return ViewDeleted
	case t.Status == TaskStatusCompleted || t.Completed:
		return ViewCompleted
	default:
		return ViewPending
	}
}

// DescriptionText returns the description or "" when absent.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// NewTask holds the caller-supplied fields of a task insert.
type NewTask struct {
	ListID      string  `json:"list_id" validate:"required"`
	Title       string  `json:"title" validate:"notblank"`
	Description *string `json:"description,omitempty"`
}
