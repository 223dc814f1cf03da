package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todoshare/internal/model"
)

const taskColumns = "id, list_id, title, description, completed, status, created_at"

// taskRow mirrors the tasks table. description and status are nullable.
type taskRow struct {
	ID          string         `db:"id"`
	ListID      string         `db:"list_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Completed   bool           `db:"completed"`
	Status      sql.NullString `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r taskRow) toModel() model.Task {
	t := model.Task{
		ID:        r.ID,
		ListID:    r.ListID,
		Title:     r.Title,
		Completed: r.Completed,
		Status:    model.TaskStatus(r.Status.String),
		CreatedAt: r.CreatedAt,
	}
	if r.Description.Valid {
		d := r.Description.String
		t.Description = &d
	}
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// CreateTask inserts a new pending task into an existing list and returns
// the stored row.
func (s *SQLStore) CreateTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, invalid("task title must not be empty")
	}
	if _, err := s.GetList(ctx, in.ListID); err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:        uuid.New().String(),
		ListID:    in.ListID,
		Title:     title,
		Completed: false,
		Status:    model.TaskStatusPending,
		CreatedAt: now(),
	}
	if in.Description != nil {
		task.Description = model.NormalizeDescription(*in.Description)
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO tasks (id, list_id, title, description, completed, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		task.ID, task.ListID, task.Title, nullString(task.Description),
		task.Completed, string(task.Status), task.CreatedAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return task, nil
}

// GetTask retrieves a single task by id.
func (s *SQLStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row,
		s.q("SELECT "+taskColumns+" FROM tasks WHERE id = ?"), id)
	if err != nil {
		return model.Task{}, notFound(err, "task", id)
	}
	return row.toModel(), nil
}

// GetTasks retrieves the tasks of one list ordered by creation time.
func (s *SQLStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	if filter.ListID == "" {
		return nil, invalid("list id is required")
	}

	conditions := []string{"list_id = ?"}
	args := []any{filter.ListID}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := "SELECT " + taskColumns + " FROM tasks" + where(conditions) + orderBy(filter.SortDesc)

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks for list %s: %w", filter.ListID, err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toModel())
	}
	return tasks, nil
}

// UpdateTask applies patch to the task and returns the updated row.
// A description patch of "" stores NULL.
func (s *SQLStore) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	var sets []string
	var args []any

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Task{}, invalid("task title must not be empty")
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(model.NormalizeDescription(*patch.Description)))
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return model.Task{}, invalid("unknown task status %q", *patch.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx,
			s.q("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
		if err != nil {
			return model.Task{}, fmt.Errorf("updating task %s: %w", id, err)
		}
		if err := checkRowsAffected(res, "task", id); err != nil {
			return model.Task{}, err
		}
	}

	return s.GetTask(ctx, id)
}
