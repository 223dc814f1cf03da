package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todoshare/internal/model"
)

const listColumns = "id, name, status, created_at"

// CreateList inserts a new active list and returns the stored row.
func (s *SQLStore) CreateList(ctx context.Context, in model.NewList) (model.List, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.List{}, invalid("list name must not be empty")
	}

	list := model.List{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    model.ListStatusActive,
		CreatedAt: now(),
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO lists (id, name, status, created_at)
		VALUES (?, ?, ?, ?)`),
		list.ID, list.Name, string(list.Status), list.CreatedAt,
	)
	if err != nil {
		return model.List{}, fmt.Errorf("creating list: %w", err)
	}
	return list, nil
}

// GetList retrieves a single list by id.
func (s *SQLStore) GetList(ctx context.Context, id string) (model.List, error) {
	var list model.List
	err := s.db.GetContext(ctx, &list,
		s.q("SELECT "+listColumns+" FROM lists WHERE id = ?"), id)
	if err != nil {
		return model.List{}, notFound(err, "list", id)
	}
	return list, nil
}

// GetLists retrieves lists matching filter ordered by creation time.
func (s *SQLStore) GetLists(ctx context.Context, filter ListFilter) ([]model.List, error) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := "SELECT " + listColumns + " FROM lists" + where(conditions) + orderBy(filter.SortDesc)

	lists := []model.List{}
	if err := s.db.SelectContext(ctx, &lists, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("querying lists: %w", err)
	}
	return lists, nil
}

// UpdateList applies patch to the list and returns the updated row.
// An empty patch returns the current row.
func (s *SQLStore) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.List{}, invalid("list name must not be empty")
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return model.List{}, invalid("unknown list status %q", *patch.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx,
			s.q("UPDATE lists SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
		if err != nil {
			return model.List{}, fmt.Errorf("updating list %s: %w", id, err)
		}
		if err := checkRowsAffected(res, "list", id); err != nil {
			return model.List{}, err
		}
	}

	return s.GetList(ctx, id)
}

// now returns the current UTC time at the precision both dialects store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
