package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/store"
	"github.com/nhle/todoshare/internal/testutil"
)

func mustCreateList(t *testing.T, s store.Store, name string) model.List {
	t.Helper()
	l, err := s.CreateList(context.Background(), model.NewList{Name: name})
	if err != nil {
		t.Fatalf("CreateList(%q): %v", name, err)
	}
	return l
}

func mustCreateTask(t *testing.T, s store.Store, listID, title string) model.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), model.NewTask{ListID: listID, Title: title})
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", title, err)
	}
	return task
}

func TestCreateListDefaults(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	l := mustCreateList(t, s, "  Groceries  ")
	if l.ID == "" {
		t.Fatal("expected generated id")
	}
	if l.Name != "Groceries" {
		t.Errorf("name = %q, want trimmed", l.Name)
	}
	if l.Status != model.ListStatusActive {
		t.Errorf("status = %q, want active", l.Status)
	}

	got, err := s.GetList(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if got.Name != l.Name || got.Status != l.Status || !got.CreatedAt.Equal(l.CreatedAt) {
		t.Errorf("GetList = %+v, want %+v", got, l)
	}
}

func TestCreateListRejectsBlankName(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.CreateList(context.Background(), model.NewList{Name: "   "})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestGetListNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.GetList(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetListsOrderAndFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	a := mustCreateList(t, s, "A")
	time.Sleep(2 * time.Millisecond)
	b := mustCreateList(t, s, "B")
	time.Sleep(2 * time.Millisecond)
	c := mustCreateList(t, s, "C")

	if _, err := s.UpdateList(ctx, b.ID, model.ListPatch{Status: model.Ptr(model.ListStatusDeleted)}); err != nil {
		t.Fatalf("UpdateList: %v", err)
	}

	all, err := s.GetLists(ctx, store.ListFilter{SortDesc: true})
	if err != nil {
		t.Fatalf("GetLists: %v", err)
	}
	if len(all) != 3 || all[0].ID != c.ID || all[1].ID != b.ID || all[2].ID != a.ID {
		t.Fatalf("unexpected order: %+v", all)
	}

	deleted := model.ListStatusDeleted
	onlyDeleted, err := s.GetLists(ctx, store.ListFilter{Status: &deleted})
	if err != nil {
		t.Fatalf("GetLists deleted: %v", err)
	}
	if len(onlyDeleted) != 1 || onlyDeleted[0].ID != b.ID {
		t.Fatalf("deleted filter = %+v", onlyDeleted)
	}
}

func TestUpdateListNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.UpdateList(context.Background(), "missing", model.ListPatch{Name: model.Ptr("x")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateListRejectsUnknownStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	l := mustCreateList(t, s, "A")
	_, err := s.UpdateList(context.Background(), l.ID, model.ListPatch{Status: model.Ptr(model.ListStatus("gone"))})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	l := mustCreateList(t, s, "Groceries")

	task, err := s.CreateTask(ctx, model.NewTask{ListID: l.ID, Title: " Milk ", Description: model.Ptr("  ")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Title != "Milk" || task.Completed || task.Status != model.TaskStatusPending {
		t.Errorf("unexpected task %+v", task)
	}
	if task.Description != nil {
		t.Errorf("blank description stored as %q", *task.Description)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Description != nil || got.Status != model.TaskStatusPending || got.ListID != l.ID {
		t.Errorf("GetTask = %+v", got)
	}
}

func TestCreateTaskUnknownList(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.CreateTask(context.Background(), model.NewTask{ListID: "missing", Title: "Milk"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTasksAscendingPerList(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	a := mustCreateList(t, s, "A")
	b := mustCreateList(t, s, "B")

	first := mustCreateTask(t, s, a.ID, "first")
	time.Sleep(2 * time.Millisecond)
	mustCreateTask(t, s, b.ID, "other list")
	second := mustCreateTask(t, s, a.ID, "second")

	tasks, err := s.GetTasks(ctx, store.TaskFilter{ListID: a.ID})
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != first.ID || tasks[1].ID != second.ID {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	l := mustCreateList(t, s, "A")
	task, err := s.CreateTask(ctx, model.NewTask{ListID: l.ID, Title: "Milk", Description: model.Ptr("2 litres")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{
		Completed: model.Ptr(true),
		Status:    model.Ptr(model.TaskStatusCompleted),
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !got.Completed || got.Status != model.TaskStatusCompleted || got.DescriptionText() != "2 litres" {
		t.Errorf("after toggle: %+v", got)
	}

	got, err = s.UpdateTask(ctx, task.ID, model.TaskPatch{Description: model.Ptr("")})
	if err != nil {
		t.Fatalf("UpdateTask clear description: %v", err)
	}
	if got.Description != nil {
		t.Errorf("description = %q, want nil", *got.Description)
	}
}

func TestUpdateTaskErrors(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	l := mustCreateList(t, s, "A")
	task := mustCreateTask(t, s, l.ID, "Milk")

	if _, err := s.UpdateTask(ctx, "missing", model.TaskPatch{Completed: model.Ptr(true)}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{Title: model.Ptr(" ")}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("blank title: err = %v, want ErrInvalid", err)
	}
	if _, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{Status: model.Ptr(model.TaskStatus(""))}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("legacy status write: err = %v, want ErrInvalid", err)
	}
}

func TestLegacyTaskRowsKeepNullStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	l := mustCreateList(t, s, "A")

	_, err := s.DB().Exec(
		"INSERT INTO tasks (id, list_id, title, completed, created_at) VALUES (?, ?, ?, ?, ?)",
		"legacy-1", l.ID, "old done", true, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("inserting legacy row: %v", err)
	}

	task, err := s.GetTask(ctx, "legacy-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != "" {
		t.Errorf("status = %q, want empty", task.Status)
	}
	if task.View() != model.ViewCompleted {
		t.Errorf("view = %v, want completed", task.View())
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := store.Open("oracle", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenReportsDriver(t *testing.T) {
	s := testutil.NewTestStore(t)
	if got := s.Driver(); got != model.DriverSQLite {
		t.Errorf("Driver() = %q, want %q", got, model.DriverSQLite)
	}
}
