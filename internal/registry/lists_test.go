package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/testutil"
)

var errBoom = errors.New("boom")

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func newListRegistry(t *testing.T, opts ...registry.Option) (*registry.ListRegistry, *testutil.FakeRemote) {
	t.Helper()
	fake := testutil.NewFakeRemote(t)
	r := registry.NewListRegistry(fake, opts...)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r, fake
}

func ids(lists []model.List) []string {
	out := make([]string, 0, len(lists))
	for _, l := range lists {
		out = append(out, l.ID)
	}
	return out
}

func TestListCreateAppearsActiveAtTop(t *testing.T) {
	r, _ := newListRegistry(t)
	ctx := context.Background()

	if _, err := r.Create(ctx, "Chores"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	groceries, err := r.Create(ctx, "  Groceries ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	active := r.Active()
	if len(active) != 2 || active[0].ID != groceries.ID {
		t.Fatalf("active = %v, want Groceries first", ids(active))
	}
	if active[0].Name != "Groceries" || active[0].Status != model.ListStatusActive {
		t.Errorf("unexpected list %+v", active[0])
	}
	if len(r.Deleted()) != 0 {
		t.Errorf("deleted = %v, want empty", ids(r.Deleted()))
	}
}

func TestListCreateRejectsBlankName(t *testing.T) {
	r, fake := newListRegistry(t)

	_, err := r.Create(context.Background(), "   ")
	if !errors.Is(err, registry.ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}
	for _, c := range fake.Calls() {
		if c == "InsertList" {
			t.Fatal("blank name reached the remote")
		}
	}
}

func TestListCreateFailureLeavesStateUnchanged(t *testing.T) {
	r, fake := newListRegistry(t)
	ctx := context.Background()
	if _, err := r.Create(ctx, "Existing"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	fake.SetErr(&fake.InsertListErr, errBoom)
	if _, err := r.Create(ctx, "Groceries"); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if got := r.All(); len(got) != 1 || got[0].Name != "Existing" {
		t.Errorf("state changed after failed create: %+v", got)
	}

	// The creation slot is released after a failure.
	fake.SetErr(&fake.InsertListErr, nil)
	if _, err := r.Create(ctx, "Groceries"); err != nil {
		t.Fatalf("Create after failure: %v", err)
	}
}

func TestListCreateSingleFlight(t *testing.T) {
	r, fake := newListRegistry(t)
	ctx := context.Background()

	entered := fake.Hold()
	done := make(chan error, 1)
	go func() {
		_, err := r.Create(ctx, "First")
		done <- err
	}()
	<-entered

	if _, err := r.Create(ctx, "Second"); !errors.Is(err, registry.ErrInFlight) {
		t.Fatalf("err = %v, want ErrInFlight", err)
	}

	fake.Release()
	if err := <-done; err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if got := r.All(); len(got) != 1 || got[0].Name != "First" {
		t.Errorf("lists = %+v", got)
	}
}

// echoRemote delivers the insert event to the registry before the insert
// call returns, as a fast change feed would.
type echoRemote struct {
	*testutil.FakeRemote
	reg *registry.ListRegistry
}

func (e *echoRemote) InsertList(ctx context.Context, in model.NewList) (model.List, error) {
	l, err := e.FakeRemote.InsertList(ctx, in)
	if err == nil {
		e.reg.Apply(realtime.ListEvent(realtime.OpInsert, l))
	}
	return l, err
}

func TestListCreateEchoNotDuplicated(t *testing.T) {
	echo := &echoRemote{FakeRemote: testutil.NewFakeRemote(t)}
	r := registry.NewListRegistry(echo)
	echo.reg = r

	l, err := r.Create(context.Background(), "Groceries")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	r.Apply(realtime.ListEvent(realtime.OpInsert, l))

	if got := r.All(); len(got) != 1 {
		t.Fatalf("lists = %v, want exactly one", ids(got))
	}
}

func TestListSoftDeleteThenRecover(t *testing.T) {
	r, fake := newListRegistry(t)
	ctx := context.Background()
	l, err := r.Create(ctx, "Groceries")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.SoftDelete(ctx, l.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if len(r.Active()) != 0 || len(r.Deleted()) != 1 {
		t.Fatalf("after delete active=%v deleted=%v", ids(r.Active()), ids(r.Deleted()))
	}

	if err := r.Recover(ctx, l.ID); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(r.Active()) != 1 || len(r.Deleted()) != 0 {
		t.Fatalf("after recover active=%v deleted=%v", ids(r.Active()), ids(r.Deleted()))
	}

	stored, err := fake.Store.GetList(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if stored.Status != model.ListStatusActive {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestListSoftDeleteUnknown(t *testing.T) {
	r, _ := newListRegistry(t)
	if err := r.SoftDelete(context.Background(), "nope"); !errors.Is(err, registry.ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
}

func TestListSoftDeleteInFlight(t *testing.T) {
	r, fake := newListRegistry(t)
	ctx := context.Background()
	l, err := r.Create(ctx, "Groceries")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entered := fake.Hold()
	done := make(chan error, 1)
	go func() { done <- r.SoftDelete(ctx, l.ID) }()
	<-entered

	if !r.Saving(l.ID) {
		t.Error("expected saving marker while write is outstanding")
	}
	if snap := r.Snapshot(); !snap.Saving[l.ID] || len(snap.Deleted) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if err := r.Recover(ctx, l.ID); !errors.Is(err, registry.ErrInFlight) {
		t.Fatalf("err = %v, want ErrInFlight", err)
	}

	fake.Release()
	if err := <-done; err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if r.Saving(l.ID) {
		t.Error("saving marker not cleared")
	}
}

func TestListFailurePolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     registry.FailurePolicy
		wantStatus model.ListStatus
	}{
		{"keep tentative", registry.KeepTentative, model.ListStatusDeleted},
		{"rollback", registry.Rollback, model.ListStatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fake := newListRegistry(t, registry.WithFailurePolicy(tt.policy))
			ctx := context.Background()
			l, err := r.Create(ctx, "Groceries")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}

			fake.SetErr(&fake.UpdateListErr, errBoom)
			if err := r.SoftDelete(ctx, l.ID); !errors.Is(err, errBoom) {
				t.Fatalf("err = %v, want errBoom", err)
			}

			got, _ := r.Get(l.ID)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if r.Saving(l.ID) {
				t.Error("saving marker not cleared after failure")
			}
		})
	}
}

func TestListApplyIdempotent(t *testing.T) {
	r, _ := newListRegistry(t)
	l := model.List{ID: "l1", Name: "Groceries", Status: model.ListStatusActive, CreatedAt: time.Now().UTC()}

	insert := realtime.ListEvent(realtime.OpInsert, l)
	r.Apply(insert)
	once := r.All()
	r.Apply(insert)
	if got := r.All(); len(got) != 1 || len(once) != 1 || got[0] != once[0] {
		t.Fatalf("insert twice: %+v vs %+v", got, once)
	}

	l.Status = model.ListStatusDeleted
	update := realtime.ListEvent(realtime.OpUpdate, l)
	r.Apply(update)
	r.Apply(update)
	if got := r.Deleted(); len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("update twice: %+v", r.All())
	}

	del := realtime.ListEvent(realtime.OpDelete, model.List{ID: "l1"})
	if !r.Apply(del) {
		t.Error("first delete should change state")
	}
	if r.Apply(del) {
		t.Error("second delete should be a no-op")
	}
	if len(r.All()) != 0 {
		t.Fatalf("delete twice: %+v", r.All())
	}
}

func TestListApplyUpdateForUnknownIgnored(t *testing.T) {
	r, _ := newListRegistry(t)
	if r.Apply(realtime.ListEvent(realtime.OpUpdate, model.List{ID: "ghost", Name: "x"})) {
		t.Error("update for unknown id should be ignored")
	}
	if r.Apply(realtime.TaskEvent(realtime.OpInsert, model.Task{ID: "t", ListID: "l"})) {
		t.Error("task event should be ignored by list registry")
	}
	if len(r.All()) != 0 {
		t.Errorf("lists = %+v", r.All())
	}
}

func TestListWatchReceivesOtherClientsWrites(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	watcher := registry.NewListRegistry(fake)
	writer := registry.NewListRegistry(fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()
	waitFor(t, "subscription", func() bool { return fake.Hub.Len() == 1 })

	drain(watcher.Changes())
	l, err := writer.Create(context.Background(), "Shared")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	select {
	case <-watcher.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}
	if got, ok := watcher.Get(l.ID); !ok || got.Name != "Shared" {
		t.Fatalf("watcher did not see list: %+v", watcher.All())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch after cancel: %v", err)
	}
	waitFor(t, "unsubscribe", func() bool { return fake.Hub.Len() == 0 })
}

func TestListWatchFeedClosed(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	r := registry.NewListRegistry(fake)

	done := make(chan error, 1)
	go func() { done <- r.Watch(context.Background()) }()
	waitFor(t, "subscription", func() bool { return fake.Hub.Len() == 1 })

	fake.Hub.Close()
	select {
	case err := <-done:
		if !errors.Is(err, registry.ErrFeedClosed) {
			t.Fatalf("err = %v, want ErrFeedClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return")
	}
}

func TestListWatchSubscribeError(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	fake.SubscribeErr = errBoom
	r := registry.NewListRegistry(fake)

	if err := r.Watch(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
}
