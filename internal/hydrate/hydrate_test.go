package hydrate_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/hydrate"
	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/repo"
	"github.com/nhle/daybook/internal/store"
	"github.com/nhle/daybook/internal/sync"
	"github.com/nhle/daybook/tests/testutil"
)

// fakeRemote is an in-memory stand-in for both remote services: todos
// keyed by remote id, logs keyed by date.
type fakeRemote struct {
	mu     gosync.Mutex
	nextID int
	todos  map[string]model.Todo
	logs   map[string]model.DailyLog
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		todos: make(map[string]model.Todo),
		logs:  make(map[string]model.DailyLog),
	}
}

func (f *fakeRemote) Add(ctx context.Context, p model.TodoCreatedPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.todos[id] = model.Todo{
		ID:       id,
		Title:    p.Title,
		Notes:    p.Notes,
		Status:   model.TodoStatusOpen,
		Priority: p.Priority,
		Category: p.Category,
		DueDate:  p.DueDate,
	}
	return id, nil
}

func (f *fakeRemote) Update(ctx context.Context, remoteID string, patch model.TodoPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	todo, ok := f.todos[remoteID]
	if !ok {
		return fmt.Errorf("todo %s not found", remoteID)
	}
	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Notes != nil {
		todo.Notes = *patch.Notes
	}
	if patch.Priority != nil {
		todo.Priority = *patch.Priority
	}
	f.todos[remoteID] = todo
	return nil
}

func (f *fakeRemote) Complete(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	todo, ok := f.todos[remoteID]
	if !ok {
		return fmt.Errorf("todo %s not found", remoteID)
	}
	todo.Status = model.TodoStatusDone
	f.todos[remoteID] = todo
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.todos, remoteID)
	return nil
}

func (f *fakeRemote) LastEdited(ctx context.Context, remoteID string) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeRemote) List(ctx context.Context) ([]model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Todo
	for _, todo := range f.todos {
		out = append(out, todo)
	}
	return out, nil
}

func (f *fakeRemote) Save(ctx context.Context, date, remoteID string, p model.LogUpsertedPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if remoteID == "" {
		f.nextID++
		remoteID = fmt.Sprintf("page-%d", f.nextID)
	}
	f.logs[date] = model.DailyLog{
		Date:       date,
		RemoteID:   remoteID,
		Mood:       p.Mood,
		Energy:     p.Energy,
		SleepHours: p.SleepHours,
		Highlights: p.Highlights,
		Gratitude:  p.Gratitude,
		Notes:      p.Notes,
	}
	return remoteID, nil
}

func (f *fakeRemote) ListLogs(ctx context.Context, from, to string) ([]model.DailyLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DailyLog
	for _, log := range f.logs {
		if log.Date >= from && log.Date <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

// logService adapts fakeRemote's log half to the remote.LogService
// interface (List has a different signature than the todo side).
type logService struct{ *fakeRemote }

func (s logService) List(ctx context.Context, from, to string) ([]model.DailyLog, error) {
	return s.ListLogs(ctx, from, to)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHydrateRoundTrip(t *testing.T) {
	log := testutil.NewTestLog(t)
	proj := projection.New()
	fake := newFakeRemote()
	engine := sync.New(log, fake, logService{fake}, time.Hour, discardLogger())
	todos := repo.NewTodoRepository(log, proj, engine, "dev-test")
	h := hydrate.New(log, proj, fake, logService{fake}, 30, discardLogger())
	ctx := context.Background()

	created, err := todos.Add(ctx, model.TodoCreatedPayload{Title: "sync me"})
	require.NoError(t, err)
	require.NoError(t, engine.FlushOnce(ctx))

	require.NoError(t, h.Hydrate(ctx))

	// After hydration the todo lives under its remote id.
	remote, ok := proj.Todo("remote-1")
	require.True(t, ok)
	require.Equal(t, "sync me", remote.Title)
	_, ok = proj.Todo(created.ID)
	require.False(t, ok)

	// A later local update for the original local id still resolves to
	// an update of the remote entity, not a second create.
	title := "sync me please"
	require.NoError(t, todos.Update(ctx, created.ID, model.TodoPatch{Title: &title}))
	require.NoError(t, engine.FlushOnce(ctx))

	require.Len(t, fake.todos, 1)
	require.Equal(t, "sync me please", fake.todos["remote-1"].Title)
}

func TestHydratePreservesPendingWrites(t *testing.T) {
	log := testutil.NewTestLog(t)
	proj := projection.New()
	fake := newFakeRemote()
	todos := repo.NewTodoRepository(log, proj, repo.NopNudger{}, "dev-test")
	h := hydrate.New(log, proj, fake, logService{fake}, 30, discardLogger())
	ctx := context.Background()

	// Remote already holds one todo.
	_, err := fake.Add(ctx, model.TodoCreatedPayload{Title: "from another device"})
	require.NoError(t, err)

	// A local write that has not synced yet.
	created, err := todos.Add(ctx, model.TodoCreatedPayload{Title: "not yet synced"})
	require.NoError(t, err)

	require.NoError(t, h.Hydrate(ctx))

	// The snapshot reload must not lose the pending local write.
	_, ok := proj.Todo(created.ID)
	require.True(t, ok)
	_, ok = proj.Todo("remote-1")
	require.True(t, ok)
	require.Len(t, proj.Todos(), 2)
}

func TestHydratePropagatesRemoteDeletion(t *testing.T) {
	log := testutil.NewTestLog(t)
	proj := projection.New()
	fake := newFakeRemote()
	repo.NewTodoRepository(log, proj, repo.NopNudger{}, "dev-test")
	h := hydrate.New(log, proj, fake, logService{fake}, 30, discardLogger())
	ctx := context.Background()

	id, err := fake.Add(ctx, model.TodoCreatedPayload{Title: "short lived"})
	require.NoError(t, err)
	require.NoError(t, h.Hydrate(ctx))
	_, ok := proj.Todo(id)
	require.True(t, ok)

	// Deleted on another device; the next hydration prunes it locally.
	require.NoError(t, fake.Delete(ctx, id))
	require.NoError(t, h.Hydrate(ctx))
	_, ok = proj.Todo(id)
	require.False(t, ok)

	snap, err := log.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Todos)
}

// racingLog wraps the store so a hook can interleave a write with
// hydration's pending re-read.
type racingLog struct {
	store.EventLog
	hook  func()
	fired bool
}

func (l *racingLog) PendingSync(ctx context.Context) ([]model.Event, error) {
	if l.hook != nil && !l.fired {
		l.fired = true
		l.hook()
	}
	return l.EventLog.PendingSync(ctx)
}

func TestHydrateKeepsWriteRacingRebuild(t *testing.T) {
	inner := testutil.NewTestLog(t)
	log := &racingLog{EventLog: inner}
	proj := projection.New()
	fake := newFakeRemote()
	todos := repo.NewTodoRepository(log, proj, repo.NopNudger{}, "dev-test")
	h := hydrate.New(log, proj, fake, logService{fake}, 30, discardLogger())
	ctx := context.Background()

	_, err := fake.Add(ctx, model.TodoCreatedPayload{Title: "from another device"})
	require.NoError(t, err)

	// A write lands while hydration is re-reading pending events: its
	// append completes before the re-read returns, and its projection
	// apply blocks until the rebuild releases the lock. Either way the
	// write must survive the snapshot reload.
	idCh := make(chan string, 1)
	log.hook = func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			created, err := todos.Add(ctx, model.TodoCreatedPayload{Title: "raced"})
			if err == nil {
				idCh <- created.ID
			}
		}()
		for {
			pending, err := inner.PendingSync(ctx)
			if err == nil && len(pending) == 1 {
				return
			}
			select {
			case <-done:
				return
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}

	require.NoError(t, h.Hydrate(ctx))

	var createdID string
	select {
	case createdID = <-idCh:
	case <-time.After(5 * time.Second):
		t.Fatal("racing write never completed")
	}

	_, ok := proj.Todo(createdID)
	require.True(t, ok)
	_, ok = proj.Todo("remote-1")
	require.True(t, ok)
	require.Len(t, proj.Todos(), 2)
}

func TestLoadLocalRebuildsWithoutNetwork(t *testing.T) {
	log := testutil.NewTestLog(t)
	proj := projection.New()
	repo.NewTodoRepository(log, proj, repo.NopNudger{}, "dev-test")
	h := hydrate.New(log, proj, nil, nil, 30, discardLogger())
	ctx := context.Background()

	require.NoError(t, log.SaveSnapshot(ctx, []model.Todo{{
		ID: "r1", Title: "stored", Status: model.TodoStatusOpen,
		Priority:  model.PriorityMedium,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}}, nil))

	ev := model.NewEvent(model.EntityTodo, "local-1", model.EventTodoCreated,
		&model.TodoCreatedPayload{Title: "pending"}, "dev-test")
	require.NoError(t, log.AppendEvent(ctx, ev))

	require.NoError(t, h.LoadLocal(ctx))
	require.Len(t, proj.Todos(), 2)
}
