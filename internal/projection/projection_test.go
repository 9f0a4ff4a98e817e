package projection_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/store"
)

var errPendingRead = errors.New("pending read failed")

// countingHandler records how many events of its type it saw.
func countingHandler(n *int) projection.Handler {
	return func(st *projection.State, ev model.Event) {
		*n++
		st.Todos[ev.EntityID] = model.Todo{ID: ev.EntityID}
	}
}

func TestApplyDispatchesToRegisteredHandler(t *testing.T) {
	p := projection.New()

	var calls int
	p.Register(model.EventTodoCreated, countingHandler(&calls))

	p.Apply(model.Event{ID: "e1", Type: model.EventTodoCreated, EntityID: "t1"})
	require.Equal(t, 1, calls)

	_, ok := p.Todo("t1")
	require.True(t, ok)
}

func TestApplyUnknownTypeIsSilentNoop(t *testing.T) {
	p := projection.New()

	// No handler registered at all; future event types must not panic
	// or error.
	p.Apply(model.Event{ID: "e1", Type: model.EventType("todo.starred"), EntityID: "t1"})
	require.Empty(t, p.Todos())
}

func TestApplyAllEqualsSequentialApply(t *testing.T) {
	events := []model.Event{
		{ID: "a", Type: model.EventTodoCreated, EntityID: "t1"},
		{ID: "b", Type: model.EventTodoCreated, EntityID: "t2"},
		{ID: "c", Type: model.EventTodoCreated, EntityID: "t3"},
	}

	var n1, n2 int
	batch := projection.New()
	batch.Register(model.EventTodoCreated, countingHandler(&n1))
	batch.ApplyAll(events)

	sequential := projection.New()
	sequential.Register(model.EventTodoCreated, countingHandler(&n2))
	for _, ev := range events {
		sequential.Apply(ev)
	}

	require.Equal(t, n1, n2)
	require.ElementsMatch(t, batch.Todos(), sequential.Todos())
}

func TestLoadFromSnapshotClearsAndReseeds(t *testing.T) {
	p := projection.New()
	var calls int
	p.Register(model.EventTodoCreated, countingHandler(&calls))
	p.Apply(model.Event{ID: "e1", Type: model.EventTodoCreated, EntityID: "stale"})

	p.LoadFromSnapshot(&store.Snapshot{
		Todos: []model.Todo{{ID: "r1", Title: "from snapshot"}},
		Logs:  []model.DailyLog{{Date: "2026-08-30", Mood: 4}},
	})

	_, ok := p.Todo("stale")
	require.False(t, ok)

	todo, ok := p.Todo("r1")
	require.True(t, ok)
	require.Equal(t, "from snapshot", todo.Title)

	log, ok := p.Log("2026-08-30")
	require.True(t, ok)
	require.Equal(t, 4, log.Mood)
}

func TestRebuildReplaysPendingOnTopOfSnapshot(t *testing.T) {
	p := projection.New()
	var calls int
	p.Register(model.EventTodoCreated, countingHandler(&calls))

	snap := &store.Snapshot{Todos: []model.Todo{{ID: "r1"}}}
	err := p.Rebuild(snap, func() ([]model.Event, error) {
		return []model.Event{
			{ID: "e1", Type: model.EventTodoCreated, EntityID: "local-1"},
		}, nil
	})
	require.NoError(t, err)

	require.Len(t, p.Todos(), 2)
}

func TestRebuildSurfacesPendingReadError(t *testing.T) {
	p := projection.New()
	var calls int
	p.Register(model.EventTodoCreated, countingHandler(&calls))
	p.Apply(model.Event{ID: "e1", Type: model.EventTodoCreated, EntityID: "t1"})

	err := p.Rebuild(&store.Snapshot{}, func() ([]model.Event, error) {
		return nil, errPendingRead
	})
	require.ErrorIs(t, err, errPendingRead)

	// A failed rebuild leaves the prior state untouched.
	_, ok := p.Todo("t1")
	require.True(t, ok)
}
