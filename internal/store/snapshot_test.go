package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/tests/testutil"
)

func snapTodo(id, title string) model.Todo {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return model.Todo{
		ID:        id,
		Title:     title,
		Status:    model.TodoStatusOpen,
		Priority:  model.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaveSnapshotReplaceSemantics(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	err := log.SaveSnapshot(ctx,
		[]model.Todo{snapTodo("r1", "one"), snapTodo("r2", "two")},
		[]model.DailyLog{{Date: "2026-08-29", RemoteID: "p1", Mood: 4}},
	)
	require.NoError(t, err)

	snap, err := log.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Todos, 2)
	require.Len(t, snap.Logs, 1)

	// A second save omitting r2 must prune it: remote deletions
	// propagate locally.
	err = log.SaveSnapshot(ctx,
		[]model.Todo{snapTodo("r1", "one renamed"), snapTodo("r3", "three")},
		[]model.DailyLog{
			{Date: "2026-08-29", RemoteID: "p1", Mood: 5},
			{Date: "2026-08-30", RemoteID: "p2", Mood: 3},
		},
	)
	require.NoError(t, err)

	snap, err = log.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Todos, 2)
	require.Len(t, snap.Logs, 2)

	byID := make(map[string]model.Todo)
	for _, todo := range snap.Todos {
		byID[todo.ID] = todo
	}
	require.Contains(t, byID, "r1")
	require.Contains(t, byID, "r3")
	require.NotContains(t, byID, "r2")
	require.Equal(t, "one renamed", byID["r1"].Title)
}

func TestSaveSnapshotEmptyClearsTables(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	err := log.SaveSnapshot(ctx,
		[]model.Todo{snapTodo("r1", "one")},
		[]model.DailyLog{{Date: "2026-08-29"}},
	)
	require.NoError(t, err)

	require.NoError(t, log.SaveSnapshot(ctx, nil, nil))

	snap, err := log.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Todos)
	require.Empty(t, snap.Logs)
}

func TestSnapshotDoesNotTouchEvents(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	ev := newTodoCreated(t, "pending")
	require.NoError(t, log.AppendEvent(ctx, ev))

	require.NoError(t, log.SaveSnapshot(ctx,
		[]model.Todo{snapTodo("r1", "remote")}, nil))

	pending, err := log.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, ev.ID, pending[0].ID)
}

func TestSnapshotLogRoundTrip(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	in := model.DailyLog{
		Date:       "2026-08-31",
		RemoteID:   "page-3",
		Mood:       4,
		Energy:     3,
		SleepHours: 7.5,
		Highlights: []string{"shipped the release", "cleared the inbox"},
		Gratitude:  []string{"quiet morning"},
		Notes:      "long day",
	}
	require.NoError(t, log.SaveSnapshot(ctx, nil, []model.DailyLog{in}))

	snap, err := log.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Logs, 1)
	require.Equal(t, in, snap.Logs[0])
}
