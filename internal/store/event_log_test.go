package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/tests/testutil"
)

func newTodoCreated(t *testing.T, title string) model.Event {
	t.Helper()
	return model.NewEvent(
		model.EntityTodo, "local-"+title, model.EventTodoCreated,
		&model.TodoCreatedPayload{Title: title}, "dev-1",
	)
}

func TestPendingSyncOrderedByID(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	// Mint events as fast as possible so several share a millisecond
	// timestamp; id order must still equal append order.
	var ids []string
	for i := 0; i < 50; i++ {
		ev := newTodoCreated(t, "todo")
		require.NoError(t, log.AppendEvent(ctx, ev))
		ids = append(ids, ev.ID)
	}

	pending, err := log.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 50)
	for i, ev := range pending {
		require.Equal(t, ids[i], ev.ID)
	}
}

func TestAppendDuplicateIDIsNoop(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	ev := newTodoCreated(t, "buy milk")
	require.NoError(t, log.AppendEvent(ctx, ev))

	// Re-append with the same id but different content and a flipped
	// synced flag; the original row must win.
	dup := ev
	dup.Payload = &model.TodoCreatedPayload{Title: "changed"}
	dup.Synced = true
	require.NoError(t, log.AppendEvent(ctx, dup))

	pending, err := log.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	payload, ok := pending[0].Payload.(*model.TodoCreatedPayload)
	require.True(t, ok)
	require.Equal(t, "buy milk", payload.Title)
}

func TestAppendEmptyIDFails(t *testing.T) {
	log := testutil.NewTestLog(t)

	ev := newTodoCreated(t, "x")
	ev.ID = ""
	require.Error(t, log.AppendEvent(context.Background(), ev))
}

func TestMarkSynced(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	first := newTodoCreated(t, "one")
	second := newTodoCreated(t, "two")
	require.NoError(t, log.AppendEvent(ctx, first))
	require.NoError(t, log.AppendEvent(ctx, second))

	// Empty input is a no-op.
	require.NoError(t, log.MarkSynced(ctx, nil))

	require.NoError(t, log.MarkSynced(ctx, []string{first.ID}))

	pending, err := log.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)

	// Marking again, or marking unknown ids, stays a no-op.
	require.NoError(t, log.MarkSynced(ctx, []string{first.ID, "nope"}))
}

func TestEventRoundTrip(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	ev := model.NewEvent(
		model.EntityTodo, "local-1", model.EventTodoCreated,
		&model.TodoCreatedPayload{
			Title:    "write report",
			Notes:    "for Monday",
			Priority: model.PriorityHigh,
			Category: "work",
			DueDate:  &due,
		}, "dev-7",
	)
	require.NoError(t, log.AppendEvent(ctx, ev))

	pending, err := log.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	got := pending[0]
	require.Equal(t, ev.ID, got.ID)
	require.Equal(t, model.EntityTodo, got.EntityType)
	require.Equal(t, "local-1", got.EntityID)
	require.Equal(t, "dev-7", got.DeviceID)
	require.True(t, got.Timestamp.Equal(ev.Timestamp))
	require.False(t, got.Synced)

	payload, ok := got.Payload.(*model.TodoCreatedPayload)
	require.True(t, ok)
	require.Equal(t, "write report", payload.Title)
	require.Equal(t, model.PriorityHigh, payload.Priority)
	require.NotNil(t, payload.DueDate)
	require.True(t, payload.DueDate.Equal(due))
}

func TestEntityIDMap(t *testing.T) {
	log := testutil.NewTestLog(t)
	ctx := context.Background()

	m, err := log.EntityIDMap(ctx)
	require.NoError(t, err)
	require.Empty(t, m)

	require.NoError(t, log.PersistEntityIDMapping(ctx, "local-1", "remote-1"))
	// Re-mapping to the same target is safe.
	require.NoError(t, log.PersistEntityIDMapping(ctx, "local-1", "remote-1"))
	require.NoError(t, log.PersistEntityIDMapping(ctx, "2026-08-30", "page-9"))

	m, err = log.EntityIDMap(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"local-1":    "remote-1",
		"2026-08-30": "page-9",
	}, m)
}
