package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
)

func TestNewEventIDsSortInCreationOrder(t *testing.T) {
	var prev string
	for i := 0; i < 100; i++ {
		ev := model.NewEvent(
			model.EntityTodo, "local-1", model.EventTodoCreated,
			&model.TodoCreatedPayload{Title: "t"}, "dev-1",
		)
		require.Greater(t, ev.ID, prev)
		prev = ev.ID
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	title := "renamed"
	due := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		eventType model.EventType
		payload   model.Payload
	}{
		{model.EventTodoCreated, &model.TodoCreatedPayload{
			Title:    "write report",
			Notes:    "for friday",
			Priority: model.PriorityHigh,
			Category: "work",
			DueDate:  &due,
		}},
		{model.EventTodoUpdated, &model.TodoPatch{Title: &title}},
		{model.EventTodoCompleted, &model.TodoCompletedPayload{
			CompletedAt: time.Date(2026, 3, 13, 9, 30, 0, 0, time.UTC),
		}},
		{model.EventTodoDeleted, &model.TodoDeletedPayload{}},
		{model.EventLogUpserted, &model.LogUpsertedPayload{
			Mood: 4, Energy: 3, SleepHours: 7.5,
			Highlights: []string{"long walk", "finished the book"},
			Gratitude:  []string{"sunny weather"},
			Notes:      "good day",
		}},
	}

	for _, tc := range cases {
		data, err := model.EncodePayload(tc.payload)
		require.NoError(t, err)

		decoded, err := model.DecodePayload(tc.eventType, data)
		require.NoError(t, err)
		require.Equal(t, tc.payload, decoded)
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	// An event type minted by a newer device must read back as a nil
	// payload, not an error, so old readers skip it.
	p, err := model.DecodePayload(model.EventType("todo.starred"), []byte(`{"x":1}`))
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestEncodePayloadNil(t *testing.T) {
	data, err := model.EncodePayload(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(data))
}

func TestTodoPatchIsEmpty(t *testing.T) {
	require.True(t, model.TodoPatch{}.IsEmpty())

	notes := ""
	require.False(t, model.TodoPatch{Notes: &notes}.IsEmpty())
}
