package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/repo"
	"github.com/nhle/daybook/tests/testutil"
)

func newAssistant(t *testing.T) (*Assistant, *projection.Projection) {
	t.Helper()
	log := testutil.NewTestLog(t)
	proj := projection.New()
	todos := repo.NewTodoRepository(log, proj, repo.NopNudger{}, "dev-test")
	logs := repo.NewLogRepository(log, proj, repo.NopNudger{}, "dev-test")
	return New("test-key", todos, logs, "", 0), proj
}

func TestToolAddAndCompleteTodo(t *testing.T) {
	a, proj := newAssistant(t)
	ctx := context.Background()

	out := a.executeToolUse(ctx, apiToolUse{
		Name:  "add_todo",
		Input: json.RawMessage(`{"title": "water plants", "priority": "high"}`),
	})
	var added todoSummary
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	require.Equal(t, "water plants", added.Title)
	require.Equal(t, "high", added.Priority)

	got, ok := proj.Todo(added.ID)
	require.True(t, ok)
	require.True(t, got.IsOpen())

	out = a.executeToolUse(ctx, apiToolUse{
		Name:  "complete_todo",
		Input: json.RawMessage(`{"todo_id": "` + added.ID + `"}`),
	})
	require.JSONEq(t, `{"ok": true}`, out)

	got, _ = proj.Todo(added.ID)
	require.Equal(t, model.TodoStatusDone, got.Status)
}

func TestToolListOpenTodos(t *testing.T) {
	a, _ := newAssistant(t)
	ctx := context.Background()

	a.executeToolUse(ctx, apiToolUse{
		Name:  "add_todo",
		Input: json.RawMessage(`{"title": "one"}`),
	})
	a.executeToolUse(ctx, apiToolUse{
		Name:  "add_todo",
		Input: json.RawMessage(`{"title": "two"}`),
	})

	out := a.executeToolUse(ctx, apiToolUse{Name: "list_open_todos"})
	var result struct {
		Count int           `json:"count"`
		Todos []todoSummary `json:"todos"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 2, result.Count)
}

func TestToolSaveDailyLogMergesExisting(t *testing.T) {
	a, _ := newAssistant(t)
	ctx := context.Background()
	date := time.Now().Format(model.LogDateFormat)

	out := a.executeToolUse(ctx, apiToolUse{
		Name:  "save_daily_log",
		Input: json.RawMessage(`{"mood": 4, "notes": "good day"}`),
	})
	require.Contains(t, out, `"ok": true`)

	// A later partial save keeps the fields it does not mention.
	a.executeToolUse(ctx, apiToolUse{
		Name:  "save_daily_log",
		Input: json.RawMessage(`{"sleep_hours": 7.5}`),
	})

	entry, ok := a.logs.FindByDate(date)
	require.True(t, ok)
	require.Equal(t, 4, entry.Mood)
	require.Equal(t, 7.5, entry.SleepHours)
	require.Equal(t, "good day", entry.Notes)
}

func TestToolGetDailyLogMissing(t *testing.T) {
	a, _ := newAssistant(t)

	out := a.executeToolUse(context.Background(), apiToolUse{
		Name:  "get_daily_log",
		Input: json.RawMessage(`{"date": "2020-01-01"}`),
	})
	require.Contains(t, out, "No log entry")
}

func TestUnknownToolRejected(t *testing.T) {
	a, _ := newAssistant(t)

	out := a.executeToolUse(context.Background(), apiToolUse{Name: "drop_tables"})
	require.Contains(t, out, "Unknown tool")
}

func TestConversationContextTrimsKeepingFirst(t *testing.T) {
	c := NewConversationContext()
	c.AddMessage(RoleUser, "first")
	for i := 0; i < 30; i++ {
		c.AddMessage(RoleAssistant, "filler")
	}

	msgs := c.GetMessages()
	require.Len(t, msgs, 20)
	require.Equal(t, "first", msgs[0].Content)
}
