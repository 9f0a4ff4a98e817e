package notion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/model"
)

func richText(s string) Property {
	return Property{RichText: []RichText{{PlainText: s}}}
}

func TestPageToTodoMapsProperties(t *testing.T) {
	page := Page{
		ID:             "page-1",
		CreatedTime:    time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC),
		LastEditedTime: time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
		Properties: map[string]Property{
			propTodoTitle:    {Title: []RichText{{PlainText: "write report"}}},
			propTodoNotes:    richText("for friday"),
			propTodoStatus:   selectProp("Done"),
			propTodoPriority: selectProp("High"),
			propTodoCategory: selectProp("work"),
			propTodoDue:      dateProp("2026-09-01"),
		},
	}

	todo := pageToTodo(page)
	require.Equal(t, "page-1", todo.ID)
	require.Equal(t, "write report", todo.Title)
	require.Equal(t, "for friday", todo.Notes)
	require.Equal(t, model.TodoStatusDone, todo.Status)
	require.Equal(t, model.PriorityHigh, todo.Priority)
	require.Equal(t, "work", todo.Category)
	require.NotNil(t, todo.DueDate)
	require.Equal(t, "2026-09-01", todo.DueDate.Format(model.LogDateFormat))
}

func TestPageToTodoUnknownOptionsFallBack(t *testing.T) {
	page := Page{
		ID: "page-2",
		Properties: map[string]Property{
			propTodoTitle:    {Title: []RichText{{PlainText: "odd one"}}},
			propTodoStatus:   selectProp("Someday"),
			propTodoPriority: selectProp("Urgent!!"),
		},
	}

	todo := pageToTodo(page)
	require.Equal(t, model.TodoStatusOpen, todo.Status)
	require.Equal(t, model.PriorityMedium, todo.Priority)
}

func TestPageToLogSplitsListProperties(t *testing.T) {
	page := Page{
		ID: "page-3",
		Properties: map[string]Property{
			propLogDay:        dateProp("2026-08-31"),
			propLogHighlights: richText("long walk\nfinished the book"),
			propLogGratitude:  richText("sunny weather"),
			propLogNotes:      richText("good day"),
		},
	}

	log, ok := pageToLog(page)
	require.True(t, ok)
	require.Equal(t, "2026-08-31", log.Date)
	require.Equal(t, "page-3", log.RemoteID)
	require.Equal(t, []string{"long walk", "finished the book"}, log.Highlights)
	require.Equal(t, []string{"sunny weather"}, log.Gratitude)
	require.Equal(t, "good day", log.Notes)
}

func TestPageToLogSkipsUndatedPages(t *testing.T) {
	_, ok := pageToLog(Page{ID: "page-4", Properties: map[string]Property{
		propLogNotes: richText("no date"),
	}})
	require.False(t, ok)
}
