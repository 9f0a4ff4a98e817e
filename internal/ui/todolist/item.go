package todolist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/theme"
)

// TodoItem wraps a model.Todo so it can be used in a bubbles/list.
type TodoItem struct {
	Todo model.Todo
}

// FilterValue returns the string used for fuzzy filtering.
func (i TodoItem) FilterValue() string { return i.Todo.Title }

// ItemDelegate implements list.ItemDelegate for rendering todo lines.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single todo line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TodoItem)
	if !ok {
		return
	}
	todo := ti.Todo

	prefix := "○"
	if !todo.IsOpen() {
		prefix = "✓"
	}

	priBadge := theme.PriorityStyle(string(todo.Priority)).
		Render(priorityLabel(todo.Priority))

	dueStr := ""
	if todo.DueDate != nil {
		style := lipgloss.NewStyle().Foreground(theme.ColorGray)
		if overdue(todo) {
			style = lipgloss.NewStyle().Foreground(theme.ColorRed).Bold(true)
		}
		dueStr = style.Render(" " + todo.DueDate.Format("Jan 02"))
	}

	categoryStr := ""
	if todo.Category != "" {
		categoryStr = lipgloss.NewStyle().
			Foreground(theme.ColorMagenta).
			Render(" #" + todo.Category)
	}

	line := fmt.Sprintf("%s %s %s%s%s", prefix, priBadge, todo.Title, categoryStr, dueStr)

	switch {
	case index == m.Index():
		line = theme.SelectedItemStyle.Render(line)
	case !todo.IsOpen():
		line = theme.DoneItemStyle.Render(line)
	default:
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func overdue(todo model.Todo) bool {
	return todo.IsOpen() && todo.DueDate != nil &&
		todo.DueDate.Before(time.Now().Truncate(24*time.Hour))
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "P1"
	case model.PriorityMedium:
		return "P2"
	case model.PriorityLow:
		return "P3"
	default:
		return "P?"
	}
}
