// Package todolist is the main todo list view.
package todolist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daybook/internal/keys"
	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/repo"
	"github.com/nhle/daybook/internal/theme"
)

// AddRequestedMsg asks the app to open the create form.
type AddRequestedMsg struct{}

// EditRequestedMsg asks the app to open the edit form for a todo.
type EditRequestedMsg struct {
	Todo model.Todo
}

// Model is the todo list view component.
type Model struct {
	list     list.Model
	todos    *repo.TodoRepository
	keys     *keys.KeyMap
	showDone bool
	width    int
	height   int
}

// New creates a todo list model reading from the repository.
func New(todos *repo.TodoRepository, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Todos"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	m := Model{
		list:   l,
		todos:  todos,
		keys:   k,
		width:  width,
		height: height,
	}
	m.Reload()
	return m
}

// Reload re-reads the projection into the list, keeping the cursor
// position where possible.
func (m *Model) Reload() {
	var todos []model.Todo
	if m.showDone {
		todos = m.todos.ListAll()
	} else {
		todos = m.todos.ListOpen()
	}

	items := make([]list.Item, len(todos))
	for i, t := range todos {
		items[i] = TodoItem{Todo: t}
	}

	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

// Selected returns the todo under the cursor.
func (m Model) Selected() (model.Todo, bool) {
	item, ok := m.list.SelectedItem().(TodoItem)
	if !ok {
		return model.Todo{}, false
	}
	return item.Todo, true
}

// Update handles messages for the todo list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Add):
		return m, func() tea.Msg { return AddRequestedMsg{} }

	case key.Matches(keyMsg, m.keys.Edit):
		todo, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return EditRequestedMsg{Todo: todo} }

	case key.Matches(keyMsg, m.keys.ShowDone):
		m.showDone = !m.showDone
		m.Reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the todo list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when no todos exist.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.showDone {
		return style.Render("Nothing here yet.\nPress 'a' to add a todo.")
	}
	return style.Render("All clear.\nPress 'a' to add a todo, 'v' to show done.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
