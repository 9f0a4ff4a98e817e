// Package app is the root Bubble Tea model: view routing, layout, and
// the glue between the UI components and the repositories.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/daybook/internal/agent"
	"github.com/nhle/daybook/internal/keys"
	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/repo"
	"github.com/nhle/daybook/internal/sync"
	"github.com/nhle/daybook/internal/ui"
	"github.com/nhle/daybook/internal/ui/chat"
	"github.com/nhle/daybook/internal/ui/logview"
	"github.com/nhle/daybook/internal/ui/status"
	"github.com/nhle/daybook/internal/ui/todolist"
	"github.com/nhle/daybook/internal/ui/todoform"
)

// ViewState is the active view.
type ViewState int

const (
	ViewTodos ViewState = iota
	ViewJournal
	ViewChat
	ViewTodoForm
)

// statusTickMsg drives the periodic refresh of the sync status line.
type statusTickMsg struct{}

const statusTickInterval = time.Second

// Model is the root application model.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	keys        *keys.KeyMap
	todos       *repo.TodoRepository
	logs        *repo.LogRepository
	engine      *sync.Engine

	todoList todolist.Model
	journal  logview.Model
	todoForm todoform.Model
	chatView chat.Model
	helpView help.Model
	showHelp bool
	ready    bool
}

// New creates the root model. assistant may be nil when no API key is
// configured; the chat panel then shows setup guidance.
func New(
	todos *repo.TodoRepository,
	logs *repo.LogRepository,
	engine *sync.Engine,
	assistant *agent.Assistant,
) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewTodos,
		keys:        k,
		todos:       todos,
		logs:        logs,
		engine:      engine,
		todoList:    todolist.New(todos, k, 80, 24),
		journal:     logview.New(logs, k, 80, 24),
		todoForm:    todoform.New(80, 24),
		chatView:    chat.New(assistant, k, 80, 24),
		helpView:    help.New(),
	}
}

// Init starts the status ticker.
func (m Model) Init() tea.Cmd {
	return statusTick()
}

func statusTick() tea.Cmd {
	return tea.Tick(statusTickInterval, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.todoList.SetSize(w, h)
		m.journal.SetSize(w, h)
		m.todoForm.SetSize(w, h)
		m.chatView.SetSize(w, h)
		m.helpView.Width = w
		return m.updateActiveView(msg)

	case statusTickMsg:
		// Sync may have rebound ids or pruned entities; keep the list
		// current without waiting for a key press.
		m.todoList.Reload()
		return m, statusTick()

	case todolist.AddRequestedMsg:
		m.currentView = ViewTodoForm
		return m, m.todoForm.StartCreate()

	case todolist.EditRequestedMsg:
		m.currentView = ViewTodoForm
		return m, m.todoForm.StartEdit(msg.Todo)

	case todoform.SubmitMsg:
		m.currentView = ViewTodos
		m.submitTodoForm(msg)
		m.todoList.Reload()
		return m, nil

	case todoform.CancelMsg:
		m.currentView = ViewTodos
		return m, nil

	case logview.SavedMsg:
		return m, nil

	case chat.CloseMsg:
		m.currentView = ViewTodos
		return m, nil

	case chat.TurnDoneMsg:
		// Assistant tools may have written; reload everything visible.
		m.todoList.Reload()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Form-like views consume all keys.
	if m.currentView == ViewTodoForm || m.currentView == ViewChat ||
		(m.currentView == ViewJournal && m.journal.Editing()) {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.helpView.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		if m.currentView == ViewTodos {
			m.currentView = ViewJournal
		} else {
			m.currentView = ViewTodos
			m.todoList.Reload()
		}
		return m, nil

	case key.Matches(msg, m.keys.Chat):
		m.currentView = ViewChat
		return m, m.chatView.Focus()

	case key.Matches(msg, m.keys.Sync):
		engine := m.engine
		return m, func() tea.Msg {
			engine.Nudge()
			return nil
		}

	case key.Matches(msg, m.keys.Complete):
		if m.currentView != ViewTodos {
			break
		}
		todo, ok := m.todoList.Selected()
		if !ok {
			return m, nil
		}
		if todo.IsOpen() {
			_ = m.todos.Complete(context.Background(), todo.ID)
		}
		m.todoList.Reload()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if m.currentView != ViewTodos {
			break
		}
		todo, ok := m.todoList.Selected()
		if !ok {
			return m, nil
		}
		_ = m.todos.Delete(context.Background(), todo.ID)
		m.todoList.Reload()
		return m, nil
	}

	return m.updateActiveView(msg)
}

func (m Model) submitTodoForm(msg todoform.SubmitMsg) {
	ctx := context.Background()
	if msg.EditID == "" {
		_, _ = m.todos.Add(ctx, model.TodoCreatedPayload{
			Title:    msg.Title,
			Notes:    msg.Notes,
			Priority: msg.Priority,
			Category: msg.Category,
			DueDate:  msg.DueDate,
		})
		return
	}

	_ = m.todos.Update(ctx, msg.EditID, model.TodoPatch{
		Title:    &msg.Title,
		Notes:    &msg.Notes,
		Priority: &msg.Priority,
		Category: &msg.Category,
		DueDate:  msg.DueDate,
	})
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewTodos:
		m.todoList, cmd = m.todoList.Update(msg)
	case ViewJournal:
		m.journal, cmd = m.journal.Update(msg)
	case ViewTodoForm:
		m.todoForm, cmd = m.todoForm.Update(msg)
	case ViewChat:
		m.chatView, cmd = m.chatView.Update(msg)
	}
	return m, cmd
}

// View renders the full frame: header, active view, status bar.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var content string
	switch m.currentView {
	case ViewTodos:
		content = m.todoList.View()
	case ViewJournal:
		content = m.journal.View()
	case ViewTodoForm:
		content = m.todoForm.View()
	case ViewChat:
		content = m.chatView.View()
	}

	header := m.layout.RenderHeader("daybook", m.tabLine())

	if m.showHelp {
		content += "\n" + m.helpView.View(m.keys)
	}
	bar := status.Render(m.engine.Status(), m.layout.Width,
		"tab journal · a add · c chat · ? help")

	return m.layout.RenderWithFrame(header, content, bar)
}

// tabLine renders the header tab strip with the active tab bracketed.
// The todo form counts as the todos tab; it edits what that tab shows.
func (m Model) tabLine() string {
	active := 0
	switch m.currentView {
	case ViewJournal:
		active = 1
	case ViewChat:
		active = 2
	}

	names := []string{"todos", "journal", "assistant"}
	names[active] = "[" + names[active] + "]"
	return strings.Join(names, " ")
}
