// Package todoform is the create/edit form for todos.
package todoform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/theme"
)

// SubmitMsg is dispatched when the form is confirmed. EditID is empty
// for a new todo.
type SubmitMsg struct {
	EditID   string
	Title    string
	Notes    string
	Priority model.Priority
	Category string
	DueDate  *time.Time
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so huh's Value()
// pointers stay valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	notes    string
	priority string
	category string
	dueDate  string
}

// Model is the Bubble Tea model for the todo create/edit form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	editID string
	width  int
	height int
}

// New creates a todo form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: string(model.PriorityMedium)},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new todo.
func (m *Model) StartCreate() tea.Cmd {
	m.editID = ""
	*m.fb = formBindings{priority: string(model.PriorityMedium)}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with an existing todo's fields.
func (m *Model) StartEdit(todo model.Todo) tea.Cmd {
	m.editID = todo.ID
	m.fb.title = todo.Title
	m.fb.notes = todo.Notes
	m.fb.priority = string(todo.Priority)
	m.fb.category = todo.Category
	if todo.DueDate != nil {
		m.fb.dueDate = todo.DueDate.Format(model.LogDateFormat)
	} else {
		m.fb.dueDate = ""
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Todo"
	if m.editID != "" {
		titleText = "Edit Todo"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Title").
			Placeholder("What needs doing?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Notes").
			Placeholder("Optional details...").
			Value(&m.fb.notes),
		huh.NewSelect[string]().
			Title("Priority").
			Options(
				huh.NewOption("High", string(model.PriorityHigh)),
				huh.NewOption("Medium", string(model.PriorityMedium)),
				huh.NewOption("Low", string(model.PriorityLow)),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Category").
			Placeholder("home, work, ... (optional)").
			Value(&m.fb.category),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
	)).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{
		EditID:   m.editID,
		Title:    m.fb.title,
		Notes:    m.fb.notes,
		Priority: model.Priority(m.fb.priority),
		Category: m.fb.category,
	}
	if m.fb.dueDate != "" {
		if t, err := time.Parse(model.LogDateFormat, m.fb.dueDate); err == nil {
			msg.DueDate = &t
		}
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(model.LogDateFormat, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
