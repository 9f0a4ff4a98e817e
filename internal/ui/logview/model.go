// Package logview shows the daily journal entries and edits today's.
package logview

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daybook/internal/keys"
	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/repo"
	"github.com/nhle/daybook/internal/theme"
)

// SavedMsg is dispatched after the edit form writes an entry.
type SavedMsg struct {
	Date string
}

// historyDays is how many trailing days the journal tab shows.
const historyDays = 7

// formBindings holds huh field values on the heap.
type formBindings struct {
	mood       string
	energy     string
	sleepHours string
	highlights string
	gratitude  string
	notes      string
}

// Model is the journal view component.
type Model struct {
	logs    *repo.LogRepository
	keys    *keys.KeyMap
	form    *huh.Form
	fb      *formBindings
	editing bool
	width   int
	height  int
}

// New creates a journal view reading from the repository.
func New(logs *repo.LogRepository, k *keys.KeyMap, width, height int) Model {
	return Model{
		logs:   logs,
		keys:   k,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Editing reports whether the edit form is open; the app routes all
// key input here while it is.
func (m Model) Editing() bool { return m.editing }

// StartEdit opens the form seeded with today's entry.
func (m *Model) StartEdit() tea.Cmd {
	today := time.Now().Format(model.LogDateFormat)
	entry, _ := m.logs.FindByDate(today)

	m.fb.mood = strconv.Itoa(entry.Mood)
	m.fb.energy = strconv.Itoa(entry.Energy)
	if entry.SleepHours > 0 {
		m.fb.sleepHours = strconv.FormatFloat(entry.SleepHours, 'f', -1, 64)
	} else {
		m.fb.sleepHours = ""
	}
	m.fb.highlights = model.JoinLines(entry.Highlights)
	m.fb.gratitude = model.JoinLines(entry.Gratitude)
	m.fb.notes = entry.Notes

	m.editing = true
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the journal view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.editing {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.EditLog) {
			return m, m.StartEdit()
		}
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.editing = false
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		m.editing = false
		return m, nil
	}

	return m, cmd
}

func (m Model) handleSubmit() tea.Cmd {
	logs := m.logs
	fb := *m.fb
	date := time.Now().Format(model.LogDateFormat)

	return func() tea.Msg {
		payload := model.LogUpsertedPayload{
			Mood:       atoiOrZero(fb.mood),
			Energy:     atoiOrZero(fb.energy),
			Highlights: model.SplitLines(fb.highlights),
			Gratitude:  model.SplitLines(fb.gratitude),
			Notes:      strings.TrimSpace(fb.notes),
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(fb.sleepHours), 64); err == nil {
			payload.SleepHours = v
		}
		if err := logs.Save(context.Background(), date, payload); err != nil {
			return SavedMsg{}
		}
		return SavedMsg{Date: date}
	}
}

// View renders the journal tab.
func (m Model) View() string {
	if m.editing {
		title := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render("Today's Log")
		return lipgloss.NewStyle().Padding(1, 2).
			Render(title + "\n" + m.form.View())
	}

	var sections []string
	now := time.Now()
	for i := 0; i < historyDays; i++ {
		date := now.AddDate(0, 0, -i).Format(model.LogDateFormat)
		entry, ok := m.logs.FindByDate(date)
		if !ok {
			if i == 0 {
				sections = append(sections, m.renderMissingToday(date))
			}
			continue
		}
		sections = append(sections, m.renderEntry(entry, i == 0))
	}

	if len(sections) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No journal entries yet.\nPress 'l' to log today.")
	}

	return lipgloss.NewStyle().Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderMissingToday(date string) string {
	header := theme.HeaderStyle.Render(date + " (today)")
	hint := theme.HelpStyle.Render("  not logged yet, press 'l'")
	return lipgloss.JoinVertical(lipgloss.Left, header, hint, "")
}

func (m Model) renderEntry(entry model.DailyLog, today bool) string {
	label := entry.Date
	if today {
		label += " (today)"
	}
	header := theme.HeaderStyle.Render(label)

	var lines []string
	scored := func(name string, v int) string {
		return fmt.Sprintf("  %s %s", name, theme.MoodStyle(v).Render(fmt.Sprintf("%d/5", v)))
	}
	if entry.Mood > 0 {
		lines = append(lines, scored("mood", entry.Mood))
	}
	if entry.Energy > 0 {
		lines = append(lines, scored("energy", entry.Energy))
	}
	if entry.SleepHours > 0 {
		lines = append(lines, fmt.Sprintf("  sleep %.1fh", entry.SleepHours))
	}
	for _, h := range entry.Highlights {
		lines = append(lines, "  ★ "+h)
	}
	for _, g := range entry.Gratitude {
		lines = append(lines, "  ♥ "+g)
	}
	if entry.Notes != "" {
		lines = append(lines, "  "+entry.Notes)
	}

	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, "")
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	scoreOptions := func() []huh.Option[string] {
		opts := []huh.Option[string]{huh.NewOption("unset", "0")}
		for i := 1; i <= 5; i++ {
			opts = append(opts, huh.NewOption(strconv.Itoa(i), strconv.Itoa(i)))
		}
		return opts
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Mood (1-5)").
			Options(scoreOptions()...).
			Value(&m.fb.mood),
		huh.NewSelect[string]().
			Title("Energy (1-5)").
			Options(scoreOptions()...).
			Value(&m.fb.energy),
		huh.NewInput().
			Title("Sleep Hours").
			Placeholder("7.5 (optional)").
			Value(&m.fb.sleepHours).
			Validate(validateOptionalFloat),
		huh.NewText().
			Title("Highlights").
			Placeholder("One per line...").
			Value(&m.fb.highlights),
		huh.NewText().
			Title("Gratitude").
			Placeholder("One per line...").
			Value(&m.fb.gratitude),
		huh.NewText().
			Title("Notes").
			Placeholder("Anything else...").
			Value(&m.fb.notes),
	)).WithWidth(min(m.width-4, 100)).WithHeight(m.height - 4)
}

func validateOptionalFloat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("must be a number")
	}
	return nil
}

func atoiOrZero(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}
