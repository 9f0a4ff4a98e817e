// Package chat is the assistant conversation panel.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daybook/internal/agent"
	"github.com/nhle/daybook/internal/keys"
	"github.com/nhle/daybook/internal/theme"
)

// CloseMsg signals the parent to close the chat panel.
type CloseMsg struct{}

// ResponseChunkMsg carries a streaming response chunk. The channel
// rides along so the next chunk can be awaited as a follow-up command.
type ResponseChunkMsg struct {
	Text string
	Done bool
	ch   <-chan agent.StreamChunk
}

// TurnDoneMsg signals that an assistant turn finished; the parent
// should reload its views since tools may have changed state.
type TurnDoneMsg struct{}

// displayMessage is a message rendered in the conversation viewport.
type displayMessage struct {
	Role    string
	Content string
}

// Model is the chat panel Bubble Tea model.
type Model struct {
	assistant *agent.Assistant
	input     textarea.Model
	viewport  viewport.Model
	messages  []displayMessage
	streaming bool
	keys      *keys.KeyMap
	width     int
	height    int
	noAPIKey  bool
}

// New creates a chat panel. A nil assistant (no API key) renders a
// configuration prompt instead.
func New(assistant *agent.Assistant, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your day, or tell me what to do..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	vpHeight := height - 8
	if vpHeight < 4 {
		vpHeight = 4
	}
	vp := viewport.New(width-4, vpHeight)

	return Model{
		assistant: assistant,
		input:     ta,
		viewport:  vp,
		messages:  make([]displayMessage, 0),
		keys:      k,
		width:     width,
		height:    height,
		noAPIKey:  assistant == nil,
	}
}

// Init returns the initial command for the panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the chat panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResponseChunkMsg:
		return m.handleResponseChunk(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd
	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	if taCmd != nil {
		cmds = append(cmds, taCmd)
	}
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	if vpCmd != nil {
		cmds = append(cmds, vpCmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.streaming {
			return m, nil
		}
		return m, func() tea.Msg { return CloseMsg{} }

	case "enter":
		if m.noAPIKey || m.streaming {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}

		m.input.Reset()
		m.messages = append(m.messages, displayMessage{Role: "You", Content: text})
		m.streaming = true
		m.refreshViewport()
		return m, m.sendMessage(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResponseChunk(msg ResponseChunkMsg) (Model, tea.Cmd) {
	if msg.Text != "" {
		if len(m.messages) > 0 && m.messages[len(m.messages)-1].Role == "Assistant" {
			m.messages[len(m.messages)-1].Content += msg.Text
		} else {
			m.messages = append(m.messages, displayMessage{
				Role:    "Assistant",
				Content: msg.Text,
			})
		}
	}
	m.refreshViewport()

	if msg.Done {
		m.streaming = false
		return m, func() tea.Msg { return TurnDoneMsg{} }
	}
	return m, waitForNextChunk(msg.ch)
}

// sendMessage starts an assistant turn and begins streaming chunks.
func (m Model) sendMessage(text string) tea.Cmd {
	assistant := m.assistant
	return func() tea.Msg {
		ch, err := assistant.SendMessage(context.Background(), text)
		if err != nil {
			return ResponseChunkMsg{
				Text: fmt.Sprintf("Error: %v", err),
				Done: true,
			}
		}
		return nextChunk(ch)
	}
}

func waitForNextChunk(ch <-chan agent.StreamChunk) tea.Cmd {
	return func() tea.Msg { return nextChunk(ch) }
}

func nextChunk(ch <-chan agent.StreamChunk) ResponseChunkMsg {
	chunk, ok := <-ch
	if !ok {
		return ResponseChunkMsg{Done: true}
	}
	return ResponseChunkMsg{Text: chunk.Text, Done: chunk.Done, ch: ch}
}

// refreshViewport re-renders the conversation and scrolls to bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.messages) == 0 && !m.noAPIKey {
		return lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("Ask about your todos or journal, or say things like " +
				"\"add a todo to call the dentist\".")
	}

	var sections []string

	roleStyle := lipgloss.NewStyle().Bold(true)
	userStyle := roleStyle.Foreground(theme.ColorBlue)
	assistantStyle := roleStyle.Foreground(theme.ColorGreen)
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	for _, msg := range m.messages {
		var label string
		switch msg.Role {
		case "You":
			label = userStyle.Render("You:")
		case "Assistant":
			label = assistantStyle.Render("Assistant:")
		default:
			label = roleStyle.Render(msg.Role + ":")
		}
		sections = append(sections, label, contentStyle.Render(msg.Content), "")
	}

	if m.streaming {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("..."))
	}

	return strings.Join(sections, "\n")
}

// View renders the chat panel.
func (m Model) View() string {
	if m.noAPIKey {
		return m.renderNoAPIKey()
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Assistant")

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", min(m.width-6, 80)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return theme.PanelStyle.Width(m.width - 4).Render(content)
}

func (m Model) renderNoAPIKey() string {
	style := lipgloss.NewStyle().
		Width(m.width - 4).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	msg := "The assistant requires an Anthropic API key.\n\n" +
		"Store it in the system keyring under \"agent_api_key\",\n" +
		"or set the ANTHROPIC_API_KEY environment variable.\n\n" +
		"Press Esc to go back."

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(style.Render(msg))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)

	vpHeight := height - 8
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Width = width - 4
	m.viewport.Height = vpHeight
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Reset clears the conversation and the assistant context.
func (m *Model) Reset() {
	m.messages = m.messages[:0]
	m.streaming = false
	m.input.Reset()
	m.refreshViewport()
	if m.assistant != nil {
		m.assistant.Reset()
	}
}
