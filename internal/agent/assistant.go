// Package agent is the conversational interface over the journal. It
// talks to the Claude messages API and exposes the repositories to the
// model as tools, so "what's still open?" and "log that I slept badly"
// both work from chat.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/daybook/internal/model"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	apiURL           = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
)

// TodoWriter is the slice of the todo repository the agent drives.
type TodoWriter interface {
	Add(ctx context.Context, payload model.TodoCreatedPayload) (model.Todo, error)
	Update(ctx context.Context, id string, patch model.TodoPatch) error
	Complete(ctx context.Context, id string) error
	ListOpen() []model.Todo
}

// LogWriter is the slice of the log repository the agent drives.
type LogWriter interface {
	Save(ctx context.Context, date string, payload model.LogUpsertedPayload) error
	FindByDate(date string) (model.DailyLog, bool)
}

// StreamChunk is a piece of the assistant response being streamed back.
type StreamChunk struct {
	Text string
	Done bool
}

// Assistant manages the conversation with the Claude API and executes
// tool calls against the local repositories. Tool writes go through
// the same event path as the UI, so everything the assistant does is
// durable and syncs like any other change.
type Assistant struct {
	apiKey    string
	todos     TodoWriter
	logs      LogWriter
	context   *ConversationContext
	model     string
	maxTokens int
	client    *http.Client
}

// New creates an assistant with the given configuration.
func New(
	apiKey string,
	todos TodoWriter,
	logs LogWriter,
	modelName string,
	maxTokens int,
) *Assistant {
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Assistant{
		apiKey:    apiKey,
		todos:     todos,
		logs:      logs,
		context:   NewConversationContext(),
		model:     modelName,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

// Reset clears the conversation history.
func (a *Assistant) Reset() {
	a.context.Reset()
}

// SendMessage sends a user message and returns a channel receiving
// response chunks. The channel closes when the response is complete.
func (a *Assistant) SendMessage(
	ctx context.Context,
	userMsg string,
) (<-chan StreamChunk, error) {
	a.context.AddMessage(RoleUser, userMsg)

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		a.processMessage(ctx, ch)
	}()
	return ch, nil
}

// processMessage runs the API call loop, including tool use iterations.
func (a *Assistant) processMessage(ctx context.Context, ch chan<- StreamChunk) {
	maxToolIterations := 5

	for i := 0; i < maxToolIterations; i++ {
		resp, err := a.callAPI(ctx)
		if err != nil {
			ch <- StreamChunk{Text: fmt.Sprintf("Error: %v", err), Done: true}
			return
		}

		var textParts []string
		var toolUseBlocks []apiToolUse
		hasToolUse := false

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textParts = append(textParts, block.Text)
			case "tool_use":
				hasToolUse = true
				toolUseBlocks = append(toolUseBlocks, apiToolUse{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				})
			}
		}

		if len(textParts) > 0 {
			combined := strings.Join(textParts, "")
			ch <- StreamChunk{Text: combined, Done: !hasToolUse}
			if !hasToolUse {
				a.context.AddMessage(RoleAssistant, combined)
				return
			}
		}

		if !hasToolUse {
			if len(textParts) == 0 {
				ch <- StreamChunk{Text: "", Done: true}
			}
			return
		}

		assistantContent, err := json.Marshal(resp.Content)
		if err != nil {
			ch <- StreamChunk{
				Text: fmt.Sprintf("Error encoding response: %v", err),
				Done: true,
			}
			return
		}
		a.context.AddMessage(RoleAssistant, string(assistantContent))

		var toolResults []apiContentBlock
		for _, tu := range toolUseBlocks {
			result := a.executeToolUse(ctx, tu)
			toolResults = append(toolResults, apiContentBlock{
				Type:      "tool_result",
				ToolUseID: tu.ID,
				Content:   result,
			})
		}

		toolResultsJSON, err := json.Marshal(toolResults)
		if err != nil {
			ch <- StreamChunk{
				Text: fmt.Sprintf("Error encoding tool results: %v", err),
				Done: true,
			}
			return
		}
		a.context.AddMessage(RoleUser, string(toolResultsJSON))
	}

	ch <- StreamChunk{
		Text: "\n\n(Reached maximum tool use iterations)",
		Done: true,
	}
}

// callAPI makes a single request to the Claude messages API.
func (a *Assistant) callAPI(ctx context.Context) (*apiResponse, error) {
	reqBody := apiRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    a.buildSystemPrompt(),
		Messages:  a.buildAPIMessages(),
		Tools:     toolDefinitions(),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

// buildSystemPrompt sets the assistant role and a compact snapshot of
// the current open todos, so simple questions need no tool round trip.
func (a *Assistant) buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a personal journal and task assistant. ")
	sb.WriteString("You help the user manage their todos and daily log entries.\n\n")

	today := time.Now().Format(model.LogDateFormat)
	fmt.Fprintf(&sb, "Today's date is %s.\n\n", today)

	open := a.todos.ListOpen()
	if len(open) == 0 {
		sb.WriteString("There are currently no open todos.\n\n")
	} else {
		fmt.Fprintf(&sb, "Open todos (%d):\n", len(open))
		for _, t := range open {
			fmt.Fprintf(&sb, "- [%s] %s (priority %s)", t.ID, t.Title, t.Priority)
			if t.DueDate != nil {
				fmt.Fprintf(&sb, " due %s", t.DueDate.Format(model.LogDateFormat))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Use the tools to read or change state; never invent ")
	sb.WriteString("todo ids. Dates are YYYY-MM-DD. When referencing todos, ")
	sb.WriteString("use their titles. Keep responses concise.")

	return sb.String()
}

// buildAPIMessages converts the conversation history into the API
// message format. JSON-array contents (tool use and results) are sent
// as structured content blocks; plain text is sent as-is.
func (a *Assistant) buildAPIMessages() []apiMessage {
	contextMsgs := a.context.GetMessages()
	var messages []apiMessage

	for _, msg := range contextMsgs {
		if isJSONArray(msg.Content) {
			var blocks []apiContentBlock
			if err := json.Unmarshal([]byte(msg.Content), &blocks); err == nil {
				messages = append(messages, apiMessage{
					Role:    string(msg.Role),
					Content: blocks,
				})
				continue
			}
		}
		messages = append(messages, apiMessage{
			Role:    string(msg.Role),
			Content: []apiContentBlock{{Type: "text", Text: msg.Content}},
		})
	}
	return messages
}

// executeToolUse dispatches a tool requested by the model and returns
// a JSON result string.
func (a *Assistant) executeToolUse(ctx context.Context, tu apiToolUse) string {
	switch tu.Name {
	case "list_open_todos":
		return a.handleListOpenTodos()
	case "add_todo":
		return a.handleAddTodo(ctx, tu.Input)
	case "update_todo":
		return a.handleUpdateTodo(ctx, tu.Input)
	case "complete_todo":
		return a.handleCompleteTodo(ctx, tu.Input)
	case "save_daily_log":
		return a.handleSaveDailyLog(ctx, tu.Input)
	case "get_daily_log":
		return a.handleGetDailyLog(tu.Input)
	default:
		return fmt.Sprintf(`{"error": "Unknown tool: %s"}`, tu.Name)
	}
}

type todoSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Notes    string `json:"notes,omitempty"`
	Priority string `json:"priority"`
	Category string `json:"category,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
}

func summarize(t model.Todo) todoSummary {
	s := todoSummary{
		ID:       t.ID,
		Title:    t.Title,
		Notes:    t.Notes,
		Priority: string(t.Priority),
		Category: t.Category,
	}
	if t.DueDate != nil {
		s.DueDate = t.DueDate.Format(model.LogDateFormat)
	}
	return s
}

func (a *Assistant) handleListOpenTodos() string {
	open := a.todos.ListOpen()
	summaries := make([]todoSummary, 0, len(open))
	for _, t := range open {
		summaries = append(summaries, summarize(t))
	}
	result, err := json.Marshal(map[string]any{
		"count": len(summaries),
		"todos": summaries,
	})
	if err != nil {
		return fmt.Sprintf(`{"error": "Failed to encode todos: %v"}`, err)
	}
	return string(result)
}

func (a *Assistant) handleAddTodo(ctx context.Context, input json.RawMessage) string {
	var params struct {
		Title    string `json:"title"`
		Notes    string `json:"notes"`
		Priority string `json:"priority"`
		Category string `json:"category"`
		DueDate  string `json:"due_date"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err)
	}

	payload := model.TodoCreatedPayload{
		Title:    params.Title,
		Notes:    params.Notes,
		Priority: model.Priority(params.Priority),
		Category: params.Category,
	}
	if params.DueDate != "" {
		due, err := time.Parse(model.LogDateFormat, params.DueDate)
		if err != nil {
			return fmt.Sprintf(`{"error": "Invalid due_date: %v"}`, err)
		}
		payload.DueDate = &due
	}

	todo, err := a.todos.Add(ctx, payload)
	if err != nil {
		return fmt.Sprintf(`{"error": "Adding todo failed: %v"}`, err)
	}
	result, err := json.Marshal(summarize(todo))
	if err != nil {
		return fmt.Sprintf(`{"error": "Failed to encode todo: %v"}`, err)
	}
	return string(result)
}

func (a *Assistant) handleUpdateTodo(ctx context.Context, input json.RawMessage) string {
	var params struct {
		TodoID   string  `json:"todo_id"`
		Title    *string `json:"title"`
		Notes    *string `json:"notes"`
		Priority *string `json:"priority"`
		Category *string `json:"category"`
		DueDate  *string `json:"due_date"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err)
	}
	if params.TodoID == "" {
		return `{"error": "todo_id is required"}`
	}

	patch := model.TodoPatch{
		Title:    params.Title,
		Notes:    params.Notes,
		Category: params.Category,
	}
	if params.Priority != nil {
		p := model.Priority(*params.Priority)
		patch.Priority = &p
	}
	if params.DueDate != nil {
		due, err := time.Parse(model.LogDateFormat, *params.DueDate)
		if err != nil {
			return fmt.Sprintf(`{"error": "Invalid due_date: %v"}`, err)
		}
		patch.DueDate = &due
	}

	if err := a.todos.Update(ctx, params.TodoID, patch); err != nil {
		return fmt.Sprintf(`{"error": "Updating todo failed: %v"}`, err)
	}
	return `{"ok": true}`
}

func (a *Assistant) handleCompleteTodo(ctx context.Context, input json.RawMessage) string {
	var params struct {
		TodoID string `json:"todo_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err)
	}
	if params.TodoID == "" {
		return `{"error": "todo_id is required"}`
	}
	if err := a.todos.Complete(ctx, params.TodoID); err != nil {
		return fmt.Sprintf(`{"error": "Completing todo failed: %v"}`, err)
	}
	return `{"ok": true}`
}

func (a *Assistant) handleSaveDailyLog(ctx context.Context, input json.RawMessage) string {
	var params struct {
		Date       string   `json:"date"`
		Mood       int      `json:"mood"`
		Energy     int      `json:"energy"`
		SleepHours float64  `json:"sleep_hours"`
		Highlights []string `json:"highlights"`
		Gratitude  []string `json:"gratitude"`
		Notes      string   `json:"notes"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err)
	}
	if params.Date == "" {
		params.Date = time.Now().Format(model.LogDateFormat)
	}

	// Saving replaces the whole entry; carry over fields the model did
	// not mention from the existing one.
	payload := model.LogUpsertedPayload{
		Mood:       params.Mood,
		Energy:     params.Energy,
		SleepHours: params.SleepHours,
		Highlights: params.Highlights,
		Gratitude:  params.Gratitude,
		Notes:      params.Notes,
	}
	if existing, ok := a.logs.FindByDate(params.Date); ok {
		if payload.Mood == 0 {
			payload.Mood = existing.Mood
		}
		if payload.Energy == 0 {
			payload.Energy = existing.Energy
		}
		if payload.SleepHours == 0 {
			payload.SleepHours = existing.SleepHours
		}
		if len(payload.Highlights) == 0 {
			payload.Highlights = existing.Highlights
		}
		if len(payload.Gratitude) == 0 {
			payload.Gratitude = existing.Gratitude
		}
		if payload.Notes == "" {
			payload.Notes = existing.Notes
		}
	}

	if err := a.logs.Save(ctx, params.Date, payload); err != nil {
		return fmt.Sprintf(`{"error": "Saving log failed: %v"}`, err)
	}
	return fmt.Sprintf(`{"ok": true, "date": %q}`, params.Date)
}

func (a *Assistant) handleGetDailyLog(input json.RawMessage) string {
	var params struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return fmt.Sprintf(`{"error": "Invalid parameters: %v"}`, err)
	}
	if params.Date == "" {
		params.Date = time.Now().Format(model.LogDateFormat)
	}

	entry, ok := a.logs.FindByDate(params.Date)
	if !ok {
		return fmt.Sprintf(`{"error": "No log entry for %s"}`, params.Date)
	}
	result, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"error": "Failed to encode log: %v"}`, err)
	}
	return string(result)
}

// isJSONArray reports whether the string starts with '['.
func isJSONArray(s string) bool {
	trimmed := strings.TrimSpace(s)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
	Tools     []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`

	// Text blocks
	Text string `json:"text,omitempty"`

	// tool_use blocks
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type apiToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// toolDefinitions returns the tool specifications sent with each
// request.
func toolDefinitions() []apiTool {
	return []apiTool{
		{
			Name:        "list_open_todos",
			Description: "List all open (not yet completed) todos.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
		{
			Name:        "add_todo",
			Description: "Add a new todo.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"title": {"type": "string", "description": "Short title"},
					"notes": {"type": "string", "description": "Free-form details"},
					"priority": {
						"type": "string",
						"enum": ["low", "medium", "high"],
						"description": "Defaults to medium"
					},
					"category": {"type": "string"},
					"due_date": {"type": "string", "description": "YYYY-MM-DD"}
				},
				"required": ["title"]
			}`),
		},
		{
			Name:        "update_todo",
			Description: "Change fields of an existing todo. Only the fields given are changed.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"todo_id": {"type": "string"},
					"title": {"type": "string"},
					"notes": {"type": "string"},
					"priority": {"type": "string", "enum": ["low", "medium", "high"]},
					"category": {"type": "string"},
					"due_date": {"type": "string", "description": "YYYY-MM-DD"}
				},
				"required": ["todo_id"]
			}`),
		},
		{
			Name:        "complete_todo",
			Description: "Mark a todo as done.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"todo_id": {"type": "string"}
				},
				"required": ["todo_id"]
			}`),
		},
		{
			Name: "save_daily_log",
			Description: "Save the daily journal entry for a date. " +
				"Fields not given keep their existing values.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"date": {"type": "string", "description": "YYYY-MM-DD, defaults to today"},
					"mood": {"type": "integer", "minimum": 1, "maximum": 5},
					"energy": {"type": "integer", "minimum": 1, "maximum": 5},
					"sleep_hours": {"type": "number"},
					"highlights": {"type": "array", "items": {"type": "string"}},
					"gratitude": {"type": "array", "items": {"type": "string"}},
					"notes": {"type": "string"}
				}
			}`),
		},
		{
			Name:        "get_daily_log",
			Description: "Read the daily journal entry for a date.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"date": {"type": "string", "description": "YYYY-MM-DD, defaults to today"}
				}
			}`),
		},
	}
}
