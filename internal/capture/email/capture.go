package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nhle/daybook/internal/model"
)

// Mailbox is the slice of the IMAP client the capturer needs.
type Mailbox interface {
	FetchFlagged(ctx context.Context, limit int) ([]Message, error)
	MarkSeen(ctx context.Context, uid uint32) error
}

// TodoAdder records new todos. Satisfied by repo.TodoRepository.
type TodoAdder interface {
	Add(ctx context.Context, payload model.TodoCreatedPayload) (model.Todo, error)
}

const fetchLimit = 25

// Capturer polls the mailbox and records one todo per flagged message.
type Capturer struct {
	mailbox  Mailbox
	todos    TodoAdder
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
}

// NewCapturer creates a capturer polling at the given interval.
func NewCapturer(
	mailbox Mailbox,
	todos TodoAdder,
	interval time.Duration,
	logger *slog.Logger,
) *Capturer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{
		mailbox:  mailbox,
		todos:    todos,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the poll loop. It runs until the context is cancelled
// or Stop is called.
func (c *Capturer) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				if n, err := c.CaptureOnce(ctx); err != nil {
					c.logger.Warn("mail capture failed", "error", err)
				} else if n > 0 {
					c.logger.Info("captured todos from mail", "count", n)
				}
			}
		}
	}()
}

// Stop terminates the poll loop.
func (c *Capturer) Stop() {
	close(c.stopCh)
}

// CaptureOnce fetches flagged messages and records a todo for each,
// marking the message seen afterwards. A message is marked seen only
// after its todo is durably recorded, so a crash in between means a
// duplicate todo at worst, never a lost capture. Returns the number of
// todos created.
func (c *Capturer) CaptureOnce(ctx context.Context) (int, error) {
	msgs, err := c.mailbox.FetchFlagged(ctx, fetchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetching flagged mail: %w", err)
	}

	captured := 0
	for _, msg := range msgs {
		payload := model.TodoCreatedPayload{
			Title:    title(msg),
			Notes:    notes(msg),
			Category: "email",
		}
		if _, err := c.todos.Add(ctx, payload); err != nil {
			return captured, fmt.Errorf("recording todo for UID %d: %w", msg.UID, err)
		}
		captured++
		if err := c.mailbox.MarkSeen(ctx, msg.UID); err != nil {
			return captured, fmt.Errorf("marking UID %d seen: %w", msg.UID, err)
		}
	}
	return captured, nil
}

func title(msg Message) string {
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		return fmt.Sprintf("Mail from %s", msg.From)
	}
	return subject
}

const maxNoteLen = 500

func notes(msg Message) string {
	var b strings.Builder
	if msg.From != "" {
		fmt.Fprintf(&b, "From: %s\n", msg.From)
	}
	if !msg.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", msg.Date.Format("2006-01-02 15:04"))
	}
	body := strings.TrimSpace(msg.Body)
	if body != "" {
		if len(body) > maxNoteLen {
			body = body[:maxNoteLen] + "…"
		}
		b.WriteString("\n")
		b.WriteString(body)
	}
	return strings.TrimSpace(b.String())
}
