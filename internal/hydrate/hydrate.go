// Package hydrate refreshes the local snapshot from the remote service
// and rebuilds the projection on top of it.
package hydrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/remote"
	"github.com/nhle/daybook/internal/store"
)

// Hydrator performs the bulk remote fetch that seeds the snapshot
// tables and refreshes the projection baseline.
type Hydrator struct {
	log        store.EventLog
	proj       *projection.Projection
	todos      remote.TodoService
	logs       remote.LogService
	windowDays int
	logger     *slog.Logger
}

// New creates a hydrator pulling all todos and a trailing windowDays of
// daily logs.
func New(
	log store.EventLog,
	proj *projection.Projection,
	todos remote.TodoService,
	logs remote.LogService,
	windowDays int,
	logger *slog.Logger,
) *Hydrator {
	if windowDays <= 0 {
		windowDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hydrator{
		log:        log,
		proj:       proj,
		todos:      todos,
		logs:       logs,
		windowDays: windowDays,
		logger:     logger,
	}
}

// LoadLocal rebuilds the projection from the stored snapshot plus all
// pending events, without touching the network. Used at startup so the
// app is usable before (or without) a remote round trip.
func (h *Hydrator) LoadLocal(ctx context.Context) error {
	snap, err := h.log.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading local snapshot: %w", err)
	}
	err = h.proj.Rebuild(snap, func() ([]model.Event, error) {
		return h.log.PendingSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("loading pending events: %w", err)
	}
	return nil
}

// Hydrate pulls the current remote state, replaces the snapshot tables
// atomically, and rebuilds the projection as snapshot plus still-
// pending local events. The pending re-read, the rebuild, and the
// replay all run in one critical section: a write racing the rebuild
// is either re-read and replayed, or applied after it.
func (h *Hydrator) Hydrate(ctx context.Context) error {
	todos, err := h.todos.List(ctx)
	if err != nil {
		return fmt.Errorf("fetching remote todos: %w", err)
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -h.windowDays)
	logs, err := h.logs.List(ctx,
		from.Format(model.LogDateFormat), to.Format(model.LogDateFormat))
	if err != nil {
		return fmt.Errorf("fetching remote logs: %w", err)
	}

	if err := h.log.SaveSnapshot(ctx, todos, logs); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	var pending int
	err = h.proj.Rebuild(&store.Snapshot{Todos: todos, Logs: logs},
		func() ([]model.Event, error) {
			events, err := h.log.PendingSync(ctx)
			pending = len(events)
			return events, err
		})
	if err != nil {
		return fmt.Errorf("loading pending events: %w", err)
	}

	h.logger.Info("hydrated",
		"todos", len(todos), "logs", len(logs), "pending", pending)
	return nil
}
