// Package sync drains pending events from the event log to the remote
// service: exactly-once in effect, in creation order, tolerant of a
// crash at any point between the remote call and the bookkeeping that
// follows it.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/daybook/internal/identity"
	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/remote"
	"github.com/nhle/daybook/internal/store"
)

// State represents what the engine is currently doing.
type State int

const (
	StateIdle State = iota
	StateFlushing
	StateError
)

// Status is a point-in-time snapshot of the engine for display.
type Status struct {
	State     State
	LastFlush time.Time
	Pending   int
	Err       error
}

// defaultInterval is the periodic flush interval when none is configured.
const defaultInterval = 60 * time.Second

// Engine is the background reconciler. One goroutine consumes both
// triggers (the periodic tick and the write-path nudge), so at most
// one flush runs at a time by construction; inFlush only guards the
// additional FlushOnce entry point.
type Engine struct {
	log      store.EventLog
	todos    remote.TodoService
	logs     remote.LogService
	interval time.Duration
	logger   *slog.Logger

	nudgeCh chan struct{}
	stopCh  chan struct{}

	mu      gosync.Mutex
	running bool
	inFlush bool
	status  Status
}

// New creates an engine. interval <= 0 selects the default periodic
// flush interval.
func New(
	log store.EventLog,
	todos remote.TodoService,
	logs remote.LogService,
	interval time.Duration,
	logger *slog.Logger,
) *Engine {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		log:      log,
		todos:    todos,
		logs:     logs,
		interval: interval,
		logger:   logger,
		// Capacity 1: many rapid nudges coalesce into one pending flush.
		nudgeCh: make(chan struct{}, 1),
	}
}

// Start launches the flush loop. No-op if already running. The loop
// never blocks process shutdown: Stop or ctx cancellation ends it.
// A stopped engine may be started again; each run gets a fresh stop
// channel since Stop closed the previous one.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stop := e.stopCh
	e.mu.Unlock()

	go e.run(ctx, stop)
}

// Stop halts the flush loop. A flush already in progress finishes its
// current event and then the batch stops.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	close(e.stopCh)
	e.running = false
}

// Nudge asks for a flush soon. Never blocks: if a nudge is already
// queued this one merges with it.
func (e *Engine) Nudge() {
	select {
	case e.nudgeCh <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the engine's current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// run is the single consumer of both flush triggers. stop is the
// channel Start paired with this run; reading the field would race a
// restart.
func (e *Engine) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		case <-e.nudgeCh:
		}

		if err := e.FlushOnce(ctx); err != nil {
			// Recoverable: the failed event stays pending and the
			// next tick or nudge retries from it, in order.
			e.logger.Warn("flush stopped", "error", err)
		}
	}
}

// FlushOnce runs one drain-and-apply cycle over the currently pending
// events. A no-op when a flush is already in progress. The first
// remote failure stops the batch; events already applied stay synced.
func (e *Engine) FlushOnce(ctx context.Context) error {
	e.mu.Lock()
	if e.inFlush {
		e.mu.Unlock()
		return nil
	}
	e.inFlush = true
	e.status.State = StateFlushing
	e.mu.Unlock()

	err := e.flush(ctx)

	e.mu.Lock()
	e.inFlush = false
	e.status.Err = err
	if err != nil {
		e.status.State = StateError
	} else {
		e.status.State = StateIdle
		e.status.LastFlush = time.Now()
	}
	e.mu.Unlock()

	return err
}

func (e *Engine) flush(ctx context.Context) error {
	pending, err := e.log.PendingSync(ctx)
	if err != nil {
		return fmt.Errorf("loading pending events: %w", err)
	}
	e.setPending(len(pending))
	if len(pending) == 0 {
		return nil
	}

	entries, err := e.log.EntityIDMap(ctx)
	if err != nil {
		return fmt.Errorf("loading entity map: %w", err)
	}

	// The persisted map is a point-in-time read; mappings created by
	// this batch land in the overlay so later events in the same batch
	// resolve to the just-created remote ids.
	persisted := identity.NewMap(entries)
	overlay := identity.NewMap(nil)

	e.logger.Debug("flushing", "pending", len(pending))

	for i, ev := range pending {
		if err := e.applyEvent(ctx, ev, persisted, overlay); err != nil {
			// Stop the batch: applying a later event before this one
			// succeeds would reorder cross-device causality.
			e.setPending(len(pending) - i)
			return fmt.Errorf("applying event %s (%s): %w", ev.ID, ev.Type, err)
		}
	}

	e.setPending(0)
	return nil
}

// applyEvent pushes one event to the remote service and marks it
// synced. Conflict ("remote is newer") and crash-recovery ("already
// created") outcomes are resolutions, not errors: the event is marked
// synced without a remote write.
func (e *Engine) applyEvent(
	ctx context.Context,
	ev model.Event,
	persisted, overlay *identity.Map,
) error {
	hasRemote := overlay.Has(ev.EntityID) || persisted.Has(ev.EntityID)
	effectiveID := persisted.Resolve(ev.EntityID, overlay)

	if ev.Type == model.EventTodoCreated {
		if hasRemote {
			// The process died after persisting the mapping but before
			// marking the event synced. The create already happened;
			// issuing it again would duplicate the todo.
			e.logger.Info("create already applied, recovering",
				"event", ev.ID, "remote_id", effectiveID)
			return e.markSynced(ctx, ev)
		}
		return e.applyCreate(ctx, ev, overlay)
	}

	stale, err := e.remoteIsNewer(ctx, ev, effectiveID, hasRemote)
	if err != nil {
		// Unknown remote state must never block the queue forever;
		// default to applying the event.
		e.logger.Debug("conflict check failed, applying anyway",
			"event", ev.ID, "error", err)
	}
	if stale {
		e.logger.Info("remote newer than local event, discarding",
			"event", ev.ID, "entity", ev.EntityID)
		return e.markSynced(ctx, ev)
	}

	switch ev.Type {
	case model.EventTodoUpdated:
		patch, ok := ev.Payload.(*model.TodoPatch)
		if !ok {
			return e.markSynced(ctx, ev)
		}
		if err := e.todos.Update(ctx, effectiveID, *patch); err != nil {
			return err
		}

	case model.EventTodoCompleted:
		if err := e.todos.Complete(ctx, effectiveID); err != nil {
			return err
		}

	case model.EventTodoDeleted:
		if err := e.todos.Delete(ctx, effectiveID); err != nil {
			return err
		}

	case model.EventLogUpserted:
		payload, ok := ev.Payload.(*model.LogUpsertedPayload)
		if !ok {
			return e.markSynced(ctx, ev)
		}
		remoteID := ""
		if hasRemote {
			remoteID = effectiveID
		}
		newID, err := e.logs.Save(ctx, ev.EntityID, remoteID, *payload)
		if err != nil {
			return err
		}
		if remoteID == "" && newID != "" {
			if err := e.bindRemoteID(ctx, ev.EntityID, newID, overlay); err != nil {
				return err
			}
		}

	default:
		// An event type this build does not know cannot be applied and
		// must not wedge the queue ahead of events it does know.
		e.logger.Warn("skipping unknown event type",
			"event", ev.ID, "type", ev.Type)
	}

	return e.markSynced(ctx, ev)
}

// applyCreate handles the new-unsynced-todo fast path: no remote id
// exists anywhere, so there is nothing to conflict with yet.
func (e *Engine) applyCreate(
	ctx context.Context,
	ev model.Event,
	overlay *identity.Map,
) error {
	payload, ok := ev.Payload.(*model.TodoCreatedPayload)
	if !ok {
		return e.markSynced(ctx, ev)
	}

	remoteID, err := e.todos.Add(ctx, *payload)
	if err != nil {
		return err
	}

	// The mapping must be durable before the event is marked synced:
	// if we crash in between, the recovery path above re-marks the
	// event instead of re-creating the todo.
	if err := e.bindRemoteID(ctx, ev.EntityID, remoteID, overlay); err != nil {
		return err
	}

	return e.markSynced(ctx, ev)
}

// remoteIsNewer reports whether the remote entity was modified after
// the local event was queued. No remote id, no remote timestamp, or a
// failed fetch all mean "not newer".
func (e *Engine) remoteIsNewer(
	ctx context.Context,
	ev model.Event,
	effectiveID string,
	hasRemote bool,
) (bool, error) {
	if ev.EntityType == model.EntityDailyLog && !hasRemote {
		// A freshly-referenced log has no remote page to conflict with.
		return false, nil
	}

	var (
		lastEdited time.Time
		err        error
	)
	switch ev.EntityType {
	case model.EntityTodo:
		lastEdited, err = e.todos.LastEdited(ctx, effectiveID)
	case model.EntityDailyLog:
		lastEdited, err = e.logs.LastEdited(ctx, effectiveID)
	}
	if err != nil {
		return false, err
	}
	if lastEdited.IsZero() {
		return false, nil
	}

	return lastEdited.After(ev.Timestamp), nil
}

func (e *Engine) bindRemoteID(
	ctx context.Context,
	localID, remoteID string,
	overlay *identity.Map,
) error {
	if err := e.log.PersistEntityIDMapping(ctx, localID, remoteID); err != nil {
		return fmt.Errorf("binding %s to remote id: %w", localID, err)
	}
	overlay.Set(localID, remoteID)
	return nil
}

func (e *Engine) markSynced(ctx context.Context, ev model.Event) error {
	if err := e.log.MarkSynced(ctx, []string{ev.ID}); err != nil {
		return fmt.Errorf("marking event %s synced: %w", ev.ID, err)
	}
	return nil
}

func (e *Engine) setPending(n int) {
	e.mu.Lock()
	e.status.Pending = n
	e.mu.Unlock()
}
