package store

import (
	"context"

	"github.com/nhle/daybook/internal/model"
)

// Snapshot is the last known-good bulk copy of remote state. It bounds
// replay cost: the projection is rebuilt as snapshot plus whatever
// events are still unsynced.
type Snapshot struct {
	Todos []model.Todo
	Logs  []model.DailyLog
}

// EventLog is the persistence interface for the append-only event log,
// the remote-state snapshot tables, and the local→remote entity map.
//
// Every method either fully succeeds or returns an error with no
// partial effect the caller can observe; there is no silent-loss path.
type EventLog interface {
	// AppendEvent persists an event. Appending an id that is already
	// present is a no-op, which makes retried writes idempotent.
	AppendEvent(ctx context.Context, ev model.Event) error

	// PendingSync returns all unsynced events in ascending id order.
	// Id, not timestamp, is the authoritative order: two events minted
	// in the same millisecond still replay in creation order.
	PendingSync(ctx context.Context) ([]model.Event, error)

	// MarkSynced flips the synced flag for the given event ids.
	// Idempotent; a no-op on empty input.
	MarkSynced(ctx context.Context, ids []string) error

	// LoadSnapshot reads the current snapshot tables.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SaveSnapshot replaces the snapshot tables with the given state in
	// a single transaction: every entity is upserted and any row absent
	// from the input is pruned, so remote deletions propagate locally.
	SaveSnapshot(ctx context.Context, todos []model.Todo, logs []model.DailyLog) error

	// EntityIDMap reads the full local→remote id mapping.
	EntityIDMap(ctx context.Context) (map[string]string, error)

	// PersistEntityIDMapping upserts one local→remote mapping.
	PersistEntityIDMapping(ctx context.Context, localID, remoteID string) error

	Close() error
}
