package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/daybook/internal/model"
)

// eventTimeLayout serializes event timestamps as ISO-8601 with
// millisecond precision. Stored as TEXT, not DATETIME: the column is
// metadata only and must round-trip byte for byte.
const eventTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// AppendEvent persists an event. A duplicate id is silently ignored so
// that replayed append calls are no-ops; the original row, including
// its synced flag, is left untouched.
func (s *SQLiteLog) AppendEvent(ctx context.Context, ev model.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("appending event: empty id")
	}

	payload, err := model.EncodePayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("appending event %s: %w", ev.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (
			id, entity_type, entity_id, event_type,
			payload, timestamp, device_id, synced
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.EntityType), ev.EntityID, string(ev.Type),
		string(payload), ev.Timestamp.UTC().Format(eventTimeLayout),
		ev.DeviceID, boolToInt(ev.Synced),
	)
	if err != nil {
		return fmt.Errorf("appending event %s: %w", ev.ID, err)
	}
	return nil
}

// PendingSync returns all unsynced events ordered ascending by id.
func (s *SQLiteLog) PendingSync(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, entity_type, entity_id, event_type,
		       payload, timestamp, device_id, synced
		FROM events
		WHERE synced = 0
		ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// MarkSynced flips the synced flag for the given event ids. Ids that
// are unknown or already synced are silently skipped.
func (s *SQLiteLog) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("UPDATE events SET synced = 1 WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("building mark-synced query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("marking %d events synced: %w", len(ids), err)
	}
	return nil
}

// EntityIDMap reads the full local→remote id mapping.
func (s *SQLiteLog) EntityIDMap(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT local_id, remote_id FROM entity_map",
	)
	if err != nil {
		return nil, fmt.Errorf("querying entity map: %w", err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var localID, remoteID string
		if err := rows.Scan(&localID, &remoteID); err != nil {
			return nil, fmt.Errorf("scanning entity map row: %w", err)
		}
		m[localID] = remoteID
	}

	return m, rows.Err()
}

// PersistEntityIDMapping upserts one local→remote mapping. Re-mapping
// to the same target is a safe no-op.
func (s *SQLiteLog) PersistEntityIDMapping(
	ctx context.Context,
	localID, remoteID string,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_map (local_id, remote_id) VALUES (?, ?)
		ON CONFLICT(local_id) DO UPDATE SET remote_id = excluded.remote_id`,
		localID, remoteID,
	)
	if err != nil {
		return fmt.Errorf("persisting mapping %s -> %s: %w", localID, remoteID, err)
	}
	return nil
}

// scanEvent scans an event row from a sqlx.Rows result set, decoding
// the payload into the concrete type for the event's type.
func scanEvent(rows *sqlx.Rows) (model.Event, error) {
	var (
		ev         model.Event
		entityType string
		eventType  string
		payload    string
		timestamp  string
		syncedInt  int
	)

	err := rows.Scan(
		&ev.ID, &entityType, &ev.EntityID, &eventType,
		&payload, &timestamp, &ev.DeviceID, &syncedInt,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("scanning event row: %w", err)
	}

	ev.EntityType = model.EntityType(entityType)
	ev.Type = model.EventType(eventType)
	ev.Synced = syncedInt != 0

	ev.Timestamp, err = time.Parse(eventTimeLayout, timestamp)
	if err != nil {
		return model.Event{}, fmt.Errorf("parsing event %s timestamp: %w", ev.ID, err)
	}

	ev.Payload, err = model.DecodePayload(ev.Type, []byte(payload))
	if err != nil {
		return model.Event{}, fmt.Errorf("event %s: %w", ev.ID, err)
	}

	return ev, nil
}
