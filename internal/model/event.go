package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the kind of entity an event mutates.
type EntityType string

const (
	EntityTodo     EntityType = "todo"
	EntityDailyLog EntityType = "daily_log"
)

// EventType identifies the kind of mutation an event records.
type EventType string

const (
	EventTodoCreated   EventType = "todo.created"
	EventTodoUpdated   EventType = "todo.updated"
	EventTodoCompleted EventType = "todo.completed"
	EventTodoDeleted   EventType = "todo.deleted"
	EventLogUpserted   EventType = "log.upserted"
)

// Payload is the tagged-union payload of an event. Exactly one concrete
// type corresponds to each EventType; DecodePayload enforces the pairing
// when events are read back from storage.
type Payload interface {
	isPayload()
}

// TodoCreatedPayload carries the full initial state of a new todo.
type TodoCreatedPayload struct {
	Title    string     `json:"title"`
	Notes    string     `json:"notes,omitempty"`
	Priority Priority   `json:"priority,omitempty"`
	Category string     `json:"category,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// TodoPatch is a partial update; nil fields leave the prior value intact.
type TodoPatch struct {
	Title    *string    `json:"title,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
	Priority *Priority  `json:"priority,omitempty"`
	Category *string    `json:"category,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Notes == nil && p.Priority == nil &&
		p.Category == nil && p.DueDate == nil
}

// TodoCompletedPayload marks a todo done.
type TodoCompletedPayload struct {
	CompletedAt time.Time `json:"completed_at"`
}

// TodoDeletedPayload removes a todo.
type TodoDeletedPayload struct{}

// LogUpsertedPayload carries the full content of a daily log.
type LogUpsertedPayload struct {
	Mood       int      `json:"mood"`
	Energy     int      `json:"energy"`
	SleepHours float64  `json:"sleep_hours"`
	Highlights []string `json:"highlights,omitempty"`
	Gratitude  []string `json:"gratitude,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

func (*TodoCreatedPayload) isPayload()   {}
func (*TodoPatch) isPayload()            {}
func (*TodoCompletedPayload) isPayload() {}
func (*TodoDeletedPayload) isPayload()   {}
func (*LogUpsertedPayload) isPayload()   {}

// Event is an immutable record of one domain mutation. ID is a UUIDv7,
// so lexicographic order of ids equals creation order even when two
// events share a millisecond timestamp; it doubles as the idempotency
// key for appends. Synced is the only field mutated after append.
type Event struct {
	ID         string     `json:"id" db:"id"`
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	EntityID   string     `json:"entity_id" db:"entity_id"`
	Type       EventType  `json:"event_type" db:"event_type"`
	Payload    Payload    `json:"payload" db:"-"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
	DeviceID   string     `json:"device_id" db:"device_id"`
	Synced     bool       `json:"synced" db:"synced"`
}

// NewEvent builds an event with a freshly minted time-ordered id and a
// millisecond-precision wall-clock timestamp.
func NewEvent(
	entityType EntityType,
	entityID string,
	eventType EventType,
	payload Payload,
	deviceID string,
) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()).String(),
		EntityType: entityType,
		EntityID:   entityID,
		Type:       eventType,
		Payload:    payload,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		DeviceID:   deviceID,
	}
}

// EncodePayload serializes an event payload to JSON for storage.
// A nil payload encodes as an empty object.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding event payload: %w", err)
	}
	return data, nil
}

// DecodePayload deserializes a stored payload into the concrete type
// matching the event type. Unknown event types decode to a nil payload
// so that newer devices' events survive a round trip through an older
// reader.
func DecodePayload(t EventType, data []byte) (Payload, error) {
	var p Payload
	switch t {
	case EventTodoCreated:
		p = &TodoCreatedPayload{}
	case EventTodoUpdated:
		p = &TodoPatch{}
	case EventTodoCompleted:
		p = &TodoCompletedPayload{}
	case EventTodoDeleted:
		p = &TodoDeletedPayload{}
	case EventLogUpserted:
		p = &LogUpsertedPayload{}
	default:
		return nil, nil
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", t, err)
	}
	return p, nil
}
