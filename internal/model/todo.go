package model

import "time"

// Todo status constants.
const (
	TodoStatusOpen = "open"
	TodoStatusDone = "done"
)

// Priority is a todo's urgency level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Todo is a single task item. Its ID is the identifier it was created
// under locally; once the remote service confirms the creation, the
// entity map (not this struct) records the corresponding remote id.
type Todo struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Notes     string     `json:"notes" db:"notes"`
	Status    string     `json:"status" db:"status"`
	Priority  Priority   `json:"priority" db:"priority"`
	Category  string     `json:"category" db:"category"`
	DueDate   *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the todo has not been completed.
func (t Todo) IsOpen() bool {
	return t.Status != TodoStatusDone
}
