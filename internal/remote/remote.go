// Package remote defines the ports to the hosted page/database service
// that is the data of record. The service is slow, rate-limited, and
// may be edited concurrently from other devices; callers must treat
// every operation as eventually consistent.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/daybook/internal/model"
)

// AuthError indicates that authentication has failed or expired for the
// remote service. It is returned when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// TodoService is the remote adapter for todos. All ids it accepts and
// returns are remote ids; resolving local ids is the sync engine's job.
type TodoService interface {
	// Add creates the todo remotely and returns its remote id.
	Add(ctx context.Context, p model.TodoCreatedPayload) (string, error)

	// Update applies a partial patch; nil patch fields are untouched.
	Update(ctx context.Context, remoteID string, patch model.TodoPatch) error

	// Complete sets the remote todo to its done state.
	Complete(ctx context.Context, remoteID string) error

	// Delete archives the remote todo.
	Delete(ctx context.Context, remoteID string) error

	// LastEdited returns the remote entity's last-modified time,
	// or the zero time with a nil error when none is available.
	LastEdited(ctx context.Context, remoteID string) (time.Time, error)

	// List fetches every todo, keyed by remote id, for hydration.
	List(ctx context.Context) ([]model.Todo, error)
}

// LogService is the remote adapter for daily logs.
type LogService interface {
	// Save upserts the log content for date. remoteID is the last
	// known remote page id, empty when the log has never synced;
	// the returned id is the page now holding the content.
	Save(ctx context.Context, date, remoteID string, p model.LogUpsertedPayload) (string, error)

	// LastEdited returns the remote page's last-modified time,
	// or the zero time with a nil error when none is available.
	LastEdited(ctx context.Context, remoteID string) (time.Time, error)

	// List fetches all logs dated between from and to inclusive.
	List(ctx context.Context, from, to string) ([]model.DailyLog, error)
}
