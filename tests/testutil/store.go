package testutil

import (
	"testing"

	"github.com/nhle/daybook/internal/store"
)

// NewTestLog creates an in-memory SQLiteLog with all migrations applied.
// It automatically closes the log when the test completes.
func NewTestLog(t *testing.T) *store.SQLiteLog {
	t.Helper()

	s, err := store.NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("creating test event log: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test event log: %v", err)
		}
	})

	return s
}
