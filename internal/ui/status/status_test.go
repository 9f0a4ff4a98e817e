package status_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/remote"
	"github.com/nhle/daybook/internal/sync"
	"github.com/nhle/daybook/internal/ui/status"
)

func TestRenderAuthFailureSuggestsSetup(t *testing.T) {
	err := fmt.Errorf("applying event: %w", &remote.AuthError{Message: "invalid token"})
	bar := status.Render(sync.Status{State: sync.StateError, Err: err}, 80, "")

	// A bad token is not retryable; the bar points at setup instead of
	// echoing the raw error.
	require.Contains(t, bar, "auth failed")
	require.Contains(t, bar, "re-run setup")
	require.NotContains(t, bar, "invalid token")
}

func TestRenderStates(t *testing.T) {
	require.Contains(t,
		status.Render(sync.Status{State: sync.StateFlushing}, 80, ""),
		"syncing")

	require.Contains(t,
		status.Render(sync.Status{State: sync.StateError, Err: fmt.Errorf("boom")}, 80, ""),
		"sync failed: boom")

	require.Contains(t,
		status.Render(sync.Status{Pending: 3}, 80, ""),
		"3 pending")

	last := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	require.Contains(t,
		status.Render(sync.Status{LastFlush: last}, 80, ""),
		"synced 09:30")
}
