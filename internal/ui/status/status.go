// Package status renders the bottom sync status line.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daybook/internal/remote"
	"github.com/nhle/daybook/internal/sync"
	"github.com/nhle/daybook/internal/theme"
)

// Render draws the status bar for the given engine snapshot.
func Render(s sync.Status, width int, hint string) string {
	var label, state string
	switch {
	case s.State == sync.StateFlushing:
		state, label = "syncing", "syncing..."
	case s.State == sync.StateError:
		state, label = "error", "sync failed"
		switch {
		case remote.IsAuthError(s.Err):
			// A retry cannot fix a bad token; point at setup instead.
			label = "auth failed · re-run setup"
		case s.Err != nil:
			label = "sync failed: " + truncate(s.Err.Error(), 40)
		}
	case s.Pending > 0:
		state = "pending"
		label = fmt.Sprintf("%d pending", s.Pending)
	default:
		state, label = "synced", "synced"
		if !s.LastFlush.IsZero() {
			label = "synced " + s.LastFlush.Format("15:04")
		}
	}

	left := theme.SyncStateStyle(state).Render("● " + label)
	right := theme.HelpStyle.Render(hint)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return theme.StatusBarStyle.Width(width).Render(
		left + strings.Repeat(" ", gap) + right,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
