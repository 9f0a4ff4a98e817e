package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/identity"
)

func TestResolveFallsBackToLocalID(t *testing.T) {
	m := identity.NewMap(nil)
	require.Equal(t, "2026-08-31", m.Resolve("2026-08-31"))
}

func TestResolvePrefersOverlay(t *testing.T) {
	persisted := identity.NewMap(map[string]string{"a": "stale"})
	overlay := identity.NewMap(nil)
	overlay.Set("a", "fresh")

	require.Equal(t, "fresh", persisted.Resolve("a", overlay))
	require.Equal(t, "stale", persisted.Resolve("a"))
}

func TestResolveSkipsNilOverlay(t *testing.T) {
	persisted := identity.NewMap(map[string]string{"a": "remote-1"})
	require.Equal(t, "remote-1", persisted.Resolve("a", nil))
}

func TestHasAndGet(t *testing.T) {
	m := identity.NewMap(nil)
	require.False(t, m.Has("x"))
	require.Empty(t, m.Get("x"))

	m.Set("x", "remote-9")
	require.True(t, m.Has("x"))
	require.Equal(t, "remote-9", m.Get("x"))
}
