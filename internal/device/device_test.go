package device_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daybook/internal/device"
)

func TestIDIsStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	first, err := device.ID(dir)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := device.ID(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestIDCreatesConfigDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	id, err := device.ID(dir)
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestIDReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	want := uuid.New().String()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "device_id"), []byte(want+"\n"), 0o600))

	got, err := device.ID(dir)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestIDRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "device_id"), []byte("\n"), 0o600))

	_, err := device.ID(dir)
	require.Error(t, err)
}
