// Package device provides the stable per-installation identifier that
// stamps every event.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// idFileName is the file holding the device id inside the config dir.
const idFileName = "device_id"

// ID returns the installation's device id, creating it on first run.
// Creation is atomic: if two processes race, one loses the O_EXCL
// create and reads the winner's file.
func ID(configDir string) (string, error) {
	path := filepath.Join(configDir, idFileName)

	if id, err := read(path); err == nil {
		return id, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", configDir, err)
	}

	id := uuid.New().String()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return read(path)
		}
		return "", fmt.Errorf("creating device id file: %w", err)
	}

	if _, err := f.WriteString(id + "\n"); err != nil {
		f.Close()
		return "", fmt.Errorf("writing device id: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing device id file: %w", err)
	}

	return id, nil
}

func read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("device id file %s is empty", path)
	}
	return id, nil
}
