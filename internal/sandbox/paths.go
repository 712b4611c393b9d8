// Package sandbox implements sandboxed execution and preview hosting for
// generated code bundles.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// dataDirEnv overrides the default data directory location.
const dataDirEnv = "DRYDOCK_DATA_DIR"

// DataDir returns the host-side state directory.
//
//	~/.drydock/  (or $DRYDOCK_DATA_DIR)
func DataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".drydock")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() (string, error) {
	dir := DataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// ContainerName returns the deterministic preview container name for a
// session/port slot. At most one runtime object may occupy a slot; the
// launcher clears the name before reuse.
func ContainerName(sessionID string, port int) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("preview_%s_%d", short, port)
}
