package sandbox

// ABOUTME: Persistence for the preview registry, one keyed JSON document.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// loadRecords reads the registry file. A missing file is an empty
// registry; a corrupt one is an error so the caller can decide whether
// to start fresh.
func loadRecords(path string) (map[string]*PreviewInstance, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*PreviewInstance{}, nil
		}
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	records := map[string]*PreviewInstance{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return records, nil
}

// saveRecords writes the full record set keyed by container ID.
func saveRecords(path string, records map[string]*PreviewInstance) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write registry %s: %w", path, err)
	}
	return nil
}
