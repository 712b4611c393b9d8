package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecords_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	records := map[string]*PreviewInstance{
		"abc123": {
			ContainerID:   "abc123",
			ContainerName: "preview_sess0001_8100",
			Port:          8100,
			InternalPort:  8000,
			StartTime:     time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
			TTLMinutes:    15,
			SessionID:     "sess0001",
			Language:      LangPython,
			Framework:     FrameworkFastAPI,
			URL:           "http://localhost:8100",
			Status:        StatusRunning,
		},
		"def456": {
			ContainerID:   "def456",
			ContainerName: "preview_sess0002_8101",
			Port:          8101,
			InternalPort:  3000,
			StartTime:     time.Date(2026, 8, 24, 10, 5, 0, 0, time.UTC),
			TTLMinutes:    30,
			SessionID:     "sess0002",
			Language:      LangNode,
			Framework:     FrameworkNext,
			URL:           "http://localhost:8101",
			Status:        StatusStarting,
		},
	}

	require.NoError(t, saveRecords(path, records))

	loaded, err := loadRecords(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records["abc123"], loaded["abc123"])
	assert.Equal(t, records["def456"], loaded["def456"])
}

func TestLoadRecords_Missing(t *testing.T) {
	records, err := loadRecords(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadRecords_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := loadRecords(path)
	assert.Error(t, err)
}

func TestSaveRecords_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "registry.json")
	require.NoError(t, saveRecords(path, map[string]*PreviewInstance{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
