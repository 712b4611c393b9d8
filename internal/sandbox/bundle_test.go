package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_WritesNestedFiles(t *testing.T) {
	root := t.TempDir()
	bundle := Bundle{Files: map[string]string{
		"main.py":          "print('hi')",
		"pkg/__init__.py":  "",
		"pkg/util.py":      "x = 1",
		"requirements.txt": "flask\n",
	}}

	dir, err := bundle.Materialize(root, "sandbox")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))

	content, err := os.ReadFile(filepath.Join(dir, "pkg", "util.py")) //nolint:gosec // G304: test code with temp dir
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(content))

	content, err = os.ReadFile(filepath.Join(dir, "main.py")) //nolint:gosec // G304: test code with temp dir
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(content))
}

func TestMaterialize_UniqueDirs(t *testing.T) {
	root := t.TempDir()
	bundle := Bundle{Files: map[string]string{"main.py": ""}}

	a, err := bundle.Materialize(root, "sandbox")
	require.NoError(t, err)
	b, err := bundle.Materialize(root, "sandbox")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestMaterialize_RejectsEscapes(t *testing.T) {
	root := t.TempDir()

	for _, path := range []string{"../evil.py", "/etc/passwd", "a/../../evil"} {
		bundle := Bundle{Files: map[string]string{path: "payload"}}
		_, err := bundle.Materialize(root, "sandbox")
		assert.Error(t, err, "path %q must be rejected", path)
	}

	// Nothing partial left behind.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
