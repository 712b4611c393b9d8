package sandbox

// ABOUTME: Bundle and Plan input types plus scratch-directory materialization.
// ABOUTME: Each operation owns a fresh scratch dir; callers never share one.

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Bundle is a generated code bundle: relative file path to text content.
// Immutable for the duration of a sandbox operation.
type Bundle struct {
	Files map[string]string `json:"files"`
}

// Plan carries the generator's declared language and optional framework,
// consulted before any file-content heuristics.
type Plan struct {
	Language  string `json:"language,omitempty"`
	Framework string `json:"framework,omitempty"`
}

// Materialize writes the bundle into a fresh exclusively-owned scratch
// directory under root, preserving relative subdirectories. The prefix
// distinguishes execution ("sandbox") from preview ("preview") dirs.
func (b Bundle) Materialize(root, prefix string) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", prefix, uuid.NewString()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}

	for relPath, content := range b.Files {
		clean, err := safeRelPath(relPath)
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", err
		}

		full := filepath.Join(dir, clean)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("create %s: %w", filepath.Dir(clean), err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil { //nolint:gosec // G306: sandbox scratch files are world-readable by design
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("write %s: %w", clean, err)
		}
	}

	return dir, nil
}

// safeRelPath rejects bundle paths that would escape the scratch dir.
func safeRelPath(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("bundle path escapes scratch directory: %q", relPath)
	}
	return clean, nil
}

// skipDirs are directory names never loaded into a bundle.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// LoadBundleDir reads a directory tree into a Bundle. Bundles hold text
// only; files that are not valid UTF-8 are skipped.
func LoadBundleDir(root string) (Bundle, error) {
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from walking the caller's directory
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return Bundle{}, fmt.Errorf("load bundle from %s: %w", root, err)
	}
	return Bundle{Files: files}, nil
}
