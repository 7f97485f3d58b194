// Package testutil provides shared test helpers for building application layouts.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/starford/bootplan/internal/storage"
)

// MemRoot is the application root used by in-memory layouts.
const MemRoot = "/app"

// MemLayout creates an in-memory file system holding files (paths relative
// to MemRoot) and returns a provider over it.
func MemLayout(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	if err := mem.MkdirAll(MemRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		p := filepath.Join(MemRoot, rel)
		if err := afero.WriteFile(mem, p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return storage.New(mem)
}

// DiskLayout writes files (paths relative to a fresh temp dir) to disk and
// returns the directory.
func DiskLayout(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		WriteFile(t, filepath.Join(root, rel), content)
	}
	return root
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
