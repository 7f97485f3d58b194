package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func memProvider(t *testing.T, files map[string]string) *FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	for p, content := range files {
		if err := afero.WriteFile(mem, p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", p, err)
		}
	}
	return New(mem)
}

func TestReadFile(t *testing.T) {
	s := memProvider(t, map[string]string{"/app/models/car.json": `{"name":"Car"}`})
	got, err := s.ReadFile("/app/models/car.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"name":"Car"}` {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadFileMissing(t *testing.T) {
	s := memProvider(t, nil)
	_, err := s.ReadFile("/nope.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist in chain, got %v", err)
	}
}

func TestReadDirSorted(t *testing.T) {
	s := memProvider(t, map[string]string{
		"/app/boot/c.js": "",
		"/app/boot/a.js": "",
		"/app/boot/b.js": "",
	})
	entries, err := s.ReadDir("/app/boot")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 3 || names[0] != "a.js" || names[1] != "b.js" || names[2] != "c.js" {
		t.Errorf("names = %v, want [a.js b.js c.js]", names)
	}
}

func TestKindPredicates(t *testing.T) {
	s := memProvider(t, map[string]string{"/app/boot/a.js": ""})
	if !s.Exists("/app/boot") || !s.IsDir("/app/boot") || s.IsFile("/app/boot") {
		t.Error("/app/boot should be an existing directory")
	}
	if !s.Exists("/app/boot/a.js") || !s.IsFile("/app/boot/a.js") || s.IsDir("/app/boot/a.js") {
		t.Error("/app/boot/a.js should be an existing file")
	}
	if s.Exists("/app/missing") || s.IsDir("/app/missing") || s.IsFile("/app/missing") {
		t.Error("/app/missing should not exist")
	}
}

func TestOSProviderIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewOS()
	if !s.IsFile(p) {
		t.Fatalf("expected %s to be a file", p)
	}
	if err := afero.WriteFile(s.Afero(), filepath.Join(dir, "new.json"), []byte("{}"), 0o644); err == nil {
		t.Error("expected write through read-only provider to fail")
	}
}
