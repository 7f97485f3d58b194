package storage

import (
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// FS implements Provider on top of an afero file system.
type FS struct {
	fs afero.Fs
}

// NewOS returns a provider over the real file system, wrapped read-only.
func NewOS() *FS {
	return &FS{fs: afero.NewReadOnlyFs(afero.NewOsFs())}
}

// New returns a provider over an arbitrary afero file system.
func New(base afero.Fs) *FS {
	return &FS{fs: base}
}

// Afero exposes the underlying file system.
func (f *FS) Afero() afero.Fs {
	return f.fs
}

// Stat returns file info for path.
func (f *FS) Stat(path string) (fs.FileInfo, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info, nil
}

// ReadDir lists dir. Entries are sorted by name.
func (f *FS) ReadDir(dir string) ([]fs.FileInfo, error) {
	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", dir, err)
	}
	return entries, nil
}

// ReadFile returns the raw bytes of a file.
func (f *FS) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

// IsDir reports whether path is a directory.
func (f *FS) IsDir(path string) bool {
	ok, err := afero.DirExists(f.fs, path)
	return err == nil && ok
}

// IsFile reports whether path is a regular file.
func (f *FS) IsFile(path string) bool {
	info, err := f.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
