// Package storage defines the read-only file-system abstraction used by the compiler.
package storage

import "io/fs"

// Provider is the interface for application layout reads.
// Paths are absolute; the provider never writes.
type Provider interface {
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// ReadDir returns the entries of dir sorted by name.
	ReadDir(dir string) ([]fs.FileInfo, error)
	// ReadFile returns the raw bytes of the file at path.
	ReadFile(path string) ([]byte, error)
	// Exists reports whether path exists (file or directory).
	Exists(path string) bool
	// IsDir reports whether path is an existing directory.
	IsDir(path string) bool
	// IsFile reports whether path is an existing regular file.
	IsFile(path string) bool
}
