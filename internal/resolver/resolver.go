// Package resolver maps logical references (absolute, relative or
// module-style) to concrete paths in the application layout.
package resolver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/storage"
)

// DefaultModulesDir is the per-directory module folder searched for
// module-style references.
const DefaultModulesDir = "node_modules"

const packageManifest = "package.json"

// Options control a single resolution.
type Options struct {
	// Strict skips the root-relative attempt for bare names, so only module
	// search directories are consulted.
	Strict bool
	// Optional turns a failed resolution into an unresolved result instead of
	// an ErrPathNotFound error.
	Optional bool
	// FullResolve, when false, returns the module candidate itself (usually a
	// directory) rather than its resolved entry point.
	FullResolve bool
}

// Result is the outcome of a resolution.
type Result struct {
	// Path is the resolved absolute path.
	Path string
	// ModuleRelative is set when the path was found by treating the reference
	// as a bare name.
	ModuleRelative bool
	// UnresolvedPath is the module candidate before entry-point resolution.
	UnresolvedPath string
}

// Resolver resolves references against an injected module search path list.
type Resolver struct {
	fs          storage.Provider
	searchPaths []string
	modulesDir  string
	extensions  []string
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSearchPaths sets the global module search directories. They take
// precedence over directories derived from the root.
func WithSearchPaths(paths ...string) Option {
	return func(r *Resolver) {
		r.searchPaths = append(r.searchPaths, paths...)
	}
}

// WithModulesDir overrides DefaultModulesDir.
func WithModulesDir(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.modulesDir = name
		}
	}
}

// WithExtensions sets the extensions tried when a path names a file without
// its extension.
func WithExtensions(exts ...string) Option {
	return func(r *Resolver) {
		r.extensions = exts
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver over fs.
func New(fs storage.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		fs:         fs,
		modulesDir: DefaultModulesDir,
		extensions: []string{".js", ".json", ".node"},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves ref against root. A reference that cannot be found yields
// an error wrapping apperr.ErrPathNotFound unless opts.Optional is set, in
// which case the zero Result and a nil error are returned.
func (r *Resolver) Resolve(root, ref string, opts Options) (Result, error) {
	res, ok := r.TryResolve(root, ref, opts)
	if !ok {
		if opts.Optional {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("%w: cannot resolve path %q", apperr.ErrPathNotFound, ref)
	}
	return res, nil
}

// TryResolve resolves ref against root and reports whether it was found.
func (r *Resolver) TryResolve(root, ref string, opts Options) (Result, bool) {
	if ref == "" {
		return Result{}, false
	}

	var candidate string
	moduleRelative := false
	switch {
	case filepath.IsAbs(ref):
		candidate = filepath.Clean(ref)
	case isRelative(ref):
		candidate = filepath.Join(root, ref)
	case !opts.Strict:
		moduleRelative = true
		candidate = filepath.Join(root, ref)
	}

	if candidate != "" {
		// Directories are accepted as-is.
		if r.fs.Exists(candidate) {
			return Result{Path: candidate, ModuleRelative: moduleRelative}, true
		}
		if p, ok := r.resolveEntry(candidate); ok {
			return Result{Path: p, ModuleRelative: moduleRelative}, true
		}
		if !moduleRelative {
			r.logger.Debug("resolver: skipping unknown path", slog.String("path", candidate))
			return Result{}, false
		}
	}

	for _, dir := range r.moduleDirs(root) {
		abs := filepath.Join(dir, ref)
		resolved, ok := r.resolveEntry(abs)
		if !ok {
			if r.fs.Exists(abs) {
				return Result{Path: abs, ModuleRelative: true}, true
			}
			continue
		}
		if !opts.FullResolve {
			return Result{Path: abs, ModuleRelative: true, UnresolvedPath: abs}, true
		}
		return Result{Path: resolved, ModuleRelative: true, UnresolvedPath: abs}, true
	}

	r.logger.Debug("resolver: module not found", slog.String("ref", ref), slog.String("root", root))
	return Result{}, false
}

// moduleDirs returns the global search paths followed by every ancestor
// modules directory of root, nearest first.
func (r *Resolver) moduleDirs(root string) []string {
	dirs := make([]string, 0, len(r.searchPaths)+8)
	dirs = append(dirs, r.searchPaths...)

	dir := filepath.Clean(root)
	for {
		if filepath.Base(dir) != r.modulesDir {
			dirs = append(dirs, filepath.Join(dir, r.modulesDir))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

// resolveEntry finds the file a path designates: the file itself, the path
// with a known extension appended, or a directory's manifest entry point or
// index file.
func (r *Resolver) resolveEntry(p string) (string, bool) {
	if f, ok := r.resolveFile(p); ok {
		return f, true
	}
	if !r.fs.IsDir(p) {
		return "", false
	}
	if main := r.manifestMain(p); main != "" {
		target := filepath.Join(p, main)
		if f, ok := r.resolveFile(target); ok {
			return f, true
		}
		if f, ok := r.resolveIndex(target); ok {
			return f, true
		}
	}
	return r.resolveIndex(p)
}

func (r *Resolver) resolveFile(p string) (string, bool) {
	if r.fs.IsFile(p) {
		return p, true
	}
	for _, ext := range r.extensions {
		if r.fs.IsFile(p + ext) {
			return p + ext, true
		}
	}
	return "", false
}

func (r *Resolver) resolveIndex(dir string) (string, bool) {
	for _, ext := range r.extensions {
		p := filepath.Join(dir, "index"+ext)
		if r.fs.IsFile(p) {
			return p, true
		}
	}
	return "", false
}

func (r *Resolver) manifestMain(dir string) string {
	data, err := r.fs.ReadFile(filepath.Join(dir, packageManifest))
	if err != nil {
		return ""
	}
	var manifest struct {
		Main string `json:"main"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		r.logger.Debug("resolver: invalid manifest", slog.String("dir", dir), slog.String("error", err.Error()))
		return ""
	}
	return manifest.Main
}

func isRelative(ref string) bool {
	return ref == "." || ref == ".." ||
		strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") ||
		strings.HasPrefix(ref, `.\`) || strings.HasPrefix(ref, `..\`)
}
