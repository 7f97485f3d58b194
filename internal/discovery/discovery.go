// Package discovery lists loadable artifacts in application directories.
package discovery

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/bootplan/internal/storage"
)

// DefaultExtensions mirrors the extensions a host loader understands out of the box.
var DefaultExtensions = []string{".js", ".json", ".node"}

// excluded holds data and native-binary extensions. They are never loadable
// scripts, though .json files are still consulted as definitions.
var excluded = map[string]struct{}{
	".json": {},
	".node": {},
}

const (
	entryPointStem = "index"
	privatePrefix  = "_"
)

// Finder discovers script files under directories.
type Finder struct {
	fs     storage.Provider
	exts   []string
	logger *slog.Logger
}

// NewFinder creates a Finder. An empty extension list selects DefaultExtensions.
func NewFinder(fs storage.Provider, extensions []string, logger *slog.Logger) *Finder {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !slices.Contains(exts, e) {
			exts = append(exts, e)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{fs: fs, exts: exts, logger: logger}
}

// Extensions returns every known extension, data files included.
func (f *Finder) Extensions() []string {
	return slices.Clone(f.exts)
}

// ScriptExtensions returns the known extensions minus data and binary ones.
func (f *Finder) ScriptExtensions() []string {
	var out []string
	for _, e := range f.exts {
		if _, skip := excluded[e]; !skip {
			out = append(out, e)
		}
	}
	return out
}

// IsScript reports whether name carries a loadable script extension.
func (f *Finder) IsScript(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if _, skip := excluded[ext]; skip {
		return false
	}
	return slices.Contains(f.exts, ext)
}

func (f *Finder) isEntryPoint(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return stem == entryPointStem && f.IsScript(name)
}

// Find returns the absolute paths of the loadable scripts directly inside dir,
// ordered case-insensitively by name. A missing dir yields nil.
func (f *Finder) Find(dir string) []string {
	entries, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// Case-insensitive order keeps results identical across platforms.
	slices.SortStableFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	var out []string
	for _, name := range names {
		if f.isEntryPoint(name) || strings.HasPrefix(name, privatePrefix) {
			continue
		}
		p := filepath.Join(dir, name)
		info, err := f.fs.Stat(p)
		if err != nil {
			f.logger.Debug("discovery: stat failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if !info.Mode().IsRegular() {
			f.logger.Debug("discovery: skipping directory", slog.String("path", p))
			continue
		}
		if !f.IsScript(name) {
			f.logger.Debug("discovery: skipping file with unknown extension", slog.String("path", p))
			continue
		}
		out = append(out, p)
	}
	return out
}

// SiblingSource finds the implementation file paired with a definition file:
// the first regular sibling in entries sharing its stem whose extension is not
// a data extension. With scriptsOnly the sibling must also carry a known
// extension. It returns "" when there is none.
func (f *Finder) SiblingSource(defFile string, entries []fs.FileInfo, scriptsOnly bool) string {
	if f.IsScript(defFile) {
		return defFile
	}
	dir := filepath.Dir(defFile)
	stem := strings.TrimSuffix(filepath.Base(defFile), filepath.Ext(defFile))

	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if _, skip := excluded[strings.ToLower(ext)]; skip {
			continue
		}
		if strings.TrimSuffix(name, ext) != stem {
			continue
		}
		if scriptsOnly && !f.IsScript(name) {
			continue
		}
		p := filepath.Join(dir, name)
		if !f.fs.IsFile(p) {
			continue
		}
		return p
	}
	return ""
}
