package compiler

import (
	"log/slog"
	"path/filepath"

	"github.com/starford/bootplan/internal/resolver"
)

// DefaultBootDir is the boot directory every application root carries.
const DefaultBootDir = "boot"

// findBootScripts returns explicit boot scripts followed by the scripts of
// every boot directory and its <env> subdirectory. A path appears once, at
// its first position.
func (c *compiler) findBootScripts() []string {
	var scripts []string

	for _, ref := range c.opts.BootScripts {
		res, ok := c.resolver.TryResolve(c.root, ref, resolver.Options{FullResolve: true})
		if !ok {
			c.logger.Warn("compiler: boot script not found, skipping", slog.String("script", ref))
			continue
		}
		scripts = append(scripts, res.Path)
	}

	dirs := make([]string, 0, len(c.opts.BootDirs)+1)
	dirs = append(dirs, c.opts.BootDirs...)
	dirs = append(dirs, filepath.Join(c.root, DefaultBootDir))

	for _, dir := range dirs {
		res, ok := c.resolver.TryResolve(c.root, dir, resolver.Options{Optional: true})
		if !ok || !c.fs.IsDir(res.Path) {
			c.logger.Debug("compiler: skipping missing boot directory", slog.String("dir", dir))
			continue
		}
		scripts = append(scripts, c.finder.Find(res.Path)...)
		scripts = append(scripts, c.finder.Find(filepath.Join(res.Path, c.env))...)
	}

	return dedupe(scripts)
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
