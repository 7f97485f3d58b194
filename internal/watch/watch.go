// Package watch recompiles when the application layout changes on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the
// callback fires.
const DefaultDebounce = 200 * time.Millisecond

// skippedDirs are never watched: they hold dependencies or VCS metadata,
// not layout sources.
var skippedDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
}

// ChangeFunc is called once per burst of layout changes. paths holds every
// changed file of the burst, in arrival order, without duplicates.
type ChangeFunc func(paths []string)

// Watch watches root recursively and calls onChange after each debounced
// burst of file changes until ctx is cancelled. New directories created at
// runtime are added to the watch list.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, onChange ChangeFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending []string
		seen    = make(map[string]struct{})
	)

	schedule := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			pending = append(pending, path)
		}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			batch := pending
			pending = nil
			seen = make(map[string]struct{})
			logger.Debug("watcher: layout changed", slog.Int("files", len(batch)))
			if onChange != nil && len(batch) > 0 {
				onChange(batch)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isTempFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if _, skip := skippedDirs[filepath.Base(ev.Name)]; skip {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}

			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// isTempFile reports whether path is an editor swap or backup file.
func isTempFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skippedDirs[d.Name()]; skip && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
