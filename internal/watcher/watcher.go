// Package watcher triggers regeneration when site source files change.
package watcher

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
const DefaultDebounce = 5 * time.Second

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
}

// Options configures Watch.
type Options struct {
	// Dirs are watched recursively. Missing directories are skipped.
	Dirs []string
	// Extensions filters which file events count, e.g. ".ts", ".tsx".
	Extensions []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Matches reports whether name carries one of the watched extensions.
func Matches(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Watch observes the configured directories until ctx is cancelled and
// calls onChange once per burst of matching file events.
//
// Idle → pending on the first matching event; every further event restarts
// the debounce timer, so a burst collapses into a single call. onChange runs
// on the watch goroutine; events arriving meanwhile start a new burst.
func Watch(ctx context.Context, opts Options, logger *slog.Logger, onChange func(ctx context.Context)) error {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := 0
	for _, dir := range opts.Dirs {
		info, statErr := os.Stat(dir)
		if statErr != nil || !info.IsDir() {
			logger.Warn("watcher: directory skipped", slog.String("dir", dir))
			continue
		}
		if err := addDirsRecursive(w, dir); err != nil {
			return err
		}
		watched++
	}

	logger.Info("watcher: started",
		slog.Any("dirs", opts.Dirs),
		slog.Int("watched", watched),
		slog.Duration("debounce", debounce))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
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

		case <-fire:
			logger.Debug("watcher: debounce elapsed, regenerating")
			onChange(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if skipDirs[info.Name()] {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					continue
				}
			}

			if ev.Op == fsnotify.Chmod || !Matches(ev.Name, opts.Extensions) {
				continue
			}

			logger.Debug("watcher: file changed",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
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
		if path != root && skipDirs[d.Name()] {
			return fs.SkipDir
		}
		return w.Add(path)
	})
}
