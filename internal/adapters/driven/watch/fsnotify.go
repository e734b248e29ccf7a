// Package watch reports file changes below an input directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.ChangeWatcher = (*Watcher)(nil)

// Watcher watches a directory tree with fsnotify. Directories created
// after Watch starts are added as they appear.
type Watcher struct {
	newWatcher func() (*fsnotify.Watcher, error)
}

// New creates a change watcher.
func New() *Watcher {
	return &Watcher{newWatcher: fsnotify.NewWatcher}
}

// Watch emits the path of every created, written, removed or renamed file
// below dir. The channel is closed when ctx is done or the underlying
// watcher fails.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan string, error) {
	fw, err := w.newWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(fw, dir); err != nil {
		fw.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer fw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				path, relevant := handleEvent(fw, event)
				if !relevant {
					continue
				}
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch: %v", err)
			}
		}
	}()
	return out, nil
}

// handleEvent filters an fsnotify event down to content changes. New
// directories are watched rather than reported.
func handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if isHidden(event.Name) {
		return "", false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if fw != nil {
				if err := addTree(fw, event.Name); err != nil {
					logger.Warn("watch: %v", err)
				}
			}
			return "", false
		}
	}
	return event.Name, true
}

// addTree watches dir and every non-hidden directory below it.
func addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether the base name starts with a dot. Editors write
// swap and temp files this way.
func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
