// Package watcher reports changes to individual files.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"dcollector/logmanager"
)

// Watch calls onChange whenever path is written, created or renamed
// into place, until ctx is done. When the file cannot be watched
// directly (it does not exist yet, or is replaced by atomic renames)
// its directory is watched instead.
func Watch(ctx context.Context, path string, onChange func(), logger *logmanager.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher for %s: %w", path, err)
	}

	if err := w.Add(path); err != nil {
		dir := filepath.Dir(path)
		if dir == "" {
			dir = "."
		}
		if _, statErr := os.Stat(dir); statErr != nil {
			w.Close()
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		if errDir := w.Add(dir); errDir != nil {
			w.Close()
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logger.Debugf("watching directory %s for changes to %s", dir, path)
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != "" && filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warnf("watcher error for %s: %v", path, err)
			}
		}
	}()

	return nil
}
