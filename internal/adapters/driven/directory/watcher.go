package directory

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/leafstream/internal/logger"
)

// Watch reloads the directory whenever its file changes on disk.
// It blocks until ctx is cancelled. Editors often replace files
// rather than writing in place, so the parent directory is watched
// and events are filtered by name.
func (d *Directory) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(d.path), err)
	}

	target := filepath.Clean(d.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := d.Reload(); err != nil {
				logger.Warn("directory: reload after change: %v", err)
				continue
			}
			logger.Info("directory: reloaded %d entries from %s", len(d.Dispensaries()), d.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("directory: watch error: %v", err)
		}
	}
}
