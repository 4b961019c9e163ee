package template

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/devroopsaha744/TexMCP/internal/logfields"
)

// Watch invalidates cached templates when their files change on disk, so a
// long-running server picks up edits without a restart. It blocks until ctx is
// canceled.
func (e *Engine) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			slog.Warn("Failed to close template watcher", logfields.Error(cerr))
		}
	}()

	if err := watcher.Add(e.root); err != nil {
		return fmt.Errorf("watch template directory: %w", err)
	}
	slog.Debug("Watching template directory", logfields.Path(e.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, Ext) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				e.Invalidate(name)
				slog.Debug("Invalidated cached template", logfields.Template(name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Template watcher error", logfields.Error(err))
		}
	}
}
