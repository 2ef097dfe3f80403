package receiver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/scanboard/scanboard/pkg/types"
)

// WatchFile loads the audit summary at path, hands it to onSummary, and then
// reloads it every time the file is written until ctx is cancelled.
//
// The initial load must succeed. Later reload failures are logged and the
// previously loaded summary stays in place.
func WatchFile(ctx context.Context, path string, onSummary func(*types.AuditSummary)) error {
	sum, err := types.LoadFile(path)
	if err != nil {
		return fmt.Errorf("receiver: preload: %w", err)
	}
	onSummary(sum)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("receiver: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("receiver: watch %q: %w", path, err)
	}
	slog.Info("receiver: watching results file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			sum, err := types.LoadFile(path)
			if err != nil {
				slog.Error("receiver: reload failed, keeping previous summary", "path", path, "err", err)
				continue
			}
			slog.Info("receiver: results file reloaded", "path", path, "cluster", sum.Key())
			onSummary(sum)
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("receiver: watcher error", "err", err)
		}
	}
}
