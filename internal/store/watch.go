package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starkell/halsa/internal/checksum"
)

// ChangeCallback is called after the journal document changes on disk.
type ChangeCallback func()

// Watch observes the journal document at path until ctx is cancelled and
// calls cb when its content actually changes. The parent directory is
// watched rather than the file itself because editors and the atomic write
// path replace the file by rename. Events are debounced and checksum-gated
// so the store's own writes and editor temp churn do not produce spurious
// callbacks.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", path))

	last := ""
	if data, err := os.ReadFile(path); err == nil {
		last = checksum.Sum(data)
	}

	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(200 * time.Millisecond)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("watcher: read failed", slog.String("error", err.Error()))
				continue
			}
			cs := checksum.Sum(data)
			if cs == last {
				continue
			}
			last = cs
			logger.Debug("watcher: record changed", slog.String("checksum", cs))
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleSettle()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
