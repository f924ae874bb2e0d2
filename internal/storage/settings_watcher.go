package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"daybook/internal/core/model"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 200 * time.Millisecond

// SettingsWatcher reloads the settings file when it changes on disk.
type SettingsWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *logrus.Entry
	onReload func(model.Settings)
}

// NewSettingsWatcher watches the directory holding path. Editors often
// replace the file instead of writing it, so the parent is watched and
// events are filtered by name.
func NewSettingsWatcher(path string, debounce time.Duration, logger *logrus.Entry, onReload func(model.Settings)) (*SettingsWatcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create settings watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &SettingsWatcher{
		watcher:  watcher,
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
		onReload: onReload,
	}, nil
}

// Start processes change events until ctx is done. A burst of writes
// produces a single reload once the file has been quiet for the debounce.
func (w *SettingsWatcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	var pending <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("settings watcher error")
		}
	}
}

func (w *SettingsWatcher) reload() {
	settings, err := LoadSettings(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("settings reload failed; keeping current values")
		return
	}
	w.logger.Infof("settings reloaded from %s", filepath.Base(w.path))
	if w.onReload != nil {
		w.onReload(settings)
	}
}

// Close stops the watcher and releases resources.
func (w *SettingsWatcher) Close() error {
	return w.watcher.Close()
}
