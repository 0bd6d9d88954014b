// control/hotreload.go
// Re-reads the watch configuration when its file changes and publishes it
// to a ConfigStore.

package control

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Reloader keeps a ConfigStore in sync with a configuration file.
type Reloader struct {
	path  string
	store *ConfigStore
	log   *logrus.Entry
}

// NewReloader binds path to store.
func NewReloader(path string, store *ConfigStore, logger *logrus.Entry) *Reloader {
	return &Reloader{path: filepath.Clean(path), store: store, log: logger}
}

// Reload loads the file once and publishes it. An invalid file leaves the
// current snapshot in place.
func (r *Reloader) Reload() error {
	cfg, err := LoadWatchConfig(r.path)
	if err != nil {
		return err
	}
	r.store.SetConfig(cfg)
	return nil
}

// Run watches the file's directory, so that editors replacing the file are
// seen too, and reloads on every write or create of the file. It returns
// when ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != r.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.Reload(); err != nil {
				r.log.WithError(err).Warn("config reload rejected")
				continue
			}
			r.log.WithField("path", r.path).Info("config reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.WithError(err).Warn("config watcher error")
		}
	}
}
