// Package watch reloads the served model when its graph file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"caption-service/internal/core/domain"
)

const DefaultSettle = 250 * time.Millisecond

// Loader is satisfied by services.ModelHandle.
type Loader interface {
	Load() error
	Dir() string
}

// Reloader calls Load once writes to the graph file have settled.
type Reloader struct {
	loader Loader
	settle time.Duration
}

func NewReloader(loader Loader, settle time.Duration) *Reloader {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Reloader{loader: loader, settle: settle}
}

// Run watches the model dir until ctx is done. The directory is watched
// rather than the file so replacements by rename are seen.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := r.loader.Dir()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Join(dir, domain.GraphFileName)

	timer := time.NewTimer(r.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(r.settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("model watcher error")
		case <-timer.C:
			if err := r.loader.Load(); err != nil {
				log.WithError(err).WithField("path", target).Warn("model reload failed, keeping previous graph")
			}
		}
	}
}
