// Package watcher re-initializes the metrics database if its file is
// deleted out from under a running service.
package watcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/db"
)

// WatchDB watches the database file's directory and recreates the schema
// when the file disappears. Operators sometimes clear the data directory
// while the service runs; losing history is fine, serving errors forever
// afterwards is not.
func WatchDB(ctx context.Context, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("watcher")

	dbPath, err := db.GetPath()
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(dbPath)); err != nil {
		return err
	}
	log.Debug("watching database file", zap.String("path", dbPath))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Name != dbPath {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Warn("database file removed, re-initializing", zap.String("path", dbPath))
			if err := db.Init(); err != nil {
				log.Error("failed to re-initialize database", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
