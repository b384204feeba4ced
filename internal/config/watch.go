package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/handsomefox/cinebrowse/internal/debounce"
	"github.com/handsomefox/cinebrowse/internal/logger"
)

const reloadDelay = 200 * time.Millisecond

// Watch reloads the file at path whenever it changes and passes the new
// config to onReload. Invalid files are logged and skipped. Watch blocks
// until ctx is done.
//
// The parent directory is watched rather than the file so that editors
// which save by rename are still seen.
func Watch(ctx context.Context, path string, log *slog.Logger, onReload func(*Config)) error {
	if log == nil {
		log = slog.Default()
	}
	path, err := expandHome(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			log.Warn("close config watcher", logger.Error(cerr))
		}
	}()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	reload := debounce.New(reloadDelay, nil)
	defer reload.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			reload.Call(func() {
				cfg, err := Load(abs)
				if err != nil {
					log.Warn("config reload rejected", slog.String("path", abs), logger.Error(err))
					return
				}
				log.Info("config reloaded", slog.String("path", abs))
				onReload(cfg)
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher error", logger.Error(err))
		}
	}
}
