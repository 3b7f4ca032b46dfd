package checker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch checks paths once, then again every time a relevant file below them
// changes and the changes settle for Config.Debounce. Every run is handed to
// fn. Watch blocks until ctx is done and then returns nil.
func (c *Checker) Watch(ctx context.Context, paths []string, fn func(*Report, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := c.watchTree(watcher, path); err != nil {
			return err
		}
	}

	c.log.WithField("paths", len(paths)).Info("watching for changes")
	fn(c.Check(ctx, paths))

	timer := time.NewTimer(c.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !c.exclude[info.Name()] {
					if err := c.watchTree(watcher, event.Name); err != nil {
						c.log.WithError(err).Warn("failed to watch new directory")
					}
				}
			}
			if !c.relevant(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			c.log.WithFile(event.Name).WithField("op", event.Op.String()).Debug("file changed")
			timer.Reset(c.cfg.Debounce)

		case <-timer.C:
			if ctx.Err() != nil {
				return nil
			}
			fn(c.Check(ctx, paths))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.WithError(err).Error("watcher error")
		}
	}
}

// watchTree adds path and, for a directory, every directory below it that is
// not excluded.
func (c *Checker) watchTree(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && c.exclude[d.Name()] {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}
