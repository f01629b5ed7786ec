package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/fsutil"
	"github.com/vk/cookgrid/internal/hclscene"
)

// watchDirs lists the directories to watch. A single file is watched through
// its directory because editors often replace files instead of writing them.
func (a *App) watchDirs() ([]string, error) {
	path := filepath.Clean(a.config.ScenePath)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Dir(path)}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, hclscene.Extension)
	if err != nil {
		return nil, err
	}
	dirs := fsutil.Dirs(files)
	if !slices.Contains(dirs, path) {
		dirs = append([]string{path}, dirs...)
	}
	return dirs, nil
}

// relevant reports whether a file system event touches the scene.
func (a *App) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	path := filepath.Clean(a.config.ScenePath)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return strings.HasSuffix(ev.Name, hclscene.Extension)
	}
	return filepath.Clean(ev.Name) == path
}

// watch re-loads and re-cooks the scene whenever its files change, until ctx
// is cancelled. Bursts of events are collapsed into one reload.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := a.watchDirs()
	if err != nil {
		return fmt.Errorf("failed to list watch directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	logger.Info("👀 Watching for changes.", "dirs", dirs)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped.")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if a.relevant(ev) {
				logger.Debug("Scene file changed.", "file", ev.Name, "op", ev.Op.String())
				debounce.Reset(a.config.WatchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		case <-debounce.C:
			a.reload(ctx)
		}
	}
}

// reload applies the current files to the scene and cooks it. A broken file
// leaves the previous scene in place.
func (a *App) reload(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	a.status.Reloads++
	a.mu.Unlock()

	doc, err := loadDocument(ctx, a.config.ScenePath)
	if err == nil {
		err = a.applyDocument(ctx, doc)
	}
	if err != nil {
		logger.Error("Reload failed, keeping the previous scene.", "error", err)
		a.recordCook(0, err)
		return
	}
	if err := a.cook(ctx); err != nil {
		logger.Warn("Cook after reload failed.", "error", err)
	}
}
