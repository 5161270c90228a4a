package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"musicetl/internal/datasource/httpds"
)

// watch reruns run after any of paths is written or recreated. Bursts of
// events collapse into one run once debounce has passed without another
// event. URL sources are not watched.
func watch(ctx context.Context, paths []string, debounce time.Duration, log *zap.Logger, run func(context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	var files []string
	dirs := map[string]bool{}
	for _, p := range paths {
		if p == "" || httpds.IsURL(p) {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		files = append(files, abs)
		// Editors replace files on save; watch the directory, not the inode.
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("watch: no local source files to watch")
	}
	log.Info("watch: started", zap.Strings("files", files), zap.Duration("debounce", debounce))
	watchLoop(ctx, w.Events, w.Errors, files, debounce, log, run)
	log.Info("watch: stopped")
	return nil
}

// watchLoop consumes events until ctx is done. Runs never overlap; events
// arriving during a run schedule one more run after it.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, files []string, debounce time.Duration, log *zap.Logger, run func(context.Context)) {
	wanted := make(map[string]bool, len(files))
	for _, f := range files {
		wanted[filepath.Clean(f)] = true
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
		runMu sync.Mutex
		wg    sync.WaitGroup
	)
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		wg.Add(1)
		timer = time.AfterFunc(debounce, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			runMu.Lock()
			defer runMu.Unlock()
			run(ctx)
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !wanted[filepath.Clean(ev.Name)] {
				continue
			}
			log.Debug("watch: source changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			trigger()
		case err, ok := <-errs:
			if !ok {
				return
			}
			log.Warn("watch: watcher error", zap.Error(err))
		}
	}
}
