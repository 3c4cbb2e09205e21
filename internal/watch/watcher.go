// Package watch rebuilds the documentation whenever the source tree changes,
// with debouncing so editor save bursts trigger a single build.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/umlgen/internal/logfields"
)

// RebuildFunc performs one full rebuild.
type RebuildFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait after the last change before rebuilding.
	Debounce time.Duration
	// RebuildInterval, when positive, schedules periodic full rebuilds for
	// generator inputs that change outside the watched tree.
	RebuildInterval time.Duration
	// SkipDirs are directory names excluded from watching. The diagram
	// directory must be listed here: generated artifacts land inside the
	// source tree and would otherwise retrigger the watcher.
	SkipDirs []string
}

// Watcher monitors a documentation source tree and triggers rebuilds.
type Watcher struct {
	srcDir    string
	rebuild   RebuildFunc
	watcher   *fsnotify.Watcher
	scheduler gocron.Scheduler
	opts      Options

	mu          sync.Mutex
	stopChan    chan struct{}
	rebuildChan chan struct{}
}

// NewWatcher creates a watcher over srcDir calling rebuild on changes.
func NewWatcher(srcDir string, opts Options, rebuild RebuildFunc) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absDir, err := filepath.Abs(srcDir)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}

	return &Watcher{
		srcDir:      absDir,
		rebuild:     rebuild,
		watcher:     fsWatcher,
		opts:        opts,
		stopChan:    make(chan struct{}),
		rebuildChan: make(chan struct{}, 1),
	}, nil
}

// Start begins monitoring the source tree.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.addRecursive(w.srcDir); err != nil {
		return err
	}

	slog.Info("Starting source watcher",
		slog.String("source", w.srcDir),
		slog.Duration("debounce", w.opts.Debounce))

	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)

	if w.opts.RebuildInterval > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create rebuild scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(w.opts.RebuildInterval),
			gocron.NewTask(func() { w.triggerRebuild() }),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule periodic rebuild: %w", err)
		}
		scheduler.Start()
		w.scheduler = scheduler
		slog.Info("Periodic rebuild scheduled", slog.Duration("interval", w.opts.RebuildInterval))
	}

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.Info("Stopping source watcher")
	close(w.stopChan)

	if w.scheduler != nil {
		if err := w.scheduler.Shutdown(); err != nil {
			slog.Error("Error shutting down rebuild scheduler", logfields.Error(err))
		}
	}
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}
	return nil
}

// addRecursive watches dir and every non-skipped subdirectory beneath it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(pth string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if pth != dir && w.skip(entry.Name()) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(pth); addErr != nil {
			return fmt.Errorf("failed to watch %s: %w", pth, addErr)
		}
		return nil
	})
}

func (w *Watcher) skip(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, skip := range w.opts.SkipDirs {
		if name == skip {
			return true
		}
	}
	return false
}

// watchLoop monitors file system events.
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.skip(filepath.Base(event.Name)) {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				// New directories need to be added to the watch set.
				if err := w.addRecursive(event.Name); err != nil {
					slog.Debug("Skipping new watch path", slog.String("path", event.Name), logfields.Error(err))
				}
				slog.Debug("Source create detected", slog.String("path", event.Name))
				w.triggerRebuild()
			} else if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				slog.Debug("Source change detected", slog.String("path", event.Name))
				w.triggerRebuild()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Source watcher error", logfields.Error(err))
		}
	}
}

// rebuildLoop handles debounced rebuilds.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var rebuildTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			return
		case <-w.stopChan:
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			return
		case <-w.rebuildChan:
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			rebuildTimer = time.AfterFunc(w.opts.Debounce, func() {
				if err := w.rebuild(ctx); err != nil {
					slog.Error("Rebuild failed", logfields.Error(err))
				}
			})
		}
	}
}

// triggerRebuild requests a debounced rebuild.
func (w *Watcher) triggerRebuild() {
	select {
	case w.rebuildChan <- struct{}{}:
		// Rebuild triggered
	default:
		// Rebuild already pending
	}
}
