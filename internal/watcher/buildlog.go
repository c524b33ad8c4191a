// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/recorder"
)

// DefaultPattern matches build logs when no pattern is configured.
const DefaultPattern = "*.log"

// Recorder records a parsed build.
type Recorder interface {
	Record(ctx context.Context, result recorder.BuildResult) (*recorder.BuildRecord, error)
}

// BuildLogConfig configures a BuildLogWatcher.
type BuildLogConfig struct {
	Dir      string        // Directory to watch
	Pattern  string        // Glob matched against file base names
	Debounce time.Duration // Quiet period before a file is read
}

// fileStamp identifies one version of a file.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// BuildLogWatcher records text build logs written into a directory. Each
// version of a file is recorded at most once.
type BuildLogWatcher struct {
	mu        sync.Mutex
	config    BuildLogConfig
	recorder  Recorder
	bus       events.EventBus
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	recorded  map[string]fileStamp
	closed    bool
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewBuildLogWatcher starts watching cfg.Dir. bus may be nil.
func NewBuildLogWatcher(cfg BuildLogConfig, rec Recorder, bus events.EventBus) (*BuildLogWatcher, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid watch pattern %q: %w", cfg.Pattern, err)
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s is not a directory", cfg.Dir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(cfg.Dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}

	w := &BuildLogWatcher{
		config:    cfg,
		recorder:  rec,
		bus:       bus,
		watcher:   fsWatcher,
		debouncer: NewDebouncer(cfg.Debounce),
		recorded:  make(map[string]fileStamp),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	log.Printf("Build log watcher: watching %s for %s", cfg.Dir, cfg.Pattern)
	return w, nil
}

// Close stops the watcher and releases resources.
func (w *BuildLogWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *BuildLogWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Build log watcher: %v", err)
		}
	}
}

func (w *BuildLogWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if ok, _ := filepath.Match(w.config.Pattern, filepath.Base(event.Name)); !ok {
		return
	}

	path := event.Name
	w.debouncer.Debounce(path, func() {
		if err := w.ingest(path); err != nil {
			log.Printf("Build log watcher: %s: %v", path, err)
		}
	})
}

// ingest parses and records path unless this version was already
// recorded.
func (w *BuildLogWatcher) ingest(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() || info.Size() == 0 {
		return nil
	}
	stamp := fileStamp{modTime: info.ModTime(), size: info.Size()}

	w.mu.Lock()
	if w.closed || w.recorded[path].same(stamp) {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	result, err := recorder.ParseOutput(f)
	f.Close()
	if err != nil {
		return err
	}

	rec, err := w.recorder.Record(context.Background(), *result)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.recorded[path] = stamp
	w.mu.Unlock()

	if w.bus != nil {
		w.bus.Publish(context.Background(), events.Event{
			Type: events.EventBuildLogParsed,
			Payload: map[string]interface{}{
				"path":           path,
				"build_event_id": rec.EventID,
				"status":         string(result.Status),
				"mod_time":       stamp.modTime.Format(time.RFC3339),
			},
		})
	}
	return nil
}
