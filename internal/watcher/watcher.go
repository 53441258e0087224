// Package watcher notices when the database file is rewritten by another
// process so cached listings can be dropped.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orcidhub/orcidhub/internal/log"
)

// Watcher monitors a SQLite database file and its WAL for writes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dbPath    string
	names     map[string]bool
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	DBPath   string
	Debounce time.Duration
}

// DefaultConfig debounces bursts of writes to one notification per second.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:   dbPath,
		Debounce: time.Second,
	}
}

// New creates a watcher for cfg.DBPath. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	base := filepath.Base(cfg.DBPath)
	return &Watcher{
		fsWatcher: fsw,
		dbPath:    cfg.DBPath,
		names:     map[string]bool{base: true, base + "-wal": true, base + "-journal": true},
		debounce:  cfg.Debounce,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the database directory. The returned channel receives
// one signal per debounced burst of writes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	// The WAL file may not exist yet, so watch the directory
	dir := filepath.Dir(w.dbPath)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go w.loop()
	log.Debug(log.CatWatcher, "Watching database", "path", w.dbPath)
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// Run starts the watcher, calls onChange for every notification and stops
// when ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			log.Debug(log.CatWatcher, "Database changed on disk", "path", w.dbPath)
			onChange()
		}
	}
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.onChange <- struct{}{}:
			default:
				// A notification is already pending
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "Watch error", err, "path", w.dbPath)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent reports writes and creations of the database, its WAL
// or its rollback journal.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return w.names[filepath.Base(event.Name)]
}
