// Package watcher watches a templates directory and signals, debounced,
// when template files change.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/template"
)

// Watcher sends a signal on Changes after template files in a directory
// stop changing for the debounce interval.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	debounce  time.Duration
	relevant  func(name string) bool
	changes   chan Change
	done      chan struct{}
}

// Change describes the files touched during one debounce window.
type Change struct {
	Files []string
}

// Config holds watcher configuration options.
type Config struct {
	Dir      string
	Debounce time.Duration
	// Filter reports whether a file name is worth a reload. Nil accepts
	// template files (*.json, *.yaml, *.yml).
	Filter func(name string) bool
}

// DefaultConfig returns the default watcher configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:      dir,
		Debounce: 100 * time.Millisecond,
	}
}

// New creates a watcher. Call Start to begin receiving changes.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	filter := cfg.Filter
	if filter == nil {
		filter = template.IsTemplateFile
	}

	return &Watcher{
		fsWatcher: fsw,
		dir:       cfg.Dir,
		debounce:  cfg.Debounce,
		relevant:  filter,
		changes:   make(chan Change, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the directory and returns the change channel.
func (w *Watcher) Start() (<-chan Change, error) {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	log.Debug(log.CatWatcher, "Watching templates", "dir", w.dir, "debounce", w.debounce)

	go w.loop()

	return w.changes, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending []string
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			pending = appendUnique(pending, filepath.Base(event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			change := Change{Files: pending}
			pending = nil

			// Drop the signal if the consumer has not drained the last one.
			select {
			case w.changes <- change:
				log.Debug(log.CatWatcher, "Templates changed", "files", change.Files)
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "Watch error", err, "dir", w.dir)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.relevant(filepath.Base(event.Name))
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}
