// Package watch re-triggers parse+hoist for a changed file during local
// development. It owns only the filesystem-event plumbing (debouncing,
// directory registration, dependant re-queuing); the actual
// discover+parsebridge+cache+hoist pipeline for a changed path is supplied
// by the caller as a Handler, so this package stays free of a dependency
// on any of those.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow absorbs the common "editors emit two Write events per
// save" burst (one for the truncate, one for the write) esbuild's own
// watcher comments document.
const debounceWindow = 100 * time.Millisecond

// Handler is what a changed path is handed off to. OnChange fires for
// Write/Create events (debounced); OnRemove fires for Remove/Rename.
// OnDependantStale fires once per asset ID previously recorded against the
// changed path via SetDependants, since those assets' symbol tables were
// read from content that just changed underneath them.
type Handler interface {
	OnChange(path string)
	OnRemove(path string)
	OnDependantStale(assetID string)
}

// Watcher wraps an fsnotify.Watcher with debouncing and a dependant graph:
// when path changes, every asset whose dependency symbol table was
// populated from path also needs re-queuing, since §4.3/§4.4 mutate the
// *dependency's* symbol table and a dependant hoisted before its
// dependency changes holds stale entries.
type Watcher struct {
	fs      *fsnotify.Watcher
	handler Handler

	debounceMu sync.Mutex
	timers     map[string]*time.Timer

	dependantsMu sync.RWMutex
	dependants   map[string][]string // path -> assets whose symbols were read from it

	stop    chan struct{}
	stopped bool
	mu      sync.Mutex
}

func New(handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fs:         fsw,
		handler:    handler,
		timers:     make(map[string]*time.Timer),
		dependants: make(map[string][]string),
		stop:       make(chan struct{}),
	}, nil
}

// Add registers a file for watching by watching its parent directory, so
// events for every file in that directory reach the Handler. Watch mode is
// told about files one at a time as discover.Walk finds them, rather than
// watching the whole root recursively, so a later Exclude-pattern edit to
// the config doesn't require re-walking anything already watched.
func (w *Watcher) Add(path string) error {
	if err := w.fs.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch: adding %q: %w", path, err)
	}
	return nil
}

// SetDependants records that assetIDs each read path's symbol table while
// being hoisted, so a later change to path re-queues all of them too.
// Callers own whatever specifier resolution produced this list -- this
// package never resolves a specifier to a path itself.
func (w *Watcher) SetDependants(path string, assetIDs []string) {
	w.dependantsMu.Lock()
	defer w.dependantsMu.Unlock()
	w.dependants[path] = assetIDs
}

// Dependants returns the asset IDs previously recorded for path via
// SetDependants.
func (w *Watcher) Dependants(path string) []string {
	w.dependantsMu.RLock()
	defer w.dependantsMu.RUnlock()
	return w.dependants[path]
}

// Run starts the event loop. It blocks until Stop is called.
func (w *Watcher) Run() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Surfacing watcher-internal errors is the caller's job
			// (diag.Log); this package has no opinion on verbosity.
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write, event.Op&fsnotify.Create == fsnotify.Create:
		w.debounce(event.Name)
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		w.handler.OnRemove(event.Name)
	}
}

func (w *Watcher) debounce(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceWindow, func() {
		w.debounceMu.Lock()
		delete(w.timers, path)
		w.debounceMu.Unlock()

		w.handler.OnChange(path)
		for _, assetID := range w.Dependants(path) {
			w.handler.OnDependantStale(assetID)
		}
	})
}

// Stop shuts the watcher down. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true

	w.debounceMu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.debounceMu.Unlock()

	close(w.stop)
	return w.fs.Close()
}
