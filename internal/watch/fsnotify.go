package watch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FSWatcher is the fsnotify-backed Watcher implementation. It watches the
// root directory and its immediate subdirectories, matching the two
// descriptor discovery conventions.
type FSWatcher struct {
	inner  *fsnotify.Watcher
	events chan Event
	done   chan struct{}
}

// NewFSWatcher starts watching the given root directory.
func NewFSWatcher(root string) (*FSWatcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	if err := inner.Add(root); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				// Best effort; a vanished subdirectory is not fatal.
				_ = inner.Add(filepath.Join(root, entry.Name()))
			}
		}
	}

	w := &FSWatcher{
		inner:  inner,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go w.pump()
	return w, nil
}

// pump translates fsnotify events into the Watcher contract.
func (w *FSWatcher) pump() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.inner.Events:
			if !ok {
				return
			}
			var op Op
			switch {
			case ev.Has(fsnotify.Create):
				op = Add
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.inner.Add(ev.Name)
				}
			case ev.Has(fsnotify.Write):
				op = Change
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				op = Remove
			default:
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name, Op: op}:
			case <-w.done:
				return
			}
		case _, ok := <-w.inner.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Events implements Watcher.
func (w *FSWatcher) Events() <-chan Event { return w.events }

// Close implements Watcher.
func (w *FSWatcher) Close() error {
	close(w.done)
	return w.inner.Close()
}
