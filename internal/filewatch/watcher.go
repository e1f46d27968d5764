// Package filewatch reports external modifications of open files.
//
// The reactor never blocks on it: fsnotify delivers events into a
// buffered channel from its own goroutine and Changed drains whatever has
// arrived since the last call. Parent directories are watched rather than
// the files themselves so that editors which save by rename are seen.
package filewatch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherClosed is returned by operations on a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

const eventBuffer = 64

// Watcher tracks a set of files. It is not safe for concurrent use.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *zap.Logger

	files map[string]int // path -> reference count
	dirs  map[string]int // watched directory -> tracked files in it

	closed bool
}

// New starts a watcher.
func New(log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewBufferedWatcher(eventBuffer)
	if err != nil {
		return nil, fmt.Errorf("filewatch: %w", err)
	}
	return &Watcher{
		fsw:   fsw,
		log:   log,
		files: make(map[string]int),
		dirs:  make(map[string]int),
	}, nil
}

// Add tracks path. Adding the same path again increments its reference
// count.
func (w *Watcher) Add(path string) error {
	if w.closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if w.files[abs] > 0 {
		w.files[abs]++
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = 1
	return nil
}

// Remove drops one reference to path. The directory watch goes with the
// last tracked file in it.
func (w *Watcher) Remove(path string) error {
	if w.closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	switch w.files[abs] {
	case 0:
		return nil
	case 1:
		delete(w.files, abs)
	default:
		w.files[abs]--
		return nil
	}
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("unwatch %s: %w", dir, err)
	}
	return nil
}

// Tracked reports whether path is being watched.
func (w *Watcher) Tracked(path string) bool {
	abs, err := filepath.Abs(path)
	return err == nil && w.files[abs] > 0
}

// Changed drains pending notifications and returns the tracked files
// that were written, created, renamed or removed, sorted and without
// duplicates. It never blocks.
func (w *Watcher) Changed() []string {
	if w.closed {
		return nil
	}
	seen := make(map[string]struct{})
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return sortedKeys(seen)
			}
			if ev.Op == fsnotify.Chmod || w.files[ev.Name] == 0 {
				continue
			}
			seen[ev.Name] = struct{}{}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return sortedKeys(seen)
			}
			w.log.Warn("file watch error", zap.Error(err))
		default:
			return sortedKeys(seen)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close stops the watcher and its goroutine.
func (w *Watcher) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}
