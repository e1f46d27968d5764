package app

import (
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/filewatch"
)

// openFiles keeps the file watcher in step with the files editors show
// and remembers which of them need an on-disk check.
type openFiles struct {
	watcher *filewatch.Watcher // nil when watching is unavailable
	log     *Logger

	watched map[string]bool
	stale   map[string]bool
	warned  map[string]bool
}

func newOpenFiles(w *filewatch.Watcher, log *Logger) *openFiles {
	return &openFiles{
		watcher: w,
		log:     log,
		watched: make(map[string]bool),
		stale:   make(map[string]bool),
		warned:  make(map[string]bool),
	}
}

// sync starts watching paths not yet watched and stops watching the ones
// no editor shows any more.
func (f *openFiles) sync(paths []string) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	for p := range f.watched {
		if want[p] {
			continue
		}
		delete(f.watched, p)
		delete(f.stale, p)
		delete(f.warned, p)
		if f.watcher != nil {
			if err := f.watcher.Remove(p); err != nil {
				f.log.Debug("unwatch failed", zap.String("path", p), zap.Error(err))
			}
		}
	}
	for p := range want {
		if f.watched[p] {
			continue
		}
		f.watched[p] = true
		if f.watcher == nil {
			continue
		}
		if err := f.watcher.Add(p); err != nil {
			// Falls back to a stat every iteration.
			f.log.Debug("watch failed", zap.String("path", p), zap.Error(err))
			f.stale[p] = true
		}
	}
}

// collect marks every path the watcher reported since the last call.
func (f *openFiles) collect() {
	if f.watcher == nil {
		return
	}
	for _, p := range f.watcher.Changed() {
		if f.watched[p] {
			f.stale[p] = true
		}
	}
}

// due reports whether path should be compared with the disk now.
func (f *openFiles) due(path string) bool {
	if f.watcher == nil || !f.watcher.Tracked(path) {
		return true
	}
	return f.stale[path]
}

// settled records that the buffer for path matches the disk.
func (f *openFiles) settled(path string) {
	delete(f.stale, path)
	delete(f.warned, path)
}

// warn reports whether the unsaved-edits warning for path has not been
// shown yet, and marks it shown.
func (f *openFiles) warn(path string) bool {
	if f.warned[path] {
		return false
	}
	f.warned[path] = true
	return true
}

func (f *openFiles) Close() error {
	if f == nil || f.watcher == nil {
		return nil
	}
	return f.watcher.Close()
}
