// Package explorer holds the state of a directory browser window: the
// current directory, its sorted listing and the selected entry.
package explorer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// Explorer lists one directory at a time. Directories sort before files;
// ".." is listed first unless the directory is the filesystem root.
type Explorer struct {
	dir        string
	entries    []Entry
	selected   int
	showHidden bool
}

// Option configures an explorer.
type Option func(*Explorer)

// WithHidden lists dot files too.
func WithHidden() Option {
	return func(e *Explorer) { e.showHidden = true }
}

// New creates an explorer showing dir.
func New(dir string, opts ...Option) (*Explorer, error) {
	e := &Explorer{}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.ChangeDir(dir); err != nil {
		return nil, err
	}
	return e, nil
}

// Dir returns the directory being shown.
func (e *Explorer) Dir() string { return e.dir }

// Entries returns the current listing.
func (e *Explorer) Entries() []Entry { return e.entries }

// Selected returns the index of the selected entry.
func (e *Explorer) Selected() int { return e.selected }

// SelectedEntry returns the selected entry, if any.
func (e *Explorer) SelectedEntry() (Entry, bool) {
	if e.selected < 0 || e.selected >= len(e.entries) {
		return Entry{}, false
	}
	return e.entries[e.selected], true
}

// ChangeDir lists dir and selects its first entry. On error the explorer
// keeps its previous state.
func (e *Explorer) ChangeDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("explorer: %w", err)
	}
	entries, err := e.list(abs)
	if err != nil {
		return err
	}
	e.dir = abs
	e.entries = entries
	e.selected = 0
	return nil
}

// Refresh re-reads the current directory, keeping the selection on the
// same name when it still exists.
func (e *Explorer) Refresh() error {
	var name string
	if entry, ok := e.SelectedEntry(); ok {
		name = entry.Name
	}
	entries, err := e.list(e.dir)
	if err != nil {
		return err
	}
	e.entries = entries
	e.selected = min(e.selected, max(len(entries)-1, 0))
	for i, entry := range entries {
		if entry.Name == name {
			e.selected = i
			break
		}
	}
	return nil
}

func (e *Explorer) list(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("explorer: %w", err)
	}
	entries := make([]Entry, 0, len(dirEntries)+1)
	for _, de := range dirEntries {
		if !e.showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			// Follow links so linked directories can be entered.
			if info, err := os.Stat(path); err == nil {
				isDir = info.IsDir()
			}
		}
		entries = append(entries, Entry{Name: de.Name(), Path: path, IsDir: isDir})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	if parent := filepath.Dir(dir); parent != dir {
		entries = append([]Entry{{Name: "..", Path: parent, IsDir: true}}, entries...)
	}
	return entries, nil
}

// Move shifts the selection by n, clamped to the listing.
func (e *Explorer) Move(n int) {
	if len(e.entries) == 0 {
		e.selected = 0
		return
	}
	e.selected = min(max(e.selected+n, 0), len(e.entries)-1)
}

// Activate acts on the selected entry. Directories are entered and ""
// is returned; for a file its path is returned so the caller can open it.
func (e *Explorer) Activate() (string, error) {
	entry, ok := e.SelectedEntry()
	if !ok {
		return "", nil
	}
	if entry.IsDir {
		return "", e.ChangeDir(entry.Path)
	}
	return entry.Path, nil
}

// Parent moves to the parent directory and selects the directory just
// left.
func (e *Explorer) Parent() error {
	parent := filepath.Dir(e.dir)
	if parent == e.dir {
		return nil
	}
	child := filepath.Base(e.dir)
	if err := e.ChangeDir(parent); err != nil {
		return err
	}
	for i, entry := range e.entries {
		if entry.Name == child {
			e.selected = i
			break
		}
	}
	return nil
}
