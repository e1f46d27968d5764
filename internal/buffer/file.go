package buffer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fileState is what the buffer last saw on disk.
type fileState struct {
	modTime time.Time
	size    int64
	exists  bool
}

func statFile(path string) (fileState, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileState{}, nil
	}
	if err != nil {
		return fileState{}, err
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), exists: true}, nil
}

// Open loads path into a new buffer. A missing file yields an empty buffer
// that will create the file on save.
func Open(path string, opts ...Option) (*Buffer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory", path)
	}
	b := New(string(data), append([]Option{WithPath(abs)}, opts...)...)
	if b.fileInfo, err = statFile(abs); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return b, nil
}

// Name returns the file's base name, or "[scratch]" for buffers without a
// path.
func (b *Buffer) Name() string {
	if b.path == "" {
		return "[scratch]"
	}
	return filepath.Base(b.path)
}

// ModTime returns the modification time seen at the last load or save.
func (b *Buffer) ModTime() time.Time { return b.fileInfo.modTime }

// Save writes the buffer to its path using the line ending it was loaded
// with.
func (b *Buffer) Save() error {
	if b.path == "" {
		return ErrNoPath
	}
	if b.readOnly {
		return ErrReadOnly
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(b.path); err == nil {
		perm = info.Mode().Perm()
	}
	text := b.Text()
	if b.lineEnding == LineEndingCRLF {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	if err := os.WriteFile(b.path, []byte(text), perm); err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	state, err := statFile(b.path)
	if err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	b.fileInfo = state
	b.modified = false
	return nil
}

// Reload replaces the contents with the file on disk and clears the
// modified flag. The cursor is kept where possible.
func (b *Buffer) Reload() error {
	if b.path == "" {
		return ErrNoPath
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", b.path, err)
	}
	state, err := statFile(b.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", b.path, err)
	}
	b.setText(string(data))
	b.fileInfo = state
	b.modified = false
	b.revision++
	return nil
}

// ChangedOnDisk reports whether the file's modification time or size
// differs from what was last loaded or saved. A file deleted since then
// counts as changed; a file that never existed does not.
func (b *Buffer) ChangedOnDisk() (bool, error) {
	if b.path == "" {
		return false, nil
	}
	state, err := statFile(b.path)
	if err != nil {
		return false, err
	}
	if state.exists != b.fileInfo.exists {
		return true, nil
	}
	return state.exists && (!state.modTime.Equal(b.fileInfo.modTime) || state.size != b.fileInfo.size), nil
}
