package filewatch

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// waitChanged polls Changed until path shows up.
func waitChanged(t *testing.T, w *Watcher, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return slices.Contains(w.Changed(), path)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestChangedReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	other := filepath.Join(dir, "other.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	w := newWatcher(t)
	require.NoError(t, w.Add(path))
	assert.True(t, w.Tracked(path))
	assert.Empty(t, w.Changed())

	require.NoError(t, os.WriteFile(other, []byte("untracked"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))
	waitChanged(t, w, path)

	for _, p := range w.Changed() {
		assert.Equal(t, path, p)
	}
}

func TestChangedReportsRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newWatcher(t)
	require.NoError(t, w.Add(path))

	tmp := filepath.Join(dir, ".notes.txt.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	waitChanged(t, w, path)
}

func TestReferenceCounting(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	w := newWatcher(t)
	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(b))
	assert.Equal(t, 2, w.dirs[dir])

	require.NoError(t, w.Remove(a))
	assert.True(t, w.Tracked(a))
	require.NoError(t, w.Remove(a))
	assert.False(t, w.Tracked(a))
	assert.Equal(t, 1, w.dirs[dir])

	require.NoError(t, w.Remove(b))
	assert.Empty(t, w.dirs)
	require.NoError(t, w.Remove(b))
}

func TestAddMissingDirectory(t *testing.T) {
	w := newWatcher(t)
	err := w.Add(filepath.Join(t.TempDir(), "gone", "file.txt"))
	assert.Error(t, err)
	assert.Empty(t, w.dirs)
}

func TestClosed(t *testing.T) {
	w := newWatcher(t)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Add("x"), ErrWatcherClosed)
	assert.ErrorIs(t, w.Remove("x"), ErrWatcherClosed)
	assert.Nil(t, w.Changed())
}
