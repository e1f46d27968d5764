package explorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "Docs"), 0o755))
	for _, name := range []string{"b.go", "A.txt", ".hidden", "src/main.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}
	return root
}

func names(e *Explorer) []string {
	var out []string
	for _, entry := range e.Entries() {
		out = append(out, entry.Name)
	}
	return out
}

func TestListing(t *testing.T) {
	root := makeTree(t)
	e, err := New(root)
	require.NoError(t, err)
	assert.Equal(t, root, e.Dir())
	assert.Equal(t, []string{"..", "Docs", "src", "A.txt", "b.go"}, names(e))

	e, err = New(root, WithHidden())
	require.NoError(t, err)
	assert.Contains(t, names(e), ".hidden")
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNavigate(t *testing.T) {
	root := makeTree(t)
	e, err := New(root)
	require.NoError(t, err)

	e.Move(2)
	entry, ok := e.SelectedEntry()
	require.True(t, ok)
	assert.Equal(t, "src", entry.Name)

	path, err := e.Activate()
	require.NoError(t, err)
	assert.Equal(t, "", path)
	assert.Equal(t, filepath.Join(root, "src"), e.Dir())
	assert.Equal(t, []string{"..", "main.go"}, names(e))

	e.Move(10)
	assert.Equal(t, 1, e.Selected())
	path, err = e.Activate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "main.go"), path)

	require.NoError(t, e.Parent())
	assert.Equal(t, root, e.Dir())
	entry, _ = e.SelectedEntry()
	assert.Equal(t, "src", entry.Name)

	e.Move(-10)
	assert.Equal(t, 0, e.Selected())
}

func TestRefreshKeepsSelection(t *testing.T) {
	root := makeTree(t)
	e, err := New(root)
	require.NoError(t, err)
	e.Move(4) // b.go
	require.NoError(t, os.WriteFile(filepath.Join(root, "a0.go"), nil, 0o644))

	require.NoError(t, e.Refresh())
	entry, _ := e.SelectedEntry()
	assert.Equal(t, "b.go", entry.Name)
	assert.Equal(t, 5, e.Selected())
}
