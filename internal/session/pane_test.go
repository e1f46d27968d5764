package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/explorer"
)

func TestEditorScrollTo(t *testing.T) {
	p := &EditorPane{Buffer: buffer.New("0\n1\n2\n3\n4\n5\n6\n7\n8\n9")}
	p.ScrollTo(4)
	assert.Equal(t, 0, p.Top)

	p.Buffer.SetCursor(6, 0)
	p.ScrollTo(4)
	assert.Equal(t, 3, p.Top)

	p.Buffer.SetCursor(1, 0)
	p.ScrollTo(4)
	assert.Equal(t, 1, p.Top)

	p.Top = 50
	p.Buffer.SetCursor(9, 0)
	p.ScrollTo(0)
	assert.Equal(t, 9, p.Top)
}

func TestEditorScrollColumn(t *testing.T) {
	p := &EditorPane{Buffer: buffer.New("")}
	p.ScrollColumn(5, 10)
	assert.Equal(t, 0, p.Left)
	p.ScrollColumn(12, 10)
	assert.Equal(t, 3, p.Left)
	p.ScrollColumn(2, 10)
	assert.Equal(t, 2, p.Left)
}

func TestDismissOverlays(t *testing.T) {
	p := &EditorPane{Buffer: buffer.New("")}
	assert.False(t, p.DismissOverlays())
	p.Hover = "func main()"
	p.Popup = &Popup{}
	assert.True(t, p.DismissOverlays())
	assert.Nil(t, p.Popup)
	assert.Empty(t, p.Hover)
}

func TestExplorerScrollTo(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	ex, err := explorer.New(dir)
	require.NoError(t, err)
	p := &ExplorerPane{Explorer: ex}

	ex.Move(4)
	p.ScrollTo(2)
	assert.Equal(t, ex.Selected()-1, p.Top)
	ex.Move(-10)
	p.ScrollTo(2)
	assert.Equal(t, 0, p.Top)
}

func TestPopupMoveWraps(t *testing.T) {
	p := &Popup{Items: []PopupItem{{Label: "a"}, {Label: "b"}, {Label: "c"}}}
	p.Move(-1)
	assert.Equal(t, 2, p.Selected)
	p.Move(2)
	assert.Equal(t, 1, p.Selected)
	item, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "b", item.Label)

	empty := &Popup{}
	empty.Move(1)
	_, ok = empty.Current()
	assert.False(t, ok)
}

func TestPromptEditing(t *testing.T) {
	p := &Prompt{Label: "rename"}
	p.Backspace()
	for _, r := range "héllo" {
		p.Insert(r)
	}
	p.Backspace()
	p.Backspace()
	p.Backspace()
	p.Backspace()
	assert.Equal(t, "h", p.Input)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "editor", KindEditor.String())
	assert.Equal(t, "terminal", KindTerminal.String())
	assert.Equal(t, "explorer", KindExplorer.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
