package backend

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/weft/internal/renderer/core"
)

func TestNullBackendCells(t *testing.T) {
	b := NewNullBackend(6, 2)
	require.NoError(t, b.Init())

	b.SetCell(0, 0, core.NewCell('a', core.DefaultStyle()))
	b.SetCell(1, 0, core.NewCell('世', core.DefaultStyle()))
	b.SetCell(2, 0, core.Cell{}) // continuation, ignored
	b.SetCell(3, 0, core.NewCell('b', core.DefaultStyle()))
	b.SetCell(-1, 0, core.NewCell('x', core.DefaultStyle()))
	b.SetCell(6, 1, core.NewCell('x', core.DefaultStyle()))

	assert.Equal(t, "a世b  ", b.Row(0))
	assert.Equal(t, "      ", b.Row(1))
	assert.Equal(t, 'b', b.Cell(3, 0).Rune)
	assert.Equal(t, ' ', b.Cell(9, 9).Rune)

	b.Clear()
	assert.Equal(t, "      ", b.Row(0))
}

func TestNullBackendCursorAndTitle(t *testing.T) {
	b := NewNullBackend(4, 4)
	b.ShowCursor(2, 3)
	x, y, visible := b.Cursor()
	assert.Equal(t, []int{2, 3}, []int{x, y})
	assert.True(t, visible)

	b.HideCursor()
	_, _, visible = b.Cursor()
	assert.False(t, visible)

	b.SetTitle("weft")
	assert.Equal(t, "weft", b.Title())

	b.Show()
	b.Sync()
	assert.Equal(t, 2, b.Shows())
}

func TestNullBackendEvents(t *testing.T) {
	b := NewNullBackend(10, 5)
	b.PostEvent(RuneEvent('q', ModAlt))
	b.Resize(20, 8)

	ev, ok := b.PollEvent()
	require.True(t, ok)
	assert.Equal(t, RuneEvent('q', ModAlt), ev)

	ev, ok = b.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventResize, ev.Type)
	w, h := b.Size()
	assert.Equal(t, []int{20, 8}, []int{w, h})
	assert.Equal(t, []int{20, 8}, []int{ev.Width, ev.Height})
}

func TestNullBackendPollEndsOnShutdown(t *testing.T) {
	b := NewNullBackend(1, 1)
	done := make(chan bool)
	go func() {
		_, ok := b.PollEvent()
		done <- ok
	}()
	b.Shutdown()
	b.Shutdown()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("PollEvent did not return after Shutdown")
	}
	b.PostEvent(RuneEvent('x', ModNone))
}

func TestModMaskHas(t *testing.T) {
	m := ModCtrl | ModAlt
	assert.True(t, m.Has(ModCtrl))
	assert.True(t, m.Has(ModAlt))
	assert.False(t, m.Has(ModShift))
	assert.False(t, ModNone.Has(ModMeta))
}

func TestConvertKey(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		r    rune
		mod  ModMask
		want Event
	}{
		{"rune", tcell.KeyRune, 'x', ModNone, RuneEvent('x', ModNone)},
		{"alt rune", tcell.KeyRune, ']', ModAlt, RuneEvent(']', ModAlt)},
		{"ctrl s", tcell.KeyCtrlS, 's', ModCtrl, RuneEvent('s', ModCtrl)},
		{"ctrl s raw", tcell.KeyDC3, 's', ModCtrl, RuneEvent('s', ModCtrl)},
		{"ctrl space", tcell.KeyCtrlSpace, 0, ModCtrl, RuneEvent(' ', ModCtrl)},
		{"nul", tcell.KeyNUL, 0, ModNone, RuneEvent(' ', ModCtrl)},
		{"enter", tcell.KeyEnter, 0, ModNone, KeyEvent(KeyEnter, 0, ModNone)},
		{"backspace2", tcell.KeyBackspace2, 0, ModNone, KeyEvent(KeyBackspace, 0, ModNone)},
		{"ctrl right", tcell.KeyRight, 0, ModCtrl, KeyEvent(KeyRight, 0, ModCtrl)},
		{"shift f12", tcell.KeyF12, 0, ModShift, KeyEvent(KeyF12, 0, ModShift)},
		{"f24", tcell.KeyF24, 0, ModNone, KeyEvent(KeyF12, 0, ModShift)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, r, mod := convertKey(tt.key, tt.r, tt.mod)
			assert.Equal(t, tt.want, KeyEvent(k, r, mod))
		})
	}

	k, _, _ := convertKey(tcell.KeyF40, 0, ModNone)
	assert.Equal(t, KeyNone, k)
}

func newSimTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	term := NewTerminalWithScreen(sim)
	require.NoError(t, term.Init())
	sim.SetSize(10, 3)
	return term, sim
}

func TestTerminalDraws(t *testing.T) {
	term, sim := newSimTerminal(t)
	defer term.Shutdown()

	style := core.DefaultStyle().
		WithForeground(core.ColorFromRGB(255, 0, 0)).
		WithBackground(core.ColorFromIndex(4)).
		With(core.AttrBold)
	term.SetCell(1, 1, core.NewCell('z', style))
	term.Show()

	cells, w, _ := sim.GetContents()
	cell := cells[1*w+1]
	require.Equal(t, []rune{'z'}, cell.Runes)
	fg, bg, attrs := cell.Style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), fg)
	assert.Equal(t, tcell.PaletteColor(4), bg)
	assert.NotZero(t, attrs&tcell.AttrBold)
}

func TestTerminalEvents(t *testing.T) {
	term, sim := newSimTerminal(t)

	sim.InjectKey(tcell.KeyRune, 'a', tcell.ModAlt)
	ev, ok := term.PollEvent()
	require.True(t, ok)
	assert.Equal(t, RuneEvent('a', ModAlt), ev)

	term.PostEvent(KeyEvent(KeyF2, 0, ModNone))
	ev, ok = term.PollEvent()
	require.True(t, ok)
	assert.Equal(t, KeyEvent(KeyF2, 0, ModNone), ev)

	term.PostEvent(Event{Type: EventResize, Width: 30, Height: 9})
	ev, ok = term.PollEvent()
	require.True(t, ok)
	assert.Equal(t, Event{Type: EventResize, Width: 30, Height: 9}, ev)

	term.Shutdown()
	_, ok = term.PollEvent()
	assert.False(t, ok)
}

func TestSetStringClips(t *testing.T) {
	b := NewNullBackend(8, 2)
	style := core.DefaultStyle()

	assert.Equal(t, 3, SetString(b, 1, 0, "abc", style, 10))
	assert.Equal(t, " abc    ", b.Row(0))

	// the wide rune would straddle the limit
	assert.Equal(t, 1, SetString(b, 0, 1, "x世y", style, 2))
	assert.Equal(t, "x       ", b.Row(1))

	Fill(b, 0, 0, 2, 2, '#', style)
	assert.Equal(t, "##bc    ", b.Row(0))
	assert.Equal(t, "##      ", b.Row(1))
}
