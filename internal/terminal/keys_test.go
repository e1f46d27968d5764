package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/weft/internal/renderer/backend"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		name      string
		ev        backend.Event
		appCursor bool
		want      string
	}{
		{"rune", backend.RuneEvent('x', backend.ModNone), false, "x"},
		{"utf8 rune", backend.RuneEvent('é', backend.ModNone), false, "é"},
		{"ctrl c", backend.RuneEvent('c', backend.ModCtrl), false, "\x03"},
		{"ctrl space", backend.RuneEvent(' ', backend.ModCtrl), false, "\x00"},
		{"ctrl bracket", backend.RuneEvent('[', backend.ModCtrl), false, "\x1b"},
		{"alt rune", backend.RuneEvent('b', backend.ModAlt), false, "\x1bb"},
		{"ctrl alt", backend.RuneEvent('a', backend.ModCtrl|backend.ModAlt), false, "\x1b\x01"},
		{"enter", backend.KeyEvent(backend.KeyEnter, 0, backend.ModNone), false, "\r"},
		{"tab", backend.KeyEvent(backend.KeyTab, 0, backend.ModNone), false, "\t"},
		{"backtab", backend.KeyEvent(backend.KeyBacktab, 0, backend.ModShift), false, "\x1b[Z"},
		{"backspace", backend.KeyEvent(backend.KeyBackspace, 0, backend.ModNone), false, "\x7f"},
		{"escape", backend.KeyEvent(backend.KeyEscape, 0, backend.ModNone), false, "\x1b"},
		{"up", backend.KeyEvent(backend.KeyUp, 0, backend.ModNone), false, "\x1b[A"},
		{"up app cursor", backend.KeyEvent(backend.KeyUp, 0, backend.ModNone), true, "\x1bOA"},
		{"ctrl right", backend.KeyEvent(backend.KeyRight, 0, backend.ModCtrl), false, "\x1b[1;5C"},
		{"shift home", backend.KeyEvent(backend.KeyHome, 0, backend.ModShift), true, "\x1b[1;2H"},
		{"f1", backend.KeyEvent(backend.KeyF1, 0, backend.ModNone), false, "\x1bOP"},
		{"f5", backend.KeyEvent(backend.KeyF5, 0, backend.ModNone), false, "\x1b[15~"},
		{"delete", backend.KeyEvent(backend.KeyDelete, 0, backend.ModNone), false, "\x1b[3~"},
		{"alt page down", backend.KeyEvent(backend.KeyPageDown, 0, backend.ModAlt), false, "\x1b[6;3~"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(EncodeKey(tt.ev, tt.appCursor)))
		})
	}
}

func TestEncodeKeyIgnoresNonKeys(t *testing.T) {
	assert.Nil(t, EncodeKey(backend.Event{Type: backend.EventResize, Width: 3, Height: 4}, false))
	assert.Nil(t, EncodeKey(backend.KeyEvent(backend.KeyNone, 0, backend.ModNone), false))
	assert.Nil(t, EncodeKey(backend.RuneEvent(-1, backend.ModNone), false))
}
