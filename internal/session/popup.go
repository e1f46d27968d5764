package session

import (
	"unicode/utf8"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/lsp"
)

// PopupKind says what accepting a popup item does.
type PopupKind int

const (
	// PopupCompletion inserts the item's completion text.
	PopupCompletion PopupKind = iota
	// PopupLocations jumps to the item's file position.
	PopupLocations
)

// PopupItem is one row of a popup list.
type PopupItem struct {
	Label  string
	Detail string

	// Completion is set for completion popups.
	Completion *lsp.CompletionItem

	// Path, Row and Col locate the item for location popups. Col is a
	// byte column.
	Path string
	Row  int
	Col  int
}

// Popup is a selectable list anchored at a buffer position.
type Popup struct {
	Kind     PopupKind
	Title    string
	Items    []PopupItem
	Selected int

	// Anchor is where the popup is drawn; for completions it is the start
	// of the identifier being completed.
	Anchor buffer.Point
}

// Move shifts the selection by n, wrapping around.
func (p *Popup) Move(n int) {
	if len(p.Items) == 0 {
		return
	}
	p.Selected = ((p.Selected+n)%len(p.Items) + len(p.Items)) % len(p.Items)
}

// Current returns the selected item.
func (p *Popup) Current() (PopupItem, bool) {
	if p.Selected < 0 || p.Selected >= len(p.Items) {
		return PopupItem{}, false
	}
	return p.Items[p.Selected], true
}

// Prompt is a one-line input shown in place of the status line.
type Prompt struct {
	Label string
	Input string

	// Submit runs with the input when Enter is pressed.
	Submit func(input string)
}

// Insert appends r to the input.
func (p *Prompt) Insert(r rune) {
	p.Input += string(r)
}

// Backspace removes the last rune of the input.
func (p *Prompt) Backspace() {
	if p.Input == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(p.Input)
	p.Input = p.Input[:len(p.Input)-size]
}
