package session

import (
	"fmt"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/explorer"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/terminal"
)

// Kind identifies the payload of a window.
type Kind int

const (
	KindEditor Kind = iota
	KindTerminal
	KindExplorer
)

func (k Kind) String() string {
	switch k {
	case KindEditor:
		return "editor"
	case KindTerminal:
		return "terminal"
	case KindExplorer:
		return "explorer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FinishedMessage is the text of the editor that replaces a terminal
// whose child has exited.
const FinishedMessage = "[process finished]"

func newFinished() *buffer.Buffer {
	return buffer.New(FinishedMessage, buffer.WithReadOnly())
}

// Pane is a window payload: exactly one of *EditorPane, *TerminalPane or
// *ExplorerPane. The interface is closed; switch on the concrete type.
type Pane interface {
	Kind() Kind
	isPane()
}

// EditorPane is a text buffer, optionally synchronized with a language
// server.
type EditorPane struct {
	Buffer *buffer.Buffer

	// Doc is the language server document, nil when no server handles
	// the file.
	Doc *lsp.Document

	// Top is the first visible row, Left the first visible display
	// column.
	Top  int
	Left int

	// Popup and Hover are transient overlays drawn over the text.
	Popup *Popup
	Hover string
}

// TerminalPane is an embedded pseudo-terminal session.
type TerminalPane struct {
	Session *terminal.Session
}

// ExplorerPane is a directory browser.
type ExplorerPane struct {
	Explorer *explorer.Explorer
	Top      int
}

func (*EditorPane) Kind() Kind   { return KindEditor }
func (*TerminalPane) Kind() Kind { return KindTerminal }
func (*ExplorerPane) Kind() Kind { return KindExplorer }

func (*EditorPane) isPane()   {}
func (*TerminalPane) isPane() {}
func (*ExplorerPane) isPane() {}

// ScrollTo adjusts Top so the cursor row is within a view of height rows.
func (p *EditorPane) ScrollTo(height int) {
	row, _ := p.Buffer.Cursor()
	height = max(height, 1)
	switch {
	case row < p.Top:
		p.Top = row
	case row >= p.Top+height:
		p.Top = row - height + 1
	}
	p.Top = min(max(p.Top, 0), max(p.Buffer.LineCount()-1, 0))
}

// ScrollColumn adjusts Left so display column col is within a view of
// width columns.
func (p *EditorPane) ScrollColumn(col, width int) {
	width = max(width, 1)
	switch {
	case col < p.Left:
		p.Left = col
	case col >= p.Left+width:
		p.Left = col - width + 1
	}
}

// DismissOverlays clears the popup and hover text. It reports whether
// anything was showing.
func (p *EditorPane) DismissOverlays() bool {
	shown := p.Popup != nil || p.Hover != ""
	p.Popup = nil
	p.Hover = ""
	return shown
}

// ScrollTo adjusts Top so the selected entry is within a view of height
// rows.
func (p *ExplorerPane) ScrollTo(height int) {
	sel := p.Explorer.Selected()
	height = max(height, 1)
	switch {
	case sel < p.Top:
		p.Top = sel
	case sel >= p.Top+height:
		p.Top = sel - height + 1
	}
}
