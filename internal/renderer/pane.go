package renderer

import (
	"github.com/dshills/weft/internal/layout"
	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/renderer/core"
	"github.com/dshills/weft/internal/renderer/gutter"
	"github.com/dshills/weft/internal/session"
)

// Box drawing runes for window borders.
const (
	boxHorizontal  = '─'
	boxVertical    = '│'
	boxTopLeft     = '┌'
	boxTopRight    = '┐'
	boxBottomLeft  = '└'
	boxBottomRight = '┘'
)

var gutterStyles = map[gutter.CellStyle]core.Style{
	gutter.StyleNormal:      core.DefaultStyle(),
	gutter.StyleCurrentLine: core.DefaultStyle().With(core.AttrBold),
	gutter.StyleDim:         core.DefaultStyle().WithForeground(core.ColorFromIndex(8)),
	gutter.StyleError:       core.DefaultStyle().WithForeground(core.ColorFromIndex(9)).With(core.AttrBold),
	gutter.StyleWarning:     core.DefaultStyle().WithForeground(core.ColorFromIndex(11)),
	gutter.StyleInfo:        core.DefaultStyle().WithForeground(core.ColorFromIndex(12)),
}

func (r *Renderer) drawWindow(win *session.Window, active bool) {
	if win.Bordered {
		r.drawBorder(win.Rect, win.Title(), active)
	}
	inner := win.Inner()
	if inner.Width <= 0 || inner.Height <= 0 {
		return
	}
	switch p := win.Pane.(type) {
	case *session.EditorPane:
		r.drawEditor(p, inner, active)
	case *session.TerminalPane:
		r.drawTerminal(p, inner, active)
	case *session.ExplorerPane:
		r.drawExplorer(p, inner, active)
	}
}

func (r *Renderer) drawBorder(rect layout.Rect, title string, active bool) {
	if rect.Width < 2 || rect.Height < 2 {
		return
	}
	style := core.DefaultStyle().WithForeground(r.theme.Border)
	if active {
		style = core.DefaultStyle().WithForeground(r.theme.ActiveBorder)
	}
	b := r.backend
	top, bottom := rect.Y, rect.Y+rect.Height-1
	left, right := rect.X, rect.X+rect.Width-1

	backend.Fill(b, left+1, top, rect.Width-2, 1, boxHorizontal, style)
	backend.Fill(b, left+1, bottom, rect.Width-2, 1, boxHorizontal, style)
	backend.Fill(b, left, top+1, 1, rect.Height-2, boxVertical, style)
	backend.Fill(b, right, top+1, 1, rect.Height-2, boxVertical, style)
	b.SetCell(left, top, core.NewCell(boxTopLeft, style))
	b.SetCell(right, top, core.NewCell(boxTopRight, style))
	b.SetCell(left, bottom, core.NewCell(boxBottomLeft, style))
	b.SetCell(right, bottom, core.NewCell(boxBottomRight, style))

	if avail := rect.Width - 4; avail > 2 && title != "" {
		label := " " + core.Truncate(title, avail-2) + " "
		if active {
			style = style.With(core.AttrBold)
		}
		backend.SetString(b, left+2, top, label, style, avail)
	}
}

func (r *Renderer) drawEditor(p *session.EditorPane, inner layout.Rect, active bool) {
	buf := p.Buffer
	row, col := buf.Cursor()

	g := newGutter(p, inner)
	g.SetCurrentLine(row)
	gw := g.Width()
	textWidth := inner.Width - gw

	cursorCol := r.tabs.OffsetToColumn(buf.Line(row), col)
	p.ScrollTo(inner.Height)
	p.ScrollColumn(cursorCol, textWidth)

	text := core.DefaultStyle()
	for y := 0; y < inner.Height; y++ {
		line := p.Top + y
		exists := line < buf.LineCount()
		for x, c := range g.RenderLine(line, exists) {
			r.backend.SetCell(inner.X+x, inner.Y+y, core.NewCell(c.Rune, gutterStyles[c.Style]))
		}
		if !exists {
			continue
		}
		for x, c := range r.tabs.LineCells(buf.Line(line), p.Left, textWidth, text) {
			r.backend.SetCell(inner.X+gw+x, inner.Y+y, c)
		}
	}

	if active && !buf.ReadOnly() {
		r.showCursor(inner.X+gw+cursorCol-p.Left, inner.Y+row-p.Top)
	}
}

// newGutter returns the gutter of an editor view; it is dropped when the
// window is too narrow to show text next to it.
func newGutter(p *session.EditorPane, inner layout.Rect) *gutter.Gutter {
	g := gutter.New(gutter.DefaultConfig())
	g.SetLineCount(p.Buffer.LineCount())
	if g.Width() >= inner.Width {
		return gutter.New(gutter.Config{})
	}
	if p.Doc != nil {
		g.SetSignProvider(gutter.DiagnosticSigns(p.Doc.Diagnostics))
	}
	return g
}

func gutterWidth(p *session.EditorPane, inner layout.Rect) int {
	return newGutter(p, inner).Width()
}

func (r *Renderer) drawTerminal(p *session.TerminalPane, inner layout.Rect, active bool) {
	screen := p.Session.Screen()
	rows, cols := screen.Size()
	rows, cols = min(rows, inner.Height), min(cols, inner.Width)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := screen.Cell(y, x)
			if c.IsContinuation() {
				continue
			}
			r.backend.SetCell(inner.X+x, inner.Y+y, c)
		}
	}
	if active && screen.CursorVisible() {
		cy, cx := screen.Cursor()
		if cy < rows && cx < cols {
			r.showCursor(inner.X+cx, inner.Y+cy)
		}
	}
}

func (r *Renderer) drawExplorer(p *session.ExplorerPane, inner layout.Rect, active bool) {
	ex := p.Explorer
	p.ScrollTo(inner.Height)

	dir := core.DefaultStyle().WithForeground(core.ColorFromIndex(12)).With(core.AttrBold)
	file := core.DefaultStyle()
	entries := ex.Entries()
	for y := 0; y < inner.Height; y++ {
		i := p.Top + y
		if i >= len(entries) {
			break
		}
		e := entries[i]
		name, style := e.Name, file
		if e.IsDir {
			name, style = name+"/", dir
		}
		if i == ex.Selected() {
			if active {
				style = style.With(core.AttrReverse)
			} else {
				style = style.With(core.AttrUnderline)
			}
			backend.Fill(r.backend, inner.X, inner.Y+y, inner.Width, 1, ' ', style)
		}
		backend.SetString(r.backend, inner.X, inner.Y+y, core.Truncate(name, inner.Width), style, inner.Width)
	}
}
