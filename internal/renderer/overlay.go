package renderer

import (
	"strings"

	"github.com/dshills/weft/internal/layout"
	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/renderer/core"
	"github.com/dshills/weft/internal/session"
)

// Overlay size limits.
const (
	maxOverlayRows  = 10
	maxOverlayWidth = 60
)

// drawOverlays draws the popup or hover text of the active editor over
// its text. Overlays never leave the window.
func (r *Renderer) drawOverlays(p *session.EditorPane, inner layout.Rect) {
	if p.Popup == nil && p.Hover == "" {
		return
	}
	origin := inner.X + gutterWidth(p, inner)
	pos := func(row, col int) (int, int) {
		x := origin + r.tabs.OffsetToColumn(p.Buffer.Line(row), col) - p.Left
		return x, inner.Y + row - p.Top
	}

	if p.Popup != nil {
		x, y := pos(p.Popup.Anchor.Row, p.Popup.Anchor.Col)
		r.drawPopup(p.Popup, x, y, inner)
		return
	}
	row, col := p.Buffer.Cursor()
	x, y := pos(row, col)
	r.drawHover(p.Hover, x, y, inner)
}

// placeBox positions a w by h box next to the anchor cell (x, y): below
// it when there is room, otherwise above, always inside bounds.
func placeBox(x, y, w, h int, bounds layout.Rect) layout.Rect {
	w, h = min(w, bounds.Width), min(h, bounds.Height)
	top := y + 1
	if top+h > bounds.Y+bounds.Height {
		top = y - h
	}
	top = max(min(top, bounds.Y+bounds.Height-h), bounds.Y)
	left := max(min(x, bounds.X+bounds.Width-w), bounds.X)
	return layout.Rect{Y: top, X: left, Height: h, Width: w}
}

func (r *Renderer) overlayStyle() core.Style {
	return core.DefaultStyle().WithBackground(r.theme.StatusBar)
}

func (r *Renderer) drawPopup(p *session.Popup, x, y int, bounds layout.Rect) {
	if len(p.Items) == 0 {
		return
	}
	lines := make([]string, len(p.Items))
	width := core.StringWidth(p.Title)
	for i, it := range p.Items {
		lines[i] = " " + it.Label
		if it.Detail != "" {
			lines[i] += "  " + it.Detail
		}
		lines[i] += " "
		width = max(width, core.StringWidth(lines[i]))
	}
	header := 0
	if p.Title != "" {
		header = 1
	}
	rows := min(len(lines), maxOverlayRows)
	box := placeBox(x, y, min(width, maxOverlayWidth), rows+header, bounds)
	if box.Height <= header {
		return
	}
	rows = box.Height - header

	first := 0
	if p.Selected >= rows {
		first = p.Selected - rows + 1
	}

	style := r.overlayStyle()
	backend.Fill(r.backend, box.X, box.Y, box.Width, box.Height, ' ', style)
	if header > 0 {
		backend.SetString(r.backend, box.X, box.Y, core.Truncate(p.Title, box.Width), style.With(core.AttrBold), box.Width)
	}
	for i := 0; i < rows && first+i < len(lines); i++ {
		s := style
		if first+i == p.Selected {
			s = s.With(core.AttrReverse)
			backend.Fill(r.backend, box.X, box.Y+header+i, box.Width, 1, ' ', s)
		}
		backend.SetString(r.backend, box.X, box.Y+header+i, core.Truncate(lines[first+i], box.Width), s, box.Width)
	}
}

func (r *Renderer) drawHover(text string, x, y int, bounds layout.Rect) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > maxOverlayRows {
		lines = lines[:maxOverlayRows]
	}
	width := 0
	for i, l := range lines {
		lines[i] = " " + strings.ReplaceAll(l, "\t", "    ") + " "
		width = max(width, core.StringWidth(lines[i]))
	}
	box := placeBox(x, y, min(width, maxOverlayWidth), len(lines), bounds)
	style := r.overlayStyle()
	backend.Fill(r.backend, box.X, box.Y, box.Width, box.Height, ' ', style)
	for i := 0; i < box.Height; i++ {
		backend.SetString(r.backend, box.X, box.Y+i, core.Truncate(lines[i], box.Width), style, box.Width)
	}
}
