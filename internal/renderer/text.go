package renderer

import (
	"github.com/dshills/weft/internal/renderer/core"
)

// DefaultTabWidth is the tab stop distance used when none is configured.
const DefaultTabWidth = 4

// TabExpander converts between byte offsets and display columns with
// tab stops and wide runes taken into account.
type TabExpander struct {
	tabWidth int
}

// NewTabExpander creates a tab expander with the given tab width.
func NewTabExpander(tabWidth int) *TabExpander {
	if tabWidth < 1 {
		tabWidth = DefaultTabWidth
	}
	return &TabExpander{tabWidth: tabWidth}
}

// NextTabStop returns the next tab stop column after the given column.
func (t *TabExpander) NextTabStop(col int) int {
	return col + t.tabWidth - (col % t.tabWidth)
}

// advance returns the column after r drawn at col.
func (t *TabExpander) advance(r rune, col int) int {
	if r == '\t' {
		return t.NextTabStop(col)
	}
	return col + core.RuneWidth(r)
}

// OffsetToColumn converts a byte offset to a display column.
func (t *TabExpander) OffsetToColumn(s string, byteOffset int) int {
	col := 0
	for i, r := range s {
		if i >= byteOffset {
			return col
		}
		col = t.advance(r, col)
	}
	return col
}

// LineCells lays out s starting at display column left and returns at
// most width cells. A wide rune cut by the left edge shows as a space;
// one cut by the right edge is dropped.
func (t *TabExpander) LineCells(s string, left, width int, style core.Style) []core.Cell {
	cells := make([]core.Cell, 0, width)
	col := 0
	for _, r := range s {
		next := t.advance(r, col)
		for c := col; c < next && c < left+width; c++ {
			if c < left {
				continue
			}
			switch {
			case r == '\t':
				cells = append(cells, core.NewCell(' ', style))
			case c > col:
				if len(cells) > 0 && cells[len(cells)-1].Width > 1 {
					cells = append(cells, core.Cell{Style: style})
				} else {
					cells = append(cells, core.NewCell(' ', style))
				}
			case next > left+width:
				cells = append(cells, core.NewCell(' ', style))
			default:
				cells = append(cells, core.Cell{Rune: r, Width: next - col, Style: style})
			}
		}
		if next >= left+width {
			break
		}
		col = next
	}
	return cells
}
