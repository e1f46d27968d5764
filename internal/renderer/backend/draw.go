package backend

import "github.com/dshills/weft/internal/renderer/core"

// SetString writes s at (x, y) without crossing column x+limit and returns
// the number of columns written. A wide rune that would straddle the limit
// is dropped.
func SetString(b Backend, x, y int, s string, style core.Style, limit int) int {
	col := 0
	for _, r := range s {
		w := core.RuneWidth(r)
		if col+w > limit {
			break
		}
		b.SetCell(x+col, y, core.Cell{Rune: r, Width: w, Style: style})
		col += w
	}
	return col
}

// Fill sets every cell of the rectangle to r in style.
func Fill(b Backend, x, y, width, height int, r rune, style core.Style) {
	cell := core.NewCell(r, style)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			b.SetCell(col, row, cell)
		}
	}
}
