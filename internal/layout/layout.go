// Package layout computes window geometry for a workspace.
//
// Compute is a pure function of the window count, the requested mode and the
// available screen area. Modes that need a specific window count fall back to
// Vertical whenever the count does not match, and the fallback is evaluated on
// every call since windows come and go.
package layout

import (
	"fmt"
	"strings"
)

// Mode selects how windows are arranged.
type Mode int

const (
	// Vertical places windows side by side in equal-width columns.
	Vertical Mode = iota
	// Horizontal stacks exactly two windows in equal-height rows.
	Horizontal
	// MainStack places the first of three windows on the left half and
	// stacks the other two on the right half.
	MainStack
	// Grid arranges exactly four windows in quadrants.
	Grid
)

// Modes lists every mode in cycle order.
var Modes = []Mode{Vertical, Horizontal, MainStack, Grid}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	case MainStack:
		return "mainstack"
	case Grid:
		return "grid"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Arity returns the window count a mode requires, or 0 if any count works.
func (m Mode) Arity() int {
	switch m {
	case Horizontal:
		return 2
	case MainStack:
		return 3
	case Grid:
		return 4
	default:
		return 0
	}
}

// Next returns the mode after m in cycle order.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Vertical
}

// ParseMode parses a mode name as written in configuration files.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "columns", "":
		return Vertical, nil
	case "horizontal", "rows":
		return Horizontal, nil
	case "mainstack", "main-stack", "main_stack":
		return MainStack, nil
	case "grid":
		return Grid, nil
	default:
		return Vertical, fmt.Errorf("unknown layout mode %q", s)
	}
}

// Rect is a screen region in cells.
type Rect struct {
	Y, X          int
	Height, Width int
}

// Inset shrinks r by n cells on every side. Empty results are clamped to zero.
func (r Rect) Inset(n int) Rect {
	out := Rect{Y: r.Y + n, X: r.X + n, Height: r.Height - 2*n, Width: r.Width - 2*n}
	if out.Height < 0 {
		out.Height = 0
	}
	if out.Width < 0 {
		out.Width = 0
	}
	return out
}

// Contains reports whether the cell (y, x) lies inside r.
func (r Rect) Contains(y, x int) bool {
	return y >= r.Y && y < r.Y+r.Height && x >= r.X && x < r.X+r.Width
}

// Effective returns the mode actually used for count windows.
func Effective(count int, mode Mode) Mode {
	if a := mode.Arity(); a != 0 && a != count {
		return Vertical
	}
	return mode
}

// Compute returns one rectangle per window, in window order.
func Compute(count int, mode Mode, area Rect) []Rect {
	if count <= 0 {
		return nil
	}

	switch Effective(count, mode) {
	case Horizontal:
		top, bottom := splitRows(area)
		return []Rect{top, bottom}
	case MainStack:
		left, right := splitColumns(area)
		upper, lower := splitRows(right)
		return []Rect{left, upper, lower}
	case Grid:
		left, right := splitColumns(area)
		tl, bl := splitRows(left)
		tr, br := splitRows(right)
		return []Rect{tl, tr, bl, br}
	default:
		return columns(count, area)
	}
}

// columns splits area into count columns; the last absorbs the remainder.
func columns(count int, area Rect) []Rect {
	rects := make([]Rect, count)
	w := area.Width / count
	for i := range rects {
		rects[i] = Rect{Y: area.Y, X: area.X + i*w, Height: area.Height, Width: w}
	}
	rects[count-1].Width = area.Width - (count-1)*w
	return rects
}

func splitColumns(area Rect) (Rect, Rect) {
	cols := columns(2, area)
	return cols[0], cols[1]
}

// splitRows splits area into two rows; the second absorbs the remainder.
func splitRows(area Rect) (Rect, Rect) {
	h := area.Height / 2
	top := Rect{Y: area.Y, X: area.X, Height: h, Width: area.Width}
	bottom := Rect{Y: area.Y + h, X: area.X, Height: area.Height - h, Width: area.Width}
	return top, bottom
}
