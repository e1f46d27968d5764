package terminal

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dshills/weft/internal/renderer/core"
)

// Screen is the emulator's cell grid. It is owned by one Session and only
// touched from the goroutine that services that session.
type Screen struct {
	rows, cols int

	grid      [][]core.Cell
	primary   [][]core.Cell
	alternate [][]core.Cell
	alt       bool

	// col == cols means a wrap is pending: the next printable rune starts
	// a new line first.
	row, col int

	top, bottom int
	pen         core.Style

	saved    cursorState
	altSaved cursorState

	cursorVisible bool
	originMode    bool
	autoWrap      bool
	appCursor     bool
	graphics      bool

	title string
	dirty bool
}

type cursorState struct {
	row, col int
	pen      core.Style
}

// NewScreen creates a rows x cols screen. Dimensions below 1 are raised to 1.
func NewScreen(rows, cols int) *Screen {
	rows, cols = max(rows, 1), max(cols, 1)
	s := &Screen{
		rows:      rows,
		cols:      cols,
		primary:   newGrid(rows, cols),
		alternate: newGrid(rows, cols),
	}
	s.grid = s.primary
	s.reset()
	return s
}

func newGrid(rows, cols int) [][]core.Cell {
	g := make([][]core.Cell, rows)
	for i := range g {
		g[i] = blankLine(cols)
	}
	return g
}

func blankLine(cols int) []core.Cell {
	line := make([]core.Cell, cols)
	for i := range line {
		line[i] = core.EmptyCell()
	}
	return line
}

// Size returns the grid dimensions.
func (s *Screen) Size() (rows, cols int) { return s.rows, s.cols }

// Cursor returns the cursor position, clamped into the grid.
func (s *Screen) Cursor() (row, col int) {
	return s.row, min(s.col, s.cols-1)
}

// CursorVisible reports whether the child asked for a visible cursor.
func (s *Screen) CursorVisible() bool { return s.cursorVisible }

// Title returns the last title set with OSC 0 or 2.
func (s *Screen) Title() string { return s.title }

// AltScreen reports whether the alternate buffer is active.
func (s *Screen) AltScreen() bool { return s.alt }

// AppCursor reports whether cursor keys should use SS3 sequences.
func (s *Screen) AppCursor() bool { return s.appCursor }

// Cell returns the cell at row, col. Out-of-range positions yield a blank.
func (s *Screen) Cell(row, col int) core.Cell {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return core.EmptyCell()
	}
	return s.grid[row][col]
}

// Line returns the text of one row with trailing blanks removed.
func (s *Screen) Line(row int) string {
	if row < 0 || row >= s.rows {
		return ""
	}
	var b strings.Builder
	for _, c := range s.grid[row] {
		if c.IsContinuation() {
			continue
		}
		b.WriteRune(c.Rune)
	}
	return strings.TrimRight(b.String(), " ")
}

// Text returns every row joined by newlines.
func (s *Screen) Text() string {
	lines := make([]string, s.rows)
	for i := range lines {
		lines[i] = s.Line(i)
	}
	return strings.Join(lines, "\n")
}

// TakeDirty reports whether the grid changed since the last call.
func (s *Screen) TakeDirty() bool {
	d := s.dirty
	s.dirty = false
	return d
}

// Resize changes the grid size, keeping the top-left content of both
// buffers. The scroll region is reset to the full screen.
func (s *Screen) Resize(rows, cols int) {
	rows, cols = max(rows, 1), max(cols, 1)
	if rows == s.rows && cols == s.cols {
		return
	}
	s.primary = resizeGrid(s.primary, rows, cols)
	s.alternate = resizeGrid(s.alternate, rows, cols)
	if s.alt {
		s.grid = s.alternate
	} else {
		s.grid = s.primary
	}
	s.rows, s.cols = rows, cols
	s.top, s.bottom = 0, rows-1
	s.row = min(s.row, rows-1)
	s.col = min(s.col, cols)
	s.saved.row, s.saved.col = min(s.saved.row, rows-1), min(s.saved.col, cols-1)
	s.dirty = true
}

func resizeGrid(old [][]core.Cell, rows, cols int) [][]core.Cell {
	g := newGrid(rows, cols)
	for r := 0; r < rows && r < len(old); r++ {
		n := copy(g[r], old[r])
		// A wide rune cut in half at the new edge becomes a blank.
		if n > 0 && n == cols && g[r][n-1].Width > 1 {
			g[r][n-1] = core.EmptyCell()
		}
	}
	return g
}

func (s *Screen) reset() {
	for i := range s.grid {
		s.grid[i] = blankLine(s.cols)
	}
	s.row, s.col = 0, 0
	s.top, s.bottom = 0, s.rows-1
	s.pen = core.DefaultStyle()
	s.saved = cursorState{pen: s.pen}
	s.cursorVisible = true
	s.originMode = false
	s.autoWrap = true
	s.appCursor = false
	s.graphics = false
	s.dirty = true
}

func (s *Screen) blank() core.Cell {
	c := core.EmptyCell()
	c.Style.Background = s.pen.Background
	return c
}

// put writes r at the cursor and advances it.
func (s *Screen) put(r rune) {
	if s.graphics {
		r = decGraphics(r)
	}
	w := runewidth.RuneWidth(r)
	if w == 0 {
		// Combining marks and zero-width joiners are dropped; the grid
		// holds one rune per cell.
		return
	}
	if w > s.cols {
		return
	}
	if s.col+w > s.cols {
		if s.autoWrap {
			s.col = 0
			s.lineFeed()
		} else {
			s.col = s.cols - w
		}
	}
	line := s.grid[s.row]
	s.clearWide(line, s.col)
	line[s.col] = core.Cell{Rune: r, Width: w, Style: s.pen}
	if w == 2 {
		s.clearWide(line, s.col+1)
		line[s.col+1] = core.Cell{Width: 0, Style: s.pen}
	}
	s.col += w
	s.dirty = true
}

// clearWide blanks the other half of a wide rune about to be overwritten
// at col.
func (s *Screen) clearWide(line []core.Cell, col int) {
	switch {
	case line[col].IsContinuation() && col > 0:
		line[col-1] = s.blank()
	case line[col].Width > 1 && col+1 < len(line):
		line[col+1] = s.blank()
	}
}

func (s *Screen) moveTo(row, col int) {
	top, bottom := 0, s.rows-1
	if s.originMode {
		top, bottom = s.top, s.bottom
		row += s.top
	}
	s.row = min(max(row, top), bottom)
	s.col = min(max(col, 0), s.cols-1)
}

func (s *Screen) moveBy(drow, dcol int) {
	row := min(max(s.row+drow, 0), s.rows-1)
	if s.row >= s.top && s.row <= s.bottom {
		row = min(max(row, s.top), s.bottom)
	}
	s.row = row
	s.col = min(max(min(s.col, s.cols-1)+dcol, 0), s.cols-1)
}

func (s *Screen) carriageReturn() { s.col = 0 }

func (s *Screen) backspace() {
	if s.col > 0 {
		s.col = min(s.col, s.cols) - 1
	}
}

func (s *Screen) tab() {
	next := (min(s.col, s.cols-1)/8 + 1) * 8
	s.col = min(next, s.cols-1)
}

func (s *Screen) lineFeed() {
	if s.row == s.bottom {
		s.scrollUp(1)
	} else if s.row < s.rows-1 {
		s.row++
	}
}

func (s *Screen) reverseLineFeed() {
	if s.row == s.top {
		s.scrollDown(1)
	} else if s.row > 0 {
		s.row--
	}
}

func (s *Screen) scrollUp(n int) { s.scrollRegionUp(s.top, n) }

func (s *Screen) scrollDown(n int) { s.scrollRegionDown(s.top, n) }

func (s *Screen) scrollRegionUp(top, n int) {
	n = min(n, s.bottom-top+1)
	if n <= 0 {
		return
	}
	copy(s.grid[top:s.bottom+1], s.grid[top+n:s.bottom+1])
	for r := s.bottom - n + 1; r <= s.bottom; r++ {
		s.grid[r] = s.blankLine()
	}
	s.dirty = true
}

func (s *Screen) scrollRegionDown(top, n int) {
	n = min(n, s.bottom-top+1)
	if n <= 0 {
		return
	}
	copy(s.grid[top+n:s.bottom+1], s.grid[top:s.bottom+1-n])
	for r := top; r < top+n; r++ {
		s.grid[r] = s.blankLine()
	}
	s.dirty = true
}

func (s *Screen) blankLine() []core.Cell {
	line := make([]core.Cell, s.cols)
	b := s.blank()
	for i := range line {
		line[i] = b
	}
	return line
}

func (s *Screen) setScrollRegion(top, bottom int) {
	bottom = min(bottom, s.rows-1)
	if top < 0 || top >= bottom {
		return
	}
	s.top, s.bottom = top, bottom
	s.moveTo(0, 0)
}

func (s *Screen) insertLines(n int) {
	if s.row >= s.top && s.row <= s.bottom {
		s.scrollRegionDown(s.row, n)
	}
}

func (s *Screen) deleteLines(n int) {
	if s.row >= s.top && s.row <= s.bottom {
		s.scrollRegionUp(s.row, n)
	}
}

// eraseRange blanks cells [from, to) of row.
func (s *Screen) eraseRange(row, from, to int) {
	line := s.grid[row]
	from, to = max(from, 0), min(to, s.cols)
	b := s.blank()
	for c := from; c < to; c++ {
		line[c] = b
	}
	s.dirty = true
}

// eraseDisplay implements ED: 0 below, 1 above, 2 and 3 everything.
func (s *Screen) eraseDisplay(mode int) {
	col := min(s.col, s.cols-1)
	switch mode {
	case 0:
		s.eraseRange(s.row, col, s.cols)
		for r := s.row + 1; r < s.rows; r++ {
			s.eraseRange(r, 0, s.cols)
		}
	case 1:
		for r := 0; r < s.row; r++ {
			s.eraseRange(r, 0, s.cols)
		}
		s.eraseRange(s.row, 0, col+1)
	case 2, 3:
		for r := 0; r < s.rows; r++ {
			s.eraseRange(r, 0, s.cols)
		}
	}
}

// eraseLine implements EL: 0 right, 1 left, 2 whole line.
func (s *Screen) eraseLine(mode int) {
	col := min(s.col, s.cols-1)
	switch mode {
	case 0:
		s.eraseRange(s.row, col, s.cols)
	case 1:
		s.eraseRange(s.row, 0, col+1)
	case 2:
		s.eraseRange(s.row, 0, s.cols)
	}
}

func (s *Screen) eraseChars(n int) {
	col := min(s.col, s.cols-1)
	s.eraseRange(s.row, col, col+n)
}

func (s *Screen) insertChars(n int) {
	col := min(s.col, s.cols-1)
	n = min(n, s.cols-col)
	if n <= 0 {
		return
	}
	line := s.grid[s.row]
	copy(line[col+n:], line[col:s.cols-n])
	s.eraseRange(s.row, col, col+n)
}

func (s *Screen) deleteChars(n int) {
	col := min(s.col, s.cols-1)
	n = min(n, s.cols-col)
	if n <= 0 {
		return
	}
	line := s.grid[s.row]
	copy(line[col:], line[col+n:])
	s.eraseRange(s.row, s.cols-n, s.cols)
}

func (s *Screen) saveCursor() {
	s.saved = cursorState{row: s.row, col: min(s.col, s.cols-1), pen: s.pen}
}

func (s *Screen) restoreCursor() {
	s.row = min(s.saved.row, s.rows-1)
	s.col = min(s.saved.col, s.cols-1)
	s.pen = s.saved.pen
}

// setAltScreen switches buffers. Entering clears the alternate buffer;
// withCursor saves the cursor on entry and restores it on exit (mode 1049).
func (s *Screen) setAltScreen(on, withCursor bool) {
	if on == s.alt {
		return
	}
	if on {
		if withCursor {
			s.altSaved = cursorState{row: s.row, col: s.col, pen: s.pen}
		}
		s.alternate = newGrid(s.rows, s.cols)
		s.grid = s.alternate
	} else {
		s.grid = s.primary
		if withCursor {
			s.row = min(s.altSaved.row, s.rows-1)
			s.col = min(s.altSaved.col, s.cols)
			s.pen = s.altSaved.pen
		}
	}
	s.alt = on
	s.dirty = true
}

var decSpecial = map[rune]rune{
	'`': '◆', 'a': '▒', 'f': '°', 'g': '±', 'j': '┘', 'k': '┐', 'l': '┌',
	'm': '└', 'n': '┼', 'o': '⎺', 'p': '⎻', 'q': '─', 'r': '⎼', 's': '⎽',
	't': '├', 'u': '┤', 'v': '┴', 'w': '┬', 'x': '│', 'y': '≤', 'z': '≥',
	'~': '·',
}

// decGraphics maps the DEC special graphics set selected with ESC ( 0.
func decGraphics(r rune) rune {
	if g, ok := decSpecial[r]; ok {
		return g
	}
	return r
}
