package buffer

import (
	"errors"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Errors returned by buffer operations.
var (
	ErrReadOnly     = errors.New("buffer is read-only")
	ErrRangeInvalid = errors.New("invalid range")
	ErrEditsOverlap = errors.New("edits overlap")
	ErrNoPath       = errors.New("buffer has no file path")
)

// LineEnding specifies the line ending style used when saving.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
)

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	if le == LineEndingCRLF {
		return "\r\n"
	}
	return "\n"
}

// Buffer is the text of one editor window plus its cursor. Lines are held
// without terminators; the cursor column is a byte offset that always sits
// on a rune boundary.
//
// Buffer is owned by the reactor goroutine and is not safe for concurrent
// use.
type Buffer struct {
	lines []string
	row   int
	col   int

	path       string
	lineEnding LineEnding
	fileInfo   fileState

	readOnly bool
	modified bool
	revision uint64
}

// Option configures a new buffer.
type Option func(*Buffer)

// WithPath associates the buffer with a file without reading it.
func WithPath(path string) Option {
	return func(b *Buffer) { b.path = path }
}

// WithReadOnly marks the buffer read-only.
func WithReadOnly() Option {
	return func(b *Buffer) { b.readOnly = true }
}

// New creates a buffer holding text.
func New(text string, opts ...Option) *Buffer {
	b := &Buffer{}
	b.setText(text)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) setText(text string) {
	b.lineEnding = LineEndingLF
	if strings.Contains(text, "\r\n") {
		b.lineEnding = LineEndingCRLF
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	b.lines = strings.Split(text, "\n")
	b.clampCursor()
}

// Text returns the full contents joined with "\n".
func (b *Buffer) Text() string {
	return strings.Join(b.lines, "\n")
}

// Line returns one line, or "" when row is out of range.
func (b *Buffer) Line(row int) string {
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return b.lines[row]
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	return len(b.lines)
}

// Path returns the associated file path, or "".
func (b *Buffer) Path() string { return b.path }

// Modified reports whether there are unsaved changes.
func (b *Buffer) Modified() bool { return b.modified }

// ReadOnly reports whether edits are refused.
func (b *Buffer) ReadOnly() bool { return b.readOnly }

// Revision increases with every successful edit.
func (b *Buffer) Revision() uint64 { return b.revision }

// Cursor returns the cursor row and byte column.
func (b *Buffer) Cursor() (row, col int) {
	return b.row, b.col
}

// SetCursor moves the cursor, clamping it into the text and back onto a
// rune boundary.
func (b *Buffer) SetCursor(row, col int) {
	b.row, b.col = row, col
	b.clampCursor()
}

func (b *Buffer) clampCursor() {
	b.row = min(max(b.row, 0), len(b.lines)-1)
	line := b.lines[b.row]
	b.col = min(max(b.col, 0), len(line))
	for b.col > 0 && b.col < len(line) && !utf8.RuneStart(line[b.col]) {
		b.col--
	}
}

func (b *Buffer) touch() {
	b.modified = true
	b.revision++
}

// Insert inserts text at the cursor and moves the cursor past it.
func (b *Buffer) Insert(text string) error {
	if b.readOnly {
		return ErrReadOnly
	}
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	line := b.lines[b.row]
	before, after := line[:b.col], line[b.col:]
	parts := strings.Split(text, "\n")

	if len(parts) == 1 {
		b.lines[b.row] = before + text + after
		b.col += len(text)
		b.touch()
		return nil
	}
	inserted := make([]string, len(parts))
	inserted[0] = before + parts[0]
	copy(inserted[1:], parts[1:])
	last := len(parts) - 1
	inserted[last] = parts[last] + after

	b.lines = append(b.lines[:b.row], append(inserted, b.lines[b.row+1:]...)...)
	b.row += last
	b.col = len(parts[last])
	b.touch()
	return nil
}

// InsertRune inserts a single rune at the cursor.
func (b *Buffer) InsertRune(r rune) error {
	return b.Insert(string(r))
}

// Newline splits the current line at the cursor, carrying over the
// current line's leading indentation.
func (b *Buffer) Newline() error {
	line := b.lines[b.row]
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if len(indent) > b.col {
		indent = indent[:b.col]
	}
	return b.Insert("\n" + indent)
}

// Backspace deletes the rune before the cursor, joining with the previous
// line at column 0.
func (b *Buffer) Backspace() error {
	if b.readOnly {
		return ErrReadOnly
	}
	if b.col > 0 {
		line := b.lines[b.row]
		_, size := utf8.DecodeLastRuneInString(line[:b.col])
		b.lines[b.row] = line[:b.col-size] + line[b.col:]
		b.col -= size
		b.touch()
		return nil
	}
	if b.row == 0 {
		return nil
	}
	prev := b.lines[b.row-1]
	b.lines[b.row-1] = prev + b.lines[b.row]
	b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
	b.row--
	b.col = len(prev)
	b.touch()
	return nil
}

// Delete deletes the rune under the cursor, joining with the next line at
// the end of a line.
func (b *Buffer) Delete() error {
	if b.readOnly {
		return ErrReadOnly
	}
	line := b.lines[b.row]
	if b.col < len(line) {
		_, size := utf8.DecodeRuneInString(line[b.col:])
		b.lines[b.row] = line[:b.col] + line[b.col+size:]
		b.touch()
		return nil
	}
	if b.row == len(b.lines)-1 {
		return nil
	}
	b.lines[b.row] = line + b.lines[b.row+1]
	b.lines = append(b.lines[:b.row+1], b.lines[b.row+2:]...)
	b.touch()
	return nil
}

// MoveLeft moves one rune left, wrapping to the end of the previous line.
func (b *Buffer) MoveLeft() {
	if b.col > 0 {
		_, size := utf8.DecodeLastRuneInString(b.lines[b.row][:b.col])
		b.col -= size
		return
	}
	if b.row > 0 {
		b.row--
		b.col = len(b.lines[b.row])
	}
}

// MoveRight moves one rune right, wrapping to the start of the next line.
func (b *Buffer) MoveRight() {
	line := b.lines[b.row]
	if b.col < len(line) {
		_, size := utf8.DecodeRuneInString(line[b.col:])
		b.col += size
		return
	}
	if b.row < len(b.lines)-1 {
		b.row++
		b.col = 0
	}
}

// MoveVertical moves n rows (negative is up), keeping the character
// column where the target line allows.
func (b *Buffer) MoveVertical(n int) {
	chars := utf8.RuneCountInString(b.lines[b.row][:b.col])
	b.row = min(max(b.row+n, 0), len(b.lines)-1)
	b.col = byteColumn(b.lines[b.row], chars)
}

// MoveHome moves to the first non-blank column, or column 0 if already
// there.
func (b *Buffer) MoveHome() {
	line := b.lines[b.row]
	first := len(line) - len(strings.TrimLeft(line, " \t"))
	if b.col == first {
		first = 0
	}
	b.col = first
}

// MoveEnd moves to the end of the line.
func (b *Buffer) MoveEnd() {
	b.col = len(b.lines[b.row])
}

func byteColumn(line string, chars int) int {
	n := 0
	for i := range line {
		if n == chars {
			return i
		}
		n++
	}
	return len(line)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// WordPrefix returns the identifier characters immediately before the
// cursor and the byte column where they start.
func (b *Buffer) WordPrefix() (prefix string, start int) {
	line := b.lines[b.row][:b.col]
	start = len(line)
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	return line[start:], start
}

// offset converts a point to a byte offset in Text. Points past the end of
// a line or past the last line are clamped.
func (b *Buffer) offset(p Point) int {
	if p.Row >= len(b.lines) {
		return len(b.Text())
	}
	off := 0
	for r := 0; r < p.Row; r++ {
		off += len(b.lines[r]) + 1
	}
	return off + min(max(p.Col, 0), len(b.lines[p.Row]))
}

// ApplyEdits applies every edit atomically. Edits may arrive in any order;
// they are applied bottom-up so earlier positions stay valid. Overlapping
// edits are rejected and leave the buffer untouched.
func (b *Buffer) ApplyEdits(edits []Edit) error {
	if b.readOnly {
		return ErrReadOnly
	}
	if len(edits) == 0 {
		return nil
	}
	for _, e := range edits {
		if e.Range.Start.Row < 0 || e.Range.End.Less(e.Range.Start) {
			return ErrRangeInvalid
		}
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Range.Start.Less(sorted[i].Range.Start)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Range.Start.Less(sorted[i].Range.End) {
			return ErrEditsOverlap
		}
	}

	text := b.Text()
	for _, e := range sorted {
		start, end := b.offset(e.Range.Start), b.offset(e.Range.End)
		text = text[:start] + strings.ReplaceAll(e.NewText, "\r\n", "\n") + text[end:]
	}
	b.lines = strings.Split(text, "\n")
	b.clampCursor()
	b.touch()
	return nil
}

// Replace replaces the span from start to end with text and leaves the
// cursor after the inserted text.
func (b *Buffer) Replace(start, end Point, text string) error {
	if err := b.ApplyEdits([]Edit{NewReplace(start, end, text)}); err != nil {
		return err
	}
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		b.SetCursor(start.Row, start.Col+len(text))
	} else {
		b.SetCursor(start.Row+len(lines)-1, len(lines[len(lines)-1]))
	}
	return nil
}
