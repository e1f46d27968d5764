package buffer

import "fmt"

// Point is a position in the buffer: a row and a byte column within it.
type Point struct {
	Row int
	Col int
}

// Less reports whether p comes before other.
func (p Point) Less(other Point) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

// Range is a half-open span [Start, End).
type Range struct {
	Start Point
	End   Point
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Edit replaces the text in Range with NewText.
type Edit struct {
	Range   Range
	NewText string
}

// NewInsert creates an Edit that inserts text at p.
func NewInsert(p Point, text string) Edit {
	return Edit{Range: Range{Start: p, End: p}, NewText: text}
}

// NewReplace creates an Edit that replaces the span from start to end.
func NewReplace(start, end Point, text string) Edit {
	return Edit{Range: Range{Start: start, End: end}, NewText: text}
}
