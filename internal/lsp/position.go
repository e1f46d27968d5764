package lsp

import (
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Editor columns are byte offsets into a line. Protocol columns count
// characters, so a multi-byte character is one protocol column but several
// editor columns.

// ByteToChar converts a byte column within line to a character column.
// Columns past the end of the line clamp to the line length.
func ByteToChar(line string, byteCol int) int {
	if byteCol <= 0 {
		return 0
	}
	if byteCol > len(line) {
		byteCol = len(line)
	}
	return utf8.RuneCountInString(line[:byteCol])
}

// CharToByte converts a character column within line to a byte column.
// Columns past the end of the line clamp to len(line).
func CharToByte(line string, charCol int) int {
	if charCol <= 0 {
		return 0
	}
	n := 0
	for i := range line {
		if n == charCol {
			return i
		}
		n++
	}
	return len(line)
}

// ToProtocol converts an editor position to a protocol position.
func ToProtocol(line string, row, byteCol int) protocol.Position {
	if row < 0 {
		row = 0
	}
	return protocol.Position{
		Line:      uint32(row),
		Character: uint32(ByteToChar(line, byteCol)),
	}
}

// FromProtocol converts a protocol position to an editor byte column on line.
func FromProtocol(line string, pos protocol.Position) (row, byteCol int) {
	return int(pos.Line), CharToByte(line, int(pos.Character))
}

// LineSource gives position conversion access to a document's lines.
type LineSource interface {
	Line(row int) string
}

// RangeToBytes converts a protocol range into editor coordinates.
func RangeToBytes(src LineSource, r protocol.Range) (startRow, startCol, endRow, endCol int) {
	startRow, startCol = FromProtocol(src.Line(int(r.Start.Line)), r.Start)
	endRow, endCol = FromProtocol(src.Line(int(r.End.Line)), r.End)
	return startRow, startCol, endRow, endCol
}
