// Package gutter renders the column to the left of editor text: a sign
// for the most severe diagnostic on the line and the line number.
package gutter

import (
	"strconv"

	"go.lsp.dev/protocol"
)

// Config holds gutter configuration.
type Config struct {
	// ShowLineNumbers enables line number display.
	ShowLineNumbers bool

	// MinLineNumberWidth is the minimum width for line numbers.
	MinLineNumberWidth int

	// ShowSigns enables the one-cell sign column.
	ShowSigns bool
}

// DefaultConfig returns the default gutter configuration.
func DefaultConfig() Config {
	return Config{
		ShowLineNumbers:    true,
		MinLineNumberWidth: 3,
		ShowSigns:          true,
	}
}

// SignType represents the type of sign to display.
type SignType uint8

const (
	SignNone SignType = iota
	SignHint
	SignInfo
	SignWarning
	SignError
)

// SignForSeverity maps a diagnostic severity to a sign. Servers may omit
// the severity; those diagnostics are shown as errors.
func SignForSeverity(sev protocol.DiagnosticSeverity) SignType {
	switch sev {
	case protocol.DiagnosticSeverityWarning:
		return SignWarning
	case protocol.DiagnosticSeverityInformation:
		return SignInfo
	case protocol.DiagnosticSeverityHint:
		return SignHint
	default:
		return SignError
	}
}

// SignProvider provides signs for the gutter.
type SignProvider interface {
	// SignsForLine returns the signs of a 0-based line.
	SignsForLine(line int) []SignType
}

// DiagnosticSigns provides one sign per diagnostic starting on a line.
type DiagnosticSigns []protocol.Diagnostic

// SignsForLine implements SignProvider.
func (d DiagnosticSigns) SignsForLine(line int) []SignType {
	var out []SignType
	for _, diag := range d {
		if int(diag.Range.Start.Line) == line {
			out = append(out, SignForSeverity(diag.Severity))
		}
	}
	return out
}

// CellStyle describes how to style a gutter cell.
type CellStyle uint8

const (
	StyleNormal CellStyle = iota
	StyleCurrentLine
	StyleDim
	StyleError
	StyleWarning
	StyleInfo
)

// Cell represents a single gutter cell.
type Cell struct {
	Rune  rune
	Style CellStyle
}

// Gutter lays out the gutter of one editor view. It is rebuilt for every
// frame and not safe for concurrent use.
type Gutter struct {
	config Config

	width       int
	lineCount   int
	currentLine int

	signs SignProvider
}

// New creates a new gutter with the given configuration.
func New(config Config) *Gutter {
	return &Gutter{
		config: config,
		width:  calculateWidth(config, 1),
	}
}

// Width returns the current gutter width.
func (g *Gutter) Width() int {
	return g.width
}

// SetLineCount updates the buffer length, which sets the number width.
func (g *Gutter) SetLineCount(count int) {
	g.lineCount = count
	g.width = calculateWidth(g.config, count)
}

// SetCurrentLine sets the cursor line, drawn highlighted.
func (g *Gutter) SetCurrentLine(line int) {
	g.currentLine = line
}

// SetSignProvider sets where signs come from. nil disables signs.
func (g *Gutter) SetSignProvider(p SignProvider) {
	g.signs = p
}

// RenderLine renders the gutter for a single line. exists is false for
// rows below the end of the buffer, which show a tilde.
func (g *Gutter) RenderLine(line int, exists bool) []Cell {
	if g.width == 0 {
		return nil
	}

	cells := make([]Cell, g.width)
	for i := range cells {
		cells[i] = Cell{Rune: ' ', Style: StyleNormal}
	}

	col := 0
	if g.config.ShowSigns {
		if exists {
			cells[col] = g.renderSign(line)
		}
		col++
	}

	if g.config.ShowLineNumbers {
		numWidth := g.lineNumberWidth()
		if exists {
			style := g.styleForLine(line)
			num := PadLeft(FormatNumber(line+1), numWidth)
			for _, r := range num {
				cells[col] = Cell{Rune: r, Style: style}
				col++
			}
		} else {
			cells[col+numWidth-1] = Cell{Rune: '~', Style: StyleDim}
		}
	}
	return cells
}

func (g *Gutter) styleForLine(line int) CellStyle {
	if line == g.currentLine {
		return StyleCurrentLine
	}
	return StyleDim
}

// renderSign returns the cell of the highest priority sign on line.
func (g *Gutter) renderSign(line int) Cell {
	if g.signs == nil {
		return Cell{Rune: ' ', Style: StyleNormal}
	}
	best := SignNone
	for _, s := range g.signs.SignsForLine(line) {
		if s > best {
			best = s
		}
	}
	r, style := signGlyph(best)
	return Cell{Rune: r, Style: style}
}

func (g *Gutter) lineNumberWidth() int {
	return max(countDigits(g.lineCount), g.config.MinLineNumberWidth)
}

// calculateWidth returns the sign column, the number column and one
// separator.
func calculateWidth(config Config, lineCount int) int {
	width := 0
	if config.ShowSigns {
		width++
	}
	if config.ShowLineNumbers {
		width += max(countDigits(lineCount), config.MinLineNumberWidth)
	}
	if width > 0 {
		width++
	}
	return width
}

func countDigits(n int) int {
	return len(strconv.Itoa(max(n, 0)))
}

// FormatNumber converts a number to a string.
func FormatNumber(n int) string {
	return strconv.Itoa(n)
}

// PadLeft pads s with spaces to width.
func PadLeft(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s
}

func signGlyph(st SignType) (rune, CellStyle) {
	switch st {
	case SignError:
		return 'E', StyleError
	case SignWarning:
		return 'W', StyleWarning
	case SignInfo:
		return 'I', StyleInfo
	case SignHint:
		return 'H', StyleInfo
	default:
		return ' ', StyleNormal
	}
}
