package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/weft/internal/renderer/core"
)

func feed(rows, cols int, chunks ...string) (*Screen, *Parser) {
	s := NewScreen(rows, cols)
	p := NewParser(s)
	for _, c := range chunks {
		p.Parse([]byte(c))
	}
	return s, p
}

func TestParserPlainText(t *testing.T) {
	s, _ := feed(3, 10, "hello\r\nworld")
	assert.Equal(t, "hello\nworld\n", s.Text())
}

func TestParserCursorMovement(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRow int
		wantCol int
	}{
		{"home", "abc\x1b[H", 0, 0},
		{"absolute", "\x1b[3;5H", 2, 4},
		{"clamped", "\x1b[99;99H", 4, 9},
		{"up", "\x1b[4;1H\x1b[2A", 1, 0},
		{"down default", "\x1b[B", 1, 0},
		{"forward", "\x1b[3C", 0, 3},
		{"back clamped", "\x1b[9D", 0, 0},
		{"column", "\x1b[7G", 0, 6},
		{"row", "\x1b[4d", 3, 0},
		{"next line", "ab\x1b[2E", 2, 0},
		{"backspace", "ab\b", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := feed(5, 10, tt.input)
			row, col := s.Cursor()
			assert.Equal(t, tt.wantRow, row)
			assert.Equal(t, tt.wantCol, col)
		})
	}
}

func TestParserSplitSequences(t *testing.T) {
	// Escape sequences and UTF-8 may be split anywhere between reads.
	s, _ := feed(2, 10, "\x1b", "[", "2;", "3H", "\xe4\xb8", "\x96", "x")
	assert.Equal(t, "", s.Line(0))
	assert.Equal(t, "  世x", s.Line(1))
}

func TestParserInvalidUTF8(t *testing.T) {
	s, _ := feed(1, 10, "a\xe4b")
	assert.Equal(t, "a�b", s.Line(0))
}

func TestParserSGR(t *testing.T) {
	s, _ := feed(1, 10, "\x1b[1;31mA\x1b[0mB\x1b[38;5;200;48;2;1;2;3mC\x1b[94;4mD\x1b[24;39mE")

	a := s.Cell(0, 0).Style
	assert.True(t, a.Attributes.Has(core.AttrBold))
	assert.Equal(t, core.ColorFromIndex(1), a.Foreground)

	assert.True(t, s.Cell(0, 1).Style.Equals(core.DefaultStyle()))

	c := s.Cell(0, 2).Style
	assert.Equal(t, core.ColorFromIndex(200), c.Foreground)
	assert.Equal(t, core.ColorFromRGB(1, 2, 3), c.Background)

	d := s.Cell(0, 3).Style
	assert.Equal(t, core.ColorFromIndex(12), d.Foreground)
	assert.True(t, d.Attributes.Has(core.AttrUnderline))

	e := s.Cell(0, 4).Style
	assert.False(t, e.Attributes.Has(core.AttrUnderline))
	assert.True(t, e.Foreground.Default)
	assert.Equal(t, core.ColorFromRGB(1, 2, 3), e.Background)
}

func TestParserErase(t *testing.T) {
	s, _ := feed(3, 5, "aaaaa\r\nbbbbb\r\nccccc\x1b[2;3H\x1b[J")
	assert.Equal(t, "aaaaa\nbb\n", s.Text())

	s, _ = feed(3, 5, "aaaaa\r\nbbbbb\r\nccccc\x1b[2;3H\x1b[1J")
	assert.Equal(t, "\n   bb\nccccc", s.Text())

	s, _ = feed(3, 5, "aaaaa\r\nbbbbb\x1b[2J")
	assert.Equal(t, "\n\n", s.Text())

	s, _ = feed(1, 5, "abcde\x1b[3G\x1b[2X")
	assert.Equal(t, "ab  e", s.Line(0))
}

func TestParserScrollRegion(t *testing.T) {
	s, _ := feed(4, 5, "1\r\n2\r\n3\r\n4", "\x1b[2;3r", "\x1b[3;1H\n")
	assert.Equal(t, "1\n3\n\n4", s.Text())
}

func TestParserReverseIndex(t *testing.T) {
	s, _ := feed(3, 5, "a\r\nb\x1b[H\x1bM")
	assert.Equal(t, "\na\nb", s.Text())
}

func TestParserSaveRestoreCursor(t *testing.T) {
	s, _ := feed(3, 10, "ab\x1b7\x1b[3;3Hz\x1b8c")
	assert.Equal(t, "abc", s.Line(0))
	assert.Equal(t, "  z", s.Line(2))

	s, _ = feed(3, 10, "\x1b[2;4H\x1b[s\x1b[H\x1b[u")
	row, col := s.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 3, col)
}

func TestParserPrivateModes(t *testing.T) {
	s, _ := feed(3, 10, "\x1b[?25l\x1b[?1h")
	assert.False(t, s.CursorVisible())
	assert.True(t, s.AppCursor())

	p := NewParser(s)
	p.Parse([]byte("\x1b[?25;1h"))
	assert.True(t, s.CursorVisible())
	assert.True(t, s.AppCursor())

	p.Parse([]byte("\x1b[?25;1l"))
	assert.False(t, s.CursorVisible())
	assert.False(t, s.AppCursor())
}

func TestParserAltScreen(t *testing.T) {
	s, p := feed(3, 10, "shell$ ", "\x1b[?1049h\x1b[Hfullscreen")
	assert.True(t, s.AltScreen())
	assert.Equal(t, "fullscreen", s.Line(0))

	p.Parse([]byte("\x1b[?1049l"))
	assert.False(t, s.AltScreen())
	assert.Equal(t, "shell$", s.Line(0))
	_, col := s.Cursor()
	assert.Equal(t, 7, col)
}

func TestParserTitle(t *testing.T) {
	s, p := feed(1, 10, "\x1b]0;first\x07")
	assert.Equal(t, "first", s.Title())

	p.Parse([]byte("\x1b]2;sec"))
	p.Parse([]byte("ond\x1b\\after"))
	assert.Equal(t, "second", s.Title())
	assert.Equal(t, "after", s.Line(0))

	// Other OSC commands are consumed without effect.
	p.Parse([]byte("\x1b]52;c;Zm9v\x07"))
	assert.Equal(t, "second", s.Title())
}

func TestParserIgnoresDCS(t *testing.T) {
	s, _ := feed(1, 10, "\x1bPq#0;2;0;0;0\x1b\\ok")
	assert.Equal(t, "ok", s.Line(0))
}

func TestParserDECGraphics(t *testing.T) {
	s, _ := feed(1, 10, "\x1b(0lqk\x1b(Bq")
	assert.Equal(t, "┌─┐q", s.Line(0))
}

func TestParserReplies(t *testing.T) {
	_, p := feed(5, 10, "\x1b[3;4H\x1b[6n")
	assert.Equal(t, "\x1b[3;4R", string(p.TakeReply()))
	assert.Nil(t, p.TakeReply())

	p.Parse([]byte("\x1b[5n\x1b[c"))
	assert.Equal(t, "\x1b[0n\x1b[?62;22c", string(p.TakeReply()))
}

func TestParserControlInsideCSI(t *testing.T) {
	// C0 controls act even in the middle of a sequence.
	s, _ := feed(2, 10, "ab\x1b[\r1Cx")
	assert.Equal(t, "ax", s.Line(0))
}

func TestParserFullReset(t *testing.T) {
	s, _ := feed(2, 10, "\x1b[1mtext\x1b[?25l\x1bc")
	assert.Equal(t, "\n", s.Text())
	assert.True(t, s.CursorVisible())
	assert.True(t, s.Cell(0, 0).Style.Equals(core.DefaultStyle()))
}
