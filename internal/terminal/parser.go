package terminal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/weft/internal/renderer/core"
)

// Parser is an ANSI/VT state machine driving a Screen. Partial escape
// sequences and partial UTF-8 sequences are carried over between calls to
// Parse, so input may be split at any byte.
type Parser struct {
	screen *Screen

	state  parserState
	params []int
	inter  []byte
	osc    []byte

	utf8Buf []byte

	// reply collects bytes the child expects back, such as cursor
	// position reports.
	reply []byte
}

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCharset
	stateSkip
	stateCSI
	stateOSC
	stateOSCEscape
	stateString
)

const maxOSC = 4096

// NewParser creates a new ANSI parser for the given screen.
func NewParser(screen *Screen) *Parser {
	return &Parser{
		screen:  screen,
		params:  make([]int, 0, 16),
		inter:   make([]byte, 0, 4),
		osc:     make([]byte, 0, 256),
		utf8Buf: make([]byte, 0, utf8.UTFMax),
	}
}

// Parse feeds data through the state machine.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.processByte(b)
	}
}

// TakeReply returns and clears the pending reply bytes.
func (p *Parser) TakeReply() []byte {
	r := p.reply
	p.reply = nil
	return r
}

func (p *Parser) processByte(b byte) {
	// C0 controls act immediately inside escape and CSI sequences too.
	if b < 0x20 && b != 0x1B && p.state != stateOSC && p.state != stateString {
		p.flushUTF8()
		p.control(b)
		return
	}
	switch p.state {
	case stateGround:
		p.ground(b)
	case stateEscape:
		p.escape(b)
	case stateCharset:
		p.screen.graphics = b == '0'
		p.state = stateGround
	case stateSkip:
		p.state = stateGround
	case stateCSI:
		p.csi(b)
	case stateOSC:
		p.oscByte(b)
	case stateOSCEscape:
		if b == '\\' {
			p.handleOSC()
			p.state = stateGround
			return
		}
		p.handleOSC()
		p.state = stateEscape
		p.escape(b)
	case stateString:
		if b == 0x1B {
			p.state = stateOSCEscape
			p.osc = p.osc[:0]
		}
	}
}

func (p *Parser) control(b byte) {
	s := p.screen
	switch b {
	case 0x08:
		s.backspace()
	case 0x09:
		s.tab()
	case 0x0A, 0x0B, 0x0C:
		s.lineFeed()
	case 0x0D:
		s.carriageReturn()
	case 0x0E, 0x0F, 0x07:
		// SO/SI charset shifts and BEL are ignored.
	}
}

func (p *Parser) ground(b byte) {
	if b == 0x1B {
		p.flushUTF8()
		p.state = stateEscape
		return
	}
	if b < utf8.RuneSelf && len(p.utf8Buf) == 0 {
		if b != 0x7F {
			p.screen.put(rune(b))
		}
		return
	}
	if utf8.RuneStart(b) && len(p.utf8Buf) > 0 {
		p.flushUTF8()
		if b < utf8.RuneSelf {
			p.ground(b)
			return
		}
	}
	p.utf8Buf = append(p.utf8Buf, b)
	if utf8.FullRune(p.utf8Buf) {
		r, _ := utf8.DecodeRune(p.utf8Buf)
		p.utf8Buf = p.utf8Buf[:0]
		p.screen.put(r)
	}
}

// flushUTF8 writes a replacement character for an incomplete sequence.
func (p *Parser) flushUTF8() {
	if len(p.utf8Buf) > 0 {
		p.utf8Buf = p.utf8Buf[:0]
		p.screen.put(utf8.RuneError)
	}
}

func (p *Parser) escape(b byte) {
	s := p.screen
	p.state = stateGround
	switch b {
	case '[':
		p.state = stateCSI
		p.params = p.params[:0]
		p.inter = p.inter[:0]
	case ']':
		p.state = stateOSC
		p.osc = p.osc[:0]
	case 'P', 'X', '^', '_':
		p.state = stateString
	case '(':
		p.state = stateCharset
	case ')', '*', '+', '#', '%', ' ':
		// G1-G3 designations and other three-byte sequences.
		p.state = stateSkip
	case '7':
		s.saveCursor()
	case '8':
		s.restoreCursor()
	case 'D':
		s.lineFeed()
	case 'E':
		s.carriageReturn()
		s.lineFeed()
	case 'M':
		s.reverseLineFeed()
	case 'c':
		s.setAltScreen(false, false)
		s.reset()
	case '=', '>', '\\':
	}
}

func (p *Parser) csi(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if len(p.params) == 0 {
			p.params = append(p.params, 0)
		}
		last := &p.params[len(p.params)-1]
		if *last < 1<<16 {
			*last = *last*10 + int(b-'0')
		}
	case b == ';' || b == ':':
		if len(p.params) == 0 {
			p.params = append(p.params, 0)
		}
		p.params = append(p.params, 0)
	case b >= 0x3C && b <= 0x3F, b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
	case b >= 0x40 && b <= 0x7E:
		p.handleCSI(b)
		p.state = stateGround
	case b == 0x1B:
		p.state = stateEscape
	default:
		p.state = stateGround
	}
}

func (p *Parser) oscByte(b byte) {
	switch b {
	case 0x07:
		p.handleOSC()
		p.state = stateGround
	case 0x1B:
		p.state = stateOSCEscape
	default:
		if len(p.osc) < maxOSC {
			p.osc = append(p.osc, b)
		}
	}
}

func (p *Parser) handleOSC() {
	cmd, value, _ := strings.Cut(string(p.osc), ";")
	p.osc = p.osc[:0]
	switch cmd {
	case "0", "2":
		p.screen.title = value
		p.screen.dirty = true
	}
}

func (p *Parser) param(index, def int) int {
	if index < len(p.params) && p.params[index] > 0 {
		return p.params[index]
	}
	return def
}

func (p *Parser) private() byte {
	if len(p.inter) > 0 && p.inter[0] >= 0x3C && p.inter[0] <= 0x3F {
		return p.inter[0]
	}
	return 0
}

func (p *Parser) handleCSI(final byte) {
	s := p.screen
	priv := p.private()
	if priv != 0 && priv != '?' && final != 'c' {
		return
	}
	switch final {
	case 'A':
		s.moveBy(-p.param(0, 1), 0)
	case 'B', 'e':
		s.moveBy(p.param(0, 1), 0)
	case 'C', 'a':
		s.moveBy(0, p.param(0, 1))
	case 'D':
		s.moveBy(0, -p.param(0, 1))
	case 'E':
		s.moveBy(p.param(0, 1), 0)
		s.carriageReturn()
	case 'F':
		s.moveBy(-p.param(0, 1), 0)
		s.carriageReturn()
	case 'G', '`':
		s.col = min(p.param(0, 1)-1, s.cols-1)
	case 'H', 'f':
		s.moveTo(p.param(0, 1)-1, p.param(1, 1)-1)
	case 'd':
		row := p.param(0, 1) - 1
		if s.originMode {
			row += s.top
		}
		s.row = min(max(row, 0), s.rows-1)
	case 'J':
		s.eraseDisplay(p.param(0, 0))
	case 'K':
		s.eraseLine(p.param(0, 0))
	case 'L':
		s.insertLines(p.param(0, 1))
	case 'M':
		s.deleteLines(p.param(0, 1))
	case 'P':
		s.deleteChars(p.param(0, 1))
	case 'X':
		s.eraseChars(p.param(0, 1))
	case '@':
		s.insertChars(p.param(0, 1))
	case 'S':
		s.scrollUp(p.param(0, 1))
	case 'T':
		s.scrollDown(p.param(0, 1))
	case 'h', 'l':
		if priv == '?' {
			p.privateModes(final == 'h')
		}
	case 'm':
		if len(p.inter) == 0 {
			p.sgr()
		}
	case 'r':
		if priv == 0 {
			s.setScrollRegion(p.param(0, 1)-1, p.param(1, s.rows)-1)
		}
	case 's':
		s.saveCursor()
	case 'u':
		s.restoreCursor()
	case 'n':
		switch p.param(0, 0) {
		case 5:
			p.reply = append(p.reply, "\x1b[0n"...)
		case 6:
			row, col := s.Cursor()
			p.reply = fmt.Appendf(p.reply, "\x1b[%d;%dR", row+1, col+1)
		}
	case 'c':
		switch priv {
		case 0:
			p.reply = append(p.reply, "\x1b[?62;22c"...)
		case '>':
			p.reply = append(p.reply, "\x1b[>1;10;0c"...)
		}
	}
}

func (p *Parser) privateModes(set bool) {
	s := p.screen
	for _, mode := range p.params {
		switch mode {
		case 1:
			s.appCursor = set
		case 6:
			s.originMode = set
			s.moveTo(0, 0)
		case 7:
			s.autoWrap = set
		case 25:
			s.cursorVisible = set
			s.dirty = true
		case 47, 1047:
			s.setAltScreen(set, false)
		case 1049:
			s.setAltScreen(set, true)
		}
	}
}

// ansi16 maps SGR 30-37/90-97 offsets onto palette indices.
func ansi16(base, n int) core.Color {
	return core.ColorFromIndex(uint8(base + n))
}

func (p *Parser) sgr() {
	s := p.screen
	if len(p.params) == 0 {
		s.pen = core.DefaultStyle()
		return
	}
	for i := 0; i < len(p.params); i++ {
		n := p.params[i]
		switch {
		case n == 0:
			s.pen = core.DefaultStyle()
		case n == 1:
			s.pen = s.pen.With(core.AttrBold)
		case n == 2:
			s.pen = s.pen.With(core.AttrDim)
		case n == 3:
			s.pen = s.pen.With(core.AttrItalic)
		case n == 4 || n == 21:
			s.pen = s.pen.With(core.AttrUnderline)
		case n == 5:
			s.pen = s.pen.With(core.AttrBlink)
		case n == 7:
			s.pen = s.pen.With(core.AttrReverse)
		case n == 8:
			s.pen = s.pen.With(core.AttrHidden)
		case n == 9:
			s.pen = s.pen.With(core.AttrStrikethrough)
		case n == 22:
			s.pen.Attributes &^= core.AttrBold | core.AttrDim
		case n == 23:
			s.pen.Attributes &^= core.AttrItalic
		case n == 24:
			s.pen.Attributes &^= core.AttrUnderline
		case n == 25:
			s.pen.Attributes &^= core.AttrBlink
		case n == 27:
			s.pen.Attributes &^= core.AttrReverse
		case n == 28:
			s.pen.Attributes &^= core.AttrHidden
		case n == 29:
			s.pen.Attributes &^= core.AttrStrikethrough
		case n >= 30 && n <= 37:
			s.pen.Foreground = ansi16(0, n-30)
		case n == 38:
			var c core.Color
			if c, i = p.extendedColor(i); !c.Default {
				s.pen.Foreground = c
			}
		case n == 39:
			s.pen.Foreground = core.ColorDefault
		case n >= 40 && n <= 47:
			s.pen.Background = ansi16(0, n-40)
		case n == 48:
			var c core.Color
			if c, i = p.extendedColor(i); !c.Default {
				s.pen.Background = c
			}
		case n == 49:
			s.pen.Background = core.ColorDefault
		case n >= 90 && n <= 97:
			s.pen.Foreground = ansi16(8, n-90)
		case n >= 100 && n <= 107:
			s.pen.Background = ansi16(8, n-100)
		}
	}
}

// extendedColor decodes "38;5;n" and "38;2;r;g;b" starting at the 38/48
// parameter. It returns the colour (ColorDefault if malformed) and the
// index of the last parameter consumed.
func (p *Parser) extendedColor(i int) (core.Color, int) {
	if i+1 >= len(p.params) {
		return core.ColorDefault, i
	}
	switch p.params[i+1] {
	case 5:
		if i+2 < len(p.params) {
			return core.ColorFromIndex(clamp8(p.params[i+2])), i + 2
		}
	case 2:
		if i+4 < len(p.params) {
			return core.ColorFromRGB(clamp8(p.params[i+2]), clamp8(p.params[i+3]), clamp8(p.params[i+4])), i + 4
		}
	}
	return core.ColorDefault, len(p.params)
}

func clamp8(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
