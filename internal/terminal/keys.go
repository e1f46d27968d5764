package terminal

import (
	"strconv"
	"unicode/utf8"

	"github.com/dshills/weft/internal/renderer/backend"
)

// csiFinal holds keys sent as CSI or SS3 with a final letter.
var csiFinal = map[backend.Key]byte{
	backend.KeyUp:    'A',
	backend.KeyDown:  'B',
	backend.KeyRight: 'C',
	backend.KeyLeft:  'D',
	backend.KeyHome:  'H',
	backend.KeyEnd:   'F',
	backend.KeyF1:    'P',
	backend.KeyF2:    'Q',
	backend.KeyF3:    'R',
	backend.KeyF4:    'S',
}

// csiTilde holds keys sent as CSI n ~.
var csiTilde = map[backend.Key]int{
	backend.KeyInsert:   2,
	backend.KeyDelete:   3,
	backend.KeyPageUp:   5,
	backend.KeyPageDown: 6,
	backend.KeyF5:       15,
	backend.KeyF6:       17,
	backend.KeyF7:       18,
	backend.KeyF8:       19,
	backend.KeyF9:       20,
	backend.KeyF10:      21,
	backend.KeyF11:      23,
	backend.KeyF12:      24,
}

// EncodeKey translates a key event into the bytes an xterm would send.
// appCursor selects SS3 arrow sequences (DECCKM). Events that have no
// encoding yield nil.
func EncodeKey(ev backend.Event, appCursor bool) []byte {
	if ev.Type != backend.EventKey {
		return nil
	}
	mod := ev.Mod
	var out []byte
	switch ev.Key {
	case backend.KeyRune:
		out = encodeRune(ev.Rune, mod)
		mod &^= backend.ModCtrl
	case backend.KeyEnter:
		out = []byte{'\r'}
	case backend.KeyTab:
		out = []byte{'\t'}
	case backend.KeyBacktab:
		return []byte("\x1b[Z")
	case backend.KeyBackspace:
		out = []byte{0x7f}
	case backend.KeyEscape:
		out = []byte{0x1b}
	default:
		return encodeSpecial(ev.Key, mod, appCursor)
	}
	if mod.Has(backend.ModAlt) && out != nil {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

func encodeRune(r rune, mod backend.ModMask) []byte {
	if mod.Has(backend.ModCtrl) {
		switch {
		case r >= 'a' && r <= 'z':
			return []byte{byte(r - 'a' + 1)}
		case r >= 'A' && r <= 'Z':
			return []byte{byte(r - 'A' + 1)}
		case r == ' ' || r == '@' || r == '2':
			return []byte{0}
		case r >= '[' && r <= '_':
			return []byte{byte(r - '@')}
		case r == '?':
			return []byte{0x7f}
		}
	}
	if !utf8.ValidRune(r) {
		return nil
	}
	return utf8.AppendRune(nil, r)
}

// modParam is xterm's modifier parameter: 1 + shift + 2*alt + 4*ctrl.
func modParam(mod backend.ModMask) int {
	n := 1
	if mod.Has(backend.ModShift) {
		n++
	}
	if mod.Has(backend.ModAlt) {
		n += 2
	}
	if mod.Has(backend.ModCtrl) {
		n += 4
	}
	return n
}

func encodeSpecial(k backend.Key, mod backend.ModMask, appCursor bool) []byte {
	m := modParam(mod)
	if final, ok := csiFinal[k]; ok {
		isFn := k >= backend.KeyF1 && k <= backend.KeyF4
		switch {
		case m > 1:
			return []byte("\x1b[1;" + strconv.Itoa(m) + string(final))
		case isFn || appCursor:
			return []byte{0x1b, 'O', final}
		default:
			return []byte{0x1b, '[', final}
		}
	}
	if n, ok := csiTilde[k]; ok {
		seq := "\x1b[" + strconv.Itoa(n)
		if m > 1 {
			seq += ";" + strconv.Itoa(m)
		}
		return []byte(seq + "~")
	}
	return nil
}
