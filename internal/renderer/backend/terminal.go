package backend

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/weft/internal/renderer/core"
)

// Terminal implements Backend using tcell for terminal output.
type Terminal struct {
	screen tcell.Screen
}

// NewTerminal creates a terminal backend on the controlling tty.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Terminal{screen: screen}, nil
}

// NewTerminalWithScreen wraps an existing screen, such as a
// tcell.SimulationScreen.
func NewTerminalWithScreen(screen tcell.Screen) *Terminal {
	return &Terminal{screen: screen}
}

func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnablePaste()
	return nil
}

func (t *Terminal) Shutdown() {
	t.screen.Fini()
}

func (t *Terminal) Size() (int, int) {
	return t.screen.Size()
}

func (t *Terminal) SetCell(x, y int, cell core.Cell) {
	if cell.IsContinuation() {
		return
	}
	t.screen.SetContent(x, y, cell.Rune, nil, convertStyle(cell.Style))
}

func (t *Terminal) Clear() { t.screen.Clear() }
func (t *Terminal) Show()  { t.screen.Show() }
func (t *Terminal) Sync()  { t.screen.Sync() }

func (t *Terminal) ShowCursor(x, y int) { t.screen.ShowCursor(x, y) }
func (t *Terminal) HideCursor()         { t.screen.HideCursor() }

func (t *Terminal) SetTitle(title string) { t.screen.SetTitle(title) }

// PollEvent blocks for the next key or resize. Other tcell events are
// skipped. It returns false once the screen has been finalized.
func (t *Terminal) PollEvent() (Event, bool) {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return Event{}, false
		}
		if out := convertEvent(ev); out.Type != EventNone {
			return out, true
		}
	}
}

func (t *Terminal) PostEvent(event Event) {
	var ev tcell.Event
	switch event.Type {
	case EventKey:
		ev = tcell.NewEventKey(toTcellKey(event.Key), event.Rune, toTcellMod(event.Mod))
	case EventResize:
		ev = tcell.NewEventResize(event.Width, event.Height)
	default:
		return
	}
	_ = t.screen.PostEvent(ev) // best-effort; queue may be full
}

// convertStyle converts our Style to tcell.Style.
func convertStyle(s core.Style) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(convertColor(s.Foreground)).
		Background(convertColor(s.Background))

	a := s.Attributes
	return style.
		Bold(a.Has(core.AttrBold)).
		Dim(a.Has(core.AttrDim)).
		Italic(a.Has(core.AttrItalic)).
		Underline(a.Has(core.AttrUnderline)).
		Blink(a.Has(core.AttrBlink)).
		Reverse(a.Has(core.AttrReverse)).
		StrikeThrough(a.Has(core.AttrStrikethrough))
}

func convertColor(c core.Color) tcell.Color {
	switch {
	case c.Default:
		return tcell.ColorDefault
	case c.Indexed:
		return tcell.PaletteColor(int(c.R))
	}
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func convertEvent(ev tcell.Event) Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		k, r, mod := convertKey(e.Key(), e.Rune(), convertMod(e.Modifiers()))
		if k == KeyNone {
			return Event{}
		}
		return KeyEvent(k, r, mod)
	case *tcell.EventResize:
		w, h := e.Size()
		return Event{Type: EventResize, Width: w, Height: h}
	}
	return Event{}
}

var specialKeys = map[tcell.Key]Key{
	tcell.KeyEscape:     KeyEscape,
	tcell.KeyEnter:      KeyEnter,
	tcell.KeyTab:        KeyTab,
	tcell.KeyBacktab:    KeyBacktab,
	tcell.KeyBackspace:  KeyBackspace,
	tcell.KeyBackspace2: KeyBackspace,
	tcell.KeyDelete:     KeyDelete,
	tcell.KeyInsert:     KeyInsert,
	tcell.KeyHome:       KeyHome,
	tcell.KeyEnd:        KeyEnd,
	tcell.KeyPgUp:       KeyPageUp,
	tcell.KeyPgDn:       KeyPageDown,
	tcell.KeyUp:         KeyUp,
	tcell.KeyDown:       KeyDown,
	tcell.KeyLeft:       KeyLeft,
	tcell.KeyRight:      KeyRight,
	tcell.KeyF1:         KeyF1,
	tcell.KeyF2:         KeyF2,
	tcell.KeyF3:         KeyF3,
	tcell.KeyF4:         KeyF4,
	tcell.KeyF5:         KeyF5,
	tcell.KeyF6:         KeyF6,
	tcell.KeyF7:         KeyF7,
	tcell.KeyF8:         KeyF8,
	tcell.KeyF9:         KeyF9,
	tcell.KeyF10:        KeyF10,
	tcell.KeyF11:        KeyF11,
	tcell.KeyF12:        KeyF12,
}

var tcellKeys = func() map[Key]tcell.Key {
	m := make(map[Key]tcell.Key, len(specialKeys))
	for tk, k := range specialKeys {
		if tk == tcell.KeyBackspace2 {
			continue
		}
		m[k] = tk
	}
	return m
}()

// convertKey folds tcell's several spellings of control chords into
// KeyRune+ModCtrl, and the F13-F24 range some terminals send for shifted
// function keys into F1-F12+ModShift.
func convertKey(k tcell.Key, r rune, mod ModMask) (Key, rune, ModMask) {
	if key, ok := specialKeys[k]; ok {
		return key, 0, mod
	}
	switch {
	case k == tcell.KeyRune:
		return KeyRune, r, mod
	case k == tcell.KeyCtrlSpace, k == tcell.KeyNUL:
		return KeyRune, ' ', mod | ModCtrl
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return KeyRune, 'a' + rune(k-tcell.KeyCtrlA), mod | ModCtrl
	case k > tcell.KeyNUL && k < tcell.KeyESC:
		return KeyRune, 'a' - 1 + rune(k), mod | ModCtrl
	case k >= tcell.KeyF13 && k <= tcell.KeyF24:
		return KeyF1 + Key(k-tcell.KeyF13), 0, mod | ModShift
	}
	return KeyNone, 0, mod
}

func toTcellKey(k Key) tcell.Key {
	if tk, ok := tcellKeys[k]; ok {
		return tk
	}
	return tcell.KeyRune
}

func convertMod(m tcell.ModMask) ModMask {
	var result ModMask
	if m&tcell.ModShift != 0 {
		result |= ModShift
	}
	if m&tcell.ModCtrl != 0 {
		result |= ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		result |= ModAlt
	}
	if m&tcell.ModMeta != 0 {
		result |= ModMeta
	}
	return result
}

func toTcellMod(m ModMask) tcell.ModMask {
	var result tcell.ModMask
	if m.Has(ModShift) {
		result |= tcell.ModShift
	}
	if m.Has(ModCtrl) {
		result |= tcell.ModCtrl
	}
	if m.Has(ModAlt) {
		result |= tcell.ModAlt
	}
	if m.Has(ModMeta) {
		result |= tcell.ModMeta
	}
	return result
}
