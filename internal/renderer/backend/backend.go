// Package backend abstracts the display surface the renderer draws onto and
// the input events it produces.
package backend

import (
	"sync"

	"github.com/dshills/weft/internal/renderer/core"
)

// EventType identifies the type of terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
)

// Event represents a terminal event.
//
// Control chords are reported as KeyRune with ModCtrl and the lower case
// letter in Rune, so Ctrl+S is {Key: KeyRune, Rune: 's', Mod: ModCtrl} and
// Ctrl+Space is {Key: KeyRune, Rune: ' ', Mod: ModCtrl}.
type Event struct {
	Type EventType

	Key  Key
	Rune rune
	Mod  ModMask

	Width, Height int
}

// KeyEvent is shorthand for building a key event.
func KeyEvent(k Key, r rune, mod ModMask) Event {
	return Event{Type: EventKey, Key: k, Rune: r, Mod: mod}
}

// RuneEvent is shorthand for a printable key event.
func RuneEvent(r rune, mod ModMask) Event {
	return KeyEvent(KeyRune, r, mod)
}

// Key represents a keyboard key.
type Key int

// Key constants for special keys.
const (
	KeyNone Key = iota
	KeyRune     // Regular character (use Rune field)
	KeyEscape
	KeyEnter
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// ModMask represents modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has returns true if the mask contains the given modifier.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// Backend is a cell surface plus an input event source.
//
// PollEvent blocks. It is the only method called off the main goroutine,
// and it returns false once Shutdown has been called so the caller's read
// loop can end.
type Backend interface {
	// Init initializes the backend for use.
	// Must be called before any other methods.
	Init() error

	// Shutdown releases backend resources and restores terminal state.
	Shutdown()

	// Size returns the current dimensions in cells.
	Size() (width, height int)

	// SetCell sets a single cell. Positions outside the surface and
	// continuation cells are ignored.
	SetCell(x, y int, cell core.Cell)

	// Clear blanks the whole surface.
	Clear()

	// Show flushes pending changes to the display.
	Show()

	// Sync repaints everything, discarding what the display is assumed
	// to hold.
	Sync()

	ShowCursor(x, y int)
	HideCursor()
	SetTitle(title string)

	PollEvent() (Event, bool)
	PostEvent(ev Event)
}

// NullBackend is an in-memory backend for tests.
type NullBackend struct {
	mu      sync.Mutex
	width   int
	height  int
	cells   []core.Cell
	cursorX int
	cursorY int
	visible bool
	title   string
	shows   int

	events chan Event
	closed chan struct{}
	once   sync.Once
}

// NewNullBackend creates a null backend with the given dimensions.
func NewNullBackend(width, height int) *NullBackend {
	b := &NullBackend{
		events: make(chan Event, 64),
		closed: make(chan struct{}),
	}
	b.resize(width, height)
	return b
}

func (b *NullBackend) Init() error { return nil }

func (b *NullBackend) Shutdown() {
	b.once.Do(func() { close(b.closed) })
}

func (b *NullBackend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// Resize changes the surface size and queues a resize event.
func (b *NullBackend) Resize(width, height int) {
	b.mu.Lock()
	b.resize(width, height)
	b.mu.Unlock()
	b.PostEvent(Event{Type: EventResize, Width: width, Height: height})
}

func (b *NullBackend) resize(width, height int) {
	b.width, b.height = width, height
	b.cells = make([]core.Cell, width*height)
	for i := range b.cells {
		b.cells[i] = core.EmptyCell()
	}
}

func (b *NullBackend) SetCell(x, y int, cell core.Cell) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || x >= b.width || y >= b.height || cell.IsContinuation() {
		return
	}
	b.cells[y*b.width+x] = cell
}

// Cell returns the cell at x, y.
func (b *NullBackend) Cell(x, y int) core.Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return core.EmptyCell()
	}
	return b.cells[y*b.width+x]
}

// Row returns row y as a string, skipping the cells hidden under wide runes.
func (b *NullBackend) Row(y int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if y < 0 || y >= b.height {
		return ""
	}
	var out []rune
	for x := 0; x < b.width; x++ {
		c := b.cells[y*b.width+x]
		out = append(out, c.Rune)
		if c.Width > 1 {
			x += c.Width - 1
		}
	}
	return string(out)
}

func (b *NullBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.cells {
		b.cells[i] = core.EmptyCell()
	}
}

func (b *NullBackend) Show() {
	b.mu.Lock()
	b.shows++
	b.mu.Unlock()
}

// Shows returns how many times Show has been called.
func (b *NullBackend) Shows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shows
}

func (b *NullBackend) Sync() { b.Show() }

func (b *NullBackend) ShowCursor(x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX, b.cursorY, b.visible = x, y, true
}

func (b *NullBackend) HideCursor() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = false
}

// Cursor returns the cursor position and visibility.
func (b *NullBackend) Cursor() (x, y int, visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursorX, b.cursorY, b.visible
}

func (b *NullBackend) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.title = title
}

// Title returns the last title set.
func (b *NullBackend) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title
}

func (b *NullBackend) PollEvent() (Event, bool) {
	select {
	case <-b.closed:
		return Event{}, false
	case ev := <-b.events:
		return ev, true
	}
}

// PostEvent queues ev. Events posted after Shutdown are dropped.
func (b *NullBackend) PostEvent(ev Event) {
	select {
	case <-b.closed:
	case b.events <- ev:
	}
}
