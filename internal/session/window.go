package session

import (
	"github.com/google/uuid"

	"github.com/dshills/weft/internal/layout"
)

// Window is a rectangle of the screen hosting one pane.
type Window struct {
	ID   string
	Rect layout.Rect
	Pane Pane

	// Bordered is set when the workspace shows more than one window; the
	// border takes one cell on every side.
	Bordered bool
}

func newWindow(p Pane) *Window {
	return &Window{ID: uuid.NewString(), Pane: p}
}

// Kind derives the window kind from its payload.
func (w *Window) Kind() Kind {
	return w.Pane.Kind()
}

// Inner returns the content area inside the border.
func (w *Window) Inner() layout.Rect {
	return innerRect(w.Rect, w.Bordered)
}

func innerRect(r layout.Rect, bordered bool) layout.Rect {
	if bordered {
		return r.Inset(1)
	}
	return r
}

// Editor returns the editor payload, or nil.
func (w *Window) Editor() *EditorPane {
	p, _ := w.Pane.(*EditorPane)
	return p
}

// Terminal returns the terminal payload, or nil.
func (w *Window) Terminal() *TerminalPane {
	p, _ := w.Pane.(*TerminalPane)
	return p
}

// Explorer returns the explorer payload, or nil.
func (w *Window) Explorer() *ExplorerPane {
	p, _ := w.Pane.(*ExplorerPane)
	return p
}

// Title is the label drawn in the window border.
func (w *Window) Title() string {
	switch p := w.Pane.(type) {
	case *EditorPane:
		name := p.Buffer.Name()
		if p.Buffer.Modified() {
			name += " [+]"
		}
		return name
	case *TerminalPane:
		if t := p.Session.Screen().Title(); t != "" {
			return t
		}
		if argv := p.Session.Argv(); len(argv) > 0 {
			return argv[0]
		}
		return "terminal"
	case *ExplorerPane:
		return p.Explorer.Dir()
	}
	return ""
}

// Workspace is an ordered set of windows sharing one layout.
type Workspace struct {
	ID      string
	Windows []*Window
	Active  int
	Mode    layout.Mode
}

func newWorkspace(mode layout.Mode) *Workspace {
	return &Workspace{ID: uuid.NewString(), Mode: mode}
}

// ActiveWindow returns the active window, or nil if the workspace is
// empty.
func (ws *Workspace) ActiveWindow() *Window {
	if ws.Active < 0 || ws.Active >= len(ws.Windows) {
		return nil
	}
	return ws.Windows[ws.Active]
}

// Index returns the position of w, or -1.
func (ws *Workspace) Index(w *Window) int {
	for i, win := range ws.Windows {
		if win == w {
			return i
		}
	}
	return -1
}

// append adds w at the end and makes it active.
func (ws *Workspace) append(w *Window) {
	ws.Windows = append(ws.Windows, w)
	ws.Active = len(ws.Windows) - 1
}

// remove deletes the window at i, preserving the order of the rest. The
// active index moves to the previous window when the active one goes.
func (ws *Workspace) remove(i int) *Window {
	w := ws.Windows[i]
	ws.Windows = append(ws.Windows[:i], ws.Windows[i+1:]...)
	switch {
	case len(ws.Windows) == 0:
		ws.Active = 0
	case ws.Active > i, ws.Active == i && i > 0:
		ws.Active--
	}
	return w
}

// EffectiveMode is the layout actually used for the current window count.
func (ws *Workspace) EffectiveMode() layout.Mode {
	return layout.Effective(len(ws.Windows), ws.Mode)
}
