package renderer

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/weft/internal/layout"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/renderer/core"
	"github.com/dshills/weft/internal/renderer/statusline"
	"github.com/dshills/weft/internal/session"
)

// Theme holds the configurable colours.
type Theme struct {
	Border       core.Color
	ActiveBorder core.Color
	StatusBar    core.Color
}

// DefaultTheme returns the built-in colours.
func DefaultTheme() Theme {
	return Theme{
		Border:       core.ColorFromIndex(240),
		ActiveBorder: core.ColorFromIndex(75),
		StatusBar:    core.ColorFromIndex(236),
	}
}

// ThemeFromColors converts parsed configuration colours.
func ThemeFromColors(border, active, status colorful.Color) Theme {
	return Theme{
		Border:       toColor(border),
		ActiveBorder: toColor(active),
		StatusBar:    toColor(status),
	}
}

func toColor(c colorful.Color) core.Color {
	r, g, b := c.Clamped().RGB255()
	return core.ColorFromRGB(r, g, b)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTheme sets the colours.
func WithTheme(t Theme) Option {
	return func(r *Renderer) { r.theme = t }
}

// WithTabWidth sets the tab stop distance in editor views.
func WithTabWidth(n int) Option {
	return func(r *Renderer) { r.tabs = NewTabExpander(n) }
}

// Renderer draws a session tree.
type Renderer struct {
	backend backend.Backend
	theme   Theme
	tabs    *TabExpander
	status  *statusline.StatusLine

	title  string
	frames uint64

	// cursor is the screen position requested by the frame being drawn.
	cursorX, cursorY int
	cursorShown      bool
}

// New creates a renderer drawing onto b.
func New(b backend.Backend, opts ...Option) *Renderer {
	r := &Renderer{
		backend: b,
		theme:   DefaultTheme(),
		tabs:    NewTabExpander(DefaultTabWidth),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.status = statusline.New(statusline.DefaultStyles(r.theme.StatusBar))
	return r
}

// Area returns the part of the screen available to windows: everything
// but the status line.
func (r *Renderer) Area() layout.Rect {
	w, h := r.backend.Size()
	return layout.Rect{Height: max(h-1, 0), Width: w}
}

// Frames returns the number of frames drawn.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Draw renders the active workspace and the status line. A structural
// change since the last frame forces a full repaint.
func (r *Renderer) Draw(m *session.Manager) {
	full := m.TakeDirty()
	width, height := r.backend.Size()
	r.backend.Clear()
	r.cursorShown = false

	if ws := m.Active(); ws != nil {
		for i, win := range ws.Windows {
			r.drawWindow(win, i == ws.Active)
		}
		if win := ws.ActiveWindow(); win != nil {
			if p := win.Editor(); p != nil {
				r.drawOverlays(p, win.Inner())
			}
		}
	}
	if height > 0 {
		r.drawStatus(m, width, height-1)
	}

	if r.cursorShown {
		r.backend.ShowCursor(r.cursorX, r.cursorY)
	} else {
		r.backend.HideCursor()
	}
	r.setTitle(m)

	if full {
		r.backend.Sync()
	} else {
		r.backend.Show()
	}
	r.frames++
}

func (r *Renderer) showCursor(x, y int) {
	r.cursorX, r.cursorY = x, y
	r.cursorShown = true
}

func (r *Renderer) setTitle(m *session.Manager) {
	title := "weft"
	if win := m.ActiveWindow(); win != nil {
		title = win.Title() + " - weft"
	}
	if title != r.title {
		r.title = title
		r.backend.SetTitle(title)
	}
}

func (r *Renderer) drawStatus(m *session.Manager, width, row int) {
	s := r.status
	s.Resize(width)
	s.SetMessage(m.Status())

	if p := m.Prompt(); p != nil {
		s.SetPrompt(true, p.Label, p.Input)
		s.Render(r.backend, row)
		r.showCursor(min(core.StringWidth(p.Label+p.Input), max(width-1, 0)), row)
		return
	}
	s.SetPrompt(false, "", "")

	if ws := m.Active(); ws != nil {
		s.SetWorkspace(m.ActiveIndex(), len(m.Workspaces()), ws.EffectiveMode().String())
	} else {
		s.SetWorkspace(-1, 0, "")
	}
	s.SetWindow("", false)
	s.SetPosition(0, 0)
	s.SetDiagnostics(0, 0, "")

	if win := m.ActiveWindow(); win != nil {
		switch p := win.Pane.(type) {
		case *session.EditorPane:
			s.SetWindow(p.Buffer.Name(), p.Buffer.Modified())
			row, col := p.Buffer.Cursor()
			s.SetPosition(row+1, r.tabs.OffsetToColumn(p.Buffer.Line(row), col)+1)
			if p.Doc != nil {
				errs, warns := p.Doc.Counts()
				s.SetDiagnostics(errs, warns, serverLabel(p))
			}
		case *session.TerminalPane, *session.ExplorerPane:
			s.SetWindow(win.Title(), false)
		}
	}
	s.Render(r.backend, row)
}

// serverLabel names the language server while it is not ready.
func serverLabel(p *session.EditorPane) string {
	conn := p.Doc.Connection()
	if conn == nil || conn.State() == lsp.StateReady {
		return ""
	}
	return conn.Name() + " " + conn.State().String()
}
