package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/reactor"
	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/session"
	"github.com/dshills/weft/internal/terminal"
)

// source is the owner of a watched descriptor. Exactly one of the
// pointers is set for terminals and servers; the zero value is the
// keyboard.
type source struct {
	window *session.Window
	term   *terminal.Session
	conn   *lsp.Connection
}

// Step runs one reactor iteration: rebuild the watch set, wait at most one
// tick, service ready descriptors (keyboard first, then terminals and
// language servers in window order, one read each), run housekeeping and
// draw a frame.
func (app *Application) Step() {
	app.metrics.Iteration()
	app.watch()

	ready, err := app.poller.Wait()
	if err != nil {
		app.metrics.PollError()
		app.log.Warn("readiness wait failed", zap.Error(err))
	}
	for _, r := range ready {
		app.service(r)
	}

	app.housekeeping()
	app.render()
}

// watch rebuilds the descriptor set from the session tree in one pass over
// workspaces and windows in index order. A server is watched at the first
// window bound to it.
func (app *Application) watch() {
	p := app.poller
	p.Reset()
	p.Add(app.keys.Fd(), source{})

	seen := make(map[*lsp.Connection]bool)
	for _, ws := range app.session.Workspaces() {
		for _, w := range ws.Windows {
			switch pane := w.Pane.(type) {
			case *session.TerminalPane:
				if pane.Session.Alive() {
					p.Add(pane.Session.Fd(), source{window: w, term: pane.Session})
				}
			case *session.EditorPane:
				if pane.Doc == nil {
					continue
				}
				conn := pane.Doc.Connection()
				if conn == nil || seen[conn] {
					continue
				}
				seen[conn] = true
				if conn.State().Readable() {
					p.Add(conn.Fd(), source{conn: conn})
				}
			case *session.ExplorerPane:
			}
		}
	}
}

// service handles one ready descriptor. Owners are checked against the
// tree first: keyboard handling earlier in the same iteration may have
// closed the window or restarted the server behind this entry.
func (app *Application) service(r reactor.Ready[source]) {
	src := r.Owner
	switch {
	case src.term != nil:
		tp := src.window.Terminal()
		if tp == nil || tp.Session != src.term || src.term.Fd() != r.Fd {
			return
		}
		app.metrics.Read(sourceTerminal)
		alive, err := src.term.Service(app.buf)
		if err != nil {
			app.log.Debug("terminal read", zap.String("window", src.window.ID), zap.Error(err))
		}
		if !alive {
			app.finishTerminal(src.window)
		}
	case src.conn != nil:
		if src.conn.Fd() != r.Fd || !src.conn.State().Readable() {
			return
		}
		app.metrics.Read(sourceServer)
		src.conn.Service(app.buf)
	default:
		app.metrics.Read(sourceKeyboard)
		for _, ev := range app.keys.Drain() {
			app.handleEvent(ev)
		}
		if app.keys.Ended() {
			app.inputEnded = true
		}
	}
}

func (app *Application) handleEvent(ev backend.Event) {
	switch ev.Type {
	case backend.EventKey:
		app.handleKey(ev)
	case backend.EventResize:
		app.session.Resize(app.renderer.Area())
	case backend.EventNone:
	}
}

// finishTerminal turns a terminal whose child is gone into the finished
// placeholder.
func (app *Application) finishTerminal(w *session.Window) {
	app.session.ConvertFinishedTerminal(w)
	app.metrics.TerminalDeath()
}

// housekeeping runs every iteration, timeouts included.
func (app *Application) housekeeping() {
	for _, ws := range app.session.Workspaces() {
		for _, w := range ws.Windows {
			if tp := w.Terminal(); tp != nil && tp.Session.Reap() {
				app.finishTerminal(w)
			}
		}
	}
	app.lsp.Tick()
	app.checkExternalChanges()
	app.autosave()
	app.recordTree()
}

// render draws one frame.
func (app *Application) render() {
	start := time.Now()
	app.renderer.Draw(app.session)
	app.metrics.ObserveFrame(time.Since(start))
}

func (app *Application) recordTree() {
	windows := map[string]int{
		session.KindEditor.String():   0,
		session.KindTerminal.String(): 0,
		session.KindExplorer.String(): 0,
	}
	for _, ws := range app.session.Workspaces() {
		for _, w := range ws.Windows {
			windows[w.Kind().String()]++
		}
	}
	app.metrics.SetTree(len(app.session.Workspaces()), windows)
}
