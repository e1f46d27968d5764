package app

import (
	"errors"
	"path/filepath"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/session"
)

// chord identifies a key press independent of the pane it lands in.
type chord struct {
	key backend.Key
	r   rune
	mod backend.ModMask
}

func keyChord(k backend.Key, mod backend.ModMask) chord { return chord{key: k, mod: mod} }

func altChord(r rune) chord { return chord{key: backend.KeyRune, r: r, mod: backend.ModAlt} }

func ctrlChord(r rune) chord { return chord{key: backend.KeyRune, r: r, mod: backend.ModCtrl} }

func chordOf(ev backend.Event) chord {
	c := chord{key: ev.Key, mod: ev.Mod}
	if ev.Key == backend.KeyRune {
		c.r = ev.Rune
	}
	return c
}

// action is a named command bound to a chord.
type action struct {
	name string
	run  func(app *Application)
}

// globalKeys are handled before the focused pane sees the key, so they
// work inside terminals too.
var globalKeys = map[chord]action{
	keyChord(backend.KeyRight, backend.ModCtrl): {"window.next", func(app *Application) { app.session.SwitchWindow(1) }},
	keyChord(backend.KeyLeft, backend.ModCtrl):  {"window.prev", func(app *Application) { app.session.SwitchWindow(-1) }},
	altChord(']'): {"workspace.next", func(app *Application) { app.session.SwitchWorkspace(1) }},
	altChord('['): {"workspace.prev", func(app *Application) { app.session.SwitchWorkspace(-1) }},
	altChord('c'): {"workspace.new", (*Application).newWorkspace},
	altChord('n'): {"editor.new", func(app *Application) { app.openWindow(app.session.OpenEditor("")) }},
	altChord('t'): {"terminal.new", func(app *Application) { app.openWindow(app.session.OpenTerminal(nil)) }},
	altChord('e'): {"explorer.new", (*Application).openExplorer},
	altChord('q'): {"window.close", (*Application).closeWindow},
	altChord('w'): {"workspace.close", (*Application).closeWorkspace},
	altChord('l'): {"layout.cycle", func(app *Application) { app.session.CycleLayoutMode() }},
	altChord('r'): {"lsp.restart", (*Application).restartServer},
}

func init() {
	for i := 1; i <= 9; i++ {
		target := i - 1
		globalKeys[altChord(rune('0'+i))] = action{
			name: "window.move",
			run: func(app *Application) {
				app.report(app.session.MoveWindowToWorkspace(target))
			},
		}
	}
}

// handleKey routes one key press: an open prompt takes every key, then
// global chords, then the focused pane.
func (app *Application) handleKey(ev backend.Event) {
	app.metrics.Key()

	if p := app.session.Prompt(); p != nil {
		app.promptKey(p, ev)
		return
	}
	app.session.ClearStatus()

	if a, ok := globalKeys[chordOf(ev)]; ok {
		app.log.Debug("action", zap.String("name", a.name))
		a.run(app)
		return
	}

	w := app.session.ActiveWindow()
	if w == nil {
		return
	}
	switch pane := w.Pane.(type) {
	case *session.EditorPane:
		app.editorKey(w, pane, ev)
	case *session.TerminalPane:
		if err := pane.Session.SendKey(ev); err != nil {
			app.log.Debug("terminal write", zap.String("window", w.ID), zap.Error(err))
		}
	case *session.ExplorerPane:
		app.explorerKey(w, pane, ev)
	}
}

func (app *Application) promptKey(p *session.Prompt, ev backend.Event) {
	switch ev.Key {
	case backend.KeyEscape:
		app.session.SetPrompt(nil)
	case backend.KeyEnter:
		app.session.SetPrompt(nil)
		if p.Submit != nil {
			p.Submit(p.Input)
		}
	case backend.KeyBackspace:
		p.Backspace()
	case backend.KeyRune:
		if ev.Mod&^backend.ModShift == 0 {
			p.Insert(ev.Rune)
		}
	}
	app.session.MarkDirty()
}

func (app *Application) openWindow(_ *session.Window, err error) {
	app.report(err)
}

func (app *Application) newWorkspace() {
	app.session.CreateWorkspace()
}

// openExplorer browses the directory of the active file, or the root.
func (app *Application) openExplorer() {
	dir := app.opts.Root
	if p := app.activeEditor(); p != nil && p.Buffer.Path() != "" {
		dir = filepath.Dir(p.Buffer.Path())
	}
	app.openWindow(app.session.OpenExplorer(dir))
}

func (app *Application) closeWindow() {
	err := app.session.CloseActiveWindow()
	if errors.Is(err, session.ErrUnsavedChanges) {
		app.session.SetStatus("unsaved changes; save with Ctrl+S first")
		return
	}
	app.report(err)
}

func (app *Application) closeWorkspace() {
	err := app.session.CloseActiveWorkspace()
	if errors.Is(err, session.ErrUnsavedChanges) {
		app.session.SetStatus("workspace has unsaved changes")
		return
	}
	app.report(err)
}

// restartServer restarts the language server of the active editor.
func (app *Application) restartServer() {
	p := app.activeEditor()
	if p == nil || p.Doc == nil {
		app.report(ErrNoLanguageServer)
		return
	}
	if err := app.lsp.Restart(p.Doc); err != nil {
		app.report(NewOperationError("restart", p.Buffer.Name(), err))
		return
	}
	app.session.SetStatus("restarting %s", p.Doc.Connection().Name())
}

func (app *Application) editorKey(w *session.Window, p *session.EditorPane, ev backend.Event) {
	p.Hover = ""
	if p.Popup != nil {
		if app.popupKey(p, ev) {
			return
		}
		p.Popup = nil
	}

	b := p.Buffer
	switch chordOf(ev) {
	case keyChord(backend.KeyEscape, 0):
		p.DismissOverlays()
	case keyChord(backend.KeyUp, 0):
		b.MoveVertical(-1)
	case keyChord(backend.KeyDown, 0):
		b.MoveVertical(1)
	case keyChord(backend.KeyLeft, 0):
		b.MoveLeft()
	case keyChord(backend.KeyRight, 0):
		b.MoveRight()
	case keyChord(backend.KeyHome, 0):
		b.MoveHome()
	case keyChord(backend.KeyEnd, 0):
		b.MoveEnd()
	case keyChord(backend.KeyPageUp, 0):
		b.MoveVertical(-max(w.Inner().Height, 1))
	case keyChord(backend.KeyPageDown, 0):
		b.MoveVertical(max(w.Inner().Height, 1))
	case keyChord(backend.KeyEnter, 0):
		app.edit(p, b.Newline)
	case keyChord(backend.KeyTab, 0):
		app.edit(p, func() error { return b.Insert("\t") })
	case keyChord(backend.KeyBackspace, 0):
		app.edit(p, b.Backspace)
	case keyChord(backend.KeyDelete, 0):
		app.edit(p, b.Delete)
	case ctrlChord('s'):
		app.save(p)
	case ctrlChord(' '):
		app.request(p, "completion", app.lsp.Completion)
	case keyChord(backend.KeyF1, 0):
		app.request(p, "hover", app.lsp.Hover)
	case keyChord(backend.KeyF12, 0):
		app.request(p, "definition", app.lsp.Definition)
	case keyChord(backend.KeyF12, backend.ModShift):
		app.request(p, "references", app.lsp.References)
	case keyChord(backend.KeyF2, 0):
		app.promptRename(p)
	case keyChord(backend.KeyF3, 0):
		app.symbols(p)
	default:
		if ev.Key == backend.KeyRune && ev.Mod&^backend.ModShift == 0 {
			app.edit(p, func() error { return b.InsertRune(ev.Rune) })
		}
	}
}

// edit runs fn and tells the language server when the text changed.
func (app *Application) edit(p *session.EditorPane, fn func() error) {
	rev := p.Buffer.Revision()
	if err := fn(); err != nil {
		app.report(err)
		return
	}
	if p.Buffer.Revision() != rev {
		app.lsp.Change(p.Doc)
	}
}

func (app *Application) save(p *session.EditorPane) {
	b := p.Buffer
	if err := b.Save(); err != nil {
		app.report(NewOperationError("save", b.Name(), err))
		return
	}
	app.files.settled(b.Path())
	app.session.SetStatus("wrote %s", b.Name())
}

// request sends a position request for the cursor of p.
func (app *Application) request(p *session.EditorPane, what string, send func(*lsp.Document, int, int) (jsonrpc2.ID, error)) {
	if p.Doc == nil {
		app.report(ErrNoLanguageServer)
		return
	}
	row, col := p.Buffer.Cursor()
	if _, err := send(p.Doc, row, col); err != nil {
		app.report(NewOperationError(what, p.Buffer.Name(), err))
	}
}

func (app *Application) symbols(p *session.EditorPane) {
	if p.Doc == nil {
		app.report(ErrNoLanguageServer)
		return
	}
	if _, err := app.lsp.DocumentSymbols(p.Doc); err != nil {
		app.report(NewOperationError("symbols", p.Buffer.Name(), err))
	}
}

// promptRename asks for the new name of the identifier under the cursor.
// The position is captured now; the cursor may move before Enter.
func (app *Application) promptRename(p *session.EditorPane) {
	if p.Doc == nil {
		app.report(ErrNoLanguageServer)
		return
	}
	doc := p.Doc
	row, col := p.Buffer.Cursor()
	name := p.Buffer.Name()
	app.session.SetPrompt(&session.Prompt{
		Label: "Rename to: ",
		Submit: func(input string) {
			if input == "" {
				return
			}
			if _, err := app.lsp.Rename(doc, row, col, input); err != nil {
				app.report(NewOperationError("rename", name, err))
			}
		},
	})
}

// popupKey handles keys for an open popup. It reports false for keys the
// popup does not use; those close it and are handled normally.
func (app *Application) popupKey(p *session.EditorPane, ev backend.Event) bool {
	if ev.Mod != 0 {
		return false
	}
	switch ev.Key {
	case backend.KeyUp:
		p.Popup.Move(-1)
	case backend.KeyDown:
		p.Popup.Move(1)
	case backend.KeyEscape:
		p.Popup = nil
	case backend.KeyEnter, backend.KeyTab:
		popup := p.Popup
		p.Popup = nil
		app.acceptPopup(p, popup)
	default:
		return false
	}
	return true
}

func (app *Application) acceptPopup(p *session.EditorPane, popup *session.Popup) {
	item, ok := popup.Current()
	if !ok {
		return
	}
	switch popup.Kind {
	case session.PopupCompletion:
		app.complete(p, popup.Anchor, item.Completion)
	case session.PopupLocations:
		app.jump(item.Path, item.Row, item.Col)
	}
}

// complete inserts c, replacing its edit range when the server gave one
// and the identifier prefix before the cursor otherwise.
func (app *Application) complete(p *session.EditorPane, anchor buffer.Point, c *lsp.CompletionItem) {
	if c == nil {
		return
	}
	b := p.Buffer
	row, col := b.Cursor()
	start, end := anchor, buffer.Point{Row: row, Col: col}
	if c.Edit != nil {
		sr, sc, er, ec := lsp.RangeToBytes(b, c.Edit.Range)
		start = buffer.Point{Row: sr, Col: sc}
		end = buffer.Point{Row: er, Col: ec}
		// The user may have typed past the range end since the request.
		if er == row {
			end.Col = max(ec, col)
		}
	}
	app.edit(p, func() error { return b.Replace(start, end, c.Text()) })
}

// jump shows path at row and byte column col, reusing an editor of the
// active workspace that already has it open.
func (app *Application) jump(path string, row, col int) {
	target := app.editorWindow(path)
	if target == nil {
		w, err := app.session.OpenEditor(path)
		if err != nil {
			app.report(err)
			return
		}
		target = w
	} else {
		app.session.Focus(target)
	}
	target.Editor().Buffer.SetCursor(row, col)
}

// editorWindow finds an editor window for path in the active workspace.
func (app *Application) editorWindow(path string) *session.Window {
	ws := app.session.Active()
	if ws == nil {
		return nil
	}
	for _, w := range ws.Windows {
		if p := w.Editor(); p != nil && p.Buffer.Path() == path {
			return w
		}
	}
	return nil
}

func (app *Application) explorerKey(w *session.Window, p *session.ExplorerPane, ev backend.Event) {
	ex := p.Explorer
	switch chordOf(ev) {
	case keyChord(backend.KeyUp, 0):
		ex.Move(-1)
	case keyChord(backend.KeyDown, 0):
		ex.Move(1)
	case keyChord(backend.KeyPageUp, 0):
		ex.Move(-max(w.Inner().Height, 1))
	case keyChord(backend.KeyPageDown, 0):
		ex.Move(max(w.Inner().Height, 1))
	case keyChord(backend.KeyEnter, 0):
		path, err := ex.Activate()
		if err != nil {
			app.report(err)
			return
		}
		if path != "" {
			app.openWindow(app.session.OpenEditor(path))
			return
		}
		p.Top = 0
	case keyChord(backend.KeyBackspace, 0):
		app.report(ex.Parent())
		p.Top = 0
	case keyChord(backend.KeyF5, 0):
		app.report(ex.Refresh())
	}
}
