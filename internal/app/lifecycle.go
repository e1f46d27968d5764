package app

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/reactor"
	"github.com/dshills/weft/internal/script"
	"github.com/dshills/weft/internal/session"
)

const keyboardQueue = 256

// Run initializes the backend, builds the first workspace and runs the
// reactor until the last workspace closes, the keyboard source ends or
// ctx is cancelled. Everything is torn down before it returns.
func (app *Application) Run(ctx context.Context) error {
	if app.started {
		return ErrAlreadyRunning
	}
	app.started = true

	if err := app.start(ctx); err != nil {
		return multierr.Append(err, app.Shutdown())
	}
	for !app.session.Quit() && !app.inputEnded && ctx.Err() == nil {
		app.Step()
	}

	var err error
	if app.inputEnded {
		err = ErrInputEnded
	}
	app.log.Info("reactor stopped",
		zap.Bool("quit", app.session.Quit()),
		zap.Bool("input_ended", app.inputEnded),
		zap.NamedError("context", ctx.Err()))
	return multierr.Append(err, app.Shutdown())
}

// start brings up the display and the keyboard pump, then builds the
// initial tree.
func (app *Application) start(ctx context.Context) error {
	if err := app.backend.Init(); err != nil {
		return &InitError{Component: "backend", Err: err}
	}
	app.backendUp = true

	keys, err := reactor.NewPump(app.backend.PollEvent, keyboardQueue)
	if err != nil {
		return &InitError{Component: "keyboard", Err: err}
	}
	app.keys = keys

	app.session.Resize(app.renderer.Area())
	app.session.CreateWorkspace()
	app.openInitialFiles()
	app.runStartupScript(ctx)
	app.render()
	return nil
}

// openInitialFiles opens the command-line files. When at least one opens,
// the scratch editor of the first workspace is dropped.
func (app *Application) openInitialFiles() {
	if len(app.opts.Files) == 0 {
		return
	}
	ws := app.session.Active()
	scratch := ws.ActiveWindow()
	for _, path := range app.opts.Files {
		if _, err := app.session.OpenEditor(path); err != nil {
			app.log.Warn("open failed", zap.String("path", path), zap.Error(err))
		}
	}
	if len(ws.Windows) < 2 {
		return
	}
	last := ws.ActiveWindow()
	app.session.Focus(scratch)
	if err := app.session.CloseActiveWindow(); err != nil {
		app.log.Debug("keeping scratch editor", zap.Error(err))
	}
	app.session.Focus(last)
}

func (app *Application) runStartupScript(ctx context.Context) {
	path := app.cfg.StartupScript
	if path == "" {
		return
	}
	log := app.log.WithComponent("script")
	s := script.NewState(app.session, script.WithLogger(log.Zap()))
	defer s.Close()
	if err := s.DoFile(ctx, path); err != nil {
		log.Warn("startup script failed", zap.String("path", path), zap.Error(err))
		app.session.SetStatus("startup script: %v", err)
		return
	}
	log.Info("startup script done", zap.String("path", path))
}

// Shutdown tears down every window, language server and helper
// synchronously. It is safe to call more than once.
func (app *Application) Shutdown() error {
	if app.closed {
		return nil
	}
	app.closed = true

	var err error
	if app.session != nil {
		err = multierr.Append(err, componentErr("session", "close", app.session.Close()))
	}
	if app.lsp != nil {
		err = multierr.Append(err, componentErr("lsp", "shutdown", app.lsp.Shutdown()))
	}
	if app.files != nil {
		err = multierr.Append(err, componentErr("filewatch", "close", app.files.Close()))
	}
	if app.exporter != nil {
		err = multierr.Append(err, componentErr("metrics", "close", app.exporter.Close()))
	}
	// The backend must be down before the pump is stopped: that is what
	// unblocks the pump's PollEvent.
	if app.backendUp {
		app.backend.Shutdown()
		app.backendUp = false
	}
	if app.keys != nil {
		app.keys.Stop()
	}
	for _, e := range multierr.Errors(err) {
		var ce *ComponentError
		if errors.As(e, &ce) {
			app.log.logComponentError(ce)
		}
	}
	return err
}

func componentErr(component, action string, err error) error {
	if err == nil {
		return nil
	}
	return NewComponentError(component, action, err)
}

// checkExternalChanges reloads the active editor when its file changed on
// disk and it has no unsaved edits, and warns otherwise.
func (app *Application) checkExternalChanges() {
	app.files.sync(app.editorPaths())
	app.files.collect()

	p := app.activeEditor()
	if p == nil || p.Buffer.Path() == "" {
		return
	}
	path := p.Buffer.Path()
	if !app.files.due(path) {
		return
	}
	changed, err := p.Buffer.ChangedOnDisk()
	if err != nil {
		app.log.Debug("stat failed", zap.String("path", path), zap.Error(err))
		return
	}
	if !changed {
		app.files.settled(path)
		return
	}
	if p.Buffer.Modified() {
		if app.files.warn(path) {
			app.session.SetStatus("%s changed on disk; buffer has unsaved edits", p.Buffer.Name())
		}
		return
	}
	if err := p.Buffer.Reload(); err != nil {
		app.report(NewOperationError("reload", path, err))
		return
	}
	app.files.settled(path)
	app.lsp.Change(p.Doc)
	app.session.SetStatus("reloaded %s", p.Buffer.Name())
	app.log.Info("reloaded after external change", zap.String("path", path))
}

// autosave writes every modified file-backed editor once per interval.
func (app *Application) autosave() {
	interval := app.cfg.AutosaveInterval
	if interval <= 0 {
		return
	}
	now := app.now()
	if app.lastAutosave.IsZero() {
		app.lastAutosave = now
		return
	}
	if now.Sub(app.lastAutosave) < interval {
		return
	}
	app.lastAutosave = now
	app.eachEditor(func(_ *session.Window, p *session.EditorPane) {
		b := p.Buffer
		if !b.Modified() || b.Path() == "" || b.ReadOnly() {
			return
		}
		err := b.Save()
		app.metrics.Autosave(err)
		if err != nil {
			app.report(NewOperationError("save", b.Path(), err).Because("autosave"))
			return
		}
		app.log.Debug("autosaved", zap.String("path", b.Path()))
	})
}

// eachEditor calls fn for every editor window in tree order.
func (app *Application) eachEditor(fn func(w *session.Window, p *session.EditorPane)) {
	for _, ws := range app.session.Workspaces() {
		for _, w := range ws.Windows {
			if p := w.Editor(); p != nil {
				fn(w, p)
			}
		}
	}
}

// editorPaths lists the files shown by editors.
func (app *Application) editorPaths() []string {
	var paths []string
	app.eachEditor(func(_ *session.Window, p *session.EditorPane) {
		if path := p.Buffer.Path(); path != "" {
			paths = append(paths, path)
		}
	})
	return paths
}

// activeEditor returns the editor of the active window, or nil.
func (app *Application) activeEditor() *session.EditorPane {
	if w := app.session.ActiveWindow(); w != nil {
		return w.Editor()
	}
	return nil
}

// report shows err on the status line and logs it.
func (app *Application) report(err error) {
	if err == nil {
		return
	}
	app.session.SetStatus("%v", err)
	app.log.Debug("command failed", zap.Error(err))
}
