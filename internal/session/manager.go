package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/explorer"
	"github.com/dshills/weft/internal/layout"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/terminal"
)

// DocumentHost binds editor buffers to language servers. *lsp.Manager
// implements it.
type DocumentHost interface {
	Open(path string, src lsp.TextSource) (*lsp.Document, error)
	Close(doc *lsp.Document)
}

// Spawner starts a terminal session of the given size.
type Spawner func(argv []string, rows, cols int) (*terminal.Session, error)

// Manager is the root of the session tree: an ordered list of workspaces
// with one active. It is created once per editor process and passed
// explicitly to every component that needs it. Only the reactor goroutine
// may touch it.
type Manager struct {
	workspaces []*Workspace
	active     int

	area   layout.Rect
	mode   layout.Mode
	shell  []string
	docs   DocumentHost
	spawn  Spawner
	log    *zap.Logger
	status string
	prompt *Prompt

	quit  bool
	dirty bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithDocuments sets the language server binding for editors.
func WithDocuments(docs DocumentHost) Option {
	return func(m *Manager) { m.docs = docs }
}

// WithShell sets the command OpenTerminal runs when given no argv.
func WithShell(argv ...string) Option {
	return func(m *Manager) {
		if len(argv) > 0 {
			m.shell = argv
		}
	}
}

// WithSpawner overrides how terminal sessions are started.
func WithSpawner(spawn Spawner) Option {
	return func(m *Manager) {
		if spawn != nil {
			m.spawn = spawn
		}
	}
}

// WithLayout sets the layout mode of new workspaces.
func WithLayout(mode layout.Mode) Option {
	return func(m *Manager) { m.mode = mode }
}

// WithArea sets the initial screen area.
func WithArea(area layout.Rect) Option {
	return func(m *Manager) { m.area = area }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates an empty manager. Call CreateWorkspace to get the
// first window.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		shell: []string{"/bin/sh"},
		spawn: func(argv []string, rows, cols int) (*terminal.Session, error) {
			return terminal.Spawn(argv, rows, cols)
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Workspaces returns the workspaces in order.
func (m *Manager) Workspaces() []*Workspace { return m.workspaces }

// ActiveIndex returns the active workspace index, -1 when there is none.
func (m *Manager) ActiveIndex() int {
	if len(m.workspaces) == 0 {
		return -1
	}
	return m.active
}

// Active returns the active workspace, or nil.
func (m *Manager) Active() *Workspace {
	if len(m.workspaces) == 0 {
		return nil
	}
	return m.workspaces[m.active]
}

// ActiveWindow returns the active window of the active workspace, or nil.
func (m *Manager) ActiveWindow() *Window {
	if ws := m.Active(); ws != nil {
		return ws.ActiveWindow()
	}
	return nil
}

// Area returns the screen area windows are laid out in.
func (m *Manager) Area() layout.Rect { return m.area }

// Status returns the current status message.
func (m *Manager) Status() string { return m.status }

// SetStatus replaces the status message.
func (m *Manager) SetStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.dirty = true
}

// ClearStatus removes the status message.
func (m *Manager) ClearStatus() {
	if m.status != "" {
		m.status = ""
		m.dirty = true
	}
}

// Prompt returns the active prompt, or nil.
func (m *Manager) Prompt() *Prompt { return m.prompt }

// SetPrompt shows p in place of the status line. nil removes it.
func (m *Manager) SetPrompt(p *Prompt) {
	m.prompt = p
	m.dirty = true
}

// Quit reports whether the last workspace has been closed. The reactor
// exits when it sees this.
func (m *Manager) Quit() bool { return m.quit || len(m.workspaces) == 0 }

// MarkDirty requests a full redraw.
func (m *Manager) MarkDirty() { m.dirty = true }

// TakeDirty reports and clears the redraw request.
func (m *Manager) TakeDirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}

// fail records err as the status message and returns it.
func (m *Manager) fail(err error) error {
	m.SetStatus("%v", err)
	return err
}

// CreateWorkspace appends a workspace with one scratch editor and makes it
// active.
func (m *Manager) CreateWorkspace() *Workspace {
	ws := newWorkspace(m.mode)
	ws.append(newWindow(&EditorPane{Buffer: buffer.New("")}))
	m.workspaces = append(m.workspaces, ws)
	m.active = len(m.workspaces) - 1
	m.quit = false
	m.log.Debug("workspace created", zap.String("workspace", ws.ID), zap.Int("index", m.active))
	m.relayout()
	return ws
}

// CloseActiveWindow closes the active window. A modified editor is
// refused unless another window shows the same buffer. Closing a workspace's last window closes the workspace, and
// closing the last workspace sets the termination intent.
func (m *Manager) CloseActiveWindow() error {
	ws := m.Active()
	if ws == nil {
		return m.fail(ErrNoWorkspace)
	}
	w := ws.ActiveWindow()
	self := func(o *Window) bool { return o == w }
	if ed := w.Editor(); ed != nil && ed.Buffer.Modified() && !m.shownElsewhere(ed.Buffer, self) {
		return m.fail(fmt.Errorf("%s: %w", ed.Buffer.Name(), ErrUnsavedChanges))
	}
	err := m.closeWindow(ws, ws.Active)
	if len(ws.Windows) == 0 {
		m.removeWorkspace(m.active)
	}
	m.relayout()
	if err != nil {
		m.log.Warn("closing window", zap.String("window", w.ID), zap.Error(err))
	}
	return err
}

// CloseActiveWorkspace closes every window of the active workspace, last
// first, stopping at the first one with unsaved changes.
func (m *Manager) CloseActiveWorkspace() error {
	ws := m.Active()
	if ws == nil {
		return m.fail(ErrNoWorkspace)
	}
	inWorkspace := func(o *Window) bool { return ws.Index(o) >= 0 }
	for i, w := range ws.Windows {
		if ed := w.Editor(); ed != nil && ed.Buffer.Modified() && !m.shownElsewhere(ed.Buffer, inWorkspace) {
			ws.Active = i
			m.dirty = true
			return m.fail(fmt.Errorf("%s: %w", ed.Buffer.Name(), ErrUnsavedChanges))
		}
	}
	var err error
	for len(ws.Windows) > 0 {
		err = multierr.Append(err, m.closeWindow(ws, len(ws.Windows)-1))
	}
	m.removeWorkspace(m.active)
	m.relayout()
	return err
}

// closeWindow releases the payload of the window at i and removes it.
// Teardown is synchronous: a terminal's child is killed and reaped before
// this returns.
func (m *Manager) closeWindow(ws *Workspace, i int) error {
	w := ws.remove(i)
	return m.release(w)
}

func (m *Manager) release(w *Window) error {
	switch p := w.Pane.(type) {
	case *EditorPane:
		if p.Doc != nil && m.docs != nil && !m.docInUse(p.Doc) {
			m.docs.Close(p.Doc)
		}
		return nil
	case *TerminalPane:
		return p.Session.Close()
	case *ExplorerPane:
		return nil
	}
	return nil
}

// shownElsewhere reports whether an editor in a window not matched by
// skip shows buf.
func (m *Manager) shownElsewhere(buf *buffer.Buffer, skip func(*Window) bool) bool {
	for _, ws := range m.workspaces {
		for _, w := range ws.Windows {
			if ed := w.Editor(); ed != nil && ed.Buffer == buf && !skip(w) {
				return true
			}
		}
	}
	return false
}

// editorFor returns an editor already showing the file at abs.
func (m *Manager) editorFor(abs string) *EditorPane {
	for _, ws := range m.workspaces {
		for _, w := range ws.Windows {
			if ed := w.Editor(); ed != nil && ed.Buffer.Path() == abs {
				return ed
			}
		}
	}
	return nil
}

// docInUse reports whether any window still shows doc.
func (m *Manager) docInUse(doc *lsp.Document) bool {
	for _, ws := range m.workspaces {
		for _, w := range ws.Windows {
			if ed := w.Editor(); ed != nil && ed.Doc == doc {
				return true
			}
		}
	}
	return false
}

func (m *Manager) removeWorkspace(i int) {
	ws := m.workspaces[i]
	m.workspaces = append(m.workspaces[:i], m.workspaces[i+1:]...)
	switch {
	case len(m.workspaces) == 0:
		m.active = 0
		m.quit = true
	case m.active > i, m.active == i && i > 0:
		m.active--
	}
	m.log.Debug("workspace closed", zap.String("workspace", ws.ID))
}

func cycle(i, n, dir int) int {
	if dir >= 0 {
		return (i + 1) % n
	}
	return (i - 1 + n) % n
}

// SwitchWorkspace moves to the next (dir >= 0) or previous workspace,
// wrapping around.
func (m *Manager) SwitchWorkspace(dir int) {
	if len(m.workspaces) < 2 {
		return
	}
	m.active = cycle(m.active, len(m.workspaces), dir)
	m.dirty = true
}

// SwitchWindow moves to the next (dir >= 0) or previous window of the
// active workspace, wrapping around.
func (m *Manager) SwitchWindow(dir int) {
	ws := m.Active()
	if ws == nil || len(ws.Windows) < 2 {
		return
	}
	ws.Active = cycle(ws.Active, len(ws.Windows), dir)
	m.dirty = true
}

// MoveWindowToWorkspace moves the active window to the end of workspace
// target, keeping its payload. The source workspace stays active. A
// workspace's only window cannot be moved.
func (m *Manager) MoveWindowToWorkspace(target int) error {
	ws := m.Active()
	if ws == nil {
		return m.fail(ErrNoWorkspace)
	}
	if target < 0 || target >= len(m.workspaces) {
		return m.fail(fmt.Errorf("%w: %d", ErrInvalidWorkspace, target+1))
	}
	if target == m.active {
		return nil
	}
	if len(ws.Windows) < 2 {
		return m.fail(ErrLastWindow)
	}
	w := ws.remove(ws.Active)
	m.workspaces[target].append(w)
	m.SetStatus("moved %s to workspace %d", w.Kind(), target+1)
	m.relayout()
	return nil
}

// SetLayoutMode records the layout mode of the active workspace. The
// geometry falls back to Vertical while the window count does not fit.
func (m *Manager) SetLayoutMode(mode layout.Mode) {
	ws := m.Active()
	if ws == nil {
		return
	}
	ws.Mode = mode
	m.relayout()
}

// CycleLayoutMode advances the active workspace to the next layout mode.
func (m *Manager) CycleLayoutMode() {
	ws := m.Active()
	if ws == nil {
		return
	}
	m.SetLayoutMode(ws.Mode.Next())
	m.SetStatus("layout: %s", ws.Mode)
}

// Resize sets the screen area and lays every workspace out again.
func (m *Manager) Resize(area layout.Rect) {
	m.area = area
	m.relayout()
}

// nextInner is the content area a new window would get in ws.
func (m *Manager) nextInner(ws *Workspace) layout.Rect {
	n := len(ws.Windows) + 1
	rects := layout.Compute(n, ws.Mode, m.area)
	return innerRect(rects[n-1], n > 1)
}

func (m *Manager) addWindow(p Pane) *Window {
	w := newWindow(p)
	m.Active().append(w)
	m.relayout()
	return w
}

// OpenEditor opens path in a new editor window of the active workspace.
// An empty path opens a scratch buffer. A file some editor already shows
// shares that editor's buffer and document. The file is bound to a
// language server when one handles it; server trouble is reported but
// does not prevent the window.
func (m *Manager) OpenEditor(path string) (*Window, error) {
	if m.Active() == nil {
		return nil, m.fail(ErrNoWorkspace)
	}
	pane := &EditorPane{}
	if path == "" {
		pane.Buffer = buffer.New("")
		return m.addWindow(pane), nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		if ed := m.editorFor(abs); ed != nil {
			pane.Buffer, pane.Doc = ed.Buffer, ed.Doc
			return m.addWindow(pane), nil
		}
	}
	buf, err := buffer.Open(path)
	if err != nil {
		return nil, m.fail(err)
	}
	pane.Buffer = buf
	if m.docs != nil {
		doc, err := m.docs.Open(buf.Path(), buf)
		switch {
		case err == nil:
		case errors.Is(err, lsp.ErrNoServer):
		default:
			m.SetStatus("lsp: %v", err)
			m.log.Warn("language server", zap.String("path", buf.Path()), zap.Error(err))
		}
		pane.Doc = doc
	}
	return m.addWindow(pane), nil
}

// OpenTerminal starts argv (the configured shell when empty) in a new
// terminal window. If the session cannot be spawned no window is created.
func (m *Manager) OpenTerminal(argv []string) (*Window, error) {
	ws := m.Active()
	if ws == nil {
		return nil, m.fail(ErrNoWorkspace)
	}
	if len(argv) == 0 {
		argv = m.shell
	}
	inner := m.nextInner(ws)
	sess, err := m.spawn(argv, inner.Height, inner.Width)
	if err != nil {
		m.log.Warn("terminal spawn failed", zap.Strings("argv", argv), zap.Error(err))
		return nil, m.fail(err)
	}
	m.log.Debug("terminal started", zap.Strings("argv", argv), zap.Int("pid", sess.Pid()))
	return m.addWindow(&TerminalPane{Session: sess}), nil
}

// OpenExplorer opens a directory browser on dir in a new window.
func (m *Manager) OpenExplorer(dir string) (*Window, error) {
	if m.Active() == nil {
		return nil, m.fail(ErrNoWorkspace)
	}
	ex, err := explorer.New(dir)
	if err != nil {
		return nil, m.fail(err)
	}
	return m.addWindow(&ExplorerPane{Explorer: ex}), nil
}

// ConvertFinishedTerminal replaces a terminal whose child exited with a
// read-only editor saying so. The window keeps its place and geometry.
func (m *Manager) ConvertFinishedTerminal(w *Window) {
	tp := w.Terminal()
	if tp == nil {
		return
	}
	if err := tp.Session.Close(); err != nil {
		m.log.Debug("closing finished terminal", zap.Error(err))
	}
	code, _ := tp.Session.ExitCode()
	m.log.Info("terminal finished", zap.String("window", w.ID), zap.Int("exit_code", code))
	w.Pane = &EditorPane{Buffer: newFinished()}
	m.dirty = true
}

// relayout recomputes the geometry of every workspace and resizes every
// terminal to its new content area. Any structural change calls it and it
// always requests a full redraw.
func (m *Manager) relayout() {
	for _, ws := range m.workspaces {
		rects := layout.Compute(len(ws.Windows), ws.Mode, m.area)
		bordered := len(ws.Windows) > 1
		for i, w := range ws.Windows {
			w.Rect = rects[i]
			w.Bordered = bordered
			if tp := w.Terminal(); tp != nil {
				inner := w.Inner()
				if err := tp.Session.Resize(inner.Height, inner.Width); err != nil {
					m.log.Warn("terminal resize", zap.String("window", w.ID), zap.Error(err))
				}
			}
		}
	}
	m.dirty = true
}

// Close tears down every window of every workspace synchronously and
// leaves the manager empty.
func (m *Manager) Close() error {
	var err error
	for _, ws := range m.workspaces {
		for len(ws.Windows) > 0 {
			err = multierr.Append(err, m.closeWindow(ws, len(ws.Windows)-1))
		}
	}
	m.workspaces = nil
	m.active = 0
	m.quit = true
	return err
}

// EditorsFor returns every editor pane showing doc.
func (m *Manager) EditorsFor(doc *lsp.Document) []*EditorPane {
	var out []*EditorPane
	for _, ws := range m.workspaces {
		for _, w := range ws.Windows {
			if ed := w.Editor(); ed != nil && ed.Doc == doc {
				out = append(out, ed)
			}
		}
	}
	return out
}

// Locate returns the workspace and window indices of w.
func (m *Manager) Locate(w *Window) (wsIndex, winIndex int, ok bool) {
	for i, ws := range m.workspaces {
		if j := ws.Index(w); j >= 0 {
			return i, j, true
		}
	}
	return -1, -1, false
}

// Focus makes w the active window and its workspace the active one.
func (m *Manager) Focus(w *Window) bool {
	i, j, ok := m.Locate(w)
	if !ok {
		return false
	}
	m.active = i
	m.workspaces[i].Active = j
	m.dirty = true
	return true
}
