package session

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/layout"
)

// Snapshot is the structural state of the session tree: enough to rebuild
// the same workspaces and windows in order. Storing it is up to the
// caller.
type Snapshot struct {
	Active     int                 `yaml:"active"`
	Workspaces []WorkspaceSnapshot `yaml:"workspaces"`
}

// WorkspaceSnapshot describes one workspace.
type WorkspaceSnapshot struct {
	Layout  string           `yaml:"layout"`
	Active  int              `yaml:"active"`
	Windows []WindowSnapshot `yaml:"windows"`
}

// WindowSnapshot describes one window. Which fields are used depends on
// Kind: Path, Row and Col for editors, Argv for terminals, Dir for
// explorers.
type WindowSnapshot struct {
	Kind string   `yaml:"kind"`
	Path string   `yaml:"path,omitempty"`
	Row  int      `yaml:"row,omitempty"`
	Col  int      `yaml:"col,omitempty"`
	Argv []string `yaml:"argv,omitempty"`
	Dir  string   `yaml:"dir,omitempty"`
}

// Snapshot captures the current tree.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{Active: m.active}
	for _, ws := range m.workspaces {
		wsSnap := WorkspaceSnapshot{Layout: ws.Mode.String(), Active: ws.Active}
		for _, w := range ws.Windows {
			wsSnap.Windows = append(wsSnap.Windows, snapshotWindow(w))
		}
		snap.Workspaces = append(snap.Workspaces, wsSnap)
	}
	return snap
}

func snapshotWindow(w *Window) WindowSnapshot {
	ws := WindowSnapshot{Kind: w.Kind().String()}
	switch p := w.Pane.(type) {
	case *EditorPane:
		if !p.Buffer.ReadOnly() {
			ws.Path = p.Buffer.Path()
		}
		ws.Row, ws.Col = p.Buffer.Cursor()
	case *TerminalPane:
		ws.Argv = append([]string(nil), p.Session.Argv()...)
	case *ExplorerPane:
		ws.Dir = p.Explorer.Dir()
	}
	return ws
}

// Restore appends the workspaces of snap in order and activates the
// recorded workspace and windows. Windows that cannot be recreated are
// skipped and reported in the returned error; a workspace left with no
// windows gets a scratch editor so none is ever empty.
func (m *Manager) Restore(snap Snapshot) error {
	var err error
	base := len(m.workspaces)
	for i, wsSnap := range snap.Workspaces {
		mode, perr := layout.ParseMode(wsSnap.Layout)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("workspace %d: %w", i+1, perr))
		}
		ws := newWorkspace(mode)
		m.workspaces = append(m.workspaces, ws)
		m.active = len(m.workspaces) - 1

		for j, winSnap := range wsSnap.Windows {
			if werr := m.restoreWindow(winSnap); werr != nil {
				err = multierr.Append(err, fmt.Errorf("workspace %d window %d: %w", i+1, j+1, werr))
			}
		}
		if len(ws.Windows) == 0 {
			m.addWindow(&EditorPane{Buffer: buffer.New("")})
		}
		if wsSnap.Active >= 0 && wsSnap.Active < len(ws.Windows) {
			ws.Active = wsSnap.Active
		}
	}
	if len(m.workspaces) > base {
		m.quit = false
		if a := base + snap.Active; snap.Active >= 0 && a < len(m.workspaces) {
			m.active = a
		}
	}
	m.relayout()
	return err
}

func (m *Manager) restoreWindow(snap WindowSnapshot) error {
	switch snap.Kind {
	case KindEditor.String():
		w, err := m.OpenEditor(snap.Path)
		if err != nil {
			return err
		}
		w.Editor().Buffer.SetCursor(snap.Row, snap.Col)
		return nil
	case KindTerminal.String():
		_, err := m.OpenTerminal(snap.Argv)
		return err
	case KindExplorer.String():
		_, err := m.OpenExplorer(snap.Dir)
		return err
	default:
		return fmt.Errorf("unknown window kind %q", snap.Kind)
	}
}
