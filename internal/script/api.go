package script

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/layout"
	"github.com/dshills/weft/internal/session"
)

// Host is the part of the session manager a script may drive.
// *session.Manager implements it.
type Host interface {
	CreateWorkspace() *session.Workspace
	OpenEditor(path string) (*session.Window, error)
	OpenTerminal(argv []string) (*session.Window, error)
	OpenExplorer(dir string) (*session.Window, error)
	SetLayoutMode(mode layout.Mode)
	SetStatus(format string, args ...any)
}

var _ Host = (*session.Manager)(nil)

func (s *State) api() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"workspace": s.workspace,
		"open":      s.open,
		"terminal":  s.terminal,
		"explorer":  s.explorer,
		"layout":    s.layout,
		"status":    s.status,
	}
}

// result pushes true, or nil and the error message.
func result(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (s *State) workspace(L *lua.LState) int {
	ws := s.host.CreateWorkspace()
	s.log.Debug("script created workspace", zap.String("workspace", ws.ID))
	return 0
}

func (s *State) open(L *lua.LState) int {
	path := L.OptString(1, "")
	_, err := s.host.OpenEditor(path)
	return result(L, err)
}

func (s *State) terminal(L *lua.LState) int {
	n := L.GetTop()
	argv := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		argv = append(argv, L.CheckString(i))
	}
	_, err := s.host.OpenTerminal(argv)
	return result(L, err)
}

func (s *State) explorer(L *lua.LState) int {
	_, err := s.host.OpenExplorer(L.OptString(1, "."))
	return result(L, err)
}

func (s *State) layout(L *lua.LState) int {
	mode, err := layout.ParseMode(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	s.host.SetLayoutMode(mode)
	return 0
}

func (s *State) status(L *lua.LState) int {
	s.host.SetStatus("%s", L.CheckString(1))
	return 0
}
