// Package script runs the startup Lua script.
//
// The script sees a restricted interpreter (base, table, string and math
// libraries, no file loading) plus a global "weft" table that drives the
// session tree:
//
//	weft.workspace()               -- new workspace with a scratch editor
//	weft.open("main.go")           -- editor window
//	weft.terminal("htop")          -- terminal window; no args runs the shell
//	weft.explorer(".")             -- directory browser
//	weft.layout("grid")            -- layout mode of the active workspace
//	weft.status("ready")           -- status line message
//
// Window constructors return true, or nil and a message on failure, so a
// script can decide whether a missing file matters. A bad layout name is
// a Lua error.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a script run.
const DefaultTimeout = 5 * time.Second

// ErrStateClosed is returned when running on a closed state.
var ErrStateClosed = errors.New("lua state is closed")

// State is a restricted Lua interpreter bound to a Host. Like the
// underlying LState it must be used from one goroutine.
type State struct {
	L       *lua.LState
	host    Host
	log     *zap.Logger
	timeout time.Duration
	closed  bool
}

// Option configures a State.
type Option func(*State)

// WithLogger receives print output and API calls.
func WithLogger(log *zap.Logger) Option {
	return func(s *State) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTimeout sets the execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewState creates an interpreter exposing host as the weft table.
func NewState(host Host, opts ...Option) *State {
	s := &State{
		host:    host,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.L.SetGlobal("print", s.L.NewFunction(s.print))
	s.L.SetGlobal("weft", s.L.SetFuncs(s.L.NewTable(), s.api()))
	return s
}

// openSafeLibraries opens only the libraries that cannot reach the
// filesystem or the process.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// print joins its arguments with tabs and logs them.
func (s *State) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.log.Info("script", zap.String("output", strings.Join(parts, "\t")))
	return 0
}

// DoFile runs the script at path.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error { return s.L.DoFile(path) })
}

// DoString runs code.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error { return s.L.DoString(code) })
}

func (s *State) run(ctx context.Context, fn func() error) (err error) {
	if s.closed {
		return ErrStateClosed
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close releases the interpreter.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
