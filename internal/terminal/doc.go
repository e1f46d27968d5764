// Package terminal runs child programs on a pseudo-terminal and emulates
// the display they draw on.
//
// A Session owns the pty master, the child process and a Screen. The master
// is non-blocking and exposed through Fd so the editor's reactor can poll
// it; Service performs exactly one read and feeds it through the Parser.
// Nothing in this package starts goroutines or takes locks: a Session and
// its Screen belong to the goroutine running the reactor.
//
// # Lifecycle
//
//	s, err := terminal.Spawn([]string{"/bin/sh"}, 24, 80)
//	...
//	alive, err := s.Service(buf) // when Fd is readable
//	if !alive {
//	    // child gone, master closed, child reaped
//	}
//	s.Close() // kill, reap, close; safe to repeat
//
// # Emulation
//
// The Parser understands the subset of xterm that shells, pagers and
// full-screen programs rely on: cursor movement, erase, insert and delete,
// scroll regions, SGR colours (16, 256 and true colour), DEC private modes
// including the alternate screen, OSC window titles, the DEC line drawing
// set, and cursor position and device attribute reports.
package terminal
