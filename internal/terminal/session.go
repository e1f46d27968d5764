package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/dshills/weft/internal/reactor"
	"github.com/dshills/weft/internal/renderer/backend"
)

// Session is one child process on a pseudo-terminal plus its emulated
// screen.
//
// The master descriptor is either valid and non-blocking or -1 once the
// session is dead; the pid is either a live (or unreaped) child or -1.
type Session struct {
	id     string
	argv   []string
	master *os.File
	fd     int
	cmd    *exec.Cmd
	pid    int
	status unix.WaitStatus
	exited bool

	screen *Screen
	parser *Parser
	rows   int
	cols   int
}

// Option configures Spawn.
type Option func(*spawnOptions)

type spawnOptions struct {
	env []string
	dir string
}

// WithEnv adds KEY=VALUE entries to the child's environment.
func WithEnv(env ...string) Option {
	return func(o *spawnOptions) { o.env = append(o.env, env...) }
}

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(o *spawnOptions) { o.dir = dir }
}

// Spawn starts argv on a new pty sized rows x cols with TERM=xterm-256color.
// On any failure every resource acquired so far is released.
func Spawn(argv []string, rows, cols int, opts ...Option) (s *Session, err error) {
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}
	var o spawnOptions
	for _, opt := range opts {
		opt(&o)
	}
	rows, cols = max(rows, 1), max(cols, 1)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = o.dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	cmd.Env = append(cmd.Env, o.env...)

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", argv[0], err)
	}

	screen := NewScreen(rows, cols)
	s = &Session{
		id:     uuid.NewString(),
		argv:   append([]string(nil), argv...),
		master: master,
		fd:     -1,
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		screen: screen,
		parser: NewParser(screen),
		rows:   rows,
		cols:   cols,
	}
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	// Fd switches the file to blocking mode; the raw descriptor is then
	// made non-blocking for the reactor and only used through unix calls.
	fd := int(master.Fd())
	if err = unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("spawn %s: set nonblocking: %w", argv[0], err)
	}
	s.fd = fd
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Argv returns the command line the session was started with.
func (s *Session) Argv() []string { return s.argv }

// Fd returns the master descriptor, or -1 once the session is dead.
func (s *Session) Fd() int { return s.fd }

// Pid returns the child pid, or -1 once it has been reaped.
func (s *Session) Pid() int { return s.pid }

// Alive reports whether the master is still open.
func (s *Session) Alive() bool { return s.fd >= 0 }

// Screen returns the emulator screen.
func (s *Session) Screen() *Screen { return s.screen }

// ExitCode returns the child's exit status once it has been reaped. A
// child killed by a signal reports 128+signal.
func (s *Session) ExitCode() (int, bool) {
	if !s.exited {
		return 0, false
	}
	if s.status.Signaled() {
		return 128 + int(s.status.Signal()), true
	}
	return s.status.ExitStatus(), true
}

// Consume feeds child output through the emulator. Replies the emulator
// owes the child (cursor reports and the like) are written back.
func (s *Session) Consume(data []byte) {
	s.parser.Parse(data)
	if reply := s.parser.TakeReply(); len(reply) > 0 && s.fd >= 0 {
		_ = reactor.WriteAll(s.fd, reply)
	}
}

// Service performs one non-blocking read of at most len(buf) bytes. It
// returns false when the read shows the child is gone; the session has
// then reaped the child and closed the master.
func (s *Session) Service(buf []byte) (bool, error) {
	if s.fd < 0 {
		return false, ErrSessionClosed
	}
	n, status, rerr := reactor.ReadChunk(s.fd, buf)
	switch status {
	case reactor.ReadData:
		s.Consume(buf[:n])
		return true, nil
	case reactor.ReadWouldBlock:
		return true, nil
	}
	// EIO on a pty master is the normal hangup; anything else is logged
	// by the caller.
	if errors.Is(rerr, unix.EIO) {
		rerr = nil
	}
	return false, multierr.Append(rerr, s.finish(true))
}

// Reap collects the child without blocking and reports whether it has
// exited. The master stays open so any output still buffered can be read.
func (s *Session) Reap() bool {
	if s.pid < 0 {
		return s.exited
	}
	var ws unix.WaitStatus
	pid, err := unix.Wait4(s.pid, &ws, unix.WNOHANG, nil)
	switch {
	case pid == s.pid:
		s.released(ws)
	case errors.Is(err, unix.ECHILD):
		s.released(0)
	}
	return s.exited
}

// Resize changes the emulator and pty window size. Both dimensions are
// raised to at least 1.
func (s *Session) Resize(rows, cols int) error {
	rows, cols = max(rows, 1), max(cols, 1)
	if rows == s.rows && cols == s.cols {
		return nil
	}
	s.rows, s.cols = rows, cols
	s.screen.Resize(rows, cols)
	if s.fd < 0 {
		return nil
	}
	if err := pty.Setsize(s.master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	return nil
}

// Size returns the current emulator size.
func (s *Session) Size() (rows, cols int) { return s.rows, s.cols }

// WriteInput writes raw bytes to the child.
func (s *Session) WriteInput(p []byte) error {
	if s.fd < 0 {
		return ErrSessionClosed
	}
	return reactor.WriteAll(s.fd, p)
}

// SendKey encodes a key event the way an xterm would and writes it.
func (s *Session) SendKey(ev backend.Event) error {
	b := EncodeKey(ev, s.screen.AppCursor())
	if len(b) == 0 {
		return nil
	}
	return s.WriteInput(b)
}

// Close kills the child, reaps it and closes the master. It is safe to
// call more than once.
func (s *Session) Close() error {
	return s.finish(false)
}

// finish releases the session. When exited is true the child is already
// gone and is only waited for; otherwise it is killed first.
func (s *Session) finish(exited bool) error {
	var err error
	if s.pid > 0 && !exited {
		// The child leads its own session and process group.
		_ = unix.Kill(-s.pid, unix.SIGKILL)
		if kerr := unix.Kill(s.pid, unix.SIGKILL); kerr != nil && !errors.Is(kerr, unix.ESRCH) {
			err = multierr.Append(err, fmt.Errorf("kill %d: %w", s.pid, kerr))
		}
	}
	if s.master != nil {
		if cerr := s.master.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close pty: %w", cerr))
		}
		s.master = nil
		s.fd = -1
	}
	if s.pid > 0 {
		err = multierr.Append(err, s.wait())
	}
	return err
}

func (s *Session) wait() error {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(s.pid, &ws, 0, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil && !errors.Is(err, unix.ECHILD):
			return fmt.Errorf("wait %d: %w", s.pid, err)
		}
		s.released(ws)
		return nil
	}
}

func (s *Session) released(ws unix.WaitStatus) {
	s.status = ws
	s.exited = true
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Release()
	}
	s.pid = -1
}
