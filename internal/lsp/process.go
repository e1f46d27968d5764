package lsp

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/dshills/weft/internal/reactor"
)

// process is a language server child wired to three pipes. The parent keeps
// raw non-blocking descriptors: stdout and stderr are polled by the
// reactor, and a write to a server that stopped reading stdin fails after
// a bounded wait instead of stalling the loop.
type process struct {
	cmd    *exec.Cmd
	pid    int
	stdin  int
	stdout int
	stderr int
}

func startProcess(cfg ServerConfig, dir string) (p *process, err error) {
	var pipes [3][2]int
	for i := range pipes {
		pipes[i] = [2]int{-1, -1}
	}
	defer func() {
		if err != nil {
			for i := range pipes {
				reactor.CloseFd(pipes[i][0])
				reactor.CloseFd(pipes[i][1])
			}
		}
	}()
	for i := range pipes {
		fds := make([]int, 2)
		if err = unix.Pipe2(fds, unix.O_CLOEXEC); err != nil {
			return nil, fmt.Errorf("pipe: %w", err)
		}
		pipes[i] = [2]int{fds[0], fds[1]}
	}
	in, out, errp := pipes[0], pipes[1], pipes[2]

	childIn := os.NewFile(uintptr(in[0]), "lsp-stdin")
	childOut := os.NewFile(uintptr(out[1]), "lsp-stdout")
	childErr := os.NewFile(uintptr(errp[1]), "lsp-stderr")
	// The os.File wrappers own the child ends from here on.
	in[0], out[1], errp[1] = -1, -1, -1
	pipes[0], pipes[1], pipes[2] = in, out, errp
	defer func() {
		childIn.Close()
		childOut.Close()
		childErr.Close()
	}()

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = dir
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdin = childIn
	cmd.Stdout = childOut
	cmd.Stderr = childErr
	// Keep terminal signals aimed at the editor away from the server.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	for _, fd := range []int{in[1], out[0], errp[0]} {
		if err = unix.SetNonblock(fd, true); err != nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
			return nil, fmt.Errorf("set nonblocking: %w", err)
		}
	}

	return &process{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		stdin:  in[1],
		stdout: out[0],
		stderr: errp[0],
	}, nil
}

func (p *process) write(data []byte) error {
	if p.stdin < 0 {
		return ErrServerExited
	}
	return reactor.WriteAll(p.stdin, data)
}

// reap collects the child without blocking. It reports whether the child is
// gone.
func (p *process) reap() bool {
	if p.pid < 0 {
		return true
	}
	var ws unix.WaitStatus
	pid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG, nil)
	if pid == p.pid || errors.Is(err, unix.ECHILD) {
		p.released()
		return true
	}
	return false
}

// terminate kills the child, waits for it and closes every descriptor.
// It is idempotent.
func (p *process) terminate() error {
	var err error
	if p.pid > 0 {
		if kerr := unix.Kill(p.pid, unix.SIGKILL); kerr != nil && !errors.Is(kerr, unix.ESRCH) {
			err = multierr.Append(err, fmt.Errorf("kill %d: %w", p.pid, kerr))
		}
		var ws unix.WaitStatus
		for {
			_, werr := unix.Wait4(p.pid, &ws, 0, nil)
			if errors.Is(werr, unix.EINTR) {
				continue
			}
			if werr != nil && !errors.Is(werr, unix.ECHILD) {
				err = multierr.Append(err, fmt.Errorf("wait %d: %w", p.pid, werr))
			}
			break
		}
		p.released()
	}
	p.closeFds()
	return err
}

func (p *process) released() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Release()
	}
	p.pid = -1
}

func (p *process) closeFds() {
	p.stdin = reactor.CloseFd(p.stdin)
	p.stdout = reactor.CloseFd(p.stdout)
	p.stderr = reactor.CloseFd(p.stderr)
}
