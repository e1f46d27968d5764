package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultTimeout bounds each wait so housekeeping runs even when idle.
const DefaultTimeout = 50 * time.Millisecond

const readyMask = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

// Ready is a watched descriptor that has something to report.
type Ready[T any] struct {
	Fd     int
	Owner  T
	Events int16
}

// Hangup reports whether the descriptor signalled hangup or error without
// readable data.
func (r Ready[T]) Hangup() bool {
	return r.Events&unix.POLLIN == 0 && r.Events&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}

// Poller is a watch set rebuilt every iteration. Each descriptor carries
// the object that owns it so callers can tell whether the owner is still
// alive when they get to it.
type Poller[T any] struct {
	timeout time.Duration
	fds     []unix.PollFd
	owners  []T
	ready   []Ready[T]
}

// NewPoller returns a poller that waits at most timeout per call.
func NewPoller[T any](timeout time.Duration) *Poller[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller[T]{timeout: timeout}
}

// Timeout returns the bounded wait.
func (p *Poller[T]) Timeout() time.Duration { return p.timeout }

// Reset empties the watch set, keeping its storage.
func (p *Poller[T]) Reset() {
	p.fds = p.fds[:0]
	p.owners = p.owners[:0]
}

// Add watches fd for input. Negative descriptors are ignored.
func (p *Poller[T]) Add(fd int, owner T) {
	if fd < 0 {
		return
	}
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	p.owners = append(p.owners, owner)
}

// Len returns the number of watched descriptors.
func (p *Poller[T]) Len() int { return len(p.fds) }

// Owners returns the owners of the watched descriptors in the order they
// were added.
func (p *Poller[T]) Owners() []T { return p.owners }

// Wait blocks until a descriptor is ready or the timeout passes. Ready
// entries come back in the order they were added. An interrupted wait
// returns nothing and no error. The returned slice is reused by the next
// call.
func (p *Poller[T]) Wait() ([]Ready[T], error) {
	p.ready = p.ready[:0]
	n, err := unix.Poll(p.fds, int(p.timeout/time.Millisecond))
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	for i, fd := range p.fds {
		if fd.Revents&readyMask != 0 {
			p.ready = append(p.ready, Ready[T]{Fd: int(fd.Fd), Owner: p.owners[i], Events: fd.Revents})
		}
	}
	return p.ready, nil
}
