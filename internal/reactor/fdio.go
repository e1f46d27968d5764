package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ChunkSize is the most the reactor reads from one descriptor per iteration.
const ChunkSize = 4096

// ReadStatus classifies the outcome of a non-blocking read.
type ReadStatus int

const (
	// ReadData means n > 0 bytes were read.
	ReadData ReadStatus = iota
	// ReadWouldBlock means nothing was available.
	ReadWouldBlock
	// ReadClosed means the peer is gone: end of file, EIO on a pty master,
	// or any other read error.
	ReadClosed
)

// ReadChunk performs exactly one read(2) on a non-blocking descriptor.
// The returned error is only set for ReadClosed caused by a real error.
func ReadChunk(fd int, buf []byte) (int, ReadStatus, error) {
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case err == nil && n > 0:
			return n, ReadData, nil
		case err == nil:
			return 0, ReadClosed, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ReadWouldBlock, nil
		default:
			return 0, ReadClosed, err
		}
	}
}

// WriteWait bounds how long WriteAll spends waiting for a full
// non-blocking descriptor to drain before giving up.
const WriteWait = 250 * time.Millisecond

// WriteAll writes all of p to fd. Blocking and non-blocking descriptors are
// both supported; on EAGAIN it waits for POLLOUT, at most WriteWait in
// total across the whole write.
func WriteAll(fd int, p []byte) error {
	deadline := time.Now().Add(WriteWait)
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		switch {
		case err == nil:
			p = p[n:]
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			left := time.Until(deadline)
			if left <= 0 || !waitWritable(fd, left) {
				return fmt.Errorf("write fd %d: %w", fd, unix.EAGAIN)
			}
		default:
			return fmt.Errorf("write fd %d: %w", fd, err)
		}
	}
	return nil
}

func waitWritable(fd int, d time.Duration) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		n, err := unix.Poll(fds, int(d/time.Millisecond))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err == nil && n > 0 && fds[0].Revents&unix.POLLOUT != 0
	}
}

// CloseFd closes fd if it is valid and returns -1 for assignment back.
func CloseFd(fd int) int {
	if fd >= 0 {
		_ = unix.Close(fd)
	}
	return -1
}
