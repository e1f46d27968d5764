package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Pump turns a blocking event source into a pollable descriptor. A single
// goroutine pulls events from the source into a channel and writes one
// wake byte per event into a self-pipe; the reactor polls the read end and
// drains the channel on the reactor goroutine. The pump goroutine touches
// nothing but the channel and the pipe.
type Pump[E any] struct {
	events chan E
	done   chan struct{}
	ended  chan struct{}
	rfd    int
	wfd    int
	wg     sync.WaitGroup
	once   sync.Once
	buf    []byte
}

// NewPump starts pulling from next. next returns false once the source is
// finished, which ends the goroutine.
func NewPump[E any](next func() (E, bool), capacity int) (*Pump[E], error) {
	if capacity <= 0 {
		capacity = 256
	}
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, fmt.Errorf("self-pipe: %w", err)
	}
	p := &Pump[E]{
		events: make(chan E, capacity),
		done:   make(chan struct{}),
		ended:  make(chan struct{}),
		rfd:    fds[0],
		wfd:    fds[1],
		buf:    make([]byte, ChunkSize),
	}
	p.wg.Add(1)
	go p.run(next)
	return p, nil
}

func (p *Pump[E]) run(next func() (E, bool)) {
	defer p.wg.Done()
	// ended is closed before the last wake byte so the drain it triggers
	// observes the end of input.
	defer p.wake()
	defer close(p.ended)
	for {
		ev, ok := next()
		if !ok {
			return
		}
		select {
		case p.events <- ev:
			p.wake()
		case <-p.done:
			return
		}
	}
}

// wake writes one byte. A full pipe already guarantees a pending wakeup.
func (p *Pump[E]) wake() {
	_, _ = unix.Write(p.wfd, []byte{1})
}

// Fd returns the descriptor to poll for readability.
func (p *Pump[E]) Fd() int { return p.rfd }

// Drain consumes one chunk of wake bytes and returns every queued event in
// arrival order. It never blocks.
func (p *Pump[E]) Drain() []E {
	// Leftover wake bytes only cause a spurious, empty drain later.
	_, _, _ = ReadChunk(p.rfd, p.buf)
	var out []E
	for {
		select {
		case ev := <-p.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Ended reports whether the source is exhausted.
func (p *Pump[E]) Ended() bool {
	select {
	case <-p.ended:
		return true
	default:
		return false
	}
}

// Stop ends the goroutine and closes the pipe. The source must already be
// unblocked (for a terminal backend, finalize it first) or Stop waits for
// its next event.
func (p *Pump[E]) Stop() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.rfd = CloseFd(p.rfd)
		p.wfd = CloseFd(p.wfd)
	})
}
