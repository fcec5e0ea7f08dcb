//go:build unix

package gesture

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readiness is a self-pipe: the read end becomes readable when input is
// waiting for DispatchEvents, so hosts can poll it with their other fds.
type readiness struct {
	r, w     int
	signaled bool
}

func newReadiness() (*readiness, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("readiness pipe: %w: %v", ErrUnknown, err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return nil, fmt.Errorf("readiness nonblock: %w: %v", ErrUnknown, err)
		}
	}
	return &readiness{r: p[0], w: p[1]}, nil
}

func (r *readiness) fd() int { return r.r }

// signal marks the descriptor readable. Callers hold the inbox lock.
func (r *readiness) signal() {
	if r.signaled {
		return
	}
	if _, err := unix.Write(r.w, []byte{1}); err == nil || err == unix.EAGAIN {
		r.signaled = true
	}
}

// clear drains the pipe. Callers hold the inbox lock.
func (r *readiness) clear() {
	if !r.signaled {
		return
	}
	var buf [64]byte
	for {
		n, err := unix.Read(r.r, buf[:])
		if n <= 0 || err != nil {
			break
		}
	}
	r.signaled = false
}

func (r *readiness) close() error {
	err := unix.Close(r.r)
	if werr := unix.Close(r.w); err == nil {
		err = werr
	}
	return err
}
