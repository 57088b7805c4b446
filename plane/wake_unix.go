//go:build linux || darwin

package plane

import (
	"context"

	"golang.org/x/sys/unix"
)

// fdWake implements wakeSource on top of the per-platform eventfd/self-pipe
// pair created by createWakeFd (see wakefd_linux.go, wakefd_darwin.go).
type fdWake struct {
	fd, wfd int
}

func newWakeSource() (wakeSource, error) {
	fd, wfd, err := createWakeFd()
	if err != nil {
		return nil, err
	}
	return &fdWake{fd: fd, wfd: wfd}, nil
}

func (w *fdWake) Wake() error {
	return writeWakeFd(w.wfd)
}

// WaitForWake blocks in unix.Poll on the wake fd until it's readable or ctx
// is done, then drains it. A context with a deadline is polled in short
// slices so cancellation is noticed promptly without spinning.
func (w *fdWake) WaitForWake(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 250)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n > 0 && fds[0].Revents&unix.POLLIN != 0 {
			drainWakeFd(w.fd)
			return nil
		}
	}
}

func (w *fdWake) Close() error {
	return closeWakeFd(w.fd, w.wfd)
}
