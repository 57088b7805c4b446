//go:build windows

package plane

import (
	"context"

	"golang.org/x/sys/windows"
)

// iocpWake adapts windowsWake (wakefd_windows.go) to the wakeSource
// interface, polling in short slices so context cancellation is noticed
// without an indefinite GetQueuedCompletionStatus block.
type iocpWake struct {
	w *windowsWake
}

func newWakeSource() (wakeSource, error) {
	w, err := newWindowsWake()
	if err != nil {
		return nil, err
	}
	return &iocpWake{w: w}, nil
}

func (w *iocpWake) Wake() error {
	return w.w.wake()
}

func (w *iocpWake) WaitForWake(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.w.waitOne(250)
		if err == nil {
			return nil
		}
		if err == windows.WAIT_TIMEOUT {
			continue
		}
		return err
	}
}

func (w *iocpWake) Close() error {
	return w.w.close()
}
