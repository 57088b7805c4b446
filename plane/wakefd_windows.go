//go:build windows

package plane

import (
	"golang.org/x/sys/windows"
)

// windowsWake wakes a blocked Wait via an I/O completion port instead of an
// eventfd or self-pipe: PostQueuedCompletionStatus posts a NULL completion,
// which causes GetQueuedCompletionStatus to return immediately. This is the
// standard IOCP analogue of writing a byte to a wakeup pipe.
type windowsWake struct {
	port windows.Handle
}

func newWindowsWake() (*windowsWake, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		return nil, err
	}
	return &windowsWake{port: port}, nil
}

// wake posts a NULL completion to the IOCP handle.
func (w *windowsWake) wake() error {
	return windows.PostQueuedCompletionStatus(w.port, 0, 0, nil)
}

// waitOne blocks until a completion (real or posted-NULL) arrives or the
// timeout elapses. timeoutMillis of windows.INFINITE blocks forever.
func (w *windowsWake) waitOne(timeoutMillis uint32) error {
	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped
	return windows.GetQueuedCompletionStatus(w.port, &bytes, &key, &overlapped, timeoutMillis)
}

func (w *windowsWake) close() error {
	return windows.CloseHandle(w.port)
}
