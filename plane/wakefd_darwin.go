//go:build darwin

package plane

import (
	"syscall"
)

// createWakeFd creates a self-pipe for wake-up notifications (Darwin has no
// eventfd; a non-blocking pipe plays the same role).
func createWakeFd() (int, int, error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		_ = syscall.Close(fds[0])
		_ = syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

// closeWakeFd closes both pipe ends.
func closeWakeFd(wakeFD, wakeWriteFD int) error {
	if wakeFD >= 0 {
		_ = syscall.Close(wakeFD)
	}
	if wakeWriteFD >= 0 && wakeWriteFD != wakeFD {
		_ = syscall.Close(wakeWriteFD)
	}
	return nil
}

// drainWakeFd drains every pending wakeup byte from the self-pipe.
func drainWakeFd(wakeFD int) {
	var buf [64]byte
	for {
		n, err := syscall.Read(wakeFD, buf[:])
		if err != nil || n <= 0 {
			return
		}
	}
}

// writeWakeFd posts one wakeup byte to the self-pipe.
func writeWakeFd(wakeWriteFD int) error {
	_, err := syscall.Write(wakeWriteFD, []byte{1})
	return err
}
