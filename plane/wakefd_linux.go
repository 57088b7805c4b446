//go:build linux

package plane

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	efdCloexec  = unix.EFD_CLOEXEC
	efdNonblock = unix.EFD_NONBLOCK
)

// createWakeFd creates an eventfd for wake-up notifications (Linux).
// Returns the single eventfd as both read and write ends.
func createWakeFd() (int, int, error) {
	fd, err := unix.Eventfd(0, efdCloexec|efdNonblock)
	return fd, fd, err
}

// closeWakeFd closes the wake eventfd on Linux.
func closeWakeFd(wakeFD, wakeWriteFD int) error {
	if wakeFD >= 0 {
		_ = unix.Close(wakeFD)
	}
	return nil
}

// drainWakeFd drains every pending wakeup from the eventfd on Linux.
func drainWakeFd(wakeFD int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(wakeFD, buf[:]); err != nil {
			return
		}
	}
}

// writeWakeFd posts one wakeup to the eventfd.
func writeWakeFd(wakeWriteFD int) error {
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, err := unix.Write(wakeWriteFD, buf)
	return err
}
