//go:build linux

package hostcall

import (
	"golang.org/x/sys/unix"
)

// NewHostEventfd creates the eventfd a real boot uses to wake the host
// VMM's I/O thread. The returned fd is both the kernel file descriptor
// and the value to pass as eventfdID to ShareSpace.Init — EventfdWake
// below treats them as the same number, so there is no separate
// fd-to-id table to keep in sync.
func NewHostEventfd() (int32, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return 0, err
	}
	return int32(fd), nil
}

// EventfdWake is the production WakeFunc: it performs the 8-byte
// eventfd write that VMCallTransport.Call/AQCall rely on to wake a
// host I/O thread blocked in epoll/read on the same fd. EWOULDBLOCK
// (the eventfd counter already saturated) means the host is already
// going to observe a pending wakeup and is not an error worth
// surfacing to the caller, which has no error return to give it to.
func EventfdWake(eventfdID int32) {
	buf := [8]byte{1, 0, 0, 0, 0, 0, 0, 0}
	for {
		_, err := unix.Write(int(eventfdID), buf[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

// CloseHostEventfd releases the fd created by NewHostEventfd.
func CloseHostEventfd(eventfdID int32) error {
	return unix.Close(int(eventfdID))
}
