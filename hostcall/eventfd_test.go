//go:build linux

package hostcall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEventfdWakeSignalsReader(t *testing.T) {
	fd, err := NewHostEventfd()
	require.NoError(t, err)
	defer CloseHostEventfd(fd)

	EventfdWake(fd)

	pfd := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(time.Second/time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var buf [8]byte
	read, err := unix.Read(int(fd), buf[:])
	require.NoError(t, err)
	require.Equal(t, 8, read)
}

func TestEventfdWakeCoalescesRepeatedWakes(t *testing.T) {
	fd, err := NewHostEventfd()
	require.NoError(t, err)
	defer CloseHostEventfd(fd)

	for i := 0; i < 5; i++ {
		EventfdWake(fd)
	}

	var buf [8]byte
	_, err = unix.Read(int(fd), buf[:])
	require.NoError(t, err)
	require.Equal(t, uint64(5), hostEventfdValue(buf))
}

func hostEventfdValue(buf [8]byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
