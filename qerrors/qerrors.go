// Package qerrors models the kernel's error taxonomy: syscall errno
// values returned to user space, interruption by a pending signal, and
// the panic-for-invariant-violation path used by faults that cannot be
// serviced.
package qerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInterrupted is returned by a blocker when a signal is posted to its
// thread while the block was interruptible. Callers convert this to
// ERESTARTSYS where the syscall they were servicing allows a restart.
var ErrInterrupted = errors.New("qkernel: interrupted")

// SysError is a POSIX errno surfaced to user space via rax. It is the
// kernel's ordinary "this call failed" error and is never wrapped with a
// stack trace — errno values are expected, not exceptional.
type SysError int32

func (e SysError) Error() string {
	return fmt.Sprintf("qkernel: errno %d", int32(e))
}

// Errno returns the underlying negative-on-the-wire errno value.
func (e SysError) Errno() int32 {
	return int32(e)
}

// IsSysError reports whether err is a SysError carrying the given errno.
func IsSysError(err error, errno int32) bool {
	var se SysError
	if errors.As(err, &se) {
		return int32(se) == errno
	}
	return false
}

// IsRetryable reports whether err is EAGAIN/EWOULDBLOCK-shaped and thus a
// candidate for the retry-after-block policy 
func IsRetryable(err error) bool {
	var se SysError
	if !errors.As(err, &se) {
		return false
	}
	// Linux defines EAGAIN == EWOULDBLOCK on every qkernel-supported arch.
	const eagain = -11
	return int32(se) == eagain
}

// Fatal wraps an invariant violation with a stack trace and panics. Used
// for conditions with no local recovery: a ring-0 exception, a
// corrupted scheduler invariant, or any other state the kernel cannot
// continue from.
func Fatal(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

// Wrap attaches a stack trace to err at the point a panic is about to
// surface it, so the per-CPU diagnostic dump can show the call
// chain that reached the fatal condition.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}
