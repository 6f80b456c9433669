package nflog

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrUnsupported      = errors.New("nflog: libnetfilter_log support not compiled in")
	ErrNoFamilies       = errors.New("nflog: no address family to bind")
	ErrNilHandler       = errors.New("nflog: nil handler")
	ErrClosed           = errors.New("nflog: use of closed queue")
	ErrNoGroup          = errors.New("nflog: no group bound")
	ErrCallbackInFlight = errors.New("nflog: queue closed from within its own handler")
	ErrMessageExpired   = errors.New("nflog: message accessed outside of its handler call")
	ErrTruncated        = errors.New("nflog: datagram truncated, increase the buffer size")
)

// NativeError wraps a failure reported by libnetfilter_log.
type NativeError struct {
	Op  string
	Err syscall.Errno
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NativeError) Unwrap() error {
	return e.Err
}

// nativeErr builds a NativeError out of the errno captured by cgo after a
// failed call. Some library paths don't set errno but do set nflog_errno, so
// that one is the fallback before settling for EIO.
func nativeErr(op string, err error, libErrno int) error {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return &NativeError{Op: op, Err: errno}
	}
	if libErrno != 0 {
		return &NativeError{Op: op, Err: syscall.Errno(libErrno)}
	}
	return &NativeError{Op: op, Err: syscall.EIO}
}
