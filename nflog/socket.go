//go:build unix

package nflog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var aLongTimeAgo = time.Unix(1, 0)

// Socket drives a Queue off the runtime's network poller. Recv parks the
// calling goroutine until the netlink socket is readable instead of blocking
// a thread in the kernel.
type Socket struct {
	queue *Queue
	file  *os.File
	conn  syscall.RawConn
	buf   []byte

	closed bool
}

// Socket wraps a duplicate of the queue's descriptor in non-blocking mode so
// that it can be registered with the network poller. The returned Socket owns
// the queue from then on: closing it closes the queue too.
func (q *Queue) Socket() (*Socket, error) {
	if q.closed {
		return nil, ErrClosed
	}

	fd, err := unix.FcntlInt(uintptr(q.Fd()), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("fcntl", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setnonblock", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("nflog-group-%d", q.Group()))

	conn, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error getting the raw connection: %w", err)
	}

	return &Socket{
		queue: q,
		file:  f,
		conn:  conn,
		buf:   make([]byte, q.config.BufferSize),
	}, nil
}

func (s *Socket) Queue() *Queue {
	return s.queue
}

// Recv waits until a datagram can be read, reads exactly one and hands it
// over to the handler. An empty read triggers no callback. When ctx is done
// while waiting ctx.Err() is returned and the socket remains usable.
func (s *Socket) Recv(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := s.read(ctx)
	if err != nil {
		return err
	}

	return s.queue.dispatch(s.buf[:n])
}

// Listen calls Recv until it fails, returning that error.
func (s *Socket) Listen(ctx context.Context) error {
	for {
		if err := s.Recv(ctx); err != nil {
			return err
		}
	}
}

// read interrupts the pending read when ctx is done by moving the read
// deadline into the past. The deadline is cleared before returning.
func (s *Socket) read(ctx context.Context) (int, error) {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		if err := s.file.SetReadDeadline(aLongTimeAgo); err != nil {
			s.queue.log.Warn("error interrupting the read", "err", err)
		}
		close(fired)
	})

	n, err := s.recvmsg()

	if !stop() {
		<-fired
		if dErr := s.file.SetReadDeadline(time.Time{}); dErr != nil {
			s.queue.log.Warn("error clearing the read deadline", "err", dErr)
		}
		if err != nil {
			return 0, ctx.Err()
		}
	}

	return n, err
}

func (s *Socket) recvmsg() (int, error) {
	var (
		n, flags int
		opErr    error
	)

	err := s.conn.Read(func(fd uintptr) bool {
		for {
			n, _, flags, _, opErr = unix.Recvmsg(int(fd), s.buf, nil, 0)
			if !errors.Is(opErr, unix.EINTR) {
				break
			}
		}
		// Spurious wakeups: go back to waiting.
		return !errors.Is(opErr, unix.EAGAIN)
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, os.NewSyscallError("recvmsg", opErr)
	}
	if flags&unix.MSG_TRUNC != 0 {
		return 0, ErrTruncated
	}

	return n, nil
}

// Close closes the queue and then the duplicated descriptor. Called from
// within the handler it fails with ErrCallbackInFlight and leaves the socket
// untouched, so it can be closed again once the handler returns.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}

	qErr := s.queue.Close()
	if errors.Is(qErr, ErrCallbackInFlight) {
		return qErr
	}
	s.closed = true

	return errors.Join(qErr, s.file.Close())
}

// Recv blocks until a datagram is available, reads it into buf and hands it
// over to the handler. A nil buf makes the queue allocate one of the
// configured size, reused across calls.
func (q *Queue) Recv(buf []byte) error {
	if q.closed {
		return ErrClosed
	}
	if buf == nil {
		if q.buf == nil {
			q.buf = make([]byte, q.config.BufferSize)
		}
		buf = q.buf
	}

	n, err := recvBlocking(q.Fd(), buf)
	if err != nil {
		return err
	}

	return q.dispatch(buf[:n])
}

// Run calls Recv until it fails, returning that error.
func (q *Queue) Run(buf []byte) error {
	if buf == nil {
		buf = make([]byte, q.config.BufferSize)
	}
	for {
		if err := q.Recv(buf); err != nil {
			return err
		}
	}
}

// recvBlocking reads one datagram from fd. The descriptor might have been
// made non-blocking by a Socket sharing its file description, in which case
// we wait for it with poll(2).
func recvBlocking(fd int, buf []byte) (int, error) {
	for {
		n, _, flags, _, err := unix.Recvmsg(fd, buf, nil, 0)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
			if _, err := unix.Poll(fds, -1); err != nil && !errors.Is(err, unix.EINTR) {
				return 0, os.NewSyscallError("poll", err)
			}
			continue
		case err != nil:
			return 0, os.NewSyscallError("recvmsg", err)
		}

		if flags&unix.MSG_TRUNC != 0 {
			return 0, ErrTruncated
		}

		return n, nil
	}
}
