//go:build linux

package nflog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// socketPair makes the fake hand out one end of a datagram socket pair as
// its descriptor. The other end is returned to inject datagrams.
func socketPair(t *testing.T, f *fakeNative) int {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("error creating the socket pair: %v", err)
	}
	f.fdNum = fds[0]
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	return fds[1]
}

func inject(t *testing.T, fd int, b []byte) {
	t.Helper()
	if _, err := unix.Write(fd, b); err != nil {
		t.Fatalf("error injecting a datagram: %v", err)
	}
}

func newSocket(t *testing.T, f *fakeNative, c Config, h Handler) *Socket {
	t.Helper()

	q, err := c.Build(h)
	if err != nil {
		t.Fatalf("error building the queue: %v", err)
	}

	s, err := q.Socket()
	if err != nil {
		q.Close()
		t.Fatalf("error creating the socket: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSocketRecv(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	peer := socketPair(t, f)

	calls := 0
	s := newSocket(t, f, testConfig(), HandlerFunc(func(m *Message) error {
		calls++
		return nil
	}))
	f.batch = []record{&fakeRecord{}}

	for i, d := range [][]byte{[]byte("first"), []byte("second")} {
		inject(t, peer, d)

		if err := s.Recv(context.Background()); err != nil {
			t.Fatalf("error receiving: %v", err)
		}
		if !bytes.Equal(f.datagram[i], d) {
			t.Errorf("expected datagram %q, got %q", d, f.datagram[i])
		}
	}

	if calls != 2 {
		t.Errorf("expected two invocations, got %d", calls)
	}
}

func TestSocketEmptyDatagram(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	peer := socketPair(t, f)

	calls := 0
	s := newSocket(t, f, testConfig(), HandlerFunc(func(m *Message) error {
		calls++
		return nil
	}))
	f.batch = []record{&fakeRecord{}}

	inject(t, peer, []byte{})

	if err := s.Recv(context.Background()); err != nil {
		t.Fatalf("error receiving: %v", err)
	}
	if calls != 0 || len(f.datagram) != 0 {
		t.Errorf("an empty datagram reached the handler")
	}
}

func TestSocketCancellation(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	peer := socketPair(t, f)

	s := newSocket(t, f, testConfig(), nopHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := s.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the deadline to be exceeded, got %v", err)
	}

	// The socket's still usable.
	inject(t, peer, []byte("after"))
	if err := s.Recv(context.Background()); err != nil {
		t.Fatalf("error receiving after a cancellation: %v", err)
	}
	if len(f.datagram) != 1 {
		t.Errorf("expected a datagram, got %d", len(f.datagram))
	}

	done, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Listen(done); !errors.Is(err, context.Canceled) {
		t.Errorf("expected a cancellation, got %v", err)
	}
}

func TestSocketTruncation(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	peer := socketPair(t, f)

	c := testConfig()
	c.BufferSize = 4
	s := newSocket(t, f, c, nopHandler)

	inject(t, peer, []byte("way too long"))

	if err := s.Recv(context.Background()); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if len(f.datagram) != 0 {
		t.Errorf("a truncated datagram was dispatched")
	}
}

func TestSocketClose(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	socketPair(t, f)

	s := newSocket(t, f, testConfig(), nopHandler)

	if err := s.Close(); err != nil {
		t.Fatalf("error closing the socket: %v", err)
	}
	if f.closed != 1 {
		t.Errorf("the queue wasn't closed")
	}
	if err := s.Recv(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("closing twice should be a no-op: %v", err)
	}
}

func TestSocketCloseFromHandler(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	peer := socketPair(t, f)

	var s *Socket
	var inHandler error
	s = newSocket(t, f, testConfig(), HandlerFunc(func(m *Message) error {
		inHandler = s.Close()
		return nil
	}))
	f.batch = []record{&fakeRecord{}}

	inject(t, peer, []byte("close me"))
	if err := s.Recv(context.Background()); err != nil {
		t.Fatalf("error receiving: %v", err)
	}

	if !errors.Is(inHandler, ErrCallbackInFlight) {
		t.Errorf("expected ErrCallbackInFlight from the handler, got %v", inHandler)
	}
	if f.closed != 0 {
		t.Fatalf("the queue was closed from within the handler")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("error closing after the handler returned: %v", err)
	}
	if f.closed != 1 {
		t.Errorf("expected the queue to be closed once, got %d", f.closed)
	}
	if err := s.Recv(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestQueueRecv(t *testing.T) {
	f := newFakeNative()
	defer f.install()()
	peer := socketPair(t, f)

	calls := 0
	q, err := testConfig().Build(HandlerFunc(func(m *Message) error {
		calls++
		return nil
	}))
	if err != nil {
		t.Fatalf("error building the queue: %v", err)
	}
	defer q.Close()
	f.batch = []record{&fakeRecord{}}

	inject(t, peer, []byte("blocking"))
	if err := q.Recv(nil); err != nil {
		t.Fatalf("error receiving: %v", err)
	}

	// A socket makes the shared description non-blocking: Recv must still
	// wait for data instead of failing.
	s, err := q.Socket()
	if err != nil {
		t.Fatalf("error creating the socket: %v", err)
	}
	defer closeDup(s)

	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(peer, []byte("later"))
	}()
	if err := q.Recv(make([]byte, 64)); err != nil {
		t.Fatalf("error receiving: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected two invocations, got %d", calls)
	}
	if !bytes.Equal(f.datagram[1], []byte("later")) {
		t.Errorf("unexpected datagram %q", f.datagram[1])
	}
}

// closeDup only releases the socket's duplicated descriptor, leaving
// the queue alone.
func closeDup(s *Socket) {
	s.file.Close()
}
