package nflog

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler processes logged packets. Handle is invoked once per record, on
// the goroutine driving the receive loop, and the message is only valid until
// Handle returns. Returning an error or panicking makes the native library
// stop processing the rest of the current datagram; the next receive call is
// unaffected.
type Handler interface {
	Handle(m *Message) error
}

// HandlerFunc adapts an ordinary function into a Handler.
type HandlerFunc func(m *Message) error

func (f HandlerFunc) Handle(m *Message) error {
	return f(m)
}

// slotID identifies a handlerSlot. It's the only thing handed over to C as
// the callback's user data. Zero is never a valid ID.
type slotID uintptr

type handlerSlot struct {
	handler Handler
	stats   *Stats
	log     *slog.Logger

	// busy is set while the handler runs and grants exclusive access to it.
	busy atomic.Bool
}

func (s *handlerSlot) acquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

func (s *handlerSlot) release() {
	s.busy.Store(false)
}

type slotTable struct {
	mu    sync.Mutex
	next  slotID
	slots map[slotID]*handlerSlot
}

// handlers holds every registered handler in the process.
var handlers = &slotTable{slots: map[slotID]*handlerSlot{}}

func (t *slotTable) insert(s *handlerSlot) slotID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	for t.next == 0 || t.slots[t.next] != nil {
		t.next++
	}
	t.slots[t.next] = s

	return t.next
}

func (t *slotTable) lookup(id slotID) (*handlerSlot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[id]
	return s, ok
}

// remove drops the slot unless its handler is currently running.
func (t *slotTable) remove(id slotID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[id]
	if !ok {
		return nil
	}
	if s.busy.Load() {
		return ErrCallbackInFlight
	}
	delete(t.slots, id)

	return nil
}

func (t *slotTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
