package nflog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/scitags/go-nflog/types"
)

// logger is used by a Handle until a Queue hands it its own.
var logger = slog.New(slog.DiscardHandler)

// queueLogger returns the logger of a queue built out of c.
func queueLogger(c Config) *slog.Logger {
	if !c.Log {
		return logger
	}
	return slog.Default().With("t", "nflog", "group", c.Group)
}

// Values returned to libnetfilter_log from the callback.
const (
	statusOK   = 0
	statusStop = 1
)

var errNullRecord = errors.New("nflog: null record handed to the callback")

// trampoline is the single entry point from the native callback into Go. It
// never lets a panic escape: unwinding through C frames is fatal.
func trampoline(id slotID, family uint8, rec record) (status int) {
	slot, ok := handlers.lookup(id)
	if !ok {
		slog.Error("nflog callback invoked for an unknown handler", "id", id)
		return statusStop
	}

	if !slot.acquire() {
		slot.stats.ProtocolViolations.Add(1)
		slot.log.Error("re-entrant callback invocation", "id", id)
		return statusStop
	}
	defer slot.release()

	m := &Message{family: AddressFamily(family), rec: rec}
	defer m.expire()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		status = statusStop
		if r == errNullRecord {
			slot.stats.ProtocolViolations.Add(1)
			slot.log.Error("protocol violation", "id", id, "err", errNullRecord)
			return
		}
		slot.stats.HandlerFailures.Add(1)
		slot.log.Error("recovered from a panicking handler", "id", id, "panic", r)
	}()

	if rec == nil {
		panic(errNullRecord)
	}

	slot.log.Log(context.Background(), types.LevelTrace, "invoking handler", "id", id, "family", AddressFamily(family))

	if err := slot.handler.Handle(m); err != nil {
		slot.stats.HandlerFailures.Add(1)
		slot.log.Warn("handler failed", "id", id, "err", err)
		return statusStop
	}

	slot.stats.Records.Add(1)

	return statusOK
}
