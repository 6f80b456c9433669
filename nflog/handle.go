package nflog

import (
	"errors"
	"fmt"
	"log/slog"
)

// Handle owns a libnetfilter_log context and, at most, one bound group. Most
// users should rely on Config.Build instead, which drives a Handle through the
// whole setup sequence.
type Handle struct {
	native nativeHandle
	group  *Group
	closed bool
	log    *slog.Logger
}

// Open creates a new libnetfilter_log context.
func Open() (*Handle, error) {
	n, err := openNative()
	if err != nil {
		return nil, err
	}
	return &Handle{native: n, log: logger}, nil
}

// Bind makes the handle the NFLOG handler for address family af.
func (h *Handle) Bind(af AddressFamily) error {
	if h.closed {
		return ErrClosed
	}
	return h.native.bindPF(uint16(af))
}

// Unbind removes the NFLOG handler for address family af.
func (h *Handle) Unbind(af AddressFamily) error {
	if h.closed {
		return ErrClosed
	}
	return h.native.unbindPF(uint16(af))
}

// BindGroup binds the handle to group num. A previously bound group is
// released first, failing if that release fails.
func (h *Handle) BindGroup(num uint16) (*Group, error) {
	if h.closed {
		return nil, ErrClosed
	}

	if prev := h.group; prev != nil {
		if err := h.UnbindGroup(); err != nil {
			return nil, fmt.Errorf("error releasing group %d: %w", prev.num, err)
		}
	}

	ng, err := h.native.bindGroup(num)
	if err != nil {
		return nil, err
	}

	h.group = &Group{num: num, native: ng}

	return h.group, nil
}

// UnbindGroup releases the currently bound group.
func (h *Handle) UnbindGroup() error {
	if h.group == nil {
		return ErrNoGroup
	}

	g := h.group
	h.group = nil

	return g.unbind()
}

// Group returns the currently bound group, if any.
func (h *Handle) Group() *Group {
	return h.group
}

// Fd returns the descriptor of the underlying netlink socket. It's owned by
// the handle and must not be closed.
func (h *Handle) Fd() int {
	return h.native.fd()
}

// HandlePacket parses a datagram read from the socket and invokes the
// registered callback once per record contained in it.
func (h *Handle) HandlePacket(b []byte) error {
	if h.closed {
		return ErrClosed
	}
	return h.native.handlePacket(b)
}

// Close unbinds the group, if any, and closes the context. Both steps are
// always attempted. Subsequent calls are no-ops.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	var errs error
	if h.group != nil {
		if err := h.UnbindGroup(); err != nil {
			h.log.Warn("error unbinding group", "err", err)
			errs = errors.Join(errs, err)
		}
	}

	if err := h.native.close(); err != nil {
		h.log.Warn("error closing the handle", "err", err)
		errs = errors.Join(errs, err)
	}

	return errs
}

// Group is a bound NFLOG group. It's owned by the Handle that bound it.
type Group struct {
	num      uint16
	native   nativeGroup
	released bool
}

func (g *Group) Num() uint16 {
	return g.num
}

func (g *Group) SetMode(mode CopyMode, rng uint32) error {
	if g.released {
		return ErrNoGroup
	}
	return g.native.setMode(uint8(mode), rng)
}

func (g *Group) SetFlags(flags Flags) error {
	if g.released {
		return ErrNoGroup
	}
	return g.native.setFlags(uint16(flags))
}

// SetTimeout sets the flush timeout in hundredths of a second.
func (g *Group) SetTimeout(timeout uint32) error {
	if g.released {
		return ErrNoGroup
	}
	return g.native.setTimeout(timeout)
}

func (g *Group) SetQThresh(qthresh uint32) error {
	if g.released {
		return ErrNoGroup
	}
	return g.native.setQThresh(qthresh)
}

func (g *Group) SetNlBufSiz(size uint32) error {
	if g.released {
		return ErrNoGroup
	}
	return g.native.setNlBufSiz(size)
}

func (g *Group) registerCallback(id slotID) error {
	if g.released {
		return ErrNoGroup
	}
	return g.native.registerCallback(id)
}

func (g *Group) unbind() error {
	if g.released {
		return nil
	}
	g.released = true
	return g.native.unbind()
}
