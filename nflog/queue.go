package nflog

import (
	"fmt"
	"log/slog"
)

// Queue is a handle bound to an NFLOG group with a Handler attached to it.
// It's meant to be driven from a single goroutine: either through Recv/Run or
// through the Socket returned by Socket.
type Queue struct {
	handle *Handle
	group  *Group
	slot   slotID
	stats  *Stats
	config Config
	closed bool
	log    *slog.Logger

	// buf is the receive buffer used by Recv when none is provided.
	buf []byte
}

// Build opens a handle, binds it to every configured address family and to
// the configured group and registers h as the group's handler. Copy mode,
// flags and the remaining knobs are applied when set. Anything acquired is
// released if any of the steps fails.
func (c Config) Build(h Handler) (*Queue, error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	handle, err := Open()
	if err != nil {
		return nil, fmt.Errorf("error opening the handle: %w", err)
	}

	q := &Queue{
		handle: handle,
		stats:  &Stats{},
		config: c.clone(),
		log:    queueLogger(c),
	}
	handle.log = q.log
	q.config.syncRaw()

	if err := q.setup(h); err != nil {
		if cErr := q.Close(); cErr != nil {
			q.log.Warn("error releasing resources after a failed build", "err", cErr)
		}
		return nil, err
	}

	q.log.Debug("queue ready", "group", c.Group, "families", c.AddressFamilies)

	return q, nil
}

func (q *Queue) setup(h Handler) error {
	c := q.config

	for _, af := range c.AddressFamilies {
		if c.Unbind {
			// Failing to unbind a family nobody's bound to is harmless. Any
			// other problem will make the bind below fail anyway.
			if err := q.handle.Unbind(af); err != nil {
				q.log.Debug("ignoring unbind failure", "family", af, "err", err)
			}
		}
		if err := q.handle.Bind(af); err != nil {
			return fmt.Errorf("error binding family %s: %w", af, err)
		}
	}

	g, err := q.handle.BindGroup(c.Group)
	if err != nil {
		return fmt.Errorf("error binding group %d: %w", c.Group, err)
	}
	q.group = g

	q.slot = handlers.insert(&handlerSlot{handler: h, stats: q.stats, log: q.log})
	if err := g.registerCallback(q.slot); err != nil {
		return fmt.Errorf("error registering the callback: %w", err)
	}

	if c.CopyMode != nil && c.Range != nil {
		if err := g.SetMode(*c.CopyMode, *c.Range); err != nil {
			return fmt.Errorf("error setting copy mode %s: %w", *c.CopyMode, err)
		}
	}

	if c.Flags != nil {
		if err := g.SetFlags(*c.Flags); err != nil {
			return fmt.Errorf("error setting flags %s: %w", *c.Flags, err)
		}
	}

	if c.Timeout != nil {
		if err := g.SetTimeout(*c.Timeout); err != nil {
			return fmt.Errorf("error setting the timeout: %w", err)
		}
	}

	if c.QThresh != nil {
		if err := g.SetQThresh(*c.QThresh); err != nil {
			return fmt.Errorf("error setting the queue threshold: %w", err)
		}
	}

	if c.NlBufSiz != nil {
		if err := g.SetNlBufSiz(*c.NlBufSiz); err != nil {
			return fmt.Errorf("error setting the netlink buffer size: %w", err)
		}
	}

	return nil
}

// Config returns a copy of the configuration currently in effect.
func (q *Queue) Config() Config {
	return q.config.clone()
}

// Stats returns the queue's counters.
func (q *Queue) Stats() *Stats {
	return q.stats
}

// Group returns the number of the bound group.
func (q *Queue) Group() uint16 {
	return q.config.Group
}

// Fd returns the descriptor of the underlying netlink socket. It's owned by
// the queue and must not be closed.
func (q *Queue) Fd() int {
	return q.handle.Fd()
}

func (q *Queue) SetMode(mode CopyMode, rng uint32) error {
	if q.closed {
		return ErrClosed
	}
	if err := q.group.SetMode(mode, rng); err != nil {
		return err
	}
	q.config.CopyMode = &mode
	q.config.Range = &rng
	q.config.syncRaw()
	return nil
}

func (q *Queue) SetFlags(flags Flags) error {
	if q.closed {
		return ErrClosed
	}
	if err := q.group.SetFlags(flags); err != nil {
		return err
	}
	q.config.Flags = &flags
	q.config.syncRaw()
	return nil
}

// SetTimeout sets the flush timeout in hundredths of a second.
func (q *Queue) SetTimeout(timeout uint32) error {
	if q.closed {
		return ErrClosed
	}
	if err := q.group.SetTimeout(timeout); err != nil {
		return err
	}
	q.config.Timeout = &timeout
	return nil
}

func (q *Queue) SetQThresh(qthresh uint32) error {
	if q.closed {
		return ErrClosed
	}
	if err := q.group.SetQThresh(qthresh); err != nil {
		return err
	}
	q.config.QThresh = &qthresh
	return nil
}

func (q *Queue) SetNlBufSiz(size uint32) error {
	if q.closed {
		return ErrClosed
	}
	if err := q.group.SetNlBufSiz(size); err != nil {
		return err
	}
	q.config.NlBufSiz = &size
	return nil
}

// dispatch hands a datagram over to libnetfilter_log, which invokes the
// handler once per record. Handler failures are contained in the trampoline
// so they only show up here as a stopped batch, which is not an error for
// the caller.
func (q *Queue) dispatch(b []byte) error {
	if q.closed {
		return ErrClosed
	}
	if len(b) == 0 {
		return nil
	}

	q.stats.Datagrams.Add(1)
	q.stats.Bytes.Add(uint64(len(b)))

	if err := q.handle.HandlePacket(b); err != nil {
		q.stats.BatchErrors.Add(1)
		q.log.Debug("datagram processing stopped early", "len", len(b), "err", err)
	}

	return nil
}

// Close unbinds the group, closes the handle and drops the handler. It must
// not be called from within the handler itself. Subsequent calls are no-ops.
func (q *Queue) Close() error {
	if q.closed {
		return nil
	}

	if q.slot != 0 {
		if err := handlers.remove(q.slot); err != nil {
			return err
		}
		q.slot = 0
	}
	q.closed = true

	return q.handle.Close()
}
