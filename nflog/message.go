package nflog

import (
	"bytes"
	"net"
	"strings"
	"time"
)

// record exposes the raw attributes of one logged packet as returned by
// libnetfilter_log. Values documented as being in network byte order are
// returned untouched.
type record interface {
	hwType() uint16

	// packetHdr returns the hardware protocol, in network byte order, and the
	// netfilter hook.
	packetHdr() (hwProtocol uint16, hook uint8, ok bool)

	hwHeader() []byte

	// packetHw returns the hardware address length, in network byte order,
	// together with the address itself.
	packetHw() (addrLen uint16, addr [8]byte, ok bool)

	nfMark() uint32
	timestamp() (sec int64, usec int64, ok bool)

	inDev() uint32
	physInDev() uint32
	outDev() uint32
	physOutDev() uint32

	payload() []byte
	prefix() []byte

	uid() (uint32, bool)
	gid() (uint32, bool)
	seq() (uint32, bool)
	seqGlobal() (uint32, bool)
}

// Message is a view over one logged packet. It's only valid while the
// Handler it was handed to runs: any method called afterwards panics with
// ErrMessageExpired. Byte slices returned by its methods point into the
// receive buffer and must be copied if they're to be retained.
type Message struct {
	family  AddressFamily
	rec     record
	expired bool
}

func (m *Message) r() record {
	if m.expired {
		panic(ErrMessageExpired)
	}
	return m.rec
}

func (m *Message) expire() {
	m.expired = true
	m.rec = nil
}

// Valid reports whether the message can still be accessed.
func (m *Message) Valid() bool {
	return !m.expired
}

// Family returns the protocol family from the datagram's nfgenmsg header.
func (m *Message) Family() AddressFamily {
	m.r()
	return m.family
}

// HwType returns the ARPHRD_* hardware type of the device the packet came
// through.
func (m *Message) HwType() uint16 {
	return m.r().hwType()
}

// HwHeader returns the link-layer header, or nil when not available.
func (m *Message) HwHeader() []byte {
	h := m.r().hwHeader()
	if len(h) == 0 {
		return nil
	}
	return h
}

// HwAddr returns the source hardware address. It's only reported for 6-byte
// (i.e. Ethernet) addresses.
func (m *Message) HwAddr() (net.HardwareAddr, bool) {
	l, addr, ok := m.r().packetHw()
	if !ok || Ntohs(l) != 6 {
		return nil, false
	}
	return net.HardwareAddr(bytes.Clone(addr[:6])), true
}

// L3Proto returns the layer 3 protocol (i.e. the ethertype) in host byte
// order, or 0 when unknown.
func (m *Message) L3Proto() uint16 {
	p, _, ok := m.r().packetHdr()
	if !ok {
		return 0
	}
	return Ntohs(p)
}

// Hook returns the netfilter hook the packet was logged at.
func (m *Message) Hook() uint8 {
	_, h, _ := m.r().packetHdr()
	return h
}

// Mark returns the packet's netfilter mark.
func (m *Message) Mark() uint32 {
	return m.r().nfMark()
}

// Timestamp returns the time the packet was received, if the kernel
// reported it.
func (m *Message) Timestamp() (time.Time, bool) {
	sec, usec, ok := m.r().timestamp()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(sec, usec*int64(time.Microsecond)), true
}

// InDev returns the index of the input device, or 0 when the packet is
// locally generated or the device is unknown.
func (m *Message) InDev() uint32 {
	return m.r().inDev()
}

// PhysInDev returns the index of the physical input device (i.e. a bridge
// port), or 0.
func (m *Message) PhysInDev() uint32 {
	return m.r().physInDev()
}

// OutDev returns the index of the output device, or 0 when the packet is
// destined to the local machine or the device is unknown.
func (m *Message) OutDev() uint32 {
	return m.r().outDev()
}

// PhysOutDev returns the index of the physical output device, or 0.
func (m *Message) PhysOutDev() uint32 {
	return m.r().physOutDev()
}

// Payload returns the logged packet starting at the network header, or nil
// when no payload was copied.
func (m *Message) Payload() []byte {
	p := m.r().payload()
	if len(p) == 0 {
		return nil
	}
	return p
}

// PrefixBytes returns the raw prefix configured on the logging rule, or nil.
func (m *Message) PrefixBytes() []byte {
	return m.r().prefix()
}

// Prefix returns the prefix configured on the logging rule. Invalid UTF-8
// sequences are replaced with U+FFFD.
func (m *Message) Prefix() string {
	p := m.r().prefix()
	if p == nil {
		return ""
	}
	return strings.ToValidUTF8(string(p), "�")
}

// UID returns the UID owning the packet's socket, if any.
func (m *Message) UID() (uint32, bool) {
	return m.r().uid()
}

// GID returns the GID owning the packet's socket, if any.
func (m *Message) GID() (uint32, bool) {
	return m.r().gid()
}

// Seq returns the per-group sequence number. It's only reported when the
// group has FlagSequence set.
func (m *Message) Seq() (uint32, bool) {
	return m.r().seq()
}

// GlobalSeq returns the system-wide sequence number. It's only reported when
// the group has FlagGlobalSequence set.
func (m *Message) GlobalSeq() (uint32, bool) {
	return m.r().seqGlobal()
}

// Record is an owned copy of a Message that can be retained after the
// handler returns.
type Record struct {
	Family     AddressFamily    `json:"family" structs:"family"`
	HwType     uint16           `json:"hwType" structs:"hwType"`
	HwHeader   []byte           `json:"hwHeader,omitempty" structs:"hwHeader,omitempty"`
	HwAddr     net.HardwareAddr `json:"hwAddr,omitempty" structs:"hwAddr,omitempty"`
	L3Proto    uint16           `json:"l3Proto" structs:"l3Proto"`
	Hook       uint8            `json:"hook" structs:"hook"`
	Mark       uint32           `json:"mark" structs:"mark"`
	Timestamp  time.Time        `json:"timestamp" structs:"timestamp,omitnested"`
	InDev      uint32           `json:"inDev" structs:"inDev"`
	PhysInDev  uint32           `json:"physInDev" structs:"physInDev"`
	OutDev     uint32           `json:"outDev" structs:"outDev"`
	PhysOutDev uint32           `json:"physOutDev" structs:"physOutDev"`
	Payload    []byte           `json:"payload,omitempty" structs:"payload,omitempty"`
	Prefix     string           `json:"prefix" structs:"prefix"`
	UID        *uint32          `json:"uid,omitempty" structs:"uid,omitempty"`
	GID        *uint32          `json:"gid,omitempty" structs:"gid,omitempty"`
	Seq        *uint32          `json:"seq,omitempty" structs:"seq,omitempty"`
	GlobalSeq  *uint32          `json:"globalSeq,omitempty" structs:"globalSeq,omitempty"`
}

// Record copies every attribute of the message.
func (m *Message) Record() Record {
	r := Record{
		Family:     m.Family(),
		HwType:     m.HwType(),
		HwHeader:   bytes.Clone(m.HwHeader()),
		L3Proto:    m.L3Proto(),
		Hook:       m.Hook(),
		Mark:       m.Mark(),
		InDev:      m.InDev(),
		PhysInDev:  m.PhysInDev(),
		OutDev:     m.OutDev(),
		PhysOutDev: m.PhysOutDev(),
		Payload:    bytes.Clone(m.Payload()),
		Prefix:     m.Prefix(),
	}

	if addr, ok := m.HwAddr(); ok {
		r.HwAddr = addr
	}
	if ts, ok := m.Timestamp(); ok {
		r.Timestamp = ts
	}
	r.UID = optional(m.UID())
	r.GID = optional(m.GID())
	r.Seq = optional(m.Seq())
	r.GlobalSeq = optional(m.GlobalSeq())

	return r
}

func optional(v uint32, ok bool) *uint32 {
	if !ok {
		return nil
	}
	return &v
}
