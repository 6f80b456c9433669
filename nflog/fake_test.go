package nflog

import (
	"errors"
	"fmt"
	"syscall"
)

// fakeNative stands in for libnetfilter_log. Every call is recorded and any
// of them can be made to fail through failOn.
type fakeNative struct {
	calls  []string
	failOn map[string]error

	fdNum  int
	closed int

	group *fakeGroup

	// batch holds the records "parsed" out of every datagram handed to
	// handlePacket.
	batch    []record
	datagram [][]byte
}

func newFakeNative() *fakeNative {
	return &fakeNative{failOn: map[string]error{}, fdNum: -1}
}

// install makes openNative return f until the returned function is called.
func (f *fakeNative) install() func() {
	prev := openNative
	openNative = func() (nativeHandle, error) {
		if err := f.fail("open"); err != nil {
			return nil, err
		}
		return f, nil
	}
	return func() { openNative = prev }
}

func (f *fakeNative) fail(op string) error {
	if err, ok := f.failOn[op]; ok {
		return err
	}
	return nil
}

func (f *fakeNative) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeNative) bindPF(pf uint16) error {
	f.record("bindPF %d", pf)
	return f.fail("bindPF")
}

func (f *fakeNative) unbindPF(pf uint16) error {
	f.record("unbindPF %d", pf)
	return f.fail("unbindPF")
}

func (f *fakeNative) bindGroup(num uint16) (nativeGroup, error) {
	f.record("bindGroup %d", num)
	if err := f.fail("bindGroup"); err != nil {
		return nil, err
	}
	f.group = &fakeGroup{parent: f, num: num}
	return f.group, nil
}

func (f *fakeNative) fd() int {
	return f.fdNum
}

func (f *fakeNative) handlePacket(b []byte) error {
	f.datagram = append(f.datagram, append([]byte(nil), b...))
	if f.group == nil || f.group.id == 0 {
		return nil
	}
	for _, rec := range f.batch {
		if trampoline(f.group.id, uint8(Inet), rec) != statusOK {
			return &NativeError{Op: "nflog_handle_packet", Err: syscall.EINVAL}
		}
	}
	return nil
}

func (f *fakeNative) close() error {
	f.record("close")
	f.closed++
	return f.fail("close")
}

type fakeGroup struct {
	parent *fakeNative
	num    uint16
	id     slotID

	unbound int
}

func (g *fakeGroup) unbind() error {
	g.parent.record("unbindGroup %d", g.num)
	g.unbound++
	return g.parent.fail("unbindGroup")
}

func (g *fakeGroup) setMode(mode uint8, rng uint32) error {
	g.parent.record("setMode %d %d", mode, rng)
	return g.parent.fail("setMode")
}

func (g *fakeGroup) setFlags(flags uint16) error {
	g.parent.record("setFlags %d", flags)
	return g.parent.fail("setFlags")
}

func (g *fakeGroup) setTimeout(timeout uint32) error {
	g.parent.record("setTimeout %d", timeout)
	return g.parent.fail("setTimeout")
}

func (g *fakeGroup) setQThresh(qthresh uint32) error {
	g.parent.record("setQThresh %d", qthresh)
	return g.parent.fail("setQThresh")
}

func (g *fakeGroup) setNlBufSiz(size uint32) error {
	g.parent.record("setNlBufSiz %d", size)
	return g.parent.fail("setNlBufSiz")
}

func (g *fakeGroup) registerCallback(id slotID) error {
	g.parent.record("registerCallback")
	if err := g.parent.fail("registerCallback"); err != nil {
		return err
	}
	g.id = id
	return nil
}

// fakeRecord is a record whose attributes are given in the same byte order
// libnetfilter_log returns them.
type fakeRecord struct {
	hwTypeV     uint16
	hwProtocol  uint16 // network byte order
	hook        uint8
	hasHdr      bool
	hwHdr       []byte
	hwAddrLen   uint16 // network byte order
	hwAddr      [8]byte
	hasHw       bool
	mark        uint32
	tsSec       int64
	tsUsec      int64
	hasTs       bool
	devs        [4]uint32
	payloadV    []byte
	prefixV     []byte
	uidV, gidV  uint32
	hasUID      bool
	hasGID      bool
	seqV, gseqV uint32
	hasSeq      bool
	hasGSeq     bool
}

func (r *fakeRecord) hwType() uint16 { return r.hwTypeV }
func (r *fakeRecord) packetHdr() (uint16, uint8, bool) {
	return r.hwProtocol, r.hook, r.hasHdr
}
func (r *fakeRecord) hwHeader() []byte { return r.hwHdr }
func (r *fakeRecord) packetHw() (uint16, [8]byte, bool) {
	return r.hwAddrLen, r.hwAddr, r.hasHw
}
func (r *fakeRecord) nfMark() uint32 { return r.mark }
func (r *fakeRecord) timestamp() (int64, int64, bool) {
	return r.tsSec, r.tsUsec, r.hasTs
}
func (r *fakeRecord) inDev() uint32             { return r.devs[0] }
func (r *fakeRecord) physInDev() uint32         { return r.devs[1] }
func (r *fakeRecord) outDev() uint32            { return r.devs[2] }
func (r *fakeRecord) physOutDev() uint32        { return r.devs[3] }
func (r *fakeRecord) payload() []byte           { return r.payloadV }
func (r *fakeRecord) prefix() []byte            { return r.prefixV }
func (r *fakeRecord) uid() (uint32, bool)       { return r.uidV, r.hasUID }
func (r *fakeRecord) gid() (uint32, bool)       { return r.gidV, r.hasGID }
func (r *fakeRecord) seq() (uint32, bool)       { return r.seqV, r.hasSeq }
func (r *fakeRecord) seqGlobal() (uint32, bool) { return r.gseqV, r.hasGSeq }

var errFake = &NativeError{Op: "fake", Err: syscall.EPERM}

var errHandler = errors.New("handler failure")

// htons is only needed to craft records in network byte order.
func htons(v uint16) uint16 {
	return Ntohs(v)
}
