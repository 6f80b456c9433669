//go:build linux && cgo

package nflog

/*
#include <stdint.h>
#include <string.h>
#include <sys/time.h>
#include <libnetfilter_log/libnetfilter_log.h>
*/
import "C"

import (
	"unsafe"
)

// cRecord reads attributes straight out of the nflog_data handed to the
// callback. Slices alias the datagram being processed.
type cRecord struct {
	nfd *C.struct_nflog_data
}

func (r cRecord) hwType() uint16 {
	return uint16(C.nflog_get_hwtype(r.nfd))
}

func (r cRecord) packetHdr() (uint16, uint8, bool) {
	ph := C.nflog_get_msg_packet_hdr(r.nfd)
	if ph == nil {
		return 0, 0, false
	}
	return uint16(ph.hw_protocol), uint8(ph.hook), true
}

func (r cRecord) hwHeader() []byte {
	l := C.nflog_get_msg_packet_hwhdrlen(r.nfd)
	if l == 0 {
		return nil
	}
	p := C.nflog_get_msg_packet_hwhdr(r.nfd)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(l))
}

func (r cRecord) packetHw() (uint16, [8]byte, bool) {
	var addr [8]byte
	hw := C.nflog_get_packet_hw(r.nfd)
	if hw == nil {
		return 0, addr, false
	}
	for i := range addr {
		addr[i] = byte(hw.hw_addr[i])
	}
	return uint16(hw.hw_addrlen), addr, true
}

func (r cRecord) nfMark() uint32 {
	return uint32(C.nflog_get_nfmark(r.nfd))
}

func (r cRecord) timestamp() (int64, int64, bool) {
	var tv C.struct_timeval
	if C.nflog_get_timestamp(r.nfd, &tv) != 0 {
		return 0, 0, false
	}
	return int64(tv.tv_sec), int64(tv.tv_usec), true
}

func (r cRecord) inDev() uint32 {
	return uint32(C.nflog_get_indev(r.nfd))
}

func (r cRecord) physInDev() uint32 {
	return uint32(C.nflog_get_physindev(r.nfd))
}

func (r cRecord) outDev() uint32 {
	return uint32(C.nflog_get_outdev(r.nfd))
}

func (r cRecord) physOutDev() uint32 {
	return uint32(C.nflog_get_physoutdev(r.nfd))
}

func (r cRecord) payload() []byte {
	var p *C.char
	n := C.nflog_get_payload(r.nfd, &p)
	if n <= 0 || p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

func (r cRecord) prefix() []byte {
	p := C.nflog_get_prefix(r.nfd)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(C.strlen(p)))
}

func (r cRecord) uid() (uint32, bool) {
	var v C.uint32_t
	if C.nflog_get_uid(r.nfd, &v) != 0 {
		return 0, false
	}
	return uint32(v), true
}

func (r cRecord) gid() (uint32, bool) {
	var v C.uint32_t
	if C.nflog_get_gid(r.nfd, &v) != 0 {
		return 0, false
	}
	return uint32(v), true
}

func (r cRecord) seq() (uint32, bool) {
	var v C.uint32_t
	if C.nflog_get_seq(r.nfd, &v) != 0 {
		return 0, false
	}
	return uint32(v), true
}

func (r cRecord) seqGlobal() (uint32, bool) {
	var v C.uint32_t
	if C.nflog_get_seq_global(r.nfd, &v) != 0 {
		return 0, false
	}
	return uint32(v), true
}
