//go:build linux && cgo

package nflog

/*
#cgo pkg-config: libnetfilter_log
#include <stdint.h>
#include <stdlib.h>
#include <libnetfilter_log/libnetfilter_log.h>

// Defined in callback_linux.go
int nflogGoCallback(struct nflog_g_handle *gh, struct nfgenmsg *nfmsg, struct nflog_data *nfd, uintptr_t id);

// The slot ID travels as the callback's user data: no Go pointer is ever
// handed over to the library.
static int nflog_cb_gateway(struct nflog_g_handle *gh, struct nfgenmsg *nfmsg, struct nflog_data *nfd, void *data) {
	return nflogGoCallback(gh, nfmsg, nfd, (uintptr_t)data);
}

static int nflog_register_gateway(struct nflog_g_handle *gh, uintptr_t id) {
	return nflog_callback_register(gh, &nflog_cb_gateway, (void *)id);
}
*/
import "C"

import (
	"unsafe"
)

type cHandle struct {
	h *C.struct_nflog_handle
}

func openLibnetfilterLog() (nativeHandle, error) {
	h, err := C.nflog_open()
	if h == nil {
		return nil, nativeErr("nflog_open", err, int(C.nflog_errno))
	}
	return &cHandle{h: h}, nil
}

func (c *cHandle) bindPF(pf uint16) error {
	if rc, err := C.nflog_bind_pf(c.h, C.uint16_t(pf)); rc < 0 {
		return nativeErr("nflog_bind_pf", err, int(C.nflog_errno))
	}
	return nil
}

func (c *cHandle) unbindPF(pf uint16) error {
	if rc, err := C.nflog_unbind_pf(c.h, C.uint16_t(pf)); rc < 0 {
		return nativeErr("nflog_unbind_pf", err, int(C.nflog_errno))
	}
	return nil
}

func (c *cHandle) bindGroup(num uint16) (nativeGroup, error) {
	gh, err := C.nflog_bind_group(c.h, C.uint16_t(num))
	if gh == nil {
		return nil, nativeErr("nflog_bind_group", err, int(C.nflog_errno))
	}
	return &cGroup{gh: gh}, nil
}

func (c *cHandle) fd() int {
	if c.h == nil {
		return -1
	}
	return int(C.nflog_fd(c.h))
}

func (c *cHandle) handlePacket(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	rc, err := C.nflog_handle_packet(c.h, (*C.char)(unsafe.Pointer(&b[0])), C.int(len(b)))
	if rc < 0 {
		return nativeErr("nflog_handle_packet", err, int(C.nflog_errno))
	}
	return nil
}

func (c *cHandle) close() error {
	rc, err := C.nflog_close(c.h)
	c.h = nil
	if rc < 0 {
		return nativeErr("nflog_close", err, int(C.nflog_errno))
	}
	return nil
}

type cGroup struct {
	gh *C.struct_nflog_g_handle
}

func (g *cGroup) unbind() error {
	if rc, err := C.nflog_unbind_group(g.gh); rc < 0 {
		return nativeErr("nflog_unbind_group", err, int(C.nflog_errno))
	}
	return nil
}

func (g *cGroup) setMode(mode uint8, rng uint32) error {
	if rc, err := C.nflog_set_mode(g.gh, C.uint8_t(mode), C.uint(rng)); rc < 0 {
		return nativeErr("nflog_set_mode", err, int(C.nflog_errno))
	}
	return nil
}

func (g *cGroup) setFlags(flags uint16) error {
	if rc, err := C.nflog_set_flags(g.gh, C.uint16_t(flags)); rc < 0 {
		return nativeErr("nflog_set_flags", err, int(C.nflog_errno))
	}
	return nil
}

func (g *cGroup) setTimeout(timeout uint32) error {
	if rc, err := C.nflog_set_timeout(g.gh, C.uint32_t(timeout)); rc < 0 {
		return nativeErr("nflog_set_timeout", err, int(C.nflog_errno))
	}
	return nil
}

func (g *cGroup) setQThresh(qthresh uint32) error {
	if rc, err := C.nflog_set_qthresh(g.gh, C.uint32_t(qthresh)); rc < 0 {
		return nativeErr("nflog_set_qthresh", err, int(C.nflog_errno))
	}
	return nil
}

func (g *cGroup) setNlBufSiz(size uint32) error {
	if rc, err := C.nflog_set_nlbufsiz(g.gh, C.uint32_t(size)); rc < 0 {
		return nativeErr("nflog_set_nlbufsiz", err, int(C.nflog_errno))
	}
	return nil
}

func (g *cGroup) registerCallback(id slotID) error {
	if rc, err := C.nflog_register_gateway(g.gh, C.uintptr_t(id)); rc < 0 {
		return nativeErr("nflog_callback_register", err, int(C.nflog_errno))
	}
	return nil
}
