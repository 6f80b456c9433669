//go:build linux && cgo

package nflog

/*
#include <stdint.h>
#include <libnetfilter_log/libnetfilter_log.h>
*/
import "C"

//export nflogGoCallback
func nflogGoCallback(gh *C.struct_nflog_g_handle, nfmsg *C.struct_nfgenmsg, nfd *C.struct_nflog_data, id C.uintptr_t) C.int {
	if nfmsg == nil || nfd == nil {
		return C.int(trampoline(slotID(id), 0, nil))
	}
	return C.int(trampoline(slotID(id), uint8(nfmsg.nfgen_family), cRecord{nfd: nfd}))
}
