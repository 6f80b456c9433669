package nflog

// nativeHandle is the subset of libnetfilter_log operating on an nflog_handle.
// The cgo implementation lives in native_linux.go; tests swap in a fake.
type nativeHandle interface {
	bindPF(pf uint16) error
	unbindPF(pf uint16) error
	bindGroup(num uint16) (nativeGroup, error)
	fd() int
	handlePacket(b []byte) error
	close() error
}

// nativeGroup is the subset of libnetfilter_log operating on an
// nflog_g_handle.
type nativeGroup interface {
	unbind() error
	setMode(mode uint8, rng uint32) error
	setFlags(flags uint16) error
	setTimeout(timeout uint32) error
	setQThresh(qthresh uint32) error
	setNlBufSiz(size uint32) error
	registerCallback(id slotID) error
}

// openNative opens a new libnetfilter_log context.
var openNative func() (nativeHandle, error) = openLibnetfilterLog
