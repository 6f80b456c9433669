//go:build !linux || !cgo

package nflog

func openLibnetfilterLog() (nativeHandle, error) {
	return nil, ErrUnsupported
}
