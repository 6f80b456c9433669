package nflog

import (
	ne "github.com/josharian/native"
)

// Ntohs converts a 16-bit value in network byte order into host byte order.
func Ntohs(in uint16) uint16 {
	if !ne.IsBigEndian {
		return uint16((in&0xFF)<<8) | uint16((in>>8)&0xFF)
	}
	return in
}
