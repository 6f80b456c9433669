// Package packet decodes the network and transport headers of the payloads
// delivered through NFLOG, which start at the network header.
package packet

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	ErrEmpty          = errors.New("empty packet")
	ErrUnknownVersion = errors.New("unknown IP version")
)

// Info summarises a decoded packet.
type Info struct {
	Version  uint8      `json:"version"`
	Src      netip.Addr `json:"src"`
	Dst      netip.Addr `json:"dst"`
	Protocol string     `json:"protocol"`
	TTL      uint8      `json:"ttl"`
	Length   int        `json:"length"`

	SrcPort uint16 `json:"srcPort,omitempty"`
	DstPort uint16 `json:"dstPort,omitempty"`

	// Payload is the transport layer's payload.
	Payload []byte `json:"-"`
}

// Decoder reuses its layers across calls: it's not safe for concurrent use.
type Decoder struct {
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	icmp4   layers.ICMPv4
	icmp6   layers.ICMPv6
	payload gopacket.Payload

	p4, p6  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

func NewDecoder() *Decoder {
	d := &Decoder{decoded: make([]gopacket.LayerType, 0, 4)}

	d.p4 = gopacket.NewDecodingLayerParser(layers.LayerTypeIPv4, &d.ip4, &d.tcp, &d.udp, &d.icmp4, &d.payload)
	d.p4.IgnoreUnsupported = true

	d.p6 = gopacket.NewDecodingLayerParser(layers.LayerTypeIPv6, &d.ip6, &d.tcp, &d.udp, &d.icmp6, &d.payload)
	d.p6.IgnoreUnsupported = true

	return d
}

// Decode parses b, which must begin with an IPv4 or IPv6 header.
func (d *Decoder) Decode(b []byte) (*Info, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}

	var parser *gopacket.DecodingLayerParser
	switch b[0] >> 4 {
	case 4:
		parser = d.p4
	case 6:
		parser = d.p6
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, b[0]>>4)
	}

	if err := parser.DecodeLayers(b, &d.decoded); err != nil {
		return nil, fmt.Errorf("error decoding the packet: %w", err)
	}

	info := Info{Length: len(b)}
	for _, t := range d.decoded {
		switch t {
		case layers.LayerTypeIPv4:
			info.Version = 4
			info.Src = toAddr(d.ip4.SrcIP)
			info.Dst = toAddr(d.ip4.DstIP)
			info.Protocol = d.ip4.Protocol.String()
			info.TTL = d.ip4.TTL
		case layers.LayerTypeIPv6:
			info.Version = 6
			info.Src = toAddr(d.ip6.SrcIP)
			info.Dst = toAddr(d.ip6.DstIP)
			info.Protocol = d.ip6.NextHeader.String()
			info.TTL = d.ip6.HopLimit
		case layers.LayerTypeTCP:
			info.SrcPort = uint16(d.tcp.SrcPort)
			info.DstPort = uint16(d.tcp.DstPort)
			info.Payload = bytes.Clone(d.tcp.Payload)
		case layers.LayerTypeUDP:
			info.SrcPort = uint16(d.udp.SrcPort)
			info.DstPort = uint16(d.udp.DstPort)
			info.Payload = bytes.Clone(d.udp.Payload)
		}
	}

	return &info, nil
}

func toAddr(ip net.IP) netip.Addr {
	a, _ := netip.AddrFromSlice(ip)
	return a.Unmap()
}
