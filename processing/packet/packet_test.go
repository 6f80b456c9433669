package packet

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		t.Fatalf("error serializing the packet: %v", err)
	}

	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	ip4 := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(127, 0, 0, 1),
		DstIP:    net.IPv4(127, 0, 0, 2),
	}
	udp := &layers.UDP{SrcPort: 1234, DstPort: 5555}
	udp.SetNetworkLayerForChecksum(ip4)

	ip6 := &layers.IPv6{
		Version:    6,
		HopLimit:   32,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 443, SYN: true, Window: 1024}
	tcp.SetNetworkLayerForChecksum(ip6)

	tests := map[string]struct {
		b    []byte
		want Info
	}{
		"udp4": {
			b: serialize(t, ip4, udp, gopacket.Payload("hello")),
			want: Info{
				Version:  4,
				Src:      netip.MustParseAddr("127.0.0.1"),
				Dst:      netip.MustParseAddr("127.0.0.2"),
				Protocol: "UDP",
				TTL:      64,
				Length:   20 + 8 + 5,
				SrcPort:  1234,
				DstPort:  5555,
				Payload:  []byte("hello"),
			},
		},
		"tcp6": {
			b: serialize(t, ip6, tcp),
			want: Info{
				Version:  6,
				Src:      netip.MustParseAddr("2001:db8::1"),
				Dst:      netip.MustParseAddr("2001:db8::2"),
				Protocol: "TCP",
				TTL:      32,
				Length:   40 + 20,
				SrcPort:  40000,
				DstPort:  443,
			},
		},
	}

	d := NewDecoder()
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := d.Decode(test.b)
			if err != nil {
				t.Fatalf("error decoding: %v", err)
			}
			if diff := cmp.Diff(&test.want, got, cmpopts.EquateEmpty(), cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
				t.Errorf("unexpected info (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	d := NewDecoder()

	if _, err := d.Decode(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := d.Decode([]byte{0x20, 0x00}); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("expected ErrUnknownVersion, got %v", err)
	}
	if _, err := d.Decode([]byte{0x45, 0x00, 0x00}); err == nil {
		t.Errorf("expected an error for a truncated header")
	}
}
