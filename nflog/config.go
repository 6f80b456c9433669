package nflog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/sys/unix"
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type=CopyMode -linecomment

// DefaultBufferSize is the size of the receive buffer, in bytes, used when
// reading datagrams from the NFLOG socket.
const DefaultBufferSize = 150000

// AddressFamily is the protocol family the NFLOG handler is bound for.
type AddressFamily uint16

const (
	Inet   AddressFamily = unix.AF_INET
	Inet6  AddressFamily = unix.AF_INET6
	Bridge AddressFamily = unix.AF_BRIDGE
)

var addressFamilyNames = map[AddressFamily]string{
	Inet:   "inet",
	Inet6:  "inet6",
	Bridge: "bridge",
}

func (af AddressFamily) String() string {
	if s, ok := addressFamilyNames[af]; ok {
		return s
	}
	return fmt.Sprintf("AddressFamily(%d)", uint16(af))
}

func (af AddressFamily) MarshalText() ([]byte, error) {
	return []byte(af.String()), nil
}

func ParseAddressFamily(s string) (AddressFamily, bool) {
	for af, name := range addressFamilyNames {
		if strings.EqualFold(s, name) {
			return af, true
		}
	}
	return 0, false
}

// CopyMode controls how much of each logged packet the kernel copies over.
type CopyMode uint8

const (
	CopyNone   CopyMode = iota // none
	CopyMeta                   // meta
	CopyPacket                 // packet
)

func ParseCopyMode(s string) (CopyMode, bool) {
	for m := CopyNone; m <= CopyPacket; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, true
		}
	}
	return 0, false
}

// Flags is the set of per-group options enabled through nflog_set_flags.
type Flags uint16

const (
	// FlagSequence makes the kernel attach a per-group sequence number.
	FlagSequence Flags = 0x1

	// FlagGlobalSequence makes the kernel attach a system-wide sequence number.
	FlagGlobalSequence Flags = 0x2
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagSequence, "sequence"},
	{FlagGlobalSequence, "global-sequence"},
}

func (f Flags) names() []string {
	names := []string{}
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	names := f.names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func ParseFlag(s string) (Flags, bool) {
	for _, fn := range flagNames {
		if strings.EqualFold(s, fn.name) {
			return fn.f, true
		}
	}
	return 0, false
}

// Config describes how a Queue is set up. Optional settings are left as nil
// pointers, in which case the kernel defaults are kept.
//
// Enumerations are read from YAML as strings (i.e. the Raw* fields) and then
// parsed into the typed fields, which are the ones Build looks at.
type Config struct {
	Log bool `yaml:"log" json:"log"`

	RawAddressFamilies []string        `yaml:"addressFamilies" json:"addressFamilies"`
	AddressFamilies    []AddressFamily `yaml:"-" json:"-"` // Parsed address families

	Group      uint16 `yaml:"group" json:"group"`
	BufferSize int    `yaml:"bufferSize" json:"bufferSize"`

	// Unbind any existing handler for each address family before binding.
	Unbind bool `yaml:"unbind" json:"unbind"`

	RawCopyMode string    `yaml:"copyMode" json:"copyMode,omitempty"`
	CopyMode    *CopyMode `yaml:"-" json:"-"` // Parsed copy mode

	// Range is the number of bytes copied when CopyMode is CopyPacket. It's
	// only applied alongside CopyMode.
	Range *uint32 `yaml:"range" json:"range,omitempty"`

	RawFlags []string `yaml:"flags" json:"flags,omitempty"`
	Flags    *Flags   `yaml:"-" json:"-"` // Parsed flags

	// Timeout is the maximum time, in hundredths of a second, the kernel
	// buffers packets before flushing them.
	Timeout *uint32 `yaml:"timeout" json:"timeout,omitempty"`

	// QThresh is the maximum number of packets the kernel buffers before
	// flushing them.
	QThresh *uint32 `yaml:"qThreshold" json:"qThreshold,omitempty"`

	// NlBufSiz is the size of the kernel-side buffer, in bytes, records are
	// batched into.
	NlBufSiz *uint32 `yaml:"nlBufSize" json:"nlBufSize,omitempty"`
}

var DefaultConfig = Config{
	Log:                false,
	RawAddressFamilies: []string{Inet.String(), Inet6.String()},
	AddressFamilies:    []AddressFamily{Inet, Inet6},
	Group:              0,
	BufferSize:         DefaultBufferSize,
	Unbind:             false,
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		Log:        DefaultConfig.Log,
		Group:      DefaultConfig.Group,
		BufferSize: DefaultConfig.BufferSize,
		Unbind:     DefaultConfig.Unbind,
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	if def.RawAddressFamilies == nil {
		def.RawAddressFamilies = slices.Clone(DefaultConfig.RawAddressFamilies)
	}
	def.AddressFamilies = make([]AddressFamily, 0, len(def.RawAddressFamilies))
	for _, raw := range def.RawAddressFamilies {
		af, ok := ParseAddressFamily(raw)
		if !ok {
			return fmt.Errorf("wrong address family %q", raw)
		}
		def.AddressFamilies = append(def.AddressFamilies, af)
	}

	if def.RawCopyMode != "" {
		m, ok := ParseCopyMode(def.RawCopyMode)
		if !ok {
			return fmt.Errorf("wrong copy mode %q", def.RawCopyMode)
		}
		def.CopyMode = &m
	}

	if def.RawFlags != nil {
		var flags Flags
		for _, raw := range def.RawFlags {
			f, ok := ParseFlag(raw)
			if !ok {
				return fmt.Errorf("wrong flag %q", raw)
			}
			flags |= f
		}
		def.Flags = &flags
	}

	*c = Config(*def)

	return nil
}

func (c Config) validate() error {
	if len(c.AddressFamilies) == 0 {
		return ErrNoFamilies
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("nflog: invalid buffer size %d", c.BufferSize)
	}
	if c.CopyMode != nil && *c.CopyMode > CopyPacket {
		return fmt.Errorf("nflog: invalid copy mode %d", *c.CopyMode)
	}
	return nil
}

// clone returns a deep copy so that the receiver's slices and pointers are
// never shared.
func (c Config) clone() Config {
	n := c
	n.RawAddressFamilies = slices.Clone(c.RawAddressFamilies)
	n.AddressFamilies = slices.Clone(c.AddressFamilies)
	n.RawFlags = slices.Clone(c.RawFlags)
	n.CopyMode = clonePtr(c.CopyMode)
	n.Range = clonePtr(c.Range)
	n.Flags = clonePtr(c.Flags)
	n.Timeout = clonePtr(c.Timeout)
	n.QThresh = clonePtr(c.QThresh)
	n.NlBufSiz = clonePtr(c.NlBufSiz)
	return n
}

// syncRaw refreshes the Raw* fields out of the typed ones so that marshalling
// the configuration reflects what's actually in effect.
func (c *Config) syncRaw() {
	c.RawAddressFamilies = make([]string, 0, len(c.AddressFamilies))
	for _, af := range c.AddressFamilies {
		c.RawAddressFamilies = append(c.RawAddressFamilies, af.String())
	}

	c.RawCopyMode = ""
	if c.CopyMode != nil {
		c.RawCopyMode = c.CopyMode.String()
	}

	c.RawFlags = nil
	if c.Flags != nil {
		c.RawFlags = c.Flags.names()
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
