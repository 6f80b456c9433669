package nflog

import (
	"os"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

func readConf(t *testing.T, path string) (Config, error) {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("error reading %q: %v", path, err)
	}

	c := Config{}
	err = yaml.Unmarshal(b, &c)
	return c, err
}

func TestConfigYAML(t *testing.T) {
	tests := map[string]Config{
		"defaults.yaml": DefaultConfig,
		"populated.yaml": {
			Log:                true,
			RawAddressFamilies: []string{"inet", "bridge"},
			AddressFamilies:    []AddressFamily{Inet, Bridge},
			Group:              42,
			BufferSize:         65536,
			Unbind:             true,
			RawCopyMode:        "packet",
			CopyMode:           ptr(CopyPacket),
			Range:              ptr(uint32(65535)),
			RawFlags:           []string{"sequence", "global-sequence"},
			Flags:              ptr(FlagSequence | FlagGlobalSequence),
			Timeout:            ptr(uint32(100)),
			QThresh:            ptr(uint32(16)),
			NlBufSiz:           ptr(uint32(131072)),
		},
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := readConf(t, "testdata/conf/"+name)
			if err != nil {
				t.Fatalf("error parsing: %v", err)
			}
			t.Logf("%s:\n%s", name, got)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("unexpected configuration (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigYAMLErrors(t *testing.T) {
	for _, name := range []string{"bad_family.yaml", "bad_mode.yaml", "bad_flag.yaml"} {
		t.Run(name, func(t *testing.T) {
			if _, err := readConf(t, "testdata/conf/"+name); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	c, err := readConf(t, "testdata/conf/populated.yaml")
	if err != nil {
		t.Fatalf("error parsing: %v", err)
	}

	var again Config
	if err := yaml.Unmarshal([]byte(c.String()), &again); err != nil {
		t.Fatalf("error parsing the marshalled configuration: %v", err)
	}

	if diff := cmp.Diff(c, again); diff != "" {
		t.Errorf("configuration changed after a round trip (-want +got):\n%s", diff)
	}
}

func TestEnumerations(t *testing.T) {
	if got := (FlagSequence | FlagGlobalSequence).String(); got != "sequence|global-sequence" {
		t.Errorf("unexpected flags %q", got)
	}
	if got := Flags(0).String(); got != "none" {
		t.Errorf("unexpected flags %q", got)
	}
	if got := CopyMode(7).String(); got != "CopyMode(7)" {
		t.Errorf("unexpected copy mode %q", got)
	}
	if af, ok := ParseAddressFamily("INET6"); !ok || af != Inet6 {
		t.Errorf("unexpected family %v", af)
	}
	if got := AddressFamily(99).String(); got != "AddressFamily(99)" {
		t.Errorf("unexpected family %q", got)
	}
}
