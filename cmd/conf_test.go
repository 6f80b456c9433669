package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scitags/go-nflog/backends/prometheus"
	"github.com/scitags/go-nflog/nflog"
	"github.com/scitags/go-nflog/plugins/api"
	"github.com/scitags/go-nflog/rules"
	"github.com/spf13/pflag"
	"sigs.k8s.io/knftables"
)

func ptr[T any](v T) *T {
	return &v
}

func TestReadConf(t *testing.T) {
	c, err := ReadConf("testdata/full.yaml")
	if err != nil {
		t.Fatalf("error parsing: %v", err)
	}
	t.Logf("full.yaml:\n%s", c)

	wantQueue := &nflog.Config{
		Log:                true,
		RawAddressFamilies: []string{"inet"},
		AddressFamilies:    []nflog.AddressFamily{nflog.Inet},
		Group:              7,
		BufferSize:         nflog.DefaultBufferSize,
		RawCopyMode:        "packet",
		CopyMode:           ptr(nflog.CopyPacket),
		Range:              ptr(uint32(65535)),
		RawFlags:           []string{"sequence"},
		Flags:              ptr(nflog.FlagSequence),
	}
	if diff := cmp.Diff(wantQueue, c.Queue); diff != "" {
		t.Errorf("unexpected queue configuration (-want +got):\n%s", diff)
	}

	wantRule := &rules.Config{
		Log:    true,
		Family: knftables.IPv4Family,
		Table:  "nflogd",
		Chain:  "output",
		Hook:   knftables.OutputHook,
		Match:  "ip daddr 127.0.0.1 udp dport 5555",
		Prefix: "nflogd: ",
	}
	if diff := cmp.Diff(wantRule, c.Rule); diff != "" {
		t.Errorf("unexpected rule configuration (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(&OutputConfig{Format: "json"}, c.Output); diff != "" {
		t.Errorf("unexpected output configuration (-want +got):\n%s", diff)
	}

	wantProm := &prometheus.Config{Log: true, BindAddress: "127.0.0.1", Port: 9200, RuntimeMetrics: true}
	if diff := cmp.Diff(wantProm, c.Backends.Prometheus); diff != "" {
		t.Errorf("unexpected prometheus configuration (-want +got):\n%s", diff)
	}

	wantApi := &api.Config{Log: true, BindAddress: "127.0.0.1", BindPort: 10600}
	if diff := cmp.Diff(wantApi, c.Plugins.Api); diff != "" {
		t.Errorf("unexpected api configuration (-want +got):\n%s", diff)
	}
}

func TestReadConfDefaults(t *testing.T) {
	for _, path := range []string{"", "testdata/empty.yaml"} {
		c, err := ReadConf(path)
		if err != nil {
			t.Fatalf("error parsing %q: %v", path, err)
		}

		if diff := cmp.Diff(&nflog.DefaultConfig, c.Queue); diff != "" {
			t.Errorf("%q: unexpected queue configuration (-want +got):\n%s", path, diff)
		}
		if diff := cmp.Diff(&DefaultOutputConfig, c.Output); diff != "" {
			t.Errorf("%q: unexpected output configuration (-want +got):\n%s", path, diff)
		}
		if c.Rule != nil || c.Backends != nil || c.Plugins != nil {
			t.Errorf("%q: optional components enabled by default", path)
		}
	}
}

func TestReadConfErrors(t *testing.T) {
	for _, path := range []string{"testdata/bad_output.yaml", "testdata/bad_rule.yaml", "testdata/missing.yaml"} {
		if _, err := ReadConf(path); err == nil {
			t.Errorf("%s: expected an error", path)
		}
	}
}

func TestGroupFlag(t *testing.T) {
	tests := map[string]struct {
		args    []string
		want    uint16
		wantErr bool
	}{
		"unset":        {args: nil, want: 7},
		"zero":         {args: []string{"--group", "0"}, want: 0},
		"override":     {args: []string{"--group", "65535"}, want: 65535},
		"out of range": {args: []string{"--group", "70000"}, wantErr: true},
		"negative":     {args: []string{"--group", "-1"}, wantErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
			flags.Uint16Var(&groupFlag, "group", 0, "")

			err := flags.Parse(test.args)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected %v to be rejected", test.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("error parsing %v: %v", test.args, err)
			}

			conf, err := ReadConf("testdata/full.yaml")
			if err != nil {
				t.Fatalf("error parsing: %v", err)
			}

			overrideGroup(flags, conf)
			if conf.Queue.Group != test.want {
				t.Errorf("expected group %d, got %d", test.want, conf.Queue.Group)
			}
		})
	}
}
