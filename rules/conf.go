package rules

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"sigs.k8s.io/knftables"
)

type Config struct {
	Log bool `yaml:"log"`

	Family knftables.Family        `yaml:"family"`
	Table  string                  `yaml:"table"`
	Chain  string                  `yaml:"chain"`
	Hook   knftables.BaseChainHook `yaml:"hook"`

	// Match is prepended verbatim to the log statement (e.g. `udp dport 53`).
	Match string `yaml:"match"`

	Group          uint16 `yaml:"group"`
	Prefix         string `yaml:"prefix"`
	SnapLen        uint32 `yaml:"snapLen"`
	QueueThreshold uint16 `yaml:"queueThreshold"`
}

var DefaultConfig = Config{
	Log:    true,
	Family: knftables.InetFamily,
	Table:  "nflog",
	Chain:  "output",
	Hook:   knftables.OutputHook,
}

var (
	families = map[knftables.Family]bool{
		knftables.IPv4Family:   true,
		knftables.IPv6Family:   true,
		knftables.InetFamily:   true,
		knftables.BridgeFamily: true,
	}

	hooks = map[knftables.BaseChainHook]bool{
		knftables.PreroutingHook:  true,
		knftables.InputHook:       true,
		knftables.ForwardHook:     true,
		knftables.OutputHook:      true,
		knftables.PostroutingHook: true,
	}
)

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	if !families[def.Family] {
		return fmt.Errorf("wrong nftables family %q", def.Family)
	}

	if !hooks[def.Hook] {
		return fmt.Errorf("wrong chain hook %q", def.Hook)
	}

	if def.Table == "" || def.Chain == "" {
		return fmt.Errorf("both a table and a chain name are needed")
	}

	*c = Config(def)

	return nil
}
