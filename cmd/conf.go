package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/scitags/go-nflog/backends/prometheus"
	"github.com/scitags/go-nflog/nflog"
	"github.com/scitags/go-nflog/plugins/api"
	"github.com/scitags/go-nflog/rules"
)

type Config struct {
	Queue  *nflog.Config `yaml:"queue"`
	Rule   *rules.Config `yaml:"rule"`
	Output *OutputConfig `yaml:"output"`

	Backends *struct {
		Prometheus *prometheus.Config `yaml:"prometheus"`
	} `yaml:"backends"`

	Plugins *struct {
		Api *api.Config `yaml:"api"`
	} `yaml:"plugins"`
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

	def := &config{}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)
	c.setDefaults()

	return nil
}

// setDefaults fills in the components that are always needed.
func (c *Config) setDefaults() {
	if c.Queue == nil {
		q := nflog.DefaultConfig
		c.Queue = &q
	}

	if c.Output == nil {
		o := DefaultOutputConfig
		c.Output = &o
	}
}

type OutputConfig struct {
	// Format is one of log, json or none.
	Format string `yaml:"format"`

	// Decode the network and transport headers of the payload.
	Decode bool `yaml:"decode"`
}

var DefaultOutputConfig = OutputConfig{
	Format: "log",
	Decode: true,
}

var outputFormats = map[string]bool{"log": true, "json": true, "none": true}

func (c *OutputConfig) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config OutputConfig

	def := config(DefaultOutputConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	def.Format = strings.ToLower(def.Format)
	if !outputFormats[def.Format] {
		return fmt.Errorf("wrong output format %q", def.Format)
	}

	*c = OutputConfig(def)

	return nil
}

// ReadConf parses the configuration at path. An empty path yields the
// default configuration.
func ReadConf(path string) (*Config, error) {
	var r []byte
	if path != "" {
		var err error
		r, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading the configuration file: %w", err)
		}
	}

	conf := Config{}
	if len(r) == 0 {
		r = []byte("{}")
	}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}
	conf.setDefaults()

	return &conf, nil
}
