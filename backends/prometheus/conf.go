package prometheus

import (
	"github.com/goccy/go-yaml"
)

type Config struct {
	Log         bool   `yaml:"log"`
	BindAddress string `yaml:"bindAddress"`
	Port        uint16 `yaml:"port"`

	// RuntimeMetrics adds the Go runtime and process collectors.
	RuntimeMetrics bool `yaml:"runtimeMetrics"`
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		Log:            true,
		BindAddress:    "127.0.0.1",
		Port:           9101,
		RuntimeMetrics: true,
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}
