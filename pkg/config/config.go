package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/errors"
)

// Config is everything the client persists between runs. The core never
// touches the file itself; Load/Save are the thin I/O wrapper the rest of
// the program hands a populated struct from.
type Config struct {
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	LastPort string `yaml:"last_port"`
	BaudRate int    `yaml:"baud_rate"`
	Theme    string `yaml:"theme"`

	MQTT struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		TLS     bool   `yaml:"tls"`
	} `yaml:"mqtt"`

	Ack struct {
		Timeout string `yaml:"timeout"`
		Retries int    `yaml:"retries"`
	} `yaml:"ack"`

	Map struct {
		Source  int `yaml:"source"`
		Palette int `yaml:"palette"`
	} `yaml:"map"`

	UI struct {
		SplitLeft     float64 `yaml:"split_left"`
		SplitNodesLog float64 `yaml:"split_nodes_log"`
	} `yaml:"ui"`

	ActiveChannels []int  `yaml:"active_channels"`
	MetricsListen  string `yaml:"metrics_listen"`
}

// DefaultPath is ~/.meshtui.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meshtui.yaml"
	}
	return filepath.Join(home, ".meshtui.yaml")
}

func setDefaults(c *Config) {
	c.Logging.Level = "info"
	c.Logging.File = "meshtui.log"
	c.MQTT.Host = domain.DefaultMQTTHost
	c.MQTT.Port = domain.DefaultMQTTPort
	c.Ack.Timeout = domain.DefaultAckTimeout.String()
	c.Ack.Retries = domain.DefaultAckRetries
	c.UI.SplitLeft = 0.35
	c.UI.SplitNodesLog = 0.65
}

// Load reads the config file, overlaying it onto defaults. A missing file
// is not an error; a file that fails to parse is.
func Load(filename string) (*Config, error) {
	c := &Config{}
	setDefaults(c)

	if data, err := os.ReadFile(filename); err == nil {
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.NewConfigError("failed to parse yaml", err)
		}
	}

	return c, nil
}

func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.NewConfigError("failed to marshal config", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewConfigError("failed to create config dir", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return errors.NewConfigError("failed to write config", err)
	}
	return nil
}

// AckTimeout parses the configured wait bound, falling back to the
// default when the string is malformed.
func (c *Config) AckTimeout() time.Duration {
	d, err := time.ParseDuration(c.Ack.Timeout)
	if err != nil || d <= 0 {
		return domain.DefaultAckTimeout
	}
	return d
}

// Baud returns the configured baud override, or the conventional default.
func (c *Config) Baud() int {
	if c.BaudRate > 0 {
		return c.BaudRate
	}
	return domain.DefaultBaudRate
}
