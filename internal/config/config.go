// Package config loads the moodlight configuration: a YAML file decoded
// onto defaults, then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/gateway"
	"github.com/teslashibe/go-moodlight/pkg/serialbridge"
	"github.com/teslashibe/go-moodlight/pkg/smoother"
	"github.com/teslashibe/go-moodlight/pkg/transport"
	"github.com/teslashibe/go-moodlight/pkg/web"
)

// Environment overrides.
const (
	EnvLocalBroker  = "MOODLIGHT_LOCAL_BROKER"
	EnvRemoteBroker = "MOODLIGHT_REMOTE_BROKER"
	EnvSerialPort   = "MOODLIGHT_SERIAL_PORT"
	EnvLogLevel     = "MOODLIGHT_LOG_LEVEL"
)

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the complete moodlight configuration.
type Config struct {
	Local  transport.Config `yaml:"local" json:"local"`
	Remote transport.Config `yaml:"remote" json:"remote"`
	Topics transport.Topics `yaml:"topics" json:"topics"`

	// StatusUpdates publishes the light setting upstream after each local
	// emotion command.
	StatusUpdates bool `yaml:"status_updates" json:"status_updates"`

	Serial   serialbridge.Config `yaml:"serial" json:"serial"`
	Smoother smoother.Config     `yaml:"smoother" json:"smoother"`
	Web      web.Config          `yaml:"web" json:"web"`
	Log      LogConfig           `yaml:"log" json:"log"`

	// Palette overrides light settings per label name.
	Palette map[string]emotions.Setting `yaml:"palette,omitempty" json:"palette,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	local := transport.DefaultConfig()
	local.ClientID = "moodlight-local"
	remote := transport.DefaultRemoteConfig()
	remote.ClientID = "moodlight-remote"

	return Config{
		Local:    local,
		Remote:   remote,
		Topics:   transport.DefaultTopics(),
		Serial:   serialbridge.DefaultConfig(),
		Smoother: smoother.DefaultConfig(),
		Web:      web.DefaultConfig(),
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := Decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode decodes YAML from r onto cfg. Unknown keys are rejected. An
// empty document leaves cfg unchanged.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnv applies environment overrides using getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvLocalBroker); v != "" {
		c.Local.Broker = v
	}
	if v := getenv(EnvRemoteBroker); v != "" {
		c.Remote.Broker = v
	}
	if v := getenv(EnvSerialPort); v != "" {
		c.Serial.Port = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Local.Validate(); err != nil {
		return fmt.Errorf("local: %w", err)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	gw := c.Gateway()
	if err := gw.Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if err := c.Smoother.Validate(); err != nil {
		return fmt.Errorf("smoother: %w", err)
	}
	if err := c.Web.Validate(); err != nil {
		return fmt.Errorf("web: %w", err)
	}
	if _, err := c.BuildPalette(); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	return nil
}

// Gateway returns the routing configuration.
func (c *Config) Gateway() gateway.Config {
	return gateway.Config{
		Topics:        c.Topics,
		StatusUpdates: c.StatusUpdates,
	}
}

// BuildPalette returns the default palette with overrides applied.
func (c *Config) BuildPalette() (*emotions.Palette, error) {
	if len(c.Palette) == 0 {
		return emotions.DefaultPalette(), nil
	}
	return emotions.NewPalette(c.Palette)
}

// YAML returns the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
