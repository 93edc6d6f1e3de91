// Package transport provides a high-level wrapper around an MQTT
// connection for the emotion gateway.
//
// This package handles:
//   - Connecting to a broker over TCP or websockets
//   - Publishing payloads with bounded waits
//   - Subscriptions delivered as ordered channels instead of callbacks
//   - Connection statistics
package transport

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds MQTT client configuration.
type Config struct {
	// Broker is the broker URL.
	// Examples: "tcp://localhost:1883", "ws://broker.emqx.io:8083/mqtt"
	Broker string `yaml:"broker" json:"broker"`

	// ClientID is the client identifier prefix. A random suffix is
	// appended so two gateway instances never collide.
	ClientID string `yaml:"client_id" json:"client_id"`

	// QoS is the MQTT quality of service for publishes and subscriptions.
	QoS byte `yaml:"qos" json:"qos"`

	// KeepAlive is the MQTT keepalive period.
	KeepAlive time.Duration `yaml:"keep_alive" json:"keep_alive"`

	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`

	// PublishTimeout bounds the wait for a publish acknowledgement.
	PublishTimeout time.Duration `yaml:"publish_timeout" json:"publish_timeout"`

	// ReconnectInterval is the delay between connection attempts, and the
	// ceiling of the broker library's reconnect backoff once connected.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" json:"reconnect_interval"`

	// MaxConnectAttempts is the number of initial connection attempts made
	// by ConnectWithRetry. 0 means unlimited.
	MaxConnectAttempts int `yaml:"max_connect_attempts" json:"max_connect_attempts"`

	// Buffer is the capacity of each subscription channel.
	Buffer int `yaml:"buffer" json:"buffer"`
}

// DefaultConfig returns a Config for a broker on localhost.
func DefaultConfig() Config {
	return Config{
		Broker:             "tcp://localhost:1883",
		ClientID:           "moodlight",
		QoS:                0,
		KeepAlive:          60 * time.Second,
		ConnectTimeout:     5 * time.Second,
		PublishTimeout:     2 * time.Second,
		ReconnectInterval:  2 * time.Second,
		MaxConnectAttempts: 1,
		Buffer:             64,
	}
}

// DefaultRemoteConfig returns a Config for the public websocket broker.
func DefaultRemoteConfig() Config {
	cfg := DefaultConfig()
	cfg.Broker = "ws://broker.emqx.io:8083/mqtt"
	return cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	u, err := url.Parse(c.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker url %q: %w", c.Broker, err)
	}
	switch u.Scheme {
	case "tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("broker scheme must be tcp, ssl, ws or wss, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker url %q has no host", c.Broker)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish_timeout must be positive")
	}
	if c.MaxConnectAttempts < 0 {
		return fmt.Errorf("max_connect_attempts must not be negative")
	}
	if c.Buffer <= 0 {
		return fmt.Errorf("buffer must be positive")
	}
	return nil
}
