// Package gateway routes emotion traffic between the remote and local
// transports and drives the light actuator.
//
// The remote listener applies control messages to the routing mode. While
// the mode is Remote it relays data messages to the local transport and
// turns them into actuator commands. The local listener does the same for
// its own messages, but only in Local mode. Whichever listener is
// authoritative queues commands for the serial bridge and can report the
// resulting light setting upstream and to the dashboard.
package gateway

import (
	"fmt"

	"github.com/teslashibe/go-moodlight/pkg/transport"
)

// Config configures routing.
type Config struct {
	// Topics names the emotion, update and raw topics.
	Topics transport.Topics `yaml:"topics" json:"topics"`

	// StatusUpdates publishes the light setting on the remote update
	// topic after each local emotion command.
	StatusUpdates bool `yaml:"status_updates" json:"status_updates"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Topics:        transport.DefaultTopics(),
		StatusUpdates: false,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Topics.Validate(); err != nil {
		return fmt.Errorf("topics: %w", err)
	}
	if c.StatusUpdates && c.Topics.Update == "" {
		return fmt.Errorf("status_updates requires an update topic")
	}
	return nil
}
