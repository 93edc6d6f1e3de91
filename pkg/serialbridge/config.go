// Package serialbridge drives the light actuator over a serial line.
//
// Network listeners hand commands to a Bridge through a bounded FIFO
// queue; a single consumer goroutine turns each command into one or two
// newline-terminated lines and writes them to the serial port. Slow or
// failing writes therefore never stall the listeners.
//
// Line protocol:
//
//	COLOR:<value>\n
//	BRIGHTNESS:<value>\n
package serialbridge

import (
	"fmt"
	"time"
)

// Config configures the serial bridge.
type Config struct {
	// Enabled turns the serial stage on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Port is the serial device, e.g. "/dev/ttyUSB0" or "COM3".
	Port string `yaml:"port" json:"port"`

	// BaudRate is the line speed.
	BaudRate int `yaml:"baud_rate" json:"baud_rate"`

	// QueueSize is the capacity of the command queue. Commands arriving
	// while it is full are dropped.
	QueueSize int `yaml:"queue_size" json:"queue_size"`

	// SettleDelay is how long to wait after opening the port before the
	// first write. Many microcontroller boards reset when the port opens.
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`

	// ShutdownTimeout bounds how long Close waits to enqueue the stop
	// marker and for the consumer to finish.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// CloseGrace is how long Close waits, after ShutdownTimeout, for a
	// write in progress to finish before closing the port under it.
	CloseGrace time.Duration `yaml:"close_grace" json:"close_grace"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Port:            "/dev/ttyUSB0",
		BaudRate:        9600,
		QueueSize:       64,
		SettleDelay:     2 * time.Second,
		ShutdownTimeout: 3 * time.Second,
		CloseGrace:      500 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid. A disabled bridge is
// always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if c.CloseGrace < 0 {
		return fmt.Errorf("close_grace must not be negative")
	}
	return nil
}
