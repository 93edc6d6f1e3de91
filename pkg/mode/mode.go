// Package mode holds the process-wide routing mode: which transport is
// authoritative for emotion events right now.
//
// The mode is changed only by control messages from the remote transport
// and read by both transport listeners. Controller stores it in an atomic
// cell so reads and writes from different goroutines never tear.
package mode

import (
	"sync/atomic"

	"github.com/teslashibe/go-moodlight/pkg/protocol"
)

// Mode is the routing mode.
type Mode int32

const (
	// Remote means the remote transport is authoritative: its data
	// messages are relayed to the local transport and local messages are
	// ignored. This is the startup mode.
	Remote Mode = iota

	// Local means the local transport is authoritative: local messages
	// drive the actuator and remote data messages are dropped.
	Local
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case Remote:
		return "remote"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// FromAI maps the control flag to a mode: ai=true selects Local.
func FromAI(ai bool) Mode {
	if ai {
		return Local
	}
	return Remote
}

// Controller owns the routing mode. The zero value is ready to use and
// starts in Remote.
type Controller struct {
	v       atomic.Int32
	changes atomic.Uint64
}

// NewController returns a Controller in Remote mode.
func NewController() *Controller {
	return &Controller{}
}

// Apply sets the mode from a control flag and reports whether it changed.
// Applying the same flag twice is a no-op.
func (c *Controller) Apply(ai bool) (changed bool) {
	next := FromAI(ai)
	prev := Mode(c.v.Swap(int32(next)))
	if prev != next {
		c.changes.Add(1)
		return true
	}
	return false
}

// ApplyControl applies a control message's ai flag. It reports whether the
// mode changed.
func (c *Controller) ApplyControl(msg protocol.ControlMessage) bool {
	return c.Apply(msg.AI)
}

// Current returns the mode.
func (c *Controller) Current() Mode {
	return Mode(c.v.Load())
}

// IsLocal reports whether the local transport is authoritative.
func (c *Controller) IsLocal() bool {
	return c.Current() == Local
}

// Changes returns how many times Apply actually switched the mode.
func (c *Controller) Changes() uint64 {
	return c.changes.Load()
}
