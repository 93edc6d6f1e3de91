package serialbridge

import "errors"

var (
	// ErrUnknownCommand is returned for a command type the device does not understand.
	ErrUnknownCommand = errors.New("unknown actuator command")

	// ErrShutdownTimeout is returned when Close could not stop the consumer in time.
	ErrShutdownTimeout = errors.New("serial bridge shutdown timed out")

	// ErrPortClosed is returned for writes attempted after Close released the port.
	ErrPortClosed = errors.New("serial port closed")
)
