package transport

import "errors"

var (
	// ErrNotConnected is returned when publishing or subscribing before Connect.
	ErrNotConnected = errors.New("transport not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport closed")

	// ErrTimeout is returned when the broker does not answer in time.
	ErrTimeout = errors.New("transport operation timed out")

	// ErrAlreadySubscribed is returned when a topic is subscribed twice.
	ErrAlreadySubscribed = errors.New("topic already subscribed")
)
