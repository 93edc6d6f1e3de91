package gateway

import "errors"

var (
	// ErrNoTransport is returned by New when a transport is missing.
	ErrNoTransport = errors.New("transport is required")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("gateway already running")
)
