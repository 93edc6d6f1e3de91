package protocol

import "errors"

var (
	// ErrEmptyPayload is returned for an empty or whitespace-only payload.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrMalformed is returned when a payload is not a JSON object.
	ErrMalformed = errors.New("malformed payload")

	// ErrNoCommand is returned when a data payload carries no actuator command.
	ErrNoCommand = errors.New("no actuator command in payload")

	// ErrNotData is returned when a command is requested from a control message.
	ErrNotData = errors.New("not a data message")
)
