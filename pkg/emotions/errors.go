package emotions

import "errors"

var (
	// ErrUnknownLabel is returned when a name is not one of the known labels.
	ErrUnknownLabel = errors.New("unknown emotion label")

	// ErrInvalidSetting is returned when a palette entry is malformed.
	ErrInvalidSetting = errors.New("invalid light setting")
)
