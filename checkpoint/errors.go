package checkpoint

import "errors"

var (
	// ErrCorrupt is returned when a checkpoint fails its integrity checks.
	ErrCorrupt = errors.New("corrupt checkpoint")

	// ErrIncompatibleVersion is returned when the frame version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible checkpoint version")
)
