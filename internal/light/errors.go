package light

import "errors"

// Error kinds returned by the model. Every error wraps exactly one of these.
var (
	// ErrRange is returned when a numeric input is outside its documented bound.
	ErrRange = errors.New("value out of range")

	// ErrShape is returned when an RGBx array has the wrong length for the
	// configured RGB data type and LED operating mode.
	ErrShape = errors.New("invalid channel count")

	// ErrUnsupportedCommand is returned when a command type is not handled.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrState is returned when the LED operating mode and RGB data type
	// combination cannot produce channel values.
	ErrState = errors.New("inconsistent light state")
)
