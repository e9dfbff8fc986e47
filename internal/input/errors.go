package input

import "errors"

var (
	// ErrUnsupportedPlatform is returned by adapters on platforms without an implementation
	ErrUnsupportedPlatform = errors.New("input: unsupported platform")

	// ErrAlreadyRunning is returned when a hook is started twice
	ErrAlreadyRunning = errors.New("input: hook already running")

	// ErrOutOfBounds is returned when a color is requested outside the display
	ErrOutOfBounds = errors.New("input: coordinate outside display")
)
