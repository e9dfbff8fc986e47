// Package osutils wraps the few OS queries vmacro needs outside input handling.
package osutils

import "errors"

// ErrUnsupportedPlatform is returned where this platform has no implementation
var ErrUnsupportedPlatform = errors.New("osutils: unsupported platform")
