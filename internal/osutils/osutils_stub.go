//go:build !windows && !darwin

package osutils

import "os"

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// ScreenSize is not available here; callers fall back to configured bounds
func ScreenSize() (int, int, error) {
	return 0, 0, ErrUnsupportedPlatform
}

// WakeDisplay is a no-op stub for unsupported platforms
func WakeDisplay() error {
	return ErrUnsupportedPlatform
}
