//go:build !windows && !darwin

package input

import "vmacro/internal/action"

// Stub implementation for platforms without hook or injection support

// Hook is a stub raw input source
type Hook struct{}

// NewHook creates a stub hook
func NewHook() *Hook {
	return &Hook{}
}

// Start always fails on this platform
func (h *Hook) Start() error {
	return ErrUnsupportedPlatform
}

// Stop is a no-op
func (h *Hook) Stop() error {
	return nil
}

// Events returns a nil channel
func (h *Hook) Events() <-chan RawEvent {
	return nil
}

// NativeKeyMap returns the key map for this platform's hook codes
func NativeKeyMap() KeyMap {
	return IdentityKeyMap
}

// OSInjector is a stub input injector
type OSInjector struct{}

// NewInjector creates a stub injector
func NewInjector() *OSInjector {
	return &OSInjector{}
}

func (i *OSInjector) InjectMouseMove(x, y int) error { return ErrUnsupportedPlatform }

func (i *OSInjector) InjectMouseButton(button action.Button, pressed bool) error {
	return ErrUnsupportedPlatform
}

func (i *OSInjector) InjectKey(keyCode uint32, pressed bool) error { return ErrUnsupportedPlatform }

// ScreenReader is a stub color reader
type ScreenReader struct{}

// NewColorReader creates a stub color reader
func NewColorReader() *ScreenReader {
	return &ScreenReader{}
}

func (r *ScreenReader) ColorAt(x, y int) (action.Color, error) {
	return 0, ErrUnsupportedPlatform
}
