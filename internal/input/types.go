// Package input defines the OS collaborators vmacro depends on: a source of raw
// input events, a synthetic input injector and a screen color reader.
//
// Platform adapters live in build-tagged files; everything above this package
// only sees the interfaces.
package input

import (
	"time"

	"vmacro/internal/action"
)

// RawKind is the type of a raw event delivered by a hook
type RawKind int

const (
	MouseMoved RawKind = iota + 1
	MouseDragged
	MousePressed
	MouseReleased
	KeyPressed
	KeyReleased
)

func (k RawKind) String() string {
	switch k {
	case MouseMoved:
		return "mouse_moved"
	case MouseDragged:
		return "mouse_dragged"
	case MousePressed:
		return "mouse_pressed"
	case MouseReleased:
		return "mouse_released"
	case KeyPressed:
		return "key_pressed"
	case KeyReleased:
		return "key_released"
	}
	return "unknown"
}

// IsKey reports whether the event carries a key code rather than coordinates
func (k RawKind) IsKey() bool { return k == KeyPressed || k == KeyReleased }

// RawEvent is an event as delivered by the OS hook
type RawEvent struct {
	Kind   RawKind
	X      int // absolute screen coordinates for mouse events
	Y      int
	Button action.Button // for MousePressed / MouseReleased
	Code   uint32        // native key code for key events
	At     time.Time     // when the hook saw the event; zero if unknown
}

// RawSource delivers raw input events from the OS
type RawSource interface {
	Start() error
	Stop() error
	Events() <-chan RawEvent
}

// Injector synthesizes input. Each call is synchronous: when it returns the OS has the event.
type Injector interface {
	InjectMouseMove(x, y int) error
	InjectMouseButton(button action.Button, pressed bool) error
	InjectKey(keyCode uint32, pressed bool) error
}

// ColorReader samples the screen. It fails for coordinates outside the display.
type ColorReader interface {
	ColorAt(x, y int) (action.Color, error)
}

// KeyMap translates a native key code into the engine's virtual-key space.
// It returns false for codes with no mapping.
type KeyMap func(native uint32) (uint32, bool)
