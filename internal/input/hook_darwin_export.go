//go:build darwin

package input

/*
#include <CoreGraphics/CoreGraphics.h>
*/
import "C"
import (
	"runtime/cgo"
	"time"
	"unsafe"

	"vmacro/internal/action"
)

// mac virtual key codes of the modifier keys, reported through kCGEventFlagsChanged
var modifierFlags = map[uint32]C.CGEventFlags{
	54: C.kCGEventFlagMaskCommand,
	55: C.kCGEventFlagMaskCommand,
	56: C.kCGEventFlagMaskShift,
	60: C.kCGEventFlagMaskShift,
	58: C.kCGEventFlagMaskAlternate,
	61: C.kCGEventFlagMaskAlternate,
	59: C.kCGEventFlagMaskControl,
	62: C.kCGEventFlagMaskControl,
}

//export eventCallback
func eventCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	h, ok := cgo.Handle(uintptr(refcon)).Value().(*Hook)
	if !ok {
		return event
	}

	ev := RawEvent{At: time.Now()}
	loc := C.CGEventGetLocation(event)
	ev.X, ev.Y = int(loc.x), int(loc.y)

	switch eventType {
	case C.kCGEventMouseMoved:
		ev.Kind = MouseMoved
	case C.kCGEventLeftMouseDragged, C.kCGEventRightMouseDragged, C.kCGEventOtherMouseDragged:
		ev.Kind = MouseDragged
	case C.kCGEventLeftMouseDown:
		ev.Kind, ev.Button = MousePressed, action.ButtonLeft
	case C.kCGEventLeftMouseUp:
		ev.Kind, ev.Button = MouseReleased, action.ButtonLeft
	case C.kCGEventRightMouseDown:
		ev.Kind, ev.Button = MousePressed, action.ButtonRight
	case C.kCGEventRightMouseUp:
		ev.Kind, ev.Button = MouseReleased, action.ButtonRight
	case C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp:
		// Only the middle button has a wire number
		if C.CGEventGetIntegerValueField(event, C.kCGMouseEventButtonNumber) != 2 {
			return event
		}
		ev.Kind, ev.Button = MouseReleased, action.ButtonScroll
		if eventType == C.kCGEventOtherMouseDown {
			ev.Kind = MousePressed
		}
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		ev.Code = uint32(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		ev.Kind = KeyReleased
		if eventType == C.kCGEventKeyDown {
			ev.Kind = KeyPressed
		}
	case C.kCGEventFlagsChanged:
		ev.Code = uint32(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		mask, ok := modifierFlags[ev.Code]
		if !ok {
			return event
		}
		ev.Kind = KeyReleased
		if C.CGEventGetFlags(event)&mask != 0 {
			ev.Kind = KeyPressed
		}
	default:
		return event
	}

	h.deliver(ev)
	return event
}
