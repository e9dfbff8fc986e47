//go:build darwin

package osutils

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>

static void wakeUpMouse() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint loc = CGEventGetLocation(event);
    CFRelease(event);

    // Move mouse slightly (1 pixel) and back to wake up the system
    CGEventRef move1 = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved,
        CGPointMake(loc.x + 1, loc.y + 1), kCGMouseButtonLeft);
    CGEventPost(kCGHIDEventTap, move1);
    CFRelease(move1);

    CGEventRef move2 = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved,
        CGPointMake(loc.x, loc.y), kCGMouseButtonLeft);
    CGEventPost(kCGHIDEventTap, move2);
    CFRelease(move2);
}

static size_t mainDisplayWidth() { return CGDisplayPixelsWide(CGMainDisplayID()); }
static size_t mainDisplayHeight() { return CGDisplayPixelsHigh(CGMainDisplayID()); }
*/
import "C"

import (
	"fmt"
	"log"
	"os"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// ScreenSize returns the main display size in points
func ScreenSize() (int, int, error) {
	w, h := int(C.mainDisplayWidth()), int(C.mainDisplayHeight())
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("osutils: main display reported %dx%d", w, h)
	}
	return w, h, nil
}

// WakeDisplay simulates a small mouse movement to wake the display from sleep or screensaver
func WakeDisplay() error {
	log.Println("WakeDisplay: Simulating mouse movement to wake display...")
	C.wakeUpMouse()
	return nil
}
