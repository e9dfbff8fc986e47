//go:build darwin

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

static CGPoint currentMousePosition() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint cursor = CGEventGetLocation(event);
    CFRelease(event);
    return cursor;
}

static void injectMouseMove(double x, double y) {
    CGEventRef event = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

static int injectMouseButton(int button, bool pressed) {
    CGMouseButton cgButton;
    CGEventType eventType;

    switch (button) {
        case 1:
            cgButton = kCGMouseButtonLeft;
            eventType = pressed ? kCGEventLeftMouseDown : kCGEventLeftMouseUp;
            break;
        case 2:
            cgButton = kCGMouseButtonRight;
            eventType = pressed ? kCGEventRightMouseDown : kCGEventRightMouseUp;
            break;
        case 3:
            cgButton = kCGMouseButtonCenter;
            eventType = pressed ? kCGEventOtherMouseDown : kCGEventOtherMouseUp;
            break;
        default:
            return 0;
    }

    CGEventRef event = CGEventCreateMouseEvent(NULL, eventType, currentMousePosition(), cgButton);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
    return 1;
}

static void injectKey(CGKeyCode keyCode, bool pressed) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, keyCode, pressed);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

// colorAt renders a 1x1 capture of the main display into an RGBX buffer
static int colorAt(int x, int y, uint32_t *out) {
    CGDirectDisplayID display = CGMainDisplayID();
    if (x < 0 || y < 0 || x >= (int)CGDisplayPixelsWide(display) || y >= (int)CGDisplayPixelsHigh(display)) {
        return 0;
    }
    CGImageRef img = CGDisplayCreateImageForRect(display, CGRectMake(x, y, 1, 1));
    if (!img) {
        return -1;
    }
    unsigned char px[4] = {0, 0, 0, 0};
    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(px, 1, 1, 8, 4, cs, kCGImageAlphaNoneSkipLast);
    CGContextDrawImage(ctx, CGRectMake(0, 0, 1, 1), img);
    CGContextRelease(ctx);
    CGColorSpaceRelease(cs);
    CGImageRelease(img);
    *out = ((uint32_t)px[0] << 16) | ((uint32_t)px[1] << 8) | (uint32_t)px[2];
    return 1;
}
*/
import "C"
import (
	"fmt"

	"vmacro/internal/action"
)

// macOS implementation of input injection using CoreGraphics

// OSInjector posts synthetic CGEvents to the session event tap
type OSInjector struct{}

// NewInjector creates a new input injector for macOS
func NewInjector() *OSInjector {
	return &OSInjector{}
}

// InjectMouseMove moves the cursor to absolute display coordinates
func (i *OSInjector) InjectMouseMove(x, y int) error {
	C.injectMouseMove(C.double(x), C.double(y))
	return nil
}

// InjectMouseButton presses or releases a button at the current cursor position
func (i *OSInjector) InjectMouseButton(button action.Button, pressed bool) error {
	if C.injectMouseButton(C.int(button), C.bool(pressed)) == 0 {
		return fmt.Errorf("input: invalid button number: %d", button)
	}
	return nil
}

// InjectKey injects a keyboard event, converting the virtual-key code to a CGKeyCode
func (i *OSInjector) InjectKey(keyCode uint32, pressed bool) error {
	macKeyCode, ok := MacKeyCode(keyCode)
	if !ok {
		return fmt.Errorf("input: no macOS key for virtual-key code 0x%X", keyCode)
	}
	C.injectKey(C.CGKeyCode(macKeyCode), C.bool(pressed))
	return nil
}

// ScreenReader samples pixels from the main display
type ScreenReader struct{}

// NewColorReader creates a CoreGraphics color reader
func NewColorReader() *ScreenReader {
	return &ScreenReader{}
}

// ColorAt returns the color of the pixel at (x, y)
func (r *ScreenReader) ColorAt(x, y int) (action.Color, error) {
	var out C.uint32_t
	switch C.colorAt(C.int(x), C.int(y), &out) {
	case 0:
		return 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	case -1:
		return 0, fmt.Errorf("input: display capture failed at (%d,%d)", x, y)
	}
	return action.Color(out), nil
}
