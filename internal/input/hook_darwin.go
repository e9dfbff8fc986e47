//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

CGEventRef eventCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

static CFRunLoopRef tapLoop = NULL;

// runEventTap blocks in the current thread's run loop until stopEventTap is called.
// It returns 0 if the tap could not be created.
static int runEventTap(uintptr_t refcon) {
    CGEventMask mask = CGEventMaskBit(kCGEventMouseMoved) |
        CGEventMaskBit(kCGEventLeftMouseDragged) | CGEventMaskBit(kCGEventRightMouseDragged) |
        CGEventMaskBit(kCGEventOtherMouseDragged) |
        CGEventMaskBit(kCGEventLeftMouseDown) | CGEventMaskBit(kCGEventLeftMouseUp) |
        CGEventMaskBit(kCGEventRightMouseDown) | CGEventMaskBit(kCGEventRightMouseUp) |
        CGEventMaskBit(kCGEventOtherMouseDown) | CGEventMaskBit(kCGEventOtherMouseUp) |
        CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp) |
        CGEventMaskBit(kCGEventFlagsChanged);

    CFMachPortRef tap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        mask,
        eventCallback,
        (void*)refcon
    );
    if (!tap) {
        return 0;
    }

    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    tapLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(tapLoop, source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    CFRunLoopRun();

    CGEventTapEnable(tap, false);
    CFRelease(source);
    CFRelease(tap);
    tapLoop = NULL;
    return 1;
}

static void stopEventTap() {
    if (tapLoop) {
        CFRunLoopStop(tapLoop);
    }
}
*/
import "C"
import (
	"fmt"
	"log"
	"runtime"
	"runtime/cgo"
	"sync"
	"time"
)

// Hook is a RawSource backed by a listen-only CGEventTap.
// Accessibility permission is required for the tap to be created.
type Hook struct {
	mu      sync.Mutex
	events  chan RawEvent
	running bool
	handle  cgo.Handle
	dropped int
}

// NewHook creates a hook with a buffered event channel
func NewHook() *Hook {
	return &Hook{events: make(chan RawEvent, 1000)}
}

// NativeKeyMap returns the key map for CGKeyCodes
func NativeKeyMap() KeyMap {
	return MacKeyMap
}

// Start creates the event tap on a dedicated OS thread
func (h *Hook) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrAlreadyRunning
	}

	h.handle = cgo.NewHandle(h)
	h.running = true
	failed := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		log.Println("Hook: macOS CGEventTap started")
		if C.runEventTap(C.uintptr_t(h.handle)) == 0 {
			close(failed)
			return
		}
		log.Println("Hook: macOS CGEventTap stopped")
	}()

	// The tap either fails immediately or runs until Stop
	select {
	case <-failed:
		h.running = false
		h.handle.Delete()
		return fmt.Errorf("input: failed to create CGEventTap, accessibility permission missing?")
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

// Stop ends the tap's run loop and closes the event channel
func (h *Hook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	C.stopEventTap()
	h.handle.Delete()
	if h.dropped > 0 {
		log.Printf("Hook: dropped %d events because the consumer fell behind", h.dropped)
	}
	close(h.events)
	return nil
}

// Events returns the raw event channel
func (h *Hook) Events() <-chan RawEvent {
	return h.events
}

func (h *Hook) deliver(ev RawEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	select {
	case h.events <- ev:
	default:
		h.dropped++
	}
}
