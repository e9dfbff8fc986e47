//go:build windows

package input

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"vmacro/internal/action"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_MOUSEMOVE   = 0x0200
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// Low-level hook callbacks cannot carry a context pointer, so the running hook is kept here.
var (
	activeMu   sync.Mutex
	activeHook *Hook
)

// Hook is a RawSource backed by the Windows low-level keyboard and mouse hooks
type Hook struct {
	mu       sync.Mutex
	events   chan RawEvent
	running  bool
	threadID uint32
	keyHook  uintptr
	mseHook  uintptr
	held     int // mouse buttons currently down, to tell drags from moves
	dropped  int
}

// NewHook creates a hook with a buffered event channel
func NewHook() *Hook {
	return &Hook{events: make(chan RawEvent, 1000)}
}

// NativeKeyMap returns the key map for this platform's hook codes
func NativeKeyMap() KeyMap {
	return IdentityKeyMap
}

// Start installs the hooks on a dedicated OS thread running a message loop
func (h *Hook) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrAlreadyRunning
	}

	activeMu.Lock()
	activeHook = h
	activeMu.Unlock()

	started := make(chan error, 1)

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		h.threadID = windows.GetCurrentThreadId()
		hMod, _, _ := procGetModuleHandle.Call(0)

		var err error
		h.keyHook, _, err = procSetWindowsHookEx.Call(WH_KEYBOARD_LL, syscall.NewCallback(keyboardHookProc), hMod, 0)
		if h.keyHook == 0 {
			started <- fmt.Errorf("input: set keyboard hook: %w", err)
			return
		}
		h.mseHook, _, err = procSetWindowsHookEx.Call(WH_MOUSE_LL, syscall.NewCallback(mouseHookProc), hMod, 0)
		if h.mseHook == 0 {
			procUnhookWindowsHookEx.Call(h.keyHook)
			started <- fmt.Errorf("input: set mouse hook: %w", err)
			return
		}
		started <- nil
		log.Println("Hook: Windows low-level hooks installed")

		var msg struct {
			Hwnd    syscall.Handle
			Message uint32
			Wparam  uintptr
			Lparam  uintptr
			Time    uint32
			Pt      struct{ X, Y int32 }
		}
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}

		procUnhookWindowsHookEx.Call(h.keyHook)
		procUnhookWindowsHookEx.Call(h.mseHook)
		log.Println("Hook: Windows low-level hooks removed")
	}()

	if err := <-started; err != nil {
		return err
	}
	h.running = true
	return nil
}

// Stop ends the message loop and closes the event channel
func (h *Hook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	procPostThreadMessage.Call(uintptr(h.threadID), WM_QUIT, 0, 0)

	activeMu.Lock()
	if activeHook == h {
		activeHook = nil
	}
	activeMu.Unlock()

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

// deliver hands an event to the consumer without blocking the hook thread
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

func current() *Hook {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeHook
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := current()
	if nCode == 0 && h != nil {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		ev := RawEvent{Code: kbd.VkCode, At: time.Now()}
		switch wParam {
		case WM_KEYDOWN, WM_SYSKEYDOWN:
			ev.Kind = KeyPressed
		case WM_KEYUP, WM_SYSKEYUP:
			ev.Kind = KeyReleased
		}
		if ev.Kind != 0 {
			h.deliver(ev)
		}
	}
	var hook uintptr
	if h != nil {
		hook = h.keyHook
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := current()
	if nCode == 0 && h != nil {
		ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		ev := RawEvent{X: int(ms.Point.X), Y: int(ms.Point.Y), At: time.Now()}

		switch wParam {
		case WM_MOUSEMOVE:
			ev.Kind = MouseMoved
			if h.held > 0 {
				ev.Kind = MouseDragged
			}
		case WM_LBUTTONDOWN:
			ev.Kind, ev.Button = MousePressed, action.ButtonLeft
		case WM_LBUTTONUP:
			ev.Kind, ev.Button = MouseReleased, action.ButtonLeft
		case WM_RBUTTONDOWN:
			ev.Kind, ev.Button = MousePressed, action.ButtonRight
		case WM_RBUTTONUP:
			ev.Kind, ev.Button = MouseReleased, action.ButtonRight
		case WM_MBUTTONDOWN:
			ev.Kind, ev.Button = MousePressed, action.ButtonScroll
		case WM_MBUTTONUP:
			ev.Kind, ev.Button = MouseReleased, action.ButtonScroll
		}

		switch ev.Kind {
		case MousePressed:
			h.held++
		case MouseReleased:
			if h.held > 0 {
				h.held--
			}
		}
		if ev.Kind != 0 {
			h.deliver(ev)
		}
	}
	var hook uintptr
	if h != nil {
		hook = h.mseHook
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}
