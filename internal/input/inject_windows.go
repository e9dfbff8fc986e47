//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"vmacro/internal/action"
)

var (
	gdi32            = windows.NewLazySystemDLL("gdi32.dll")
	procSendInput    = user32.NewProc("SendInput")
	procSetCursorPos = user32.NewProc("SetCursorPos")
	procGetDC        = user32.NewProc("GetDC")
	procReleaseDC    = user32.NewProc("ReleaseDC")
	procGetPixel     = gdi32.NewProc("GetPixel")
)

const (
	INPUT_MOUSE    = 0
	INPUT_KEYBOARD = 1

	MOUSEEVENTF_LEFTDOWN   = 0x0002
	MOUSEEVENTF_LEFTUP     = 0x0004
	MOUSEEVENTF_RIGHTDOWN  = 0x0008
	MOUSEEVENTF_RIGHTUP    = 0x0010
	MOUSEEVENTF_MIDDLEDOWN = 0x0020
	MOUSEEVENTF_MIDDLEUP   = 0x0040

	KEYEVENTF_KEYUP = 0x0002

	CLR_INVALID = 0xFFFFFFFF
)

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type KEYBDINPUT struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// INPUT is a C union; MOUSEINPUT is its largest member
type mouseINPUT struct {
	Type uint32
	Mi   MOUSEINPUT
}

type keybdINPUT struct {
	Type uint32
	Ki   KEYBDINPUT
	_    [unsafe.Sizeof(MOUSEINPUT{}) - unsafe.Sizeof(KEYBDINPUT{})]byte
}

// OSInjector synthesizes input with SendInput
type OSInjector struct{}

// NewInjector creates a new input injector for Windows
func NewInjector() *OSInjector {
	return &OSInjector{}
}

// InjectMouseMove places the cursor at absolute screen coordinates
func (i *OSInjector) InjectMouseMove(x, y int) error {
	ret, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ret == 0 {
		return fmt.Errorf("input: SetCursorPos(%d,%d): %w", x, y, err)
	}
	return nil
}

// InjectMouseButton presses or releases a button at the current cursor position
func (i *OSInjector) InjectMouseButton(button action.Button, pressed bool) error {
	var flags uint32
	switch button {
	case action.ButtonLeft:
		flags = pick(pressed, MOUSEEVENTF_LEFTDOWN, MOUSEEVENTF_LEFTUP)
	case action.ButtonRight:
		flags = pick(pressed, MOUSEEVENTF_RIGHTDOWN, MOUSEEVENTF_RIGHTUP)
	case action.ButtonScroll:
		flags = pick(pressed, MOUSEEVENTF_MIDDLEDOWN, MOUSEEVENTF_MIDDLEUP)
	default:
		return fmt.Errorf("input: invalid button number: %d", button)
	}

	in := mouseINPUT{Type: INPUT_MOUSE, Mi: MOUSEINPUT{DwFlags: flags}}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

// InjectKey presses or releases a virtual key
func (i *OSInjector) InjectKey(keyCode uint32, pressed bool) error {
	if _, ok := IdentityKeyMap(keyCode); !ok {
		return fmt.Errorf("input: invalid virtual-key code 0x%X", keyCode)
	}
	in := keybdINPUT{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WVk: uint16(keyCode)}}
	if !pressed {
		in.Ki.DwFlags = KEYEVENTF_KEYUP
	}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func sendInput(in unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(in), size)
	if n != 1 {
		return fmt.Errorf("input: SendInput: %w", err)
	}
	return nil
}

func pick(pressed bool, down, up uint32) uint32 {
	if pressed {
		return down
	}
	return up
}

// ScreenReader samples pixels from the desktop device context
type ScreenReader struct{}

// NewColorReader creates a GDI color reader
func NewColorReader() *ScreenReader {
	return &ScreenReader{}
}

// ColorAt returns the color of the pixel at (x, y)
func (r *ScreenReader) ColorAt(x, y int) (action.Color, error) {
	hdc, _, err := procGetDC.Call(0)
	if hdc == 0 {
		return 0, fmt.Errorf("input: GetDC: %w", err)
	}
	defer procReleaseDC.Call(0, hdc)

	ref, _, _ := procGetPixel.Call(hdc, uintptr(x), uintptr(y))
	if uint32(ref) == CLR_INVALID {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	// COLORREF is 0x00BBGGRR
	return action.RGB(uint8(ref), uint8(ref>>8), uint8(ref>>16)), nil
}
