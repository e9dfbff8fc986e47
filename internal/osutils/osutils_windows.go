//go:build windows

package osutils

import (
	"fmt"
	"log"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	SM_CXSCREEN      = 0
	SM_CYSCREEN      = 1
	INPUT_MOUSE      = 0
	MOUSEEVENTF_MOVE = 0x0001
)

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type INPUT struct {
	Type uint32
	Mi   MOUSEINPUT
}

// IsAdmin checks if the current process has administrative privileges.
// Low-level hooks cannot see input sent to elevated windows unless it is.
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// ScreenSize returns the primary display size in pixels
func ScreenSize() (int, int, error) {
	w, _, _ := procGetSystemMetrics.Call(SM_CXSCREEN)
	h, _, _ := procGetSystemMetrics.Call(SM_CYSCREEN)
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("osutils: GetSystemMetrics returned %dx%d", w, h)
	}
	return int(w), int(h), nil
}

// WakeDisplay nudges the mouse by one pixel and back so a sleeping display or
// screensaver does not hide the pixels playback verifies against
func WakeDisplay() error {
	log.Println("WakeDisplay: Simulating mouse movement to wake display...")

	input := INPUT{Type: INPUT_MOUSE, Mi: MOUSEINPUT{Dx: 1, Dy: 1, DwFlags: MOUSEEVENTF_MOVE}}
	if n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&input)), unsafe.Sizeof(input)); n != 1 {
		return fmt.Errorf("osutils: SendInput: %w", err)
	}

	// Move back
	input.Mi.Dx, input.Mi.Dy = -1, -1
	if n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&input)), unsafe.Sizeof(input)); n != 1 {
		return fmt.Errorf("osutils: SendInput: %w", err)
	}
	return nil
}
