package input

import "sync"

// Key codes in the engine's space are Windows virtual-key codes.
const (
	minVK = 0x01
	maxVK = 0xFE
)

// IdentityKeyMap accepts native codes that already are virtual-key codes
func IdentityKeyMap(native uint32) (uint32, bool) {
	if native < minVK || native > maxVK {
		return 0, false
	}
	return native, true
}

// Windows VK code to macOS CGKeyCode mapping
// Reference: https://docs.microsoft.com/en-us/windows/win32/inputdev/virtual-key-codes
// Reference: https://developer.apple.com/documentation/coregraphics/cgkeycode
var windowsToMacKeyMap = map[uint32]uint32{
	// Letters A-Z (Windows VK_A = 0x41, macOS kVK_ANSI_A = 0x00)
	0x41: 0x00, // A
	0x42: 0x0B, // B
	0x43: 0x08, // C
	0x44: 0x02, // D
	0x45: 0x0E, // E
	0x46: 0x03, // F
	0x47: 0x05, // G
	0x48: 0x04, // H
	0x49: 0x22, // I
	0x4A: 0x26, // J
	0x4B: 0x28, // K
	0x4C: 0x25, // L
	0x4D: 0x2E, // M
	0x4E: 0x2D, // N
	0x4F: 0x1F, // O
	0x50: 0x23, // P
	0x51: 0x0C, // Q
	0x52: 0x0F, // R
	0x53: 0x01, // S
	0x54: 0x11, // T
	0x55: 0x20, // U
	0x56: 0x09, // V
	0x57: 0x0D, // W
	0x58: 0x07, // X
	0x59: 0x10, // Y
	0x5A: 0x06, // Z

	// Numbers 0-9 (Windows VK_0 = 0x30, macOS kVK_ANSI_0 = 0x1D)
	0x30: 0x1D, // 0
	0x31: 0x12, // 1
	0x32: 0x13, // 2
	0x33: 0x14, // 3
	0x34: 0x15, // 4
	0x35: 0x17, // 5
	0x36: 0x16, // 6
	0x37: 0x1A, // 7
	0x38: 0x1C, // 8
	0x39: 0x19, // 9

	// Function keys (Windows VK_F1 = 0x70, macOS kVK_F1 = 0x7A)
	0x70: 0x7A, // F1
	0x71: 0x78, // F2
	0x72: 0x63, // F3
	0x73: 0x76, // F4
	0x74: 0x60, // F5
	0x75: 0x61, // F6
	0x76: 0x62, // F7
	0x77: 0x64, // F8
	0x78: 0x65, // F9
	0x79: 0x6D, // F10
	0x7A: 0x67, // F11
	0x7B: 0x6F, // F12

	// Special keys
	0x08: 0x33, // Backspace -> Delete
	0x09: 0x30, // Tab
	0x0D: 0x24, // Enter/Return
	0x10: 0x38, // Shift (left)
	0x11: 0x3B, // Control (left)
	0x12: 0x3A, // Alt -> Option
	0x14: 0x39, // Caps Lock
	0x1B: 0x35, // Escape
	0x20: 0x31, // Space

	// Arrow keys
	0x25: 0x7B, // Left Arrow
	0x26: 0x7E, // Up Arrow
	0x27: 0x7C, // Right Arrow
	0x28: 0x7D, // Down Arrow

	// Navigation keys
	0x21: 0x74, // Page Up
	0x22: 0x79, // Page Down
	0x23: 0x77, // End
	0x24: 0x73, // Home
	0x2D: 0x72, // Insert -> Help
	0x2E: 0x75, // Delete -> Forward Delete

	// Modifier keys
	0x5B: 0x37, // Left Windows -> Left Command
	0x5C: 0x36, // Right Windows -> Right Command
	0xA0: 0x38, // Left Shift
	0xA1: 0x3C, // Right Shift
	0xA2: 0x3B, // Left Control
	0xA3: 0x3E, // Right Control
	0xA4: 0x3A, // Left Alt -> Left Option
	0xA5: 0x3D, // Right Alt -> Right Option

	// Punctuation and symbols
	0xBA: 0x29, // ; -> ;
	0xBB: 0x18, // = -> =
	0xBC: 0x2B, // , -> ,
	0xBD: 0x1B, // - -> -
	0xBE: 0x2F, // . -> .
	0xBF: 0x2C, // / -> /
	0xC0: 0x32, // ` -> `
	0xDB: 0x21, // [ -> [
	0xDC: 0x2A, // \\ -> \\
	0xDD: 0x1E, // ] -> ]
	0xDE: 0x27, // ' -> '

	// Numpad
	0x60: 0x52, // Numpad 0
	0x61: 0x53, // Numpad 1
	0x62: 0x54, // Numpad 2
	0x63: 0x55, // Numpad 3
	0x64: 0x56, // Numpad 4
	0x65: 0x57, // Numpad 5
	0x66: 0x58, // Numpad 6
	0x67: 0x59, // Numpad 7
	0x68: 0x5B, // Numpad 8
	0x69: 0x5C, // Numpad 9
	0x6A: 0x43, // Numpad *
	0x6B: 0x45, // Numpad +
	0x6D: 0x4E, // Numpad -
	0x6E: 0x41, // Numpad .
	0x6F: 0x4B, // Numpad /
}

var (
	macToWindowsOnce sync.Once
	macToWindows     map[uint32]uint32
)

// MacKeyCode converts a virtual-key code to a macOS CGKeyCode
func MacKeyCode(vk uint32) (uint32, bool) {
	code, ok := windowsToMacKeyMap[vk]
	return code, ok
}

// MacKeyMap converts a macOS CGKeyCode to a virtual-key code. Where several
// virtual keys share one mac key (generic and left Shift, for example) the
// generic code wins.
func MacKeyMap(native uint32) (uint32, bool) {
	macToWindowsOnce.Do(func() {
		macToWindows = make(map[uint32]uint32, len(windowsToMacKeyMap))
		for vk, mac := range windowsToMacKeyMap {
			if prev, ok := macToWindows[mac]; ok && prev < vk {
				continue
			}
			macToWindows[mac] = vk
		}
	})
	vk, ok := macToWindows[native]
	return vk, ok
}
