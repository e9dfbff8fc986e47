package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyName returns the chord name of a virtual-key code, or "" if the key
// cannot take part in a chord. Left and right modifiers share the generic name.
func KeyName(vk uint32) string {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "CMD" // Windows key as CMD for consistency
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	case 0x14:
		return "CAPSLOCK"
	case 0x21:
		return "PAGEUP"
	case 0x22:
		return "PAGEDOWN"
	case 0x23:
		return "END"
	case 0x24:
		return "HOME"
	case 0x25:
		return "LEFT"
	case 0x26:
		return "UP"
	case 0x27:
		return "RIGHT"
	case 0x28:
		return "DOWN"
	case 0x2C:
		return "PRINTSCREEN"
	case 0x2D:
		return "INSERT"
	case 0x2E:
		return "DELETE"
	case 0x13:
		return "PAUSE"
	case 0x91:
		return "SCROLLLOCK"
	}

	// Letters A-Z
	if vk >= 0x41 && vk <= 0x5A {
		return string(rune(vk))
	}

	// Numbers 0-9
	if vk >= 0x30 && vk <= 0x39 {
		return string(rune(vk))
	}

	// F1-F12
	if vk >= 0x70 && vk <= 0x7B {
		return fmt.Sprintf("F%d", vk-0x6F)
	}

	return ""
}

var aliases = map[string]string{
	"ESCAPE":  "ESC",
	"CONTROL": "CTRL",
	"OPTION":  "ALT",
	"WIN":     "CMD",
	"SUPER":   "CMD",
	"META":    "CMD",
	"RETURN":  "ENTER",
	"DEL":     "DELETE",
}

// keyCode returns the generic virtual-key code for a chord name
func keyCode(name string) (uint32, bool) {
	if a, ok := aliases[name]; ok {
		name = a
	}
	if len(name) == 1 {
		r := name[0]
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return uint32(r), true
		}
		return 0, false
	}
	if strings.HasPrefix(name, "F") {
		n, err := strconv.Atoi(name[1:])
		if err == nil && n >= 1 && n <= 12 {
			return uint32(0x6F + n), true
		}
	}
	for vk := uint32(0x01); vk <= 0xFE; vk++ {
		if KeyName(vk) == name {
			return vk, true
		}
	}
	return 0, false
}
