package action

import "fmt"

// Color is a 24-bit 0xRRGGBB value
type Color uint32

// Unsampled marks a button event whose screen color could not be read at capture time.
// It never matches any sampled color.
const Unsampled Color = 1 << 24

// MaxColor is the largest encodable RGB value
const MaxColor Color = 0xFFFFFF

// RGB builds a Color from its channels
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Valid reports whether c is a 24-bit color or the Unsampled sentinel
func (c Color) Valid() bool {
	return c <= MaxColor || c == Unsampled
}

func (c Color) Sampled() bool { return c <= MaxColor }

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// Within reports whether every channel of c differs from other by less than tolerance.
// Unsampled colors never match.
func (c Color) Within(other Color, tolerance int) bool {
	if !c.Sampled() || !other.Sampled() {
		return false
	}
	return channelDelta(c.R(), other.R()) < tolerance &&
		channelDelta(c.G(), other.G()) < tolerance &&
		channelDelta(c.B(), other.B()) < tolerance
}

func channelDelta(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func (c Color) String() string {
	if !c.Sampled() {
		return "unsampled"
	}
	return fmt.Sprintf("#%06X", uint32(c))
}
