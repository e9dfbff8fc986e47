package action

import "fmt"

// ClickZone is a top-left anchored screen rectangle in which button presses are verified
type ClickZone struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewClickZone validates and builds a zone
func NewClickZone(x, y, width, height int) (ClickZone, error) {
	if x < 0 || y < 0 {
		return ClickZone{}, fmt.Errorf("%w: zone origin (%d,%d) is negative", ErrInvalidZone, x, y)
	}
	if width <= 0 || height <= 0 {
		return ClickZone{}, fmt.Errorf("%w: zone size %dx%d must be positive", ErrInvalidZone, width, height)
	}
	return ClickZone{X: x, Y: y, Width: width, Height: height}, nil
}

// Contains reports whether (x, y) lies inside the zone. The right and bottom edges are exclusive.
func (z ClickZone) Contains(x, y int) bool {
	return x >= z.X && x < z.X+z.Width && y >= z.Y && y < z.Y+z.Height
}

func (z ClickZone) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", z.Width, z.Height, z.X, z.Y)
}
