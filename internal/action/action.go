// Package action defines the recorded input events that vmacro captures,
// stores and replays, plus the click zones used for verification.
package action

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the variant of an Action
type Kind int

const (
	KindWait Kind = iota + 1
	KindMouseMove
	KindMousePress
	KindMouseRelease
	KindKeyPress
	KindKeyRelease
)

func (k Kind) String() string {
	switch k {
	case KindWait:
		return "wait"
	case KindMouseMove:
		return "mouse_move"
	case KindMousePress:
		return "mouse_press"
	case KindMouseRelease:
		return "mouse_release"
	case KindKeyPress:
		return "key_press"
	case KindKeyRelease:
		return "key_release"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Button is a mouse button as numbered on the wire: 1=left, 2=right, 3=scroll (middle)
type Button uint8

const (
	ButtonLeft   Button = 1
	ButtonRight  Button = 2
	ButtonScroll Button = 3
)

// Valid reports whether b is one of the known buttons
func (b Button) Valid() bool {
	return b >= ButtonLeft && b <= ButtonScroll
}

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonScroll:
		return "scroll"
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// Bounds is the screen area coordinates must fall in. The zero value is unbounded.
type Bounds struct {
	Width  int
	Height int
}

// Unbounded reports whether no screen limit applies
func (b Bounds) Unbounded() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Clamp pulls (x, y) into [0, Width] x [0, Height]
func (b Bounds) Clamp(x, y int) (int, int) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if b.Unbounded() {
		return x, y
	}
	if x > b.Width {
		x = b.Width
	}
	if y > b.Height {
		y = b.Height
	}
	return x, y
}

func (b Bounds) check(x, y int) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("%w: negative coordinate (%d,%d)", ErrInvalidAction, x, y)
	}
	if !b.Unbounded() && (x > b.Width || y > b.Height) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d screen", ErrInvalidAction, x, y, b.Width, b.Height)
	}
	return nil
}

// Action is a single recorded event. Values are immutable; build them with the
// New* constructors, which refuse to produce invalid actions.
type Action struct {
	id        uuid.UUID
	kind      Kind
	timestamp time.Duration
	duration  time.Duration
	x, y      int
	button    Button
	color     Color
	keyCode   uint32
}

func newAction(kind Kind, ts time.Duration) (Action, error) {
	if ts < 0 {
		return Action{}, fmt.Errorf("%w: negative timestamp %d", ErrInvalidAction, ts)
	}
	return Action{id: uuid.New(), kind: kind, timestamp: ts}, nil
}

// NewWait creates a pause of d, starting at ts
func NewWait(ts, d time.Duration) (Action, error) {
	if d < 0 {
		return Action{}, fmt.Errorf("%w: negative wait %s", ErrInvalidAction, d)
	}
	a, err := newAction(KindWait, ts)
	if err != nil {
		return Action{}, err
	}
	a.duration = d
	return a, nil
}

// NewMouseMove creates an absolute cursor move to (x, y)
func NewMouseMove(b Bounds, ts time.Duration, x, y int) (Action, error) {
	if err := b.check(x, y); err != nil {
		return Action{}, err
	}
	a, err := newAction(KindMouseMove, ts)
	if err != nil {
		return Action{}, err
	}
	a.x, a.y = x, y
	return a, nil
}

// NewMousePress creates a button press at (x, y) with the color seen there at capture time
func NewMousePress(b Bounds, ts time.Duration, btn Button, x, y int, c Color) (Action, error) {
	return newButton(KindMousePress, b, ts, btn, x, y, c)
}

// NewMouseRelease creates a button release at (x, y)
func NewMouseRelease(b Bounds, ts time.Duration, btn Button, x, y int, c Color) (Action, error) {
	return newButton(KindMouseRelease, b, ts, btn, x, y, c)
}

func newButton(kind Kind, b Bounds, ts time.Duration, btn Button, x, y int, c Color) (Action, error) {
	if !btn.Valid() {
		return Action{}, fmt.Errorf("%w: unknown mouse button %d", ErrInvalidAction, btn)
	}
	if !c.Valid() {
		return Action{}, fmt.Errorf("%w: color %#x out of range", ErrInvalidAction, uint32(c))
	}
	if err := b.check(x, y); err != nil {
		return Action{}, err
	}
	a, err := newAction(kind, ts)
	if err != nil {
		return Action{}, err
	}
	a.button, a.x, a.y, a.color = btn, x, y, c
	return a, nil
}

// NewKeyPress creates a key-down event for a virtual-key code
func NewKeyPress(ts time.Duration, code uint32) (Action, error) {
	return newKey(KindKeyPress, ts, code)
}

// NewKeyRelease creates a key-up event for a virtual-key code
func NewKeyRelease(ts time.Duration, code uint32) (Action, error) {
	return newKey(KindKeyRelease, ts, code)
}

func newKey(kind Kind, ts time.Duration, code uint32) (Action, error) {
	a, err := newAction(kind, ts)
	if err != nil {
		return Action{}, err
	}
	a.keyCode = code
	return a, nil
}

func (a Action) ID() uuid.UUID            { return a.id }
func (a Action) Kind() Kind               { return a.kind }
func (a Action) Timestamp() time.Duration { return a.timestamp }

// Duration is the length of a wait; zero for every other kind
func (a Action) Duration() time.Duration { return a.duration }

func (a Action) X() int          { return a.x }
func (a Action) Y() int          { return a.y }
func (a Action) Button() Button  { return a.button }
func (a Action) Color() Color    { return a.color }
func (a Action) KeyCode() uint32 { return a.keyCode }

// IsWait reports whether a is an inserted pause rather than a captured event
func (a Action) IsWait() bool { return a.kind == KindWait }

// Equal compares every field except the identity
func (a Action) Equal(b Action) bool {
	a.id, b.id = uuid.Nil, uuid.Nil
	return a == b
}

func (a Action) String() string {
	switch a.kind {
	case KindWait:
		return fmt.Sprintf("wait %s", a.duration)
	case KindMouseMove:
		return fmt.Sprintf("move (%d,%d) @%s", a.x, a.y, a.timestamp)
	case KindMousePress, KindMouseRelease:
		return fmt.Sprintf("%s %s (%d,%d) %s @%s", a.kind, a.button, a.x, a.y, a.color, a.timestamp)
	case KindKeyPress, KindKeyRelease:
		return fmt.Sprintf("%s 0x%X @%s", a.kind, a.keyCode, a.timestamp)
	}
	return a.kind.String()
}
