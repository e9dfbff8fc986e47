// Package inputtest provides in-memory input collaborators for tests.
package inputtest

import (
	"errors"
	"fmt"
	"sync"

	"vmacro/internal/action"
	"vmacro/internal/input"
)

// ErrInjected is returned by a Recorder for calls configured to fail
var ErrInjected = errors.New("inputtest: injected failure")

// Call is one recorded injection
type Call struct {
	Op      string // "move", "button" or "key"
	X, Y    int
	Button  action.Button
	Code    uint32
	Pressed bool
}

func (c Call) String() string {
	switch c.Op {
	case "move":
		return fmt.Sprintf("move(%d,%d)", c.X, c.Y)
	case "button":
		return fmt.Sprintf("button(%s,%t)", c.Button, c.Pressed)
	default:
		return fmt.Sprintf("key(0x%X,%t)", c.Code, c.Pressed)
	}
}

// Recorder is an input.Injector that records every call.
// It also tracks the cursor so a Colors reader can follow it.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	failOn  map[int]error
	OnCall  func(Call)
	cursorX int
	cursorY int
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{failOn: make(map[int]error)}
}

// FailOn makes the n-th call (0-based) return err. A nil err means ErrInjected.
func (r *Recorder) FailOn(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	r.failOn[n] = err
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	n := len(r.calls)
	r.calls = append(r.calls, c)
	err := r.failOn[n]
	hook := r.OnCall
	r.mu.Unlock()
	if hook != nil {
		hook(c)
	}
	return err
}

func (r *Recorder) InjectMouseMove(x, y int) error {
	r.mu.Lock()
	r.cursorX, r.cursorY = x, y
	r.mu.Unlock()
	return r.record(Call{Op: "move", X: x, Y: y})
}

func (r *Recorder) InjectMouseButton(button action.Button, pressed bool) error {
	return r.record(Call{Op: "button", Button: button, Pressed: pressed})
}

func (r *Recorder) InjectKey(keyCode uint32, pressed bool) error {
	return r.record(Call{Op: "key", Code: keyCode, Pressed: pressed})
}

// Calls returns a copy of the recorded calls
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Cursor returns the last position moved to
func (r *Recorder) Cursor() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursorX, r.cursorY
}

// Colors is a scripted input.ColorReader. Points not set return Default.
// Each point may hold a sequence; every read pops the head until one value remains.
type Colors struct {
	mu      sync.Mutex
	points  map[[2]int][]action.Color
	errs    map[[2]int]error
	Default action.Color
	reads   int
}

// NewColors creates a reader returning def everywhere
func NewColors(def action.Color) *Colors {
	return &Colors{
		points:  make(map[[2]int][]action.Color),
		errs:    make(map[[2]int]error),
		Default: def,
	}
}

// Set scripts the colors observed at (x, y) on successive reads
func (c *Colors) Set(x, y int, seq ...action.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[[2]int{x, y}] = append([]action.Color(nil), seq...)
}

// Fail makes reads at (x, y) return err
func (c *Colors) Fail(x, y int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[[2]int{x, y}] = err
}

// ColorAt implements input.ColorReader
func (c *Colors) ColorAt(x, y int) (action.Color, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	key := [2]int{x, y}
	if err, ok := c.errs[key]; ok {
		return 0, err
	}
	seq, ok := c.points[key]
	if !ok || len(seq) == 0 {
		return c.Default, nil
	}
	col := seq[0]
	if len(seq) > 1 {
		c.points[key] = seq[1:]
	}
	return col, nil
}

// Reads returns how many samples were taken
func (c *Colors) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Source is a channel-backed input.RawSource
type Source struct {
	mu       sync.Mutex
	ch       chan input.RawEvent
	started  bool
	stopped  bool
	StartErr error
}

// NewSource creates a source with the given buffer
func NewSource(buffer int) *Source {
	return &Source{ch: make(chan input.RawEvent, buffer)}
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	if s.started {
		return input.ErrAlreadyRunning
	}
	s.started = true
	return nil
}

// Stop closes the event channel. It is safe to call more than once.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.ch)
	}
	return nil
}

func (s *Source) Events() <-chan input.RawEvent {
	return s.ch
}

// Emit queues an event. It returns false once the source is stopped.
func (s *Source) Emit(ev input.RawEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.ch <- ev
	return true
}

// Stopped reports whether Stop was called
func (s *Source) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

var (
	_ input.Injector    = (*Recorder)(nil)
	_ input.ColorReader = (*Colors)(nil)
	_ input.RawSource   = (*Source)(nil)
)
