// Package capture turns a live stream of raw input events into an ordered
// queue of encoded action lines.
package capture

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"vmacro/internal/action"
	"vmacro/internal/hotkey"
	"vmacro/internal/input"
	"vmacro/internal/protocol"
)

// DefaultCancelChord ends a capture when held
const DefaultCancelChord = "Shift+Escape"

// Config holds capture settings
type Config struct {
	CancelChord string        // e.g. "Shift+Escape"
	KeyMap      input.KeyMap  // native code -> virtual-key code; nil means identity
	Bounds      action.Bounds // raw coordinates are clamped into it
	MaxMoveRate float64       // mouse-move records per second, 0 = unlimited

	// Now is the capture clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default capture configuration for this platform
func DefaultConfig() Config {
	return Config{
		CancelChord: DefaultCancelChord,
		KeyMap:      input.NativeKeyMap(),
	}
}

// Stats counts what happened to the raw events of a capture
type Stats struct {
	Recorded    int // lines appended to the queue
	SkippedKeys int // key events with no virtual-key mapping
	Unsampled   int // button events whose color could not be read
	Throttled   int // mouse moves dropped by MaxMoveRate
	Invalid     int // events that did not form a valid action
}

// Pipeline consumes a RawSource until the cancel chord is held, Stop is
// called or the context ends.
type Pipeline struct {
	src     input.RawSource
	colors  input.ColorReader
	cfg     Config
	codec   protocol.Codec
	queue   *Queue
	limiter *rate.Limiter

	tracker *hotkey.Tracker
	start   time.Time
	last    time.Duration

	// Last recorded cursor position, and whether a later move was throttled
	cursorX, cursorY int
	hasCursor        bool
	moveDropped      bool

	stopOnce sync.Once
	stopped  chan struct{}

	mu    sync.Mutex
	stats Stats
}

// New creates a pipeline. Nothing is captured until Run.
func New(src input.RawSource, colors input.ColorReader, cfg Config) *Pipeline {
	if cfg.KeyMap == nil {
		cfg.KeyMap = input.IdentityKeyMap
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	p := &Pipeline{
		src:     src,
		colors:  colors,
		cfg:     cfg,
		codec:   protocol.Codec{Bounds: cfg.Bounds, AllowUnsampled: true},
		queue:   &Queue{},
		stopped: make(chan struct{}),
	}
	if cfg.MaxMoveRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.MaxMoveRate), 1)
	}
	return p
}

// Queue returns the queue being filled
func (p *Pipeline) Queue() *Queue {
	return p.queue
}

// Stats returns a snapshot of the capture counters
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Stop ends the capture. It is safe to call more than once and from any goroutine.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

// Run starts the source and blocks until the capture ends
func (p *Pipeline) Run(ctx context.Context) (*Queue, error) {
	chord := hotkey.Chord{}
	if p.cfg.CancelChord != "" {
		var err error
		chord, err = hotkey.ParseChord(p.cfg.CancelChord)
		if err != nil {
			return nil, fmt.Errorf("capture: cancel chord: %w", err)
		}
	}
	p.tracker = hotkey.NewTracker(chord)

	if err := p.src.Start(); err != nil {
		return nil, fmt.Errorf("capture: start source: %w", err)
	}
	p.start = p.cfg.Now()
	log.Printf("Capture: started, press %s to finish", chord)

	g, gctx := errgroup.WithContext(ctx)

	// Pump raw events into the queue
	g.Go(func() error {
		defer p.Stop()
		events := p.src.Events()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if p.handle(ev) {
					log.Println("Capture: cancel chord held")
					return nil
				}
			case <-p.stopped:
				return nil
			}
		}
	})

	// Stop the source on cancellation or when the pump is done
	g.Go(func() error {
		select {
		case <-gctx.Done():
			p.Stop()
		case <-p.stopped:
		}
		if err := p.src.Stop(); err != nil {
			return fmt.Errorf("capture: stop source: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s := p.Stats()
	log.Printf("Capture: finished, %d lines, %d keys skipped, %d unsampled, %d moves throttled",
		s.Recorded, s.SkippedKeys, s.Unsampled, s.Throttled)
	return p.queue, err
}

// stamp returns the capture-relative, non-decreasing timestamp of an event
func (p *Pipeline) stamp(ev input.RawEvent) time.Duration {
	at := ev.At
	if at.IsZero() {
		at = p.cfg.Now()
	}
	ts := at.Sub(p.start)
	if ts < p.last {
		ts = p.last
	}
	p.last = ts
	return ts
}

// handle records one event and reports whether the cancel chord completed
func (p *Pipeline) handle(ev input.RawEvent) bool {
	ts := p.stamp(ev)

	switch ev.Kind {
	case input.MouseMoved, input.MouseDragged:
		if p.limiter != nil && !p.limiter.AllowN(p.start.Add(ts), 1) {
			p.count(func(s *Stats) { s.Throttled++ })
			p.moveDropped = true
			return false
		}
		x, y := p.cfg.Bounds.Clamp(ev.X, ev.Y)
		p.pushMove(ts, x, y)

	case input.MousePressed, input.MouseReleased:
		x, y := p.cfg.Bounds.Clamp(ev.X, ev.Y)
		// Buttons are injected at the cursor, so catch up on a throttled move first
		if p.moveDropped && (!p.hasCursor || p.cursorX != x || p.cursorY != y) {
			p.pushMove(ts, x, y)
		}
		color := p.sample(x, y)
		if ev.Kind == input.MousePressed {
			p.push(action.NewMousePress(p.cfg.Bounds, ts, ev.Button, x, y, color))
		} else {
			p.push(action.NewMouseRelease(p.cfg.Bounds, ts, ev.Button, x, y, color))
		}

	case input.KeyPressed:
		code, ok := p.cfg.KeyMap(ev.Code)
		if !ok {
			p.count(func(s *Stats) { s.SkippedKeys++ })
			return false
		}
		p.push(action.NewKeyPress(ts, code))
		if p.tracker.Update(code, true) {
			// Release every chord key so playback never leaves one held
			for _, held := range p.tracker.HeldChordCodes() {
				p.push(action.NewKeyRelease(ts, held))
			}
			return true
		}

	case input.KeyReleased:
		code, ok := p.cfg.KeyMap(ev.Code)
		if !ok {
			p.count(func(s *Stats) { s.SkippedKeys++ })
			return false
		}
		p.tracker.Update(code, false)
		p.push(action.NewKeyRelease(ts, code))
	}
	return false
}

// sample reads the color under a button event. Failures never abort a capture.
func (p *Pipeline) sample(x, y int) action.Color {
	if p.colors == nil {
		p.count(func(s *Stats) { s.Unsampled++ })
		return action.Unsampled
	}
	c, err := p.colors.ColorAt(x, y)
	if err != nil {
		log.Printf("Capture: color sample at (%d,%d) failed: %v", x, y, err)
		p.count(func(s *Stats) { s.Unsampled++ })
		return action.Unsampled
	}
	return c
}

func (p *Pipeline) pushMove(ts time.Duration, x, y int) {
	p.push(action.NewMouseMove(p.cfg.Bounds, ts, x, y))
	p.cursorX, p.cursorY = x, y
	p.hasCursor = true
	p.moveDropped = false
}

func (p *Pipeline) push(a action.Action, err error) {
	if err != nil {
		log.Printf("Capture: dropping event: %v", err)
		p.count(func(s *Stats) { s.Invalid++ })
		return
	}
	p.queue.Append(p.codec.Encode(a))
	p.count(func(s *Stats) { s.Recorded++ })
}

func (p *Pipeline) count(f func(*Stats)) {
	p.mu.Lock()
	f(&p.stats)
	p.mu.Unlock()
}
