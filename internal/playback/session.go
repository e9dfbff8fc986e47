// Package playback replays a compiled recording through an input injector,
// honoring a repeat policy, pause and resume, and click-zone verification.
package playback

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"vmacro/internal/action"
	"vmacro/internal/input"
)

const (
	// DefaultTolerance is the per-channel color difference below which two colors match
	DefaultTolerance = 25

	// DefaultPollInterval is how often a paused session checks for resume or stop
	DefaultPollInterval = 100 * time.Millisecond
)

// Devices are the OS collaborators a session drives
type Devices struct {
	Injector input.Injector
	Colors   input.ColorReader
}

// Stats counts what a session did
type Stats struct {
	Actions       int // actions executed
	Iterations    int // full passes over the recording
	Verifications int // color samples taken for verification
	Mismatches    int // samples that did not match the recorded color
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithTolerance sets the per-channel color tolerance
func WithTolerance(tolerance int) SessionOption {
	return func(s *Session) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// WithPollInterval sets how often a paused session polls
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.poll = d
		}
	}
}

// Session plays one recording on a single worker goroutine.
// Pause, Resume, Stop and Status may be called from any goroutine.
type Session struct {
	rec       *action.Recording
	opts      Options
	dev       Devices
	tolerance int
	poll      time.Duration

	state atomic.Int32

	// Offsets from epoch on the monotonic clock. clockMu keeps the pause
	// accounting consistent with the Paused state.
	clockMu     sync.Mutex
	epoch       time.Time
	startedAt   atomic.Int64
	pausedAt    atomic.Int64
	pauseOffset atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneOnce sync.Once
	done     chan struct{}

	mu    sync.Mutex
	err   error
	stats Stats

	// Worker-only verification memory between a press and its release
	pendingRelease *action.Color

	// Worker-only buttons and keys pressed and not yet released, in press order
	held []heldInput
}

type heldInput struct {
	key    bool
	code   uint32
	button action.Button
}

// NewSession creates a session in the New state
func NewSession(rec *action.Recording, opts Options, dev Devices, sessionOpts ...SessionOption) *Session {
	s := &Session{
		rec:       rec,
		opts:      opts,
		dev:       dev,
		tolerance: DefaultTolerance,
		poll:      DefaultPollInterval,
		epoch:     time.Now(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range sessionOpts {
		o(s)
	}
	return s
}

// now returns the time since the session was created on the monotonic clock
func (s *Session) now() time.Duration {
	return time.Since(s.epoch)
}

// Status returns the current state
func (s *Session) Status() State {
	return State(s.state.Load())
}

// Done is closed when the session reaches a terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the session ends and returns its error
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Start moves the session to Running and spawns its worker.
// Cancelling ctx has the same effect as Stop.
func (s *Session) Start(ctx context.Context) error {
	if s.rec == nil {
		return ErrNoRecording
	}
	if !s.state.CompareAndSwap(int32(New), int32(Running)) {
		return ErrAlreadyStarted
	}
	s.startedAt.Store(int64(s.now()))
	log.Printf("Playback: started %d actions, %s", s.rec.Len(), s.opts)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	go s.work()
	return nil
}

// Run starts the session and waits for it to end
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Pause suspends playback at the next action boundary
func (s *Session) Pause() {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	if s.state.CompareAndSwap(int32(Running), int32(Paused)) {
		s.pausedAt.Store(int64(s.now()))
		log.Println("Playback: paused")
	}
}

// Resume continues a paused session. Time spent paused does not count against
// a RepeatFor budget.
func (s *Session) Resume() {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	if s.state.CompareAndSwap(int32(Paused), int32(Running)) {
		s.pauseOffset.Add(int64(s.now()) - s.pausedAt.Load())
		log.Println("Playback: resumed")
	}
}

// Stop ends the session. It takes effect at the next action boundary, or
// immediately inside a wait or a pause.
func (s *Session) Stop() {
	var prev State
	for {
		prev = State(s.state.Load())
		if prev.Terminal() {
			return
		}
		if s.state.CompareAndSwap(int32(prev), int32(Stopped)) {
			break
		}
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	log.Println("Playback: stopped")

	// A session stopped before Start has no worker to close done
	if prev == New {
		s.finish(nil)
	}
}

// paused returns the total time spent paused, including a pause in progress
func (s *Session) paused() time.Duration {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	d := time.Duration(s.pauseOffset.Load())
	if s.Status() == Paused {
		d += s.now() - time.Duration(s.pausedAt.Load())
	}
	return d
}

// deadline returns the end of a RepeatFor session on the session clock
func (s *Session) deadline() (time.Duration, bool) {
	total, ok := s.opts.RepeatFor()
	if !ok {
		return 0, false
	}
	return time.Duration(s.startedAt.Load()) + total + s.paused(), true
}

func (s *Session) expired() bool {
	end, ok := s.deadline()
	return ok && s.now() >= end
}

func (s *Session) work() {
	err := s.loop()
	if err != nil {
		log.Printf("Playback: %v", err)
	}
	s.releaseHeld()
	s.finish(err)
}

// releaseHeld lifts every button and key a stopped or failed session left down
func (s *Session) releaseHeld() {
	for i := len(s.held) - 1; i >= 0; i-- {
		h := s.held[i]
		var err error
		if h.key {
			err = s.dev.Injector.InjectKey(h.code, false)
		} else {
			err = s.dev.Injector.InjectMouseButton(h.button, false)
		}
		if err != nil {
			log.Printf("Playback: failed to release held input: %v", err)
		}
	}
	s.held = nil
}

// track records a successful press or release for releaseHeld
func (s *Session) track(h heldInput, pressed bool) {
	for i, cur := range s.held {
		if cur == h {
			if !pressed {
				s.held = append(s.held[:i], s.held[i+1:]...)
			}
			return
		}
	}
	if pressed {
		s.held = append(s.held, h)
	}
}

// finish records the outcome, moves to a terminal state and closes done
func (s *Session) finish(err error) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		target := FinishedSuccessfully
		if err != nil {
			target = FinishedWithErrors
		}
		for {
			cur := State(s.state.Load())
			if cur.Terminal() {
				break
			}
			if cur == Paused {
				// A pause during the last action holds the session until resumed or stopped
				s.checkpoint()
				continue
			}
			if s.state.CompareAndSwap(int32(cur), int32(target)) {
				break
			}
		}
		st := s.Stats()
		log.Printf("Playback: %s after %d actions in %d iterations", s.Status(), st.Actions, st.Iterations)
		close(s.done)
	})
}

func (s *Session) loop() error {
	count, byCount := s.opts.RepeatCount()
	if s.rec.Len() == 0 {
		return nil
	}

	for iter := 0; !byCount || count == 0 || iter < int(count); iter++ {
		for i := 0; i < s.rec.Len(); i++ {
			if !s.checkpoint() {
				return nil
			}
			if s.expired() {
				return nil
			}
			if err := s.execute(i, s.rec.At(i)); err != nil {
				return err
			}
			s.count(func(st *Stats) { st.Actions++ })
		}
		s.count(func(st *Stats) { st.Iterations++ })
	}
	return nil
}

// checkpoint blocks while paused and reports whether playback should go on
func (s *Session) checkpoint() bool {
	for {
		switch s.Status() {
		case Running:
			return true
		case Paused:
			select {
			case <-s.stopCh:
				return false
			case <-time.After(s.poll):
			}
		default:
			return false
		}
	}
}

func (s *Session) execute(i int, a action.Action) error {
	inj := s.dev.Injector
	switch a.Kind() {
	case action.KindWait:
		s.wait(a.Duration())
		return nil
	case action.KindMouseMove:
		return injected(i, "move", inj.InjectMouseMove(a.X(), a.Y()))
	case action.KindKeyPress:
		return s.key(i, "key-press", a.KeyCode(), true)
	case action.KindKeyRelease:
		return s.key(i, "key-release", a.KeyCode(), false)
	case action.KindMousePress:
		return s.press(i, a)
	case action.KindMouseRelease:
		return s.release(i, a)
	}
	return &action.UnsupportedActionError{Index: i, Kind: a.Kind()}
}

// wait spins on the monotonic clock until d has passed, the RepeatFor deadline
// is reached or the session is stopped
func (s *Session) wait(d time.Duration) {
	end := s.now() + d
	for s.now() < end {
		if s.Status() == Stopped || s.expired() {
			return
		}
		runtime.Gosched()
	}
}

// press injects a button press. Inside a click zone with verification on, the
// color is sampled before the press and, on mismatch, again after it; a second
// mismatch defers judgement to the matching release.
func (s *Session) press(i int, a action.Action) error {
	if !s.opts.Verify() || !s.rec.InAnyZone(a.X(), a.Y()) {
		s.pendingRelease = nil
		return s.button(i, "press", a.Button(), true)
	}

	expected := a.Color()
	before := s.sample(a.X(), a.Y())
	if err := s.button(i, "press", a.Button(), true); err != nil {
		return err
	}
	if s.matches(before, expected) {
		s.pendingRelease = nil
		return nil
	}
	if after := s.sample(a.X(), a.Y()); s.matches(after, expected) {
		s.pendingRelease = nil
		return nil
	}
	s.pendingRelease = &expected
	return nil
}

// release injects a button release, failing the session if a pending check
// still mismatches both before and after the release
func (s *Session) release(i int, a action.Action) error {
	if s.pendingRelease == nil {
		return s.button(i, "release", a.Button(), false)
	}

	expected := *s.pendingRelease
	before := s.sample(a.X(), a.Y())
	if err := s.button(i, "release", a.Button(), false); err != nil {
		return err
	}
	if !s.matches(before, expected) {
		after := s.sample(a.X(), a.Y())
		if !s.matches(after, expected) {
			return &VerificationError{Index: i, Expected: expected, Observed: after}
		}
	}
	s.pendingRelease = nil
	return nil
}

func (s *Session) button(i int, op string, btn action.Button, pressed bool) error {
	if err := s.dev.Injector.InjectMouseButton(btn, pressed); err != nil {
		return injected(i, op, err)
	}
	s.track(heldInput{button: btn}, pressed)
	return nil
}

func (s *Session) key(i int, op string, code uint32, pressed bool) error {
	if err := s.dev.Injector.InjectKey(code, pressed); err != nil {
		return injected(i, op, err)
	}
	s.track(heldInput{key: true, code: code}, pressed)
	return nil
}

// sample reads the screen color. A read failure yields Unsampled, which never matches.
func (s *Session) sample(x, y int) action.Color {
	s.count(func(st *Stats) { st.Verifications++ })
	if s.dev.Colors == nil {
		return action.Unsampled
	}
	c, err := s.dev.Colors.ColorAt(x, y)
	if err != nil {
		log.Printf("Playback: color sample at (%d,%d) failed: %v", x, y, err)
		return action.Unsampled
	}
	return c
}

func (s *Session) matches(observed, expected action.Color) bool {
	if observed.Within(expected, s.tolerance) {
		return true
	}
	s.count(func(st *Stats) { st.Mismatches++ })
	return false
}

func (s *Session) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

func injected(i int, op string, err error) error {
	if err != nil {
		return &InjectionError{Index: i, Op: op, Err: err}
	}
	return nil
}
