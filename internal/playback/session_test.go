package playback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/action"
	"vmacro/internal/compiler"
	"vmacro/internal/input/inputtest"
	"vmacro/internal/protocol"
)

var (
	screen = action.Bounds{Width: 1920, Height: 1080}
	red    = action.RGB(200, 30, 30)
	blue   = action.RGB(30, 30, 200)
	zone   = action.ClickZone{X: 0, Y: 0, Width: 100, Height: 100}
)

type script struct {
	t       *testing.T
	actions []action.Action
	ts      time.Duration
}

func newScript(t *testing.T) *script { return &script{t: t} }

func (b *script) add(a action.Action, err error) *script {
	b.t.Helper()
	require.NoError(b.t, err)
	b.actions = append(b.actions, a)
	b.ts += time.Millisecond
	return b
}

func (b *script) move(x, y int) *script {
	return b.add(action.NewMouseMove(screen, b.ts, x, y))
}

func (b *script) wait(d time.Duration) *script {
	return b.add(action.NewWait(b.ts, d))
}

func (b *script) click(x, y int, c action.Color) *script {
	b.add(action.NewMousePress(screen, b.ts, action.ButtonLeft, x, y, c))
	return b.add(action.NewMouseRelease(screen, b.ts, action.ButtonLeft, x, y, c))
}

func (b *script) key(code uint32) *script {
	b.add(action.NewKeyPress(b.ts, code))
	return b.add(action.NewKeyRelease(b.ts, code))
}

func (b *script) recording(zones ...action.ClickZone) *action.Recording {
	return action.NewRecording(b.actions, zones)
}

func options(t *testing.T, opts ...Option) Options {
	t.Helper()
	o, err := NewOptions(opts...)
	require.NoError(t, err)
	return o
}

func ops(calls []inputtest.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

func waitDone(t *testing.T, s *Session, within time.Duration) error {
	t.Helper()
	select {
	case <-s.Done():
		return s.Err()
	case <-time.After(within):
		t.Fatalf("session still %s after %s", s.Status(), within)
		return nil
	}
}

func TestSessionScenario(t *testing.T) {
	rec := newScript(t).move(10, 10).wait(0).click(10, 10, red).recording()
	inj := inputtest.NewRecorder()

	s := NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inj})
	assert.Equal(t, New, s.Status())
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, FinishedSuccessfully, s.Status())
	assert.Equal(t, []string{
		"move(10,10)",
		"button(left,true)",
		"button(left,false)",
	}, ops(inj.Calls()))
	assert.Equal(t, 4, s.Stats().Actions)
	assert.Equal(t, 1, s.Stats().Iterations)
}

func TestSessionRepeatCount(t *testing.T) {
	rec := newScript(t).key(0x41).recording()
	inj := inputtest.NewRecorder()

	s := NewSession(rec, options(t, RepeatCount(3)), Devices{Injector: inj})
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, inj.Calls(), 6)
	assert.Equal(t, 3, s.Stats().Iterations)
}

func TestSessionEmptyRecording(t *testing.T) {
	s := NewSession(action.NewRecording(nil, nil), options(t, RepeatCount(0)), Devices{Injector: inputtest.NewRecorder()})
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, FinishedSuccessfully, s.Status())
}

func TestSessionVerification(t *testing.T) {
	tests := []struct {
		name      string
		verify    bool
		x, y      int
		observed  []action.Color
		wantErr   bool
		wantReads int
	}{
		{name: "disabled never samples", verify: false, x: 10, y: 10, observed: []action.Color{blue}, wantReads: 0},
		{name: "outside zones never samples", verify: true, x: 500, y: 500, observed: []action.Color{blue}, wantReads: 0},
		{name: "match before press", verify: true, x: 10, y: 10, observed: []action.Color{red}, wantReads: 1},
		{name: "match after press", verify: true, x: 10, y: 10, observed: []action.Color{blue, red}, wantReads: 2},
		{name: "match before release", verify: true, x: 10, y: 10, observed: []action.Color{blue, blue, red}, wantReads: 3},
		{name: "match after release", verify: true, x: 10, y: 10, observed: []action.Color{blue, blue, blue, red}, wantReads: 4},
		{name: "never matches", verify: true, x: 10, y: 10, observed: []action.Color{blue}, wantErr: true, wantReads: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newScript(t).click(tt.x, tt.y, red).recording(zone)
			inj := inputtest.NewRecorder()
			colors := inputtest.NewColors(blue)
			colors.Set(tt.x, tt.y, tt.observed...)

			s := NewSession(rec, options(t, RepeatCount(1), WithVerification(tt.verify)), Devices{Injector: inj, Colors: colors})
			err := s.Run(context.Background())

			// The press and release are injected whatever the verdict
			assert.Len(t, inj.Calls(), 2)
			assert.Equal(t, tt.wantReads, colors.Reads())
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, FinishedSuccessfully, s.Status())
				return
			}

			assert.ErrorIs(t, err, ErrVerification)
			var ve *VerificationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, 1, ve.Index)
			assert.Equal(t, red, ve.Expected)
			assert.Equal(t, blue, ve.Observed)
			assert.Equal(t, FinishedWithErrors, s.Status())
		})
	}
}

func TestSessionVerificationTolerance(t *testing.T) {
	run := func(observed action.Color) error {
		rec := newScript(t).click(10, 10, action.RGB(100, 100, 100)).recording(zone)
		colors := inputtest.NewColors(observed)
		s := NewSession(rec, options(t, RepeatCount(1), WithVerification(true)),
			Devices{Injector: inputtest.NewRecorder(), Colors: colors})
		return s.Run(context.Background())
	}

	assert.NoError(t, run(action.RGB(124, 76, 100)))
	assert.ErrorIs(t, run(action.RGB(125, 100, 100)), ErrVerification)
}

func TestSessionSamplingErrorCountsAsMismatch(t *testing.T) {
	rec := newScript(t).click(10, 10, red).recording(zone)
	colors := inputtest.NewColors(red)
	colors.Fail(10, 10, errors.New("display gone"))

	s := NewSession(rec, options(t, RepeatCount(1), WithVerification(true)),
		Devices{Injector: inputtest.NewRecorder(), Colors: colors})
	err := s.Run(context.Background())

	var ve *VerificationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, action.Unsampled, ve.Observed)
}

func TestSessionInjectionError(t *testing.T) {
	rec := newScript(t).move(1, 1).key(0x41).recording()
	inj := inputtest.NewRecorder()
	inj.FailOn(1, nil)

	s := NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inj})
	err := s.Run(context.Background())

	var ie *InjectionError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, "key-press", ie.Op)
	assert.ErrorIs(t, err, inputtest.ErrInjected)
	assert.Equal(t, FinishedWithErrors, s.Status())
	assert.Len(t, inj.Calls(), 2, "nothing runs after a fatal error")
}

func TestSessionUnsupportedAction(t *testing.T) {
	rec := action.NewRecording([]action.Action{{}}, nil)
	s := NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inputtest.NewRecorder()})

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, action.ErrUnsupportedAction)
	assert.Equal(t, FinishedWithErrors, s.Status())
}

func TestSessionStopUnboundedRepeat(t *testing.T) {
	rec := newScript(t).move(1, 1).wait(time.Millisecond).recording()
	inj := inputtest.NewRecorder()
	var calls atomic.Int32
	reached := make(chan struct{})
	inj.OnCall = func(inputtest.Call) {
		if calls.Add(1) == 5 {
			close(reached)
		}
	}

	s := NewSession(rec, options(t, RepeatCount(0)), Devices{Injector: inj})
	require.NoError(t, s.Start(context.Background()))
	<-reached
	s.Stop()

	require.NoError(t, waitDone(t, s, time.Second))
	assert.Equal(t, Stopped, s.Status())

	// Terminal states never transition
	s.Resume()
	s.Pause()
	s.Stop()
	assert.Equal(t, Stopped, s.Status())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestSessionStopBeforeStart(t *testing.T) {
	s := NewSession(newScript(t).move(1, 1).recording(), options(t, RepeatCount(1)), Devices{Injector: inputtest.NewRecorder()})
	s.Stop()
	assert.Equal(t, Stopped, s.Status())
	require.NoError(t, waitDone(t, s, time.Second))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestSessionStopWinsOverPause(t *testing.T) {
	rec := newScript(t).move(1, 1).wait(time.Millisecond).recording()
	s := NewSession(rec, options(t, RepeatCount(0)), Devices{Injector: inputtest.NewRecorder()},
		WithPollInterval(time.Hour))
	require.NoError(t, s.Start(context.Background()))

	s.Pause()
	assert.Equal(t, Paused, s.Status())
	s.Stop()

	require.NoError(t, waitDone(t, s, time.Second))
	assert.Equal(t, Stopped, s.Status())
}

func TestSessionContextCancelStops(t *testing.T) {
	rec := newScript(t).wait(time.Hour).recording()
	s := NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inputtest.NewRecorder()})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	require.NoError(t, waitDone(t, s, time.Second))
	assert.Equal(t, Stopped, s.Status())
}

func TestSessionPauseHoldsAtActionBoundary(t *testing.T) {
	rec := newScript(t).move(1, 1).wait(time.Millisecond).recording()
	inj := inputtest.NewRecorder()
	s := NewSession(rec, options(t, RepeatCount(0)), Devices{Injector: inj},
		WithPollInterval(5*time.Millisecond))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return len(inj.Calls()) > 0 }, time.Second, time.Millisecond)
	s.Pause()
	// At most the action in flight completes after Pause
	time.Sleep(20 * time.Millisecond)
	frozen := len(inj.Calls())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, len(inj.Calls()))
	assert.Equal(t, Paused, s.Status())

	s.Resume()
	assert.Eventually(t, func() bool { return len(inj.Calls()) > frozen }, time.Second, time.Millisecond)
}

func TestSessionRepeatForCutsWaitAtDeadline(t *testing.T) {
	rec := newScript(t).move(1, 1).wait(time.Hour).recording()
	s := NewSession(rec, options(t, RepeatFor(1, Seconds)), Devices{Injector: inputtest.NewRecorder()})

	start := time.Now()
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, waitDone(t, s, 3*time.Second))

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, FinishedSuccessfully, s.Status())
}

func TestSessionRepeatForExcludesPausedTime(t *testing.T) {
	rec := newScript(t).move(1, 1).wait(10 * time.Millisecond).recording()
	s := NewSession(rec, options(t, RepeatFor(1, Seconds)), Devices{Injector: inputtest.NewRecorder()},
		WithPollInterval(10*time.Millisecond))

	start := time.Now()
	require.NoError(t, s.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)
	s.Pause()
	time.Sleep(500 * time.Millisecond)
	s.Resume()
	require.NoError(t, waitDone(t, s, 5*time.Second))

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 1500*time.Millisecond)
	assert.Less(t, elapsed, 2500*time.Millisecond)
	assert.Equal(t, FinishedSuccessfully, s.Status())
}

func TestSessionImportedRecordingWithVerification(t *testing.T) {
	file := strings.Join([]string{
		"CZONEE:10:10:50:50",
		"MMOVED:20:20:0",
		"MPRESS:1:20:20:16777215:1000000",
		"MRELEA:1:20:20:16777215:2000000",
	}, "\n")
	doc, err := protocol.Codec{Bounds: screen}.Import(strings.NewReader(file))
	require.NoError(t, err)
	rec, err := compiler.Compile(doc.Actions, doc.Zones)
	require.NoError(t, err)

	inj := inputtest.NewRecorder()
	colors := inputtest.NewColors(action.RGB(255, 255, 255))
	s := NewSession(rec, options(t, RepeatCount(1), WithVerification(true)), Devices{Injector: inj, Colors: colors})
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{
		"move(20,20)",
		"button(left,true)",
		"button(left,false)",
	}, ops(inj.Calls()))
	assert.Equal(t, 1, colors.Reads())
	assert.Equal(t, FinishedSuccessfully, s.Status())
}

func TestSessionPauseDuringLastActionHoldsFinish(t *testing.T) {
	for _, resume := range []bool{true, false} {
		name := "stop"
		if resume {
			name = "resume"
		}
		t.Run(name, func(t *testing.T) {
			rec := newScript(t).move(1, 1).recording()
			inj := inputtest.NewRecorder()
			var s *Session
			inj.OnCall = func(inputtest.Call) { s.Pause() }
			s = NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inj},
				WithPollInterval(5*time.Millisecond))
			require.NoError(t, s.Start(context.Background()))

			require.Eventually(t, func() bool { return len(inj.Calls()) == 1 }, time.Second, time.Millisecond)
			time.Sleep(30 * time.Millisecond)
			assert.Equal(t, Paused, s.Status())
			select {
			case <-s.Done():
				t.Fatal("a paused session must not finish")
			default:
			}

			if resume {
				s.Resume()
				require.NoError(t, waitDone(t, s, time.Second))
				assert.Equal(t, FinishedSuccessfully, s.Status())
				return
			}
			s.Stop()
			require.NoError(t, waitDone(t, s, time.Second))
			assert.Equal(t, Stopped, s.Status())
		})
	}
}

func TestSessionConcurrentResumeCountsPauseOnce(t *testing.T) {
	rec := newScript(t).wait(time.Hour).recording()
	s := NewSession(rec, options(t, RepeatFor(1, Hours)), Devices{Injector: inputtest.NewRecorder()})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.Pause()
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Resume()
		}()
	}
	wg.Wait()

	assert.Equal(t, Running, s.Status())
	paused := time.Duration(s.pauseOffset.Load())
	assert.GreaterOrEqual(t, paused, 100*time.Millisecond)
	assert.Less(t, paused, 190*time.Millisecond)
}

func TestSessionStopReleasesHeldInput(t *testing.T) {
	rec := newScript(t).
		add(action.NewMousePress(screen, 0, action.ButtonLeft, 5, 5, red)).
		add(action.NewKeyPress(0, 0x41)).
		wait(time.Hour).
		recording()
	inj := inputtest.NewRecorder()

	s := NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inj})
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return len(inj.Calls()) == 2 }, time.Second, time.Millisecond)
	s.Stop()

	require.NoError(t, waitDone(t, s, time.Second))
	assert.Equal(t, Stopped, s.Status())
	assert.Equal(t, []string{
		"button(left,true)",
		"key(0x41,true)",
		"key(0x41,false)",
		"button(left,false)",
	}, ops(inj.Calls()))
}

func TestSessionReleasedInputIsNotReleasedAgain(t *testing.T) {
	rec := newScript(t).click(5, 5, red).key(0x41).recording()
	inj := inputtest.NewRecorder()

	s := NewSession(rec, options(t, RepeatCount(1)), Devices{Injector: inj})
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, inj.Calls(), 4)
}

func TestSessionWithoutRecording(t *testing.T) {
	s := NewSession(nil, options(t, RepeatCount(1)), Devices{Injector: inputtest.NewRecorder()})
	assert.ErrorIs(t, s.Start(context.Background()), ErrNoRecording)
	assert.Equal(t, New, s.Status())
}
