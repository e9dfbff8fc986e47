package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/action"
	"vmacro/internal/input/inputtest"
	"vmacro/internal/playback"
)

var (
	screen = action.Bounds{Width: 1920, Height: 1080}
	red    = action.RGB(200, 0, 0)
	blue   = action.RGB(0, 0, 200)
	zone   = action.ClickZone{X: 0, Y: 0, Width: 50, Height: 50}
)

// keyRec presses and releases one key, so the injected calls name the recording
func keyRec(t *testing.T, code uint32) *action.Recording {
	t.Helper()
	press, err := action.NewKeyPress(0, code)
	require.NoError(t, err)
	release, err := action.NewKeyRelease(1, code)
	require.NoError(t, err)
	return action.NewRecording([]action.Action{press, release}, nil)
}

// slowRec is keyRec with a short pause, for items repeated until stopped
func slowRec(t *testing.T, code uint32) *action.Recording {
	t.Helper()
	press, err := action.NewKeyPress(0, code)
	require.NoError(t, err)
	pause, err := action.NewWait(0, time.Millisecond)
	require.NoError(t, err)
	release, err := action.NewKeyRelease(1, code)
	require.NoError(t, err)
	return action.NewRecording([]action.Action{press, pause, release}, nil)
}

// failingRec clicks inside a zone expecting red; the test screen is always blue
func failingRec(t *testing.T) *action.Recording {
	t.Helper()
	press, err := action.NewMousePress(screen, 0, action.ButtonLeft, 10, 10, red)
	require.NoError(t, err)
	release, err := action.NewMouseRelease(screen, 1, action.ButtonLeft, 10, 10, red)
	require.NoError(t, err)
	return action.NewRecording([]action.Action{press, release}, []action.ClickZone{zone})
}

// opts builds options, playing once unless o carries its own repeat policy
func opts(t *testing.T, o ...playback.Option) playback.Options {
	t.Helper()
	res, err := playback.NewOptions(o...)
	if errors.Is(err, playback.ErrRepeatPolicy) {
		res, err = playback.NewOptions(append([]playback.Option{playback.RepeatCount(1)}, o...)...)
	}
	require.NoError(t, err)
	return res
}

func TestOptsKeepsCallerRepeatPolicy(t *testing.T) {
	n, ok := opts(t, playback.RepeatCount(0)).RepeatCount()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), n)

	n, ok = opts(t, playback.OnFailureContinue()).RepeatCount()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), n)
}

type events struct {
	mu       sync.Mutex
	started  []string
	finished []string
	failed   []string
	errs     []error
}

func watch(o *Orchestrator) *events {
	ev := &events{}
	o.SetOnItemStarted(func(id, name string) {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		ev.started = append(ev.started, id)
	})
	o.SetOnItemFinished(func(id string) {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		ev.finished = append(ev.finished, id)
	})
	o.SetOnItemFailed(func(id string, err error) {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		ev.failed = append(ev.failed, id)
		ev.errs = append(ev.errs, err)
	})
	return ev
}

func keys(calls []inputtest.Call) []uint32 {
	var out []uint32
	for _, c := range calls {
		if c.Op == "key" && c.Pressed {
			out = append(out, c.Code)
		}
	}
	return out
}

func setup() (*Orchestrator, *inputtest.Recorder) {
	inj := inputtest.NewRecorder()
	colors := inputtest.NewColors(blue)
	return New(playback.Devices{Injector: inj, Colors: colors}), inj
}

func TestQueuePlaysItemsInOrder(t *testing.T) {
	o, inj := setup()
	ev := watch(o)

	a := o.Add("a", keyRec(t, 0x41), opts(t))
	b := o.Add("b", keyRec(t, 0x42), opts(t, playback.RepeatCount(2)))
	c := o.Add("c", keyRec(t, 0x43), opts(t))
	assert.Len(t, o.Pending(), 3)

	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, []uint32{0x41, 0x42, 0x42, 0x43}, keys(inj.Calls()))
	assert.Equal(t, []string{a, b, c}, ev.started)
	assert.Equal(t, []string{a, b, c}, ev.finished)
	assert.Empty(t, ev.failed)

	st := o.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 3, st.Finished)
	assert.Empty(t, o.Pending())
}

func TestQueueAddReturnsUniqueIDs(t *testing.T) {
	o, _ := setup()
	ids := map[string]bool{}
	for i := 0; i < 10; i++ {
		ids[o.Add("x", keyRec(t, 0x41), opts(t))] = true
	}
	assert.Len(t, ids, 10)
}

func TestQueueFailureStopsQueue(t *testing.T) {
	o, inj := setup()
	ev := watch(o)

	bad := o.Add("bad", failingRec(t), opts(t, playback.WithVerification(true)))
	o.Add("next", keyRec(t, 0x41), opts(t))

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, playback.ErrVerification)

	var ie *ItemError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, bad, ie.ID)

	assert.Equal(t, []string{bad}, ev.failed)
	assert.Empty(t, ev.finished)
	assert.Empty(t, keys(inj.Calls()), "remaining items are discarded")
	assert.Empty(t, o.Pending())
}

func TestQueueFailureContinue(t *testing.T) {
	o, inj := setup()
	ev := watch(o)

	bad := o.Add("bad", failingRec(t), opts(t, playback.WithVerification(true), playback.OnFailureContinue()))
	next := o.Add("next", keyRec(t, 0x41), opts(t))

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, []string{bad}, ev.failed)
	assert.Equal(t, []string{next}, ev.finished)
	assert.Equal(t, []uint32{0x41}, keys(inj.Calls()))
	assert.Equal(t, 1, o.Status().Failed)
}

func TestQueueFallbackThenAdvance(t *testing.T) {
	o, inj := setup()
	ev := watch(o)

	bad := o.Add("bad", failingRec(t), opts(t,
		playback.WithVerification(true),
		playback.OnFailureFallback(keyRec(t, 0x46))))
	next := o.Add("next", keyRec(t, 0x41), opts(t))

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, []uint32{0x46, 0x41}, keys(inj.Calls()), "fallback plays before the next item")
	assert.Equal(t, []string{bad}, ev.failed)
	assert.Equal(t, []string{next}, ev.finished)
}

func TestQueueFallbackFailureStops(t *testing.T) {
	o, inj := setup()
	ev := watch(o)

	// The fallback runs with verification even though the item did not
	bad := o.Add("bad", failingRec(t), opts(t,
		playback.WithVerification(true),
		playback.OnFailureFallback(failingRec(t))))
	o.Add("next", keyRec(t, 0x41), opts(t))

	err := o.Run(context.Background())
	assert.ErrorIs(t, err, playback.ErrVerification)
	assert.Equal(t, []string{bad}, ev.failed)
	assert.Empty(t, keys(inj.Calls()))
}

func TestQueueStopFiresNoCallbacks(t *testing.T) {
	o, inj := setup()
	ev := watch(o)

	o.Add("forever", slowRec(t, 0x41), opts(t, playback.RepeatCount(0)))
	o.Add("never", keyRec(t, 0x42), opts(t))

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(inj.Calls()) > 10 }, time.Second, time.Millisecond)
	assert.True(t, o.Status().Running)
	o.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not stop")
	}
	assert.Empty(t, ev.finished)
	assert.Empty(t, ev.failed)
	assert.NotContains(t, keys(inj.Calls()), uint32(0x42))
	assert.False(t, o.Status().Running)
}

func TestQueuePauseResume(t *testing.T) {
	o, inj := setup()
	o.Add("forever", slowRec(t, 0x41), opts(t, playback.RepeatCount(0)))

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()
	defer func() {
		o.Stop()
		<-done
	}()

	require.Eventually(t, func() bool { return len(inj.Calls()) > 0 }, time.Second, time.Millisecond)
	o.Pause()
	require.Eventually(t, func() bool { return o.Status().Session == playback.Paused }, time.Second, time.Millisecond)
	assert.True(t, o.Status().Paused)

	o.Resume()
	assert.Equal(t, playback.Running, o.Status().Session)
}

func TestQueueRunTwice(t *testing.T) {
	o, _ := setup()
	o.Add("forever", slowRec(t, 0x41), opts(t, playback.RepeatCount(0)))

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()
	require.Eventually(t, func() bool { return o.Status().Running }, time.Second, time.Millisecond)

	assert.ErrorIs(t, o.Run(context.Background()), ErrAlreadyRunning)
	o.Stop()
	require.NoError(t, <-done)
}

func TestQueueContextCancel(t *testing.T) {
	o, inj := setup()
	o.Add("forever", slowRec(t, 0x41), opts(t, playback.RepeatCount(0)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	require.Eventually(t, func() bool { return len(inj.Calls()) > 0 }, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestQueueSummary(t *testing.T) {
	o, _ := setup()
	assert.Equal(t, "idle (0 done, 0 failed)", o.Summary())

	o.Add("a", keyRec(t, 0x41), opts(t))
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, "idle (1 done, 0 failed)", o.Summary())
}
