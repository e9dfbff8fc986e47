package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/action"
)

func TestNewOptionsRepeatPolicy(t *testing.T) {
	_, err := NewOptions()
	assert.ErrorIs(t, err, ErrRepeatPolicy)

	_, err = NewOptions(RepeatCount(2), RepeatFor(1, Minutes))
	assert.ErrorIs(t, err, ErrRepeatPolicy)

	_, err = NewOptions(WithVerification(true))
	assert.ErrorIs(t, err, ErrRepeatPolicy)

	o, err := NewOptions(RepeatCount(3))
	require.NoError(t, err)
	n, ok := o.RepeatCount()
	assert.True(t, ok)
	assert.Equal(t, uint32(3), n)
	_, ok = o.RepeatFor()
	assert.False(t, ok)
	assert.Equal(t, StopQueue, o.OnFailure())

	o, err = NewOptions(RepeatFor(5, Minutes), WithVerification(true))
	require.NoError(t, err)
	d, ok := o.RepeatFor()
	assert.True(t, ok)
	assert.Equal(t, 5*time.Minute, d)
	assert.True(t, o.Verify())
	_, ok = o.RepeatCount()
	assert.False(t, ok)
}

func TestNewOptionsFailurePolicy(t *testing.T) {
	_, err := NewOptions(RepeatCount(1), OnFailureFallback(nil))
	assert.ErrorIs(t, err, ErrNoFallback)

	fb := action.NewRecording(nil, nil)
	o, err := NewOptions(RepeatCount(1), OnFailureFallback(fb))
	require.NoError(t, err)
	assert.Equal(t, RunFallback, o.OnFailure())
	assert.Same(t, fb, o.Fallback())

	o, err = NewOptions(RepeatCount(1), OnFailureFallback(fb), OnFailureContinue())
	require.NoError(t, err)
	assert.Equal(t, Continue, o.OnFailure())
	assert.Nil(t, o.Fallback())

	_, err = NewOptions(RepeatFor(1, Unit(9)))
	assert.Error(t, err)
}

func TestParseRepeatFor(t *testing.T) {
	tests := []struct {
		in   string
		n    uint32
		unit Unit
		ok   bool
	}{
		{"90s", 90, Seconds, true},
		{"5m", 5, Minutes, true},
		{" 2H ", 2, Hours, true},
		{"0s", 0, Seconds, true},
		{"5", 0, 0, false},
		{"m", 0, 0, false},
		{"-1m", 0, 0, false},
		{"1d", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, unit, err := ParseRepeatFor(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.unit, unit)
		})
	}
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("Continue")
	require.NoError(t, err)
	assert.Equal(t, Continue, p)

	p, err = ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, StopQueue, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
